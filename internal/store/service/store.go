package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quanghuy/freshmart/internal/models"
	"github.com/quanghuy/freshmart/internal/store/repo"
	"github.com/quanghuy/freshmart/internal/store/transport"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
)

type StoreService struct {
	Repo *repo.GormRepo
}

func (s *StoreService) List(ctx context.Context) ([]models.Store, error) {
	return s.Repo.List(ctx)
}

func (s *StoreService) Get(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	store, err := s.Repo.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("store %s: %w", id, ErrNotFound)
	}
	return store, err
}

func (s *StoreService) Create(ctx context.Context, req transport.StoreRequest) (*models.Store, error) {
	if req.Name == "" || req.Address == "" {
		return nil, fmt.Errorf("%w: name and address required", ErrValidation)
	}

	store := &models.Store{
		Name:        req.Name,
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		PhoneNumber: req.PhoneNumber,
	}
	if err := s.Repo.Create(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *StoreService) Update(ctx context.Context, id uuid.UUID, req transport.PatchStoreRequest) (*models.Store, error) {
	store, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		store.Name = *req.Name
	}
	if req.Address != nil {
		store.Address = *req.Address
	}
	if req.Latitude != nil {
		store.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		store.Longitude = *req.Longitude
	}
	if req.PhoneNumber != nil {
		store.PhoneNumber = *req.PhoneNumber
	}

	if err := s.Repo.Update(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *StoreService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.Repo.Delete(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("store %s: %w", id, ErrNotFound)
	}
	return err
}
