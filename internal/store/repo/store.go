package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quanghuy/freshmart/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) List(ctx context.Context) ([]models.Store, error) {
	var stores []models.Store
	if err := r.DB.WithContext(ctx).Order("name ASC").Find(&stores).Error; err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *GormRepo) Get(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.DB.WithContext(ctx).First(&store, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *GormRepo) Create(ctx context.Context, store *models.Store) error {
	return r.DB.WithContext(ctx).Create(store).Error
}

func (r *GormRepo) Update(ctx context.Context, store *models.Store) error {
	return r.DB.WithContext(ctx).Save(store).Error
}

func (r *GormRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Delete(&models.Store{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
