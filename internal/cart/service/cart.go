package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quanghuy/freshmart/internal/cart/repo"
	"github.com/quanghuy/freshmart/internal/logging"
	"github.com/quanghuy/freshmart/internal/models"
	"github.com/quanghuy/freshmart/internal/mykafka"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
)

type CartService struct {
	Repo     *repo.GormRepo
	Producer mykafka.Publisher
}

func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	return s.Repo.GetOrCreate(ctx, userID)
}

func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity uint) (*models.CartItem, error) {
	if productID == uuid.Nil {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if quantity == 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}

	cart, err := s.Repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.Repo.AddItem(ctx, cart.ID, productID, quantity)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, userID, map[string]any{
		"type":      "cart_item_added",
		"userID":    userID,
		"productID": productID,
		"quantity":  item.Quantity,
	})
	return item, nil
}

// UpdateItem sets the line quantity; zero removes the line.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity uint) (*models.CartItem, bool, error) {
	if productID == uuid.Nil {
		return nil, false, fmt.Errorf("%w: product_id required", ErrValidation)
	}

	cart, err := s.Repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	if quantity == 0 {
		if err := s.removeItem(ctx, cart, userID, productID); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	item, err := s.Repo.SetItemQuantity(ctx, cart.ID, productID, quantity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("cart item: %w", ErrNotFound)
	}
	if err != nil {
		return nil, false, err
	}

	s.publish(ctx, userID, map[string]any{
		"type":      "cart_item_updated",
		"userID":    userID,
		"productID": productID,
		"quantity":  item.Quantity,
	})
	return item, false, nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return fmt.Errorf("%w: product_id required", ErrValidation)
	}

	cart, err := s.Repo.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	return s.removeItem(ctx, cart, userID, productID)
}

func (s *CartService) removeItem(ctx context.Context, cart *models.Cart, userID, productID uuid.UUID) error {
	err := s.Repo.RemoveItem(ctx, cart.ID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("cart item: %w", ErrNotFound)
	}
	if err != nil {
		return err
	}

	s.publish(ctx, userID, map[string]any{
		"type":      "cart_item_removed",
		"userID":    userID,
		"productID": productID,
	})
	return nil
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.Repo.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.Repo.Clear(ctx, cart.ID); err != nil {
		return err
	}

	s.publish(ctx, userID, map[string]any{
		"type":   "cart_cleared",
		"userID": userID,
	})
	return nil
}

func (s *CartService) publish(ctx context.Context, userID uuid.UUID, event map[string]any) {
	if s.Producer == nil {
		return
	}
	if err := s.Producer.PublishEvent(ctx, mykafka.TopicCartEvents, userID.String(), event); err != nil {
		logging.FromContext(ctx).Warn("publish_failed", "topic", mykafka.TopicCartEvents, "error", err)
	}
}
