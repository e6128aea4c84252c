package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quanghuy/freshmart/internal/logging"
	"github.com/quanghuy/freshmart/internal/models"
	"github.com/quanghuy/freshmart/internal/mykafka"
	"github.com/quanghuy/freshmart/internal/order/repo"
	"github.com/quanghuy/freshmart/internal/order/transport"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

type OrderService struct {
	Repo     *repo.GormRepo
	Producer mykafka.Publisher
}

// CreateFromCart turns the user's whole cart into a pending order and
// empties the cart.
func (s *OrderService) CreateFromCart(ctx context.Context, userID uuid.UUID, notes string) (*models.Order, error) {
	order, err := s.Repo.CreateFromCart(ctx, userID, nil, notes)
	if err != nil {
		return nil, mapCreateError(err)
	}
	s.publish(ctx, order, "order_created")
	return order, nil
}

// CreateCustomOrderFromCart checks out the cart together with ad hoc lines
// that need not reference catalog products.
func (s *OrderService) CreateCustomOrderFromCart(ctx context.Context, userID uuid.UUID, req *transport.CreateCustomOrderFromCartRequest) (*models.Order, error) {
	custom, err := buildCustomItems(req.Items)
	if err != nil {
		return nil, err
	}
	order, err := s.Repo.CreateFromCart(ctx, userID, custom, req.Notes)
	if err != nil {
		return nil, mapCreateError(err)
	}
	s.publish(ctx, order, "order_created")
	return order, nil
}

// CreateCustomOrder orders a subset of an existing cart's products without
// clearing the cart.
func (s *OrderService) CreateCustomOrder(ctx context.Context, userID uuid.UUID, req *transport.CreateCustomOrderRequest) (*models.Order, error) {
	if req.CartID == uuid.Nil {
		return nil, fmt.Errorf("%w: cartId is required", ErrValidation)
	}
	if len(req.ProductIDs) == 0 {
		return nil, fmt.Errorf("%w: productIds must not be empty", ErrValidation)
	}
	order, err := s.Repo.CreateForCartSubset(ctx, userID, req.CartID, req.ProductIDs, req.Notes)
	if err != nil {
		return nil, mapCreateError(err)
	}
	s.publish(ctx, order, "order_created")
	return order, nil
}

func buildCustomItems(in []transport.CustomOrderItem) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(in))
	for i, item := range in {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: items[%d].quantity must be positive", ErrValidation, i)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("%w: items[%d].price must not be negative", ErrValidation, i)
		}
		if item.ProductID == nil && item.ProductName == "" {
			return nil, fmt.Errorf("%w: items[%d] needs a productId or a productName", ErrValidation, i)
		}
		items = append(items, models.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.Price,
			Notes:       item.Notes,
		})
	}
	return items, nil
}

func mapCreateError(err error) error {
	switch {
	case errors.Is(err, repo.ErrEmptyCart):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	case errors.Is(err, repo.ErrProductMissing), errors.Is(err, repo.ErrNotInCart):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	default:
		return err
	}
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, id)
		}
		return nil, err
	}
	return order, nil
}

// GetOwned is Get plus an ownership check for non-admin callers.
func (s *OrderService) GetOwned(ctx context.Context, id, userID uuid.UUID, admin bool) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && order.UserID != userID {
		return nil, fmt.Errorf("%w: order %s", ErrForbidden, id)
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, filter *transport.OrderFilter, sorts []transport.SortOption, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.List(ctx, filter, sorts, offset, limit)
}

func (s *OrderService) ListMine(ctx context.Context, userID uuid.UUID, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.List(ctx, &transport.OrderFilter{UserID: &userID}, nil, offset, limit)
}

// Cancel moves a pending order to cancelled. The caller must own the order
// unless admin. Cancelling a confirmed or already cancelled order is a
// conflict.
func (s *OrderService) Cancel(ctx context.Context, id, userID uuid.UUID, admin bool) (*models.Order, error) {
	if _, err := s.GetOwned(ctx, id, userID, admin); err != nil {
		return nil, err
	}
	order, err := s.Repo.SetStatus(ctx, id, []models.OrderStatus{models.OrderStatusPending}, models.OrderStatusCancelled)
	if err != nil {
		return nil, mapTransitionError(err, id)
	}
	s.publish(ctx, order, "order_cancelled")
	return order, nil
}

// Confirm moves a pending order to confirmed. Admin only, enforced at the
// router.
func (s *OrderService) Confirm(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.SetStatus(ctx, id, []models.OrderStatus{models.OrderStatusPending}, models.OrderStatusConfirmed)
	if err != nil {
		return nil, mapTransitionError(err, id)
	}
	s.publish(ctx, order, "order_confirmed")
	return order, nil
}

func mapTransitionError(err error, id uuid.UUID) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: order %s", ErrNotFound, id)
	case errors.Is(err, repo.ErrInvalidTransition):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func (s *OrderService) publish(ctx context.Context, order *models.Order, eventType string) {
	if s.Producer == nil {
		return
	}
	event := map[string]any{
		"type":    eventType,
		"orderId": order.ID.String(),
		"userId":  order.UserID.String(),
		"total":   order.Total,
		"status":  order.Status,
	}
	if err := s.Producer.PublishEvent(ctx, mykafka.TopicOrderEvents, order.ID.String(), event); err != nil {
		logging.FromContext(ctx).Warn("publish_order_event_failed", "type", eventType, "error", err)
	}
}
