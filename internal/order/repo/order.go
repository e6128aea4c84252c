package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quanghuy/freshmart/internal/models"
	"github.com/quanghuy/freshmart/internal/order/transport"
	pkgdb "github.com/quanghuy/freshmart/pkg/db"
)

// Workflow errors surfaced out of the create transactions; the service maps
// them onto its HTTP-facing sentinels.
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrProductMissing    = errors.New("product not found")
	ErrNotInCart         = errors.New("product not in cart")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type GormRepo struct {
	DB *gorm.DB
}

// CreateFromCart assembles and persists an order from the user's current
// cart plus optional pre-built ad hoc lines, then clears the cart. It all
// happens in one transaction with the cart row locked, so two concurrent
// checkouts for the same user cannot both consume the cart.
//
// custom lines with a ProductID are re-validated against the catalog inside
// the transaction; a zero UnitPrice is replaced by the catalog price.
func (r *GormRepo) CreateFromCart(ctx context.Context, userID uuid.UUID, custom []models.OrderItem, notes string) (*models.Order, error) {
	var order *models.Order

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := pkgdb.LockForUpdate(tx).
			Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmptyCart
			}
			return err
		}

		var lines []models.CartItem
		if err := tx.Where("cart_id = ?", cart.ID).Order("created_at ASC").Find(&lines).Error; err != nil {
			return err
		}
		if len(lines) == 0 && len(custom) == 0 {
			return ErrEmptyCart
		}

		items := make([]models.OrderItem, 0, len(lines)+len(custom))
		var total int64

		for _, line := range lines {
			product, err := findProduct(tx, line.ProductID)
			if err != nil {
				return err
			}
			pid := line.ProductID
			items = append(items, models.OrderItem{
				ProductID:   &pid,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   product.Price,
			})
			total += product.Price * int64(line.Quantity)
		}

		for _, item := range custom {
			if item.ProductID != nil {
				product, err := findProduct(tx, *item.ProductID)
				if err != nil {
					return err
				}
				if item.UnitPrice == 0 {
					item.UnitPrice = product.Price
				}
				if item.ProductName == "" {
					item.ProductName = product.Name
				}
			}
			items = append(items, item)
			total += item.UnitPrice * int64(item.Quantity)
		}

		order = &models.Order{
			CartID: cart.ID,
			UserID: userID,
			Items:  items,
			Total:  total,
			Status: models.OrderStatusPending,
			Notes:  notes,
		}
		if err := tx.Create(order).Error; err != nil {
			return err
		}

		return tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// CreateForCartSubset orders only the named products out of an existing
// cart. The cart is left untouched.
func (r *GormRepo) CreateForCartSubset(ctx context.Context, userID, cartID uuid.UUID, productIDs []uuid.UUID, notes string) (*models.Order, error) {
	var order *models.Order

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.First(&cart, "id = ?", cartID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmptyCart
			}
			return err
		}

		var lines []models.CartItem
		if err := tx.Where("cart_id = ?", cart.ID).Find(&lines).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		byProduct := make(map[uuid.UUID]models.CartItem, len(lines))
		for _, line := range lines {
			byProduct[line.ProductID] = line
		}

		items := make([]models.OrderItem, 0, len(productIDs))
		var total int64

		for _, pid := range productIDs {
			line, ok := byProduct[pid]
			if !ok {
				return fmt.Errorf("%w: %s", ErrNotInCart, pid)
			}
			product, err := findProduct(tx, pid)
			if err != nil {
				return err
			}
			id := pid
			items = append(items, models.OrderItem{
				ProductID:   &id,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   product.Price,
			})
			total += product.Price * int64(line.Quantity)
		}

		order = &models.Order{
			CartID: cart.ID,
			UserID: userID,
			Items:  items,
			Total:  total,
			Status: models.OrderStatusPending,
			Notes:  notes,
		}
		return tx.Create(order).Error
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func findProduct(tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := tx.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductMissing, id)
		}
		return nil, err
	}
	return &product, nil
}

func (r *GormRepo) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

var sortColumns = map[string]string{
	"id":        "id",
	"userId":    "user_id",
	"cartId":    "cart_id",
	"total":     "total",
	"status":    "status",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

func (r *GormRepo) List(ctx context.Context, filter *transport.OrderFilter, sorts []transport.SortOption, offset, limit int) (int64, []models.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{})

	if filter != nil {
		if filter.UserID != nil {
			q = q.Where("user_id = ?", *filter.UserID)
		}
		if filter.CartID != nil {
			q = q.Where("cart_id = ?", *filter.CartID)
		}
		if len(filter.Statuses) > 0 {
			q = q.Where("status IN ?", filter.Statuses)
		}
		if filter.MinTotal != nil {
			q = q.Where("total >= ?", *filter.MinTotal)
		}
		if filter.MaxTotal != nil {
			q = q.Where("total <= ?", *filter.MaxTotal)
		}
		if filter.NotesSearch != "" {
			q = q.Where("notes LIKE ?", "%"+filter.NotesSearch+"%")
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	for _, s := range sorts {
		col, ok := sortColumns[s.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if strings.EqualFold(s.Order, "DESC") {
			dir = "DESC"
		}
		q = q.Order(col + " " + dir)
	}
	// creation order breaks ties, keeping the sort stable
	q = q.Order("created_at ASC").Order("id ASC")

	var orders []models.Order
	if err := q.Preload("Items").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

// SetStatus moves the order to the target status, but only out of one of
// allowedFrom. The row is locked for the check so concurrent transitions
// serialize.
func (r *GormRepo) SetStatus(ctx context.Context, orderID uuid.UUID, allowedFrom []models.OrderStatus, to models.OrderStatus) (*models.Order, error) {
	var order models.Order

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := pkgdb.LockForUpdate(tx).
			First(&order, "id = ?", orderID).Error; err != nil {
			return err
		}

		allowed := false
		for _, s := range allowedFrom {
			if order.Status == s {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, to)
		}

		order.Status = to
		if err := tx.Save(&order).Error; err != nil {
			return err
		}
		return tx.Preload("Items").First(&order, "id = ?", orderID).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}
