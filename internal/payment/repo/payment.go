package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quanghuy/freshmart/internal/models"
	"github.com/quanghuy/freshmart/internal/payment/transport"
	pkgdb "github.com/quanghuy/freshmart/pkg/db"
)

var (
	ErrOrderMissing     = errors.New("order not found")
	ErrNotOwner         = errors.New("order belongs to another user")
	ErrOrderNotPayable  = errors.New("order cannot be paid")
	ErrDuplicatePayment = errors.New("order already has an active payment")
	ErrTerminalState    = errors.New("payment is in a terminal state")
)

type GormRepo struct {
	DB *gorm.DB
}

// CreateForOrder persists the payment after checking, under a lock on the
// order row, that the order has no pending or paid payment already. The
// lock makes two concurrent create calls for the same order serialize
// instead of both passing the duplicate check.
//
// The payment's Amount is filled in from the order's total. ownerID, when
// not Nil, must match the order's user.
func (r *GormRepo) CreateForOrder(ctx context.Context, payment *models.Payment, ownerID uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := pkgdb.LockForUpdate(tx).
			First(&order, "id = ?", payment.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrOrderMissing, payment.OrderID)
			}
			return err
		}
		if ownerID != uuid.Nil && order.UserID != ownerID {
			return fmt.Errorf("%w: %s", ErrNotOwner, payment.OrderID)
		}
		if order.Status == models.OrderStatusCancelled {
			return fmt.Errorf("%w: order is cancelled", ErrOrderNotPayable)
		}

		// a settled order is just as blocked as one mid-payment
		var active int64
		if err := tx.Model(&models.Payment{}).
			Where("order_id = ? AND status IN ?", payment.OrderID,
				[]models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusPaid}).
			Count(&active).Error; err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicatePayment, payment.OrderID)
		}

		payment.UserID = order.UserID
		payment.Amount = order.Total
		return tx.Create(payment).Error
	})
}

// GetOrderTotal reads the order's total without locking, for pre-checks
// that happen before the create transaction.
func (r *GormRepo) GetOrderTotal(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var order models.Order
	if err := r.DB.WithContext(ctx).Select("total").First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrOrderMissing, orderID)
		}
		return 0, err
	}
	return order.Total, nil
}

// SetPaymentURL stores the gateway checkout URL once the gateway has
// accepted the order.
func (r *GormRepo) SetPaymentURL(ctx context.Context, id uuid.UUID, paymentURL string) error {
	return r.DB.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", id).Update("payment_url", paymentURL).Error
}

func (r *GormRepo) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.DB.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *GormRepo) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.DB.WithContext(ctx).
		First(&payment, "gateway_order_id = ?", gatewayOrderID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// SetStatus transitions the payment. Terminal payments never move again;
// attempting to reports ErrTerminalState. A non-empty transactionID
// replaces the generated one, which is how the gateway's id supersedes
// ours after a callback.
func (r *GormRepo) SetStatus(ctx context.Context, id uuid.UUID, to models.PaymentStatus, transactionID string) (*models.Payment, error) {
	var payment models.Payment

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := pkgdb.LockForUpdate(tx).
			First(&payment, "id = ?", id).Error; err != nil {
			return err
		}

		if payment.Status.Terminal() {
			return fmt.Errorf("%w: %s", ErrTerminalState, payment.Status)
		}

		payment.Status = to
		if transactionID != "" {
			payment.TransactionID = transactionID
		}
		return tx.Save(&payment).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

var sortColumns = map[string]string{
	"id":        "id",
	"orderId":   "order_id",
	"userId":    "user_id",
	"amount":    "amount",
	"status":    "status",
	"method":    "method",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

func (r *GormRepo) List(ctx context.Context, filter *transport.PaymentFilter, sorts []transport.SortOption, offset, limit int) (int64, []models.Payment, error) {
	q := r.DB.WithContext(ctx).Model(&models.Payment{})

	if filter != nil {
		if filter.UserID != nil {
			q = q.Where("user_id = ?", *filter.UserID)
		}
		if filter.OrderID != nil {
			q = q.Where("order_id = ?", *filter.OrderID)
		}
		if len(filter.Statuses) > 0 {
			q = q.Where("status IN ?", filter.Statuses)
		}
		if len(filter.Methods) > 0 {
			q = q.Where("method IN ?", filter.Methods)
		}
		if filter.TransactionID != "" {
			q = q.Where("transaction_id = ?", filter.TransactionID)
		}
		if filter.MinAmount != nil {
			q = q.Where("amount >= ?", *filter.MinAmount)
		}
		if filter.MaxAmount != nil {
			q = q.Where("amount <= ?", *filter.MaxAmount)
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
	q = q.Order("created_at ASC").Order("id ASC")

	var payments []models.Payment
	if err := q.Offset(offset).Limit(limit).Find(&payments).Error; err != nil {
		return 0, nil, err
	}
	return total, payments, nil
}
