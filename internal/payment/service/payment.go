package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/quanghuy/freshmart/internal/config"
	"github.com/quanghuy/freshmart/internal/logging"
	"github.com/quanghuy/freshmart/internal/models"
	"github.com/quanghuy/freshmart/internal/mykafka"
	"github.com/quanghuy/freshmart/internal/payment/idempotency"
	"github.com/quanghuy/freshmart/internal/payment/repo"
	"github.com/quanghuy/freshmart/internal/payment/transport"
	"github.com/quanghuy/freshmart/internal/payment/zalopay"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

const callbackScope = "zalopay_cb"

// ClaimStore guards against gateway callback redeliveries.
// *idempotency.Store implements it; a nil field disables the guard.
type ClaimStore interface {
	Claim(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
}

var _ ClaimStore = (*idempotency.Store)(nil)

type PaymentService struct {
	Repo     *repo.GormRepo
	Gateway  *zalopay.Client
	Cfg      config.ZaloPayConfig
	Producer mykafka.Publisher
	Idem     ClaimStore
}

// NewTransactionID builds the internal transaction reference. A gateway
// callback later replaces it with the gateway's own id.
func NewTransactionID() string {
	return fmt.Sprintf("PAY_%d_%s", time.Now().UnixMilli(), randomSuffix(4))
}

// newGatewayOrderID builds the app_trans_id sent to ZaloPay. The gateway
// requires the yymmdd prefix.
func newGatewayOrderID() string {
	return fmt.Sprintf("%s_%d_%s", time.Now().Format("060102"), time.Now().UnixMilli(), randomSuffix(3))
}

func randomSuffix(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return strings.ToUpper(hex.EncodeToString(b))
}

// PayByCash records a cash payment for the order. Cash settles at the
// counter, so the payment goes straight to paid.
func (s *PaymentService) PayByCash(ctx context.Context, userID uuid.UUID, req *transport.PayByCashRequest) (*models.Payment, error) {
	if req.OrderID == uuid.Nil {
		return nil, fmt.Errorf("%w: orderId is required", ErrValidation)
	}

	payment := &models.Payment{
		OrderID:       req.OrderID,
		Method:        models.PaymentMethodCash,
		TransactionID: NewTransactionID(),
		Status:        models.PaymentStatusPending,
		Description:   req.Description,
	}
	if err := s.Repo.CreateForOrder(ctx, payment, userID); err != nil {
		return nil, mapCreateError(err)
	}

	paid, err := s.Repo.SetStatus(ctx, payment.ID, models.PaymentStatusPaid, "")
	if err != nil {
		return nil, err
	}

	s.publish(ctx, paid, "payment_paid")
	return paid, nil
}

// PayByZaloPay creates a pending payment and registers it with the gateway,
// returning the payment with the checkout URL set.
func (s *PaymentService) PayByZaloPay(ctx context.Context, userID uuid.UUID, req *transport.PayByZaloPayRequest) (*models.Payment, error) {
	if req.OrderID == uuid.Nil {
		return nil, fmt.Errorf("%w: orderId is required", ErrValidation)
	}

	total, err := s.Repo.GetOrderTotal(ctx, req.OrderID)
	if err != nil {
		return nil, mapCreateError(err)
	}
	if total < zalopay.MinAmount || total > zalopay.MaxAmount {
		return nil, fmt.Errorf("%w: %v", ErrValidation, zalopay.ErrAmountOutOfRange)
	}

	payment := &models.Payment{
		OrderID:        req.OrderID,
		Method:         models.PaymentMethodZaloPay,
		TransactionID:  NewTransactionID(),
		Status:         models.PaymentStatusPending,
		GatewayOrderID: newGatewayOrderID(),
		Description:    req.Description,
	}
	if err := s.Repo.CreateForOrder(ctx, payment, userID); err != nil {
		return nil, mapCreateError(err)
	}

	payURL, err := s.Gateway.CreateOrder(ctx, payment.GatewayOrderID, payment.UserID.String(), payment.Amount, req.Description, req.ReturnURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.Repo.SetPaymentURL(ctx, payment.ID, payURL); err != nil {
		return nil, err
	}
	payment.PaymentURL = payURL

	s.publish(ctx, payment, "payment_created")
	return payment, nil
}

// HandleCallback applies the gateway's payment notification. The mac is
// verified under key2 before anything else; an unverifiable callback is
// rejected as unauthorized. Redeliveries are absorbed by the redis claim.
func (s *PaymentService) HandleCallback(ctx context.Context, req *transport.CallbackRequest) (*models.Payment, error) {
	payload := fmt.Sprintf("%s|%s|%d|%d", req.OrderID, req.TransactionID, req.Status, req.Amount)
	if !zalopay.VerifyMAC(s.Cfg.Key2, payload, req.Mac) {
		return nil, fmt.Errorf("%w: bad mac", ErrUnauthorized)
	}

	if s.Idem != nil {
		claimed, err := s.Idem.Claim(ctx, callbackScope, req.OrderID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			return nil, fmt.Errorf("%w: callback already processed", ErrConflict)
		}
	}

	payment, err := s.applyCallback(ctx, req)
	if err != nil {
		// let the gateway retry
		if s.Idem != nil {
			if relErr := s.Idem.Release(ctx, callbackScope, req.OrderID); relErr != nil {
				logging.FromContext(ctx).Warn("idempotency_release_failed", "key", req.OrderID, "error", relErr)
			}
		}
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) applyCallback(ctx context.Context, req *transport.CallbackRequest) (*models.Payment, error) {
	payment, err := s.Repo.GetByGatewayOrderID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no payment for gateway order %s", ErrNotFound, req.OrderID)
		}
		return nil, err
	}

	to := models.PaymentStatusFailed
	event := "payment_failed"
	if req.Status == 1 {
		to = models.PaymentStatusPaid
		event = "payment_paid"
	}

	updated, err := s.Repo.SetStatus(ctx, payment.ID, to, req.TransactionID)
	if err != nil {
		if errors.Is(err, repo.ErrTerminalState) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, err
	}

	s.publish(ctx, updated, event)
	return updated, nil
}

// UpdateStatus is the admin override for stuck payments.
func (s *PaymentService) UpdateStatus(ctx context.Context, id uuid.UUID, to models.PaymentStatus) (*models.Payment, error) {
	switch to {
	case models.PaymentStatusPaid, models.PaymentStatusFailed, models.PaymentStatusCancelled:
	default:
		return nil, fmt.Errorf("%w: cannot set status %q", ErrValidation, to)
	}

	payment, err := s.Repo.SetStatus(ctx, id, to, "")
	if err != nil {
		return nil, mapTransitionError(err, id)
	}
	s.publish(ctx, payment, "payment_"+string(to))
	return payment, nil
}

// Cancel voids the caller's own pending payment.
func (s *PaymentService) Cancel(ctx context.Context, id, userID uuid.UUID, admin bool) (*models.Payment, error) {
	if _, err := s.GetOwned(ctx, id, userID, admin); err != nil {
		return nil, err
	}
	payment, err := s.Repo.SetStatus(ctx, id, models.PaymentStatusCancelled, "")
	if err != nil {
		return nil, mapTransitionError(err, id)
	}
	s.publish(ctx, payment, "payment_cancelled")
	return payment, nil
}

func (s *PaymentService) Get(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: payment %s", ErrNotFound, id)
		}
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) GetOwned(ctx context.Context, id, userID uuid.UUID, admin bool) (*models.Payment, error) {
	payment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !admin && payment.UserID != userID {
		return nil, fmt.Errorf("%w: payment %s", ErrForbidden, id)
	}
	return payment, nil
}

func (s *PaymentService) List(ctx context.Context, filter *transport.PaymentFilter, sorts []transport.SortOption, offset, limit int) (int64, []models.Payment, error) {
	return s.Repo.List(ctx, filter, sorts, offset, limit)
}

func (s *PaymentService) ListMine(ctx context.Context, userID uuid.UUID, offset, limit int) (int64, []models.Payment, error) {
	return s.Repo.List(ctx, &transport.PaymentFilter{UserID: &userID}, nil, offset, limit)
}

func (s *PaymentService) ListByOrder(ctx context.Context, orderID uuid.UUID, offset, limit int) (int64, []models.Payment, error) {
	return s.Repo.List(ctx, &transport.PaymentFilter{OrderID: &orderID}, nil, offset, limit)
}

func mapCreateError(err error) error {
	switch {
	case errors.Is(err, repo.ErrOrderMissing):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, repo.ErrNotOwner):
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	case errors.Is(err, repo.ErrOrderNotPayable):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	case errors.Is(err, repo.ErrDuplicatePayment):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func mapTransitionError(err error, id uuid.UUID) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: payment %s", ErrNotFound, id)
	case errors.Is(err, repo.ErrTerminalState):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func (s *PaymentService) publish(ctx context.Context, payment *models.Payment, eventType string) {
	if s.Producer == nil {
		return
	}
	event := map[string]any{
		"type":          eventType,
		"paymentId":     payment.ID.String(),
		"orderId":       payment.OrderID.String(),
		"userId":        payment.UserID.String(),
		"amount":        payment.Amount,
		"method":        payment.Method,
		"status":        payment.Status,
		"transactionId": payment.TransactionID,
	}
	if err := s.Producer.PublishEvent(ctx, mykafka.TopicPaymentEvents, payment.OrderID.String(), event); err != nil {
		logging.FromContext(ctx).Warn("publish_payment_event_failed", "type", eventType, "error", err)
	}
}
