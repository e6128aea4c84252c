package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quanghuy/freshmart/internal/config"
	"github.com/quanghuy/freshmart/internal/models"
	"github.com/quanghuy/freshmart/internal/payment/repo"
	"github.com/quanghuy/freshmart/internal/payment/transport"
	"github.com/quanghuy/freshmart/internal/payment/zalopay"
)

const (
	testKey1 = "test-key1"
	testKey2 = "test-key2"
)

// gatewayStub emulates the create-order endpoint. When decline is set it
// answers with a non-success return code.
func gatewayStub(t *testing.T, decline bool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		payload := fmt.Sprintf("%v|%v|%v|%v|%v|%v|%v",
			req["app_id"], req["app_trans_id"], req["app_user"],
			int64(req["amount"].(float64)), int64(req["app_time"].(float64)),
			req["embed_data"], req["item"])
		require.Equal(t, zalopay.ComputeMAC(testKey1, payload), req["mac"])

		resp := map[string]any{"return_code": 1, "order_url": "https://gw.example/pay/" + req["app_trans_id"].(string)}
		if decline {
			resp = map[string]any{"return_code": 2, "return_message": "declined"}
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestService(t *testing.T, gatewayURL string) (*PaymentService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.Payment{}))

	cfg := config.ZaloPayConfig{
		AppID:    "2553",
		Key1:     testKey1,
		Key2:     testKey2,
		Endpoint: gatewayURL,
	}
	svc := &PaymentService{
		Repo:    &repo.GormRepo{DB: db},
		Gateway: zalopay.NewClient(cfg),
		Cfg:     cfg,
	}
	return svc, db
}

func seedOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, total int64, status models.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{CartID: uuid.New(), UserID: userID, Total: total, Status: status}
	require.NoError(t, db.Create(order).Error)
	return order
}

func callbackFor(payment *models.Payment, status int, transactionID string) *transport.CallbackRequest {
	payload := fmt.Sprintf("%s|%s|%d|%d", payment.GatewayOrderID, transactionID, status, payment.Amount)
	return &transport.CallbackRequest{
		OrderID:       payment.GatewayOrderID,
		TransactionID: transactionID,
		Status:        status,
		Amount:        payment.Amount,
		Mac:           zalopay.ComputeMAC(testKey2, payload),
	}
}

func TestPaymentService_PayByCash_SettlesImmediately(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t, "http://unused")
	ctx := context.Background()
	userID := uuid.New()
	order := seedOrder(t, db, userID, 20_000, models.OrderStatusPending)

	payment, err := svc.PayByCash(ctx, userID, &transport.PayByCashRequest{OrderID: order.ID})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPaid, payment.Status)
	assert.Equal(t, models.PaymentMethodCash, payment.Method)
	assert.EqualValues(t, 20_000, payment.Amount)
	assert.Equal(t, userID, payment.UserID)
	assert.Regexp(t, regexp.MustCompile(`^PAY_\d+_[0-9A-F]+$`), payment.TransactionID)
}

func TestPaymentService_PayByCash_Rejections(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t, "http://unused")
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.PayByCash(ctx, userID, &transport.PayByCashRequest{OrderID: uuid.New()})
	require.ErrorIs(t, err, ErrNotFound)

	cancelled := seedOrder(t, db, userID, 20_000, models.OrderStatusCancelled)
	_, err = svc.PayByCash(ctx, userID, &transport.PayByCashRequest{OrderID: cancelled.ID})
	require.ErrorIs(t, err, ErrValidation)

	other := seedOrder(t, db, uuid.New(), 20_000, models.OrderStatusPending)
	_, err = svc.PayByCash(ctx, userID, &transport.PayByCashRequest{OrderID: other.ID})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestPaymentService_DuplicatePendingPaymentConflicts(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t, "http://unused")
	ctx := context.Background()
	userID := uuid.New()
	order := seedOrder(t, db, userID, 20_000, models.OrderStatusPending)

	require.NoError(t, db.Create(&models.Payment{
		OrderID:       order.ID,
		UserID:        userID,
		Amount:        20_000,
		Method:        models.PaymentMethodZaloPay,
		TransactionID: NewTransactionID(),
		Status:        models.PaymentStatusPending,
	}).Error)

	_, err := svc.PayByCash(ctx, userID, &transport.PayByCashRequest{OrderID: order.ID})
	require.ErrorIs(t, err, ErrConflict)
}

func TestPaymentService_PaidOrderRejectsSecondPayment(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t, "http://unused")
	ctx := context.Background()
	userID := uuid.New()
	order := seedOrder(t, db, userID, 20_000, models.OrderStatusPending)

	_, err := svc.PayByCash(ctx, userID, &transport.PayByCashRequest{OrderID: order.ID})
	require.NoError(t, err)

	// cash settled to paid; paying again in any method must conflict
	_, err = svc.PayByCash(ctx, userID, &transport.PayByCashRequest{OrderID: order.ID})
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.PayByZaloPay(ctx, userID, &transport.PayByZaloPayRequest{OrderID: order.ID})
	require.ErrorIs(t, err, ErrConflict)

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestPaymentService_PayByZaloPay_ReturnsGatewayURL(t *testing.T) {
	t.Parallel()

	gw := gatewayStub(t, false)
	svc, db := newTestService(t, gw.URL)
	ctx := context.Background()
	userID := uuid.New()
	order := seedOrder(t, db, userID, 50_000, models.OrderStatusPending)

	payment, err := svc.PayByZaloPay(ctx, userID, &transport.PayByZaloPayRequest{OrderID: order.ID, Description: "groceries"})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, models.PaymentMethodZaloPay, payment.Method)
	assert.NotEmpty(t, payment.GatewayOrderID)
	assert.True(t, strings.HasPrefix(payment.PaymentURL, "https://gw.example/pay/"), payment.PaymentURL)

	var stored models.Payment
	require.NoError(t, db.First(&stored, "id = ?", payment.ID).Error)
	assert.Equal(t, payment.PaymentURL, stored.PaymentURL)
}

func TestPaymentService_PayByZaloPay_DeclineFallsBackToSandbox(t *testing.T) {
	t.Parallel()

	gw := gatewayStub(t, true)
	svc, db := newTestService(t, gw.URL)
	ctx := context.Background()
	userID := uuid.New()
	order := seedOrder(t, db, userID, 50_000, models.OrderStatusPending)

	payment, err := svc.PayByZaloPay(ctx, userID, &transport.PayByZaloPayRequest{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, zalopay.FallbackURL(payment.GatewayOrderID), payment.PaymentURL)
}

func TestPaymentService_PayByZaloPay_AmountOutOfRange(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t, "http://unused")
	ctx := context.Background()
	userID := uuid.New()

	small := seedOrder(t, db, userID, 500, models.OrderStatusPending)
	_, err := svc.PayByZaloPay(ctx, userID, &transport.PayByZaloPayRequest{OrderID: small.ID})
	require.ErrorIs(t, err, ErrValidation)

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPaymentService_HandleCallback_PaidAndFailed(t *testing.T) {
	t.Parallel()

	gw := gatewayStub(t, false)
	svc, db := newTestService(t, gw.URL)
	ctx := context.Background()
	userID := uuid.New()

	order := seedOrder(t, db, userID, 50_000, models.OrderStatusPending)
	payment, err := svc.PayByZaloPay(ctx, userID, &transport.PayByZaloPayRequest{OrderID: order.ID})
	require.NoError(t, err)

	updated, err := svc.HandleCallback(ctx, callbackFor(payment, 1, "ZP123456"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, updated.Status)
	assert.Equal(t, "ZP123456", updated.TransactionID)

	order2 := seedOrder(t, db, userID, 60_000, models.OrderStatusPending)
	payment2, err := svc.PayByZaloPay(ctx, userID, &transport.PayByZaloPayRequest{OrderID: order2.ID})
	require.NoError(t, err)

	failed, err := svc.HandleCallback(ctx, callbackFor(payment2, 0, "ZP999"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, failed.Status)
}

func TestPaymentService_HandleCallback_RejectsBadMAC(t *testing.T) {
	t.Parallel()

	gw := gatewayStub(t, false)
	svc, db := newTestService(t, gw.URL)
	ctx := context.Background()
	userID := uuid.New()

	order := seedOrder(t, db, userID, 50_000, models.OrderStatusPending)
	payment, err := svc.PayByZaloPay(ctx, userID, &transport.PayByZaloPayRequest{OrderID: order.ID})
	require.NoError(t, err)

	cb := callbackFor(payment, 1, "ZP123")
	cb.Mac = "deadbeef"
	_, err = svc.HandleCallback(ctx, cb)
	require.ErrorIs(t, err, ErrUnauthorized)

	// a tampered field invalidates the mac too
	cb = callbackFor(payment, 1, "ZP123")
	cb.Amount += 1
	_, err = svc.HandleCallback(ctx, cb)
	require.ErrorIs(t, err, ErrUnauthorized)

	got, err := svc.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, got.Status)
}

func TestPaymentService_HandleCallback_UnknownGatewayOrder(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, "http://unused")
	ctx := context.Background()

	payload := fmt.Sprintf("%s|%s|%d|%d", "nope", "ZP1", 1, 1_000)
	_, err := svc.HandleCallback(ctx, &transport.CallbackRequest{
		OrderID:       "nope",
		TransactionID: "ZP1",
		Status:        1,
		Amount:        1_000,
		Mac:           zalopay.ComputeMAC(testKey2, payload),
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentService_HandleCallback_TerminalPaymentConflicts(t *testing.T) {
	t.Parallel()

	gw := gatewayStub(t, false)
	svc, db := newTestService(t, gw.URL)
	ctx := context.Background()
	userID := uuid.New()

	order := seedOrder(t, db, userID, 50_000, models.OrderStatusPending)
	payment, err := svc.PayByZaloPay(ctx, userID, &transport.PayByZaloPayRequest{OrderID: order.ID})
	require.NoError(t, err)

	_, err = svc.HandleCallback(ctx, callbackFor(payment, 1, "ZP1"))
	require.NoError(t, err)

	_, err = svc.HandleCallback(ctx, callbackFor(payment, 1, "ZP1"))
	require.ErrorIs(t, err, ErrConflict)
}

// memClaimStore is an in-process stand-in for the redis claim guard.
type memClaimStore struct {
	mu       sync.Mutex
	claimed  map[string]bool
	claims   int
	releases int
}

func (m *memClaimStore) Claim(_ context.Context, scope, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims++
	k := scope + ":" + key
	if m.claimed[k] {
		return false, nil
	}
	if m.claimed == nil {
		m.claimed = make(map[string]bool)
	}
	m.claimed[k] = true
	return true, nil
}

func (m *memClaimStore) Release(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releases++
	delete(m.claimed, scope+":"+key)
	return nil
}

func TestPaymentService_HandleCallback_RedeliveryDropped(t *testing.T) {
	t.Parallel()

	gw := gatewayStub(t, false)
	svc, db := newTestService(t, gw.URL)
	claims := &memClaimStore{}
	svc.Idem = claims
	ctx := context.Background()
	userID := uuid.New()

	order := seedOrder(t, db, userID, 50_000, models.OrderStatusPending)
	payment, err := svc.PayByZaloPay(ctx, userID, &transport.PayByZaloPayRequest{OrderID: order.ID})
	require.NoError(t, err)

	updated, err := svc.HandleCallback(ctx, callbackFor(payment, 1, "ZP777"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, updated.Status)

	// same delivery again is dropped by the claim, before any state change
	_, err = svc.HandleCallback(ctx, callbackFor(payment, 1, "ZP777"))
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 2, claims.claims)
	assert.Zero(t, claims.releases)

	got, err := svc.Get(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, "ZP777", got.TransactionID)
}

func TestPaymentService_HandleCallback_FailedApplyReleasesClaim(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, "http://unused")
	claims := &memClaimStore{}
	svc.Idem = claims
	ctx := context.Background()

	payload := fmt.Sprintf("%s|%s|%d|%d", "240101_missing", "ZP1", 1, 50_000)
	cb := &transport.CallbackRequest{
		OrderID:       "240101_missing",
		TransactionID: "ZP1",
		Status:        1,
		Amount:        50_000,
		Mac:           zalopay.ComputeMAC(testKey2, payload),
	}

	_, err := svc.HandleCallback(ctx, cb)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, claims.releases)

	// the claim was given back, so a gateway retry gets through again
	_, err = svc.HandleCallback(ctx, cb)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, claims.claims)
}

func TestPaymentService_List_FiltersByTransactionAndAmount(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t, "http://unused")
	ctx := context.Background()
	userID := uuid.New()

	amounts := []int64{10_000, 50_000, 90_000}
	txns := make([]string, len(amounts))
	for i, amount := range amounts {
		order := seedOrder(t, db, userID, amount, models.OrderStatusPending)
		txns[i] = NewTransactionID()
		require.NoError(t, db.Create(&models.Payment{
			OrderID:       order.ID,
			UserID:        userID,
			Amount:        amount,
			Method:        models.PaymentMethodCash,
			TransactionID: txns[i],
			Status:        models.PaymentStatusPaid,
		}).Error)
	}

	total, items, err := svc.List(ctx, &transport.PaymentFilter{TransactionID: txns[1]}, nil, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.EqualValues(t, 50_000, items[0].Amount)

	min, max := int64(20_000), int64(95_000)
	total, items, err = svc.List(ctx, &transport.PaymentFilter{MinAmount: &min, MaxAmount: &max}, nil, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, p := range items {
		assert.GreaterOrEqual(t, p.Amount, min)
		assert.LessOrEqual(t, p.Amount, max)
	}

	total, _, err = svc.List(ctx, &transport.PaymentFilter{MinAmount: &max}, nil, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestPaymentService_UpdateStatusAndCancel(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t, "http://unused")
	ctx := context.Background()
	userID := uuid.New()

	order := seedOrder(t, db, userID, 50_000, models.OrderStatusPending)
	pending := &models.Payment{
		OrderID:       order.ID,
		UserID:        userID,
		Amount:        50_000,
		Method:        models.PaymentMethodZaloPay,
		TransactionID: NewTransactionID(),
		Status:        models.PaymentStatusPending,
	}
	require.NoError(t, db.Create(pending).Error)

	_, err := svc.UpdateStatus(ctx, pending.ID, models.PaymentStatusPending)
	require.ErrorIs(t, err, ErrValidation)

	cancelled, err := svc.Cancel(ctx, pending.ID, userID, false)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCancelled, cancelled.Status)

	_, err = svc.UpdateStatus(ctx, pending.ID, models.PaymentStatusPaid)
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Cancel(ctx, uuid.New(), userID, false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNewTransactionID_FormatAndUniqueness(t *testing.T) {
	t.Parallel()

	format := regexp.MustCompile(`^PAY_\d+_[0-9A-F]+$`)
	seen := make(map[string]struct{}, 200)
	for i := 0; i < 200; i++ {
		id := NewTransactionID()
		assert.Regexp(t, format, id)
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate transaction id %s", id)
		}
		seen[id] = struct{}{}
	}
}
