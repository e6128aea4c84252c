package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/quanghuy/freshmart/internal/models"
	"github.com/quanghuy/freshmart/internal/order/repo"
	"github.com/quanghuy/freshmart/internal/order/transport"
)

type recordingPublisher struct {
	events []map[string]any
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _ string, _ string, event any) error {
	p.events = append(p.events, event.(map[string]any))
	return nil
}

func newTestService(t *testing.T) (*OrderService, *gorm.DB, *recordingPublisher) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{}, &models.Cart{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
	))

	pub := &recordingPublisher{}
	svc := &OrderService{Repo: &repo.GormRepo{DB: db}, Producer: pub}
	return svc, db, pub
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price int64) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: price, Stock: 100}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedCart(t *testing.T, db *gorm.DB, userID uuid.UUID, lines map[uuid.UUID]uint) *models.Cart {
	t.Helper()
	cart := &models.Cart{UserID: userID, Active: true}
	require.NoError(t, db.Create(cart).Error)
	for productID, qty := range lines {
		require.NoError(t, db.Create(&models.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  qty,
		}).Error)
	}
	return cart
}

func TestOrderService_CreateFromCart_TotalsAndClearsCart(t *testing.T) {
	t.Parallel()

	svc, db, pub := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	apples := seedProduct(t, db, "Apples", 10_000)
	milk := seedProduct(t, db, "Milk", 5_000)
	seedCart(t, db, userID, map[uuid.UUID]uint{apples.ID: 2, milk.ID: 3})

	order, err := svc.CreateFromCart(ctx, userID, "leave at the door")
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.EqualValues(t, 35_000, order.Total)
	assert.Equal(t, "leave at the door", order.Notes)
	require.Len(t, order.Items, 2)

	byName := map[string]models.OrderItem{}
	for _, item := range order.Items {
		byName[item.ProductName] = item
	}
	assert.EqualValues(t, 10_000, byName["Apples"].UnitPrice)
	assert.EqualValues(t, 2, byName["Apples"].Quantity)
	assert.EqualValues(t, 5_000, byName["Milk"].UnitPrice)

	var remaining int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&remaining).Error)
	assert.Zero(t, remaining)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "order_created", pub.events[0]["type"])
}

func TestOrderService_CreateFromCart_SnapshotsPriceAtCheckout(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	bread := seedProduct(t, db, "Bread", 12_000)
	seedCart(t, db, userID, map[uuid.UUID]uint{bread.ID: 1})

	order, err := svc.CreateFromCart(ctx, userID, "")
	require.NoError(t, err)

	require.NoError(t, db.Model(bread).Update("price", 99_000).Error)

	got, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 12_000, got.Total)
	assert.EqualValues(t, 12_000, got.Items[0].UnitPrice)
}

func TestOrderService_CreateFromCart_EmptyCart(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.CreateFromCart(ctx, userID, "")
	require.ErrorIs(t, err, ErrValidation)

	seedCart(t, db, userID, nil)
	_, err = svc.CreateFromCart(ctx, userID, "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestOrderService_CreateFromCart_MissingProductAborts(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	apples := seedProduct(t, db, "Apples", 10_000)
	seedCart(t, db, userID, map[uuid.UUID]uint{apples.ID: 1, uuid.New(): 2})

	_, err := svc.CreateFromCart(ctx, userID, "")
	require.ErrorIs(t, err, ErrNotFound)

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)

	var lines int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&lines).Error)
	assert.EqualValues(t, 2, lines)
}

func TestOrderService_CreateCustomOrderFromCart_PriceFallback(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	apples := seedProduct(t, db, "Apples", 10_000)
	cheese := seedProduct(t, db, "Cheese", 40_000)
	seedCart(t, db, userID, map[uuid.UUID]uint{apples.ID: 1})

	order, err := svc.CreateCustomOrderFromCart(ctx, userID, &transport.CreateCustomOrderFromCartRequest{
		Items: []transport.CustomOrderItem{
			{ProductID: &cheese.ID, Quantity: 2},
			{ProductName: "Gift wrap", Quantity: 1, Price: 3_000},
		},
	})
	require.NoError(t, err)

	assert.EqualValues(t, 10_000+2*40_000+3_000, order.Total)
	require.Len(t, order.Items, 3)

	byName := map[string]models.OrderItem{}
	for _, item := range order.Items {
		byName[item.ProductName] = item
	}
	assert.EqualValues(t, 40_000, byName["Cheese"].UnitPrice)
	assert.Nil(t, byName["Gift wrap"].ProductID)
}

func TestOrderService_CreateCustomOrderFromCart_RejectsBadItems(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	apples := seedProduct(t, db, "Apples", 10_000)
	seedCart(t, db, userID, map[uuid.UUID]uint{apples.ID: 1})

	_, err := svc.CreateCustomOrderFromCart(ctx, userID, &transport.CreateCustomOrderFromCartRequest{
		Items: []transport.CustomOrderItem{{ProductName: "Nothing", Quantity: 0}},
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateCustomOrderFromCart(ctx, userID, &transport.CreateCustomOrderFromCartRequest{
		Items: []transport.CustomOrderItem{{Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestOrderService_CreateCustomOrder_SubsetLeavesCart(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	apples := seedProduct(t, db, "Apples", 10_000)
	milk := seedProduct(t, db, "Milk", 5_000)
	cart := seedCart(t, db, userID, map[uuid.UUID]uint{apples.ID: 2, milk.ID: 1})

	order, err := svc.CreateCustomOrder(ctx, userID, &transport.CreateCustomOrderRequest{
		CartID:     cart.ID,
		ProductIDs: []uuid.UUID{apples.ID},
	})
	require.NoError(t, err)

	assert.EqualValues(t, 20_000, order.Total)
	require.Len(t, order.Items, 1)

	var lines int64
	require.NoError(t, db.Model(&models.CartItem{}).Count(&lines).Error)
	assert.EqualValues(t, 2, lines)

	_, err = svc.CreateCustomOrder(ctx, userID, &transport.CreateCustomOrderRequest{
		CartID:     cart.ID,
		ProductIDs: []uuid.UUID{uuid.New()},
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOrderService_CancelAndConfirm_Transitions(t *testing.T) {
	t.Parallel()

	svc, db, pub := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	apples := seedProduct(t, db, "Apples", 10_000)
	seedCart(t, db, userID, map[uuid.UUID]uint{apples.ID: 1})

	order, err := svc.CreateFromCart(ctx, userID, "")
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, order.ID, userID, false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)

	_, err = svc.Cancel(ctx, order.ID, userID, false)
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Confirm(ctx, order.ID)
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.Cancel(ctx, uuid.New(), userID, false)
	require.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, "order_cancelled", pub.events[len(pub.events)-1]["type"])
}

func TestOrderService_Confirm_ThenCancelConflicts(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()
	userID := uuid.New()

	apples := seedProduct(t, db, "Apples", 10_000)
	seedCart(t, db, userID, map[uuid.UUID]uint{apples.ID: 1})

	order, err := svc.CreateFromCart(ctx, userID, "")
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, confirmed.Status)

	_, err = svc.Cancel(ctx, order.ID, userID, false)
	require.ErrorIs(t, err, ErrConflict)
}

func TestOrderService_GetOwned_EnforcesOwnership(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()

	apples := seedProduct(t, db, "Apples", 10_000)
	seedCart(t, db, owner, map[uuid.UUID]uint{apples.ID: 1})

	order, err := svc.CreateFromCart(ctx, owner, "")
	require.NoError(t, err)

	_, err = svc.GetOwned(ctx, order.ID, stranger, false)
	require.ErrorIs(t, err, ErrForbidden)

	got, err := svc.GetOwned(ctx, order.ID, stranger, true)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestOrderService_List_FiltersAndStableOrder(t *testing.T) {
	t.Parallel()

	svc, db, _ := newTestService(t)
	ctx := context.Background()

	alice := uuid.New()
	bob := uuid.New()
	apples := seedProduct(t, db, "Apples", 10_000)

	seedCart(t, db, alice, map[uuid.UUID]uint{apples.ID: 1})
	aliceOrder, err := svc.CreateFromCart(ctx, alice, "ring the bell")
	require.NoError(t, err)

	seedCart(t, db, bob, map[uuid.UUID]uint{apples.ID: 3})
	_, err = svc.CreateFromCart(ctx, bob, "")
	require.NoError(t, err)

	total, mine, err := svc.ListMine(ctx, alice, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, mine, 1)
	assert.Equal(t, aliceOrder.ID, mine[0].ID)

	minTotal := int64(25_000)
	totalFiltered, big, err := svc.List(ctx, &transport.OrderFilter{MinTotal: &minTotal}, nil, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, totalFiltered)
	require.Len(t, big, 1)
	assert.Equal(t, bob, big[0].UserID)

	totalAll, page1, err := svc.List(ctx, nil, []transport.SortOption{{Field: "total", Order: "DESC"}}, 0, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, totalAll)
	require.Len(t, page1, 1)
	assert.EqualValues(t, 30_000, page1[0].Total)
}
