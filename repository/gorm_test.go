package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restaurant-api/models"
)

func newGormStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "repo.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	store := NewGormStore(db)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func testOrder(id string, at time.Time) *models.Order {
	return &models.Order{
		ID:            id,
		UserID:        "u1",
		OrderType:     models.OrderTakeaway,
		Status:        models.StatusReceived,
		PaymentStatus: models.PaymentPending,
		PaymentMethod: models.PaymentCash,
		TotalAmount:   decimal.RequireFromString("19.90"),
		Items: []models.OrderItem{{
			ID:         id + "-i1",
			OrderID:    id,
			MenuItemID: "m1",
			Name:       "Ramen",
			Quantity:   2,
			UnitPrice:  decimal.RequireFromString("9.95"),
		}},
		StatusHistory: []models.OrderStatusHistory{{
			ID:       id + "-h1",
			OrderID:  id,
			ToStatus: models.StatusReceived,
		}},
		EstimatedReadyAt: at.Add(30 * time.Minute),
		CreatedAt:        at,
		UpdatedAt:        at,
	}
}

func TestGormStore_Ping(t *testing.T) {
	store := newGormStore(t)
	require.NoError(t, store.Ping(context.Background()))
}

func TestGormOrders_CreateAndGet(t *testing.T) {
	store := newGormStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC)

	require.NoError(t, store.Orders.Create(ctx, testOrder("o1", at)))

	got, err := store.Orders.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("19.90").Equal(got.TotalAmount))
	require.Len(t, got.Items, 1)
	assert.True(t, decimal.RequireFromString("9.95").Equal(got.Items[0].UnitPrice))
	require.Len(t, got.StatusHistory, 1)
	assert.True(t, at.Equal(got.CreatedAt))

	_, err = store.Orders.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormOrders_UpdateStatusIsConditional(t *testing.T) {
	store := newGormStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC)
	require.NoError(t, store.Orders.Create(ctx, testOrder("o1", at)))

	change := StatusChange{
		OrderID: "o1",
		From:    models.StatusReceived,
		To:      models.StatusPreparing,
		At:      at.Add(time.Minute),
		History: models.OrderStatusHistory{ID: "h2", OrderID: "o1", FromStatus: models.StatusReceived, ToStatus: models.StatusPreparing},
	}
	require.NoError(t, store.Orders.UpdateStatus(ctx, change))

	// A second writer that read "received" earlier loses.
	change.To = models.StatusCancelled
	change.History.ID = "h3"
	assert.ErrorIs(t, store.Orders.UpdateStatus(ctx, change), ErrConflict)

	change.OrderID = "missing"
	assert.ErrorIs(t, store.Orders.UpdateStatus(ctx, change), ErrNotFound)

	got, err := store.Orders.GetByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, got.Status)
	assert.Len(t, got.StatusHistory, 2)
}

func TestGormOrders_UpdatePaymentIsConditional(t *testing.T) {
	store := newGormStore(t)
	ctx := context.Background()
	at := time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC)
	require.NoError(t, store.Orders.Create(ctx, testOrder("o1", at)))

	change := PaymentChange{OrderID: "o1", From: models.PaymentPending, To: models.PaymentCompleted, At: at}
	require.NoError(t, store.Orders.UpdatePayment(ctx, change))
	assert.ErrorIs(t, store.Orders.UpdatePayment(ctx, change), ErrConflict)
}

func TestGormOrders_ListByDay(t *testing.T) {
	store := newGormStore(t)
	ctx := context.Background()
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Orders.Create(ctx, testOrder("early", day.Add(time.Minute))))
	require.NoError(t, store.Orders.Create(ctx, testOrder("late", day.Add(23*time.Hour+59*time.Minute))))
	require.NoError(t, store.Orders.Create(ctx, testOrder("next", day.AddDate(0, 0, 1))))

	noon := day.Add(12 * time.Hour)
	orders, err := store.Orders.List(ctx, OrderFilter{Day: &noon})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "late", orders[0].ID)
	assert.Equal(t, "early", orders[1].ID)
}

func TestGormMenu_DuplicateNameKey(t *testing.T) {
	store := newGormStore(t)
	ctx := context.Background()

	item := models.MenuItem{ID: "m1", Name: "Ramen", NameKey: "ramen", Description: "Broth", Category: models.CategoryMain, PreparationTime: 10, SpiceLevel: models.SpiceMild}
	require.NoError(t, store.Menu.Create(ctx, &item))

	dup := item
	dup.ID = "m2"
	assert.ErrorIs(t, store.Menu.Create(ctx, &dup), ErrDuplicate)

	byKey, err := store.Menu.GetByNameKey(ctx, "ramen")
	require.NoError(t, err)
	assert.Equal(t, "m1", byKey.ID)

	items, err := store.Menu.GetByIDs(ctx, []string{"m1", "nope"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestOrderFilter_DayBounds(t *testing.T) {
	d := time.Date(2024, 3, 10, 22, 15, 0, 0, time.FixedZone("X", -3*3600))
	start, end := OrderFilter{Day: &d}.DayBounds()
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), end)
}
