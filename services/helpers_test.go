package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"restaurant-api/access"
	"restaurant-api/apperrors"
	"restaurant-api/events"
	"restaurant-api/models"
	"restaurant-api/repository"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	store := repository.NewGormStore(db)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

var (
	customer      = &access.Caller{UserID: "customer-1", Role: models.RoleCustomer}
	otherCustomer = &access.Caller{UserID: "customer-2", Role: models.RoleCustomer}
	admin         = &access.Caller{UserID: "admin-1", Role: models.RoleAdmin}
)

// orderFixture wires an OrderService over a fresh store seeded with three
// dishes: "pizza" (10.00, 20 min), "salad" (5.00, 10 min) and the
// unavailable "soup".
type orderFixture struct {
	store *repository.Store
	clock *testClock
	svc   *OrderService
	pizza models.MenuItem
	salad models.MenuItem
	soup  models.MenuItem
}

func newOrderFixture(t *testing.T, publisher events.Publisher) *orderFixture {
	t.Helper()

	f := &orderFixture{store: newTestStore(t), clock: newTestClock()}
	f.svc = NewOrderService(f.store.Menu, f.store.Orders, publisher, zaptest.NewLogger(t), WithClock(f.clock.Now))

	f.pizza = f.seedMenuItem(t, "pizza", "Margherita", "10.00", 20, true)
	f.salad = f.seedMenuItem(t, "salad", "Caesar Salad", "5.00", 10, true)
	f.soup = f.seedMenuItem(t, "soup", "Tomato Soup", "4.50", 15, false)
	return f
}

func (f *orderFixture) seedMenuItem(t *testing.T, id, name, price string, prep int, available bool) models.MenuItem {
	t.Helper()
	item := models.MenuItem{
		ID:              id,
		Name:            name,
		NameKey:         name,
		Description:     name + " description",
		Price:           decimal.RequireFromString(price),
		Category:        models.CategoryMain,
		IsAvailable:     available,
		PreparationTime: prep,
		SpiceLevel:      models.SpiceMild,
		DietaryTags:     []models.DietaryTag{},
	}
	require.NoError(t, f.store.Menu.Create(context.Background(), &item))
	return item
}

func (f *orderFixture) placeTakeaway(t *testing.T, caller *access.Caller) *models.Order {
	t.Helper()
	order, err := f.svc.Create(context.Background(), caller, CreateOrderInput{
		Items: []OrderItemInput{
			{MenuItemID: f.pizza.ID, Quantity: 2},
			{MenuItemID: f.salad.ID, Quantity: 1},
		},
		OrderType:     models.OrderTakeaway,
		PaymentMethod: models.PaymentCard,
	})
	require.NoError(t, err)
	return order
}

func requireKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperrors.KindOf(err), "unexpected error: %v", err)
}
