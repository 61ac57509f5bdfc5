// Package repository persists menu items, orders and users. Two backends
// implement the same interfaces: GORM (SQLite or PostgreSQL) and MongoDB.
package repository

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"restaurant-api/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict is returned when a conditional update finds the row changed
	// since it was read.
	ErrConflict = errors.New("record changed concurrently")
)

type MenuFilter struct {
	Category      models.Category
	Dietary       models.DietaryTag
	SpiceLevel    models.SpiceLevel
	AvailableOnly bool
}

type OrderFilter struct {
	Status models.OrderStatus
	UserID string
	// Day restricts results to orders created on that calendar day (UTC).
	Day *time.Time
}

// DayBounds returns the [start, end) range of the filter day.
func (f OrderFilter) DayBounds() (time.Time, time.Time) {
	d := f.Day.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// StatusChange moves an order from one status to another, provided the order
// is still in From when the write lands.
type StatusChange struct {
	OrderID            string
	From               models.OrderStatus
	To                 models.OrderStatus
	ActualDeliveryTime *time.Time
	History            models.OrderStatusHistory
	At                 time.Time
}

type PaymentChange struct {
	OrderID string
	From    models.PaymentStatus
	To      models.PaymentStatus
	At      time.Time
}

type MenuRepository interface {
	List(ctx context.Context, filter MenuFilter) ([]models.MenuItem, error)
	GetByID(ctx context.Context, id string) (*models.MenuItem, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.MenuItem, error)
	GetByNameKey(ctx context.Context, nameKey string) (*models.MenuItem, error)
	Create(ctx context.Context, item *models.MenuItem) error
	Update(ctx context.Context, item *models.MenuItem) error
	Delete(ctx context.Context, id string) error
}

type OrderRepository interface {
	// Create stores the order with its items and history in one unit.
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, change StatusChange) error
	UpdatePayment(ctx context.Context, change PaymentChange) error
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, role models.UserRole) ([]models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	CountByRole(ctx context.Context, role models.UserRole) (int64, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Menu   MenuRepository
	Orders OrderRepository
	Users  UserRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

func (s *Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}
