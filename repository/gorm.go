package repository

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"gorm.io/gorm"

	"restaurant-api/models"
)

// NewGormStore returns a Store backed by db. Call Migrate first on a fresh
// database.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Menu:   &gormMenuRepository{db: db},
		Orders: &gormOrderRepository{db: db},
		Users:  &gormUserRepository{db: db},
		ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

// Migrate auto-migrates all models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
	)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case isDuplicate(err):
		return errors.Wrap(ErrDuplicate, err.Error())
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// ── Menu ─────────────────────────────────────────────────────────────────────

type gormMenuRepository struct {
	db *gorm.DB
}

func (r *gormMenuRepository) List(ctx context.Context, filter MenuFilter) ([]models.MenuItem, error) {
	query := r.db.WithContext(ctx).Model(&models.MenuItem{})
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Dietary != "" {
		// dietary_tags is a JSON array of strings
		query = query.Where("dietary_tags LIKE ?", `%"`+string(filter.Dietary)+`"%`)
	}
	if filter.SpiceLevel != "" {
		query = query.Where("spice_level = ?", filter.SpiceLevel)
	}
	if filter.AvailableOnly {
		query = query.Where("is_available = ?", true)
	}

	var items []models.MenuItem
	if err := query.Order("category asc, name asc").Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "list menu items")
	}
	return items, nil
}

func (r *gormMenuRepository) GetByID(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *gormMenuRepository) GetByIDs(ctx context.Context, ids []string) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if len(ids) == 0 {
		return items, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "get menu items")
	}
	return items, nil
}

func (r *gormMenuRepository) GetByNameKey(ctx context.Context, nameKey string) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.db.WithContext(ctx).Where("name_key = ?", nameKey).First(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *gormMenuRepository) Create(ctx context.Context, item *models.MenuItem) error {
	return translate(r.db.WithContext(ctx).Create(item).Error)
}

func (r *gormMenuRepository) Update(ctx context.Context, item *models.MenuItem) error {
	return translate(r.db.WithContext(ctx).Save(item).Error)
}

func (r *gormMenuRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.MenuItem{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

type gormOrderRepository struct {
	db *gorm.DB
}

func (r *gormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return translate(tx.Create(order).Error)
	})
}

func (r *gormOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc")
		}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *gormOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Preload("Items")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Day != nil {
		start, end := filter.DayBounds()
		query = query.Where("created_at >= ? AND created_at < ?", start, end)
	}

	var orders []models.Order
	if err := query.Order("created_at desc").Find(&orders).Error; err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

func (r *gormOrderRepository) UpdateStatus(ctx context.Context, change StatusChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := map[string]any{
			"status":     change.To,
			"updated_at": change.At,
		}
		if change.ActualDeliveryTime != nil {
			update["actual_delivery_time"] = *change.ActualDeliveryTime
		}
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", change.OrderID, change.From).
			Updates(update)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return r.missingOrConflict(tx, change.OrderID)
		}
		history := change.History
		return tx.Create(&history).Error
	})
}

func (r *gormOrderRepository) UpdatePayment(ctx context.Context, change PaymentChange) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", change.OrderID, change.From).
		Updates(map[string]any{
			"payment_status": change.To,
			"updated_at":     change.At,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(r.db.WithContext(ctx), change.OrderID)
	}
	return nil
}

func (r *gormOrderRepository) missingOrConflict(db *gorm.DB, id string) error {
	var count int64
	if err := db.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

// ── Users ────────────────────────────────────────────────────────────────────

type gormUserRepository struct {
	db *gorm.DB
}

func (r *gormUserRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *gormUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUserRepository) List(ctx context.Context, role models.UserRole) ([]models.User, error) {
	query := r.db.WithContext(ctx)
	if role != "" {
		query = query.Where("role = ?", role)
	}
	var users []models.User
	if err := query.Order("created_at asc").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return users, nil
}

func (r *gormUserRepository) Update(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Save(user).Error)
}

func (r *gormUserRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormUserRepository) CountByRole(ctx context.Context, role models.UserRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}
