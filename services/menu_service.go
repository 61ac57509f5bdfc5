package services

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"restaurant-api/access"
	"restaurant-api/apperrors"
	"restaurant-api/models"
	"restaurant-api/repository"
)

type MenuItemInput struct {
	Name            string
	Description     string
	Price           decimal.Decimal
	Image           string
	Category        models.Category
	IsAvailable     *bool
	PreparationTime int
	SpiceLevel      models.SpiceLevel
	DietaryTags     []models.DietaryTag
}

// MenuItemPatch carries the fields to change; nil means unchanged.
type MenuItemPatch struct {
	Name            *string
	Description     *string
	Price           *decimal.Decimal
	Image           *string
	Category        *models.Category
	IsAvailable     *bool
	PreparationTime *int
	SpiceLevel      *models.SpiceLevel
	DietaryTags     []models.DietaryTag
}

type MenuService struct {
	menu repository.MenuRepository
	lg   *zap.Logger
	runtime
}

func NewMenuService(menu repository.MenuRepository, lg *zap.Logger, opts ...Option) *MenuService {
	return &MenuService{menu: menu, lg: lg.Named("menu"), runtime: newRuntime(opts)}
}

func (s *MenuService) List(ctx context.Context, filter repository.MenuFilter) ([]models.MenuItem, error) {
	filter.Category = models.Category(strings.ToLower(string(filter.Category)))

	var fields []apperrors.FieldError
	if filter.Category != "" && !filter.Category.Valid() {
		fields = append(fields, apperrors.FieldError{Field: "category", Message: "unknown category"})
	}
	if filter.Dietary != "" && !filter.Dietary.Valid() {
		fields = append(fields, apperrors.FieldError{Field: "dietary", Message: "unknown dietary tag"})
	}
	if filter.SpiceLevel != "" && !filter.SpiceLevel.Valid() {
		fields = append(fields, apperrors.FieldError{Field: "spice_level", Message: "unknown spice level"})
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation("invalid menu filter", fields...)
	}

	items, err := s.menu.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Store(err, "failed to list menu items")
	}
	return items, nil
}

// ListByCategory returns the dishes of one category that can be ordered now.
func (s *MenuService) ListByCategory(ctx context.Context, category models.Category) ([]models.MenuItem, error) {
	return s.List(ctx, repository.MenuFilter{Category: category, AvailableOnly: true})
}

func (s *MenuService) Get(ctx context.Context, id string) (*models.MenuItem, error) {
	item, err := s.menu.GetByID(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.NotFound("menu item %s not found", id)
	case err != nil:
		return nil, apperrors.Store(err, "failed to load menu item")
	}
	return item, nil
}

func (s *MenuService) Create(ctx context.Context, caller *access.Caller, in MenuItemInput) (*models.MenuItem, error) {
	if err := access.Check(access.AdminOnly, caller, ""); err != nil {
		return nil, err
	}

	now := s.timestamp()
	item := &models.MenuItem{
		ID:              s.newID(),
		Name:            strings.TrimSpace(in.Name),
		Description:     strings.TrimSpace(in.Description),
		Price:           in.Price,
		Image:           strings.TrimSpace(in.Image),
		Category:        models.Category(strings.ToLower(string(in.Category))),
		IsAvailable:     true,
		PreparationTime: in.PreparationTime,
		SpiceLevel:      in.SpiceLevel,
		DietaryTags:     in.DietaryTags,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.IsAvailable != nil {
		item.IsAvailable = *in.IsAvailable
	}
	if item.SpiceLevel == "" {
		item.SpiceLevel = models.SpiceMild
	}
	if item.Image == "" {
		item.Image = models.DefaultMenuImage
	}
	if item.DietaryTags == nil {
		item.DietaryTags = []models.DietaryTag{}
	}
	item.NameKey = strings.ToLower(item.Name)

	if err := validateMenuItem(item); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, item); err != nil {
		return nil, err
	}
	if err := s.menu.Create(ctx, item); err != nil {
		return nil, s.writeErr(err, item.ID, "failed to create menu item")
	}

	s.lg.Info("Menu item created", zap.String("id", item.ID), zap.String("name", item.Name))
	return item, nil
}

func (s *MenuService) Update(ctx context.Context, caller *access.Caller, id string, patch MenuItemPatch) (*models.MenuItem, error) {
	if err := access.Check(access.AdminOnly, caller, ""); err != nil {
		return nil, err
	}
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		item.Name = strings.TrimSpace(*patch.Name)
		item.NameKey = strings.ToLower(item.Name)
	}
	if patch.Description != nil {
		item.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		item.Price = *patch.Price
	}
	if patch.Image != nil {
		item.Image = strings.TrimSpace(*patch.Image)
	}
	if patch.Category != nil {
		item.Category = models.Category(strings.ToLower(string(*patch.Category)))
	}
	if patch.IsAvailable != nil {
		item.IsAvailable = *patch.IsAvailable
	}
	if patch.PreparationTime != nil {
		item.PreparationTime = *patch.PreparationTime
	}
	if patch.SpiceLevel != nil {
		item.SpiceLevel = *patch.SpiceLevel
	}
	if patch.DietaryTags != nil {
		item.DietaryTags = patch.DietaryTags
	}
	item.UpdatedAt = s.timestamp()

	if err := validateMenuItem(item); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, item); err != nil {
		return nil, err
	}
	if err := s.menu.Update(ctx, item); err != nil {
		return nil, s.writeErr(err, item.ID, "failed to update menu item")
	}

	s.lg.Info("Menu item updated", zap.String("id", item.ID), zap.Bool("available", item.IsAvailable))
	return item, nil
}

// Delete removes a dish from the catalog. Orders keep their snapshots.
func (s *MenuService) Delete(ctx context.Context, caller *access.Caller, id string) error {
	if err := access.Check(access.AdminOnly, caller, ""); err != nil {
		return err
	}
	if err := s.menu.Delete(ctx, id); err != nil {
		return s.writeErr(err, id, "failed to delete menu item")
	}
	s.lg.Info("Menu item deleted", zap.String("id", id))
	return nil
}

func (s *MenuService) ensureUniqueName(ctx context.Context, item *models.MenuItem) error {
	existing, err := s.menu.GetByNameKey(ctx, item.NameKey)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return apperrors.Store(err, "failed to check menu item name")
	case existing.ID != item.ID:
		return apperrors.Conflict("menu item with this name already exists")
	}
	return nil
}

func (s *MenuService) writeErr(err error, id, op string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("menu item %s not found", id)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.Conflict("menu item with this name already exists")
	}
	return apperrors.Store(err, op)
}

func validateMenuItem(item *models.MenuItem) error {
	var fields []apperrors.FieldError
	add := func(field, msg string) {
		fields = append(fields, apperrors.FieldError{Field: field, Message: msg})
	}

	if item.Name == "" {
		add("name", "item name is required")
	} else if len(item.Name) > 100 {
		add("name", "item name cannot exceed 100 characters")
	}
	if item.Description == "" {
		add("description", "item description is required")
	} else if len(item.Description) > 500 {
		add("description", "item description cannot exceed 500 characters")
	}
	if item.Price.IsNegative() {
		add("price", "price cannot be negative")
	}
	if !item.Category.Valid() {
		add("category", "must be one of appetizer, main, dessert, beverage")
	}
	if item.PreparationTime < 1 {
		add("preparation_time", "preparation time must be at least 1 minute")
	}
	if !item.SpiceLevel.Valid() {
		add("spice_level", "must be one of mild, medium, hot, extra-hot")
	}
	for _, tag := range item.DietaryTags {
		if !tag.Valid() {
			add("dietary_tags", "unknown dietary tag "+string(tag))
			break
		}
	}

	if len(fields) > 0 {
		return apperrors.Validation("invalid menu item", fields...)
	}
	return nil
}
