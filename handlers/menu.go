package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"restaurant-api/middleware"
	"restaurant-api/models"
	"restaurant-api/repository"
	"restaurant-api/services"
)

type MenuQuery struct {
	Category   models.Category   `form:"category"`
	Dietary    models.DietaryTag `form:"dietary"`
	SpiceLevel models.SpiceLevel `form:"spice_level"`
	Available  *bool             `form:"available"`
}

type MenuItemRequest struct {
	Name            string              `json:"name" binding:"required,max=100"`
	Description     string              `json:"description" binding:"required,max=500"`
	Price           *decimal.Decimal    `json:"price" binding:"required"`
	Image           string              `json:"image"`
	Category        models.Category     `json:"category" binding:"required"`
	IsAvailable     *bool               `json:"is_available"`
	PreparationTime int                 `json:"preparation_time" binding:"required,min=1"`
	SpiceLevel      models.SpiceLevel   `json:"spice_level" binding:"omitempty,enum"`
	DietaryTags     []models.DietaryTag `json:"dietary_tags" binding:"omitempty,dive,enum"`
}

type MenuItemPatchRequest struct {
	Name            *string             `json:"name" binding:"omitempty,max=100"`
	Description     *string             `json:"description" binding:"omitempty,max=500"`
	Price           *decimal.Decimal    `json:"price"`
	Image           *string             `json:"image"`
	Category        *models.Category    `json:"category"`
	IsAvailable     *bool               `json:"is_available"`
	PreparationTime *int                `json:"preparation_time" binding:"omitempty,min=1"`
	SpiceLevel      *models.SpiceLevel  `json:"spice_level" binding:"omitempty,enum"`
	DietaryTags     []models.DietaryTag `json:"dietary_tags" binding:"omitempty,dive,enum"`
}

// ListMenu returns the catalog, optionally filtered by category, dietary tag,
// spice level and availability.
func (h *Handler) ListMenu(c *gin.Context) {
	var q MenuQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	items, err := h.menu.List(c.Request.Context(), repository.MenuFilter{
		Category:      q.Category,
		Dietary:       q.Dietary,
		SpiceLevel:    q.SpiceLevel,
		AvailableOnly: q.Available != nil && *q.Available,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "menu": items})
}

func (h *Handler) GetMenuItem(c *gin.Context) {
	item, err := h.menu.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

// ListMenuByCategory returns the orderable dishes of one category.
func (h *Handler) ListMenuByCategory(c *gin.Context) {
	items, err := h.menu.ListByCategory(c.Request.Context(), models.Category(c.Param("category")))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "menu": items})
}

func (h *Handler) CreateMenuItem(c *gin.Context) {
	var req MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	item, err := h.menu.Create(c.Request.Context(), middleware.CallerFrom(c), services.MenuItemInput{
		Name:            req.Name,
		Description:     req.Description,
		Price:           *req.Price,
		Image:           req.Image,
		Category:        req.Category,
		IsAvailable:     req.IsAvailable,
		PreparationTime: req.PreparationTime,
		SpiceLevel:      req.SpiceLevel,
		DietaryTags:     req.DietaryTags,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Menu item created", "item": item})
}

func (h *Handler) UpdateMenuItem(c *gin.Context) {
	var req MenuItemPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	item, err := h.menu.Update(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), services.MenuItemPatch{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		Image:           req.Image,
		Category:        req.Category,
		IsAvailable:     req.IsAvailable,
		PreparationTime: req.PreparationTime,
		SpiceLevel:      req.SpiceLevel,
		DietaryTags:     req.DietaryTags,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item updated", "item": item})
}

func (h *Handler) DeleteMenuItem(c *gin.Context) {
	if err := h.menu.Delete(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item deleted successfully"})
}
