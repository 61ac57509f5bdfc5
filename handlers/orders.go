package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"restaurant-api/apperrors"
	"restaurant-api/middleware"
	"restaurant-api/models"
	"restaurant-api/repository"
	"restaurant-api/services"
	"restaurant-api/statemachine"
)

type OrderItemRequest struct {
	MenuItemID          string `json:"menu_item_id" binding:"required"`
	Quantity            int    `json:"quantity"`
	SpecialInstructions string `json:"special_instructions"`
}

type CreateOrderRequest struct {
	Items                []OrderItemRequest   `json:"items" binding:"required,dive"`
	OrderType            models.OrderType     `json:"order_type" binding:"required,enum"`
	PaymentMethod        models.PaymentMethod `json:"payment_method" binding:"required,enum"`
	DeliveryAddress      *models.Address      `json:"delivery_address"`
	DeliveryInstructions string               `json:"delivery_instructions"`
	TableNumber          *int                 `json:"table_number"`
	SpecialRequests      string               `json:"special_requests"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,enum"`
	Note   string             `json:"note"`
}

type UpdatePaymentRequest struct {
	PaymentStatus models.PaymentStatus `json:"payment_status" binding:"required,enum"`
}

type OrderQuery struct {
	Status models.OrderStatus `form:"status" binding:"omitempty,enum"`
	Date   string             `form:"date"`
	UserID string             `form:"user_id"`
}

// CreateOrder prices the requested items against the current menu and
// places the order for the caller.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	items := make([]services.OrderItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = services.OrderItemInput{
			MenuItemID:          it.MenuItemID,
			Quantity:            it.Quantity,
			SpecialInstructions: it.SpecialInstructions,
		}
	}

	order, err := h.orders.Create(c.Request.Context(), middleware.CallerFrom(c), services.CreateOrderInput{
		Items:                items,
		OrderType:            req.OrderType,
		PaymentMethod:        req.PaymentMethod,
		DeliveryAddress:      req.DeliveryAddress,
		DeliveryInstructions: req.DeliveryInstructions,
		TableNumber:          req.TableNumber,
		SpecialRequests:      req.SpecialRequests,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":            "Order placed successfully",
		"order":              order,
		"estimated_ready_at": order.EstimatedReadyAt,
	})
}

func (h *Handler) GetMyOrders(c *gin.Context) {
	orders, err := h.orders.ListMine(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":             order,
		"valid_next_states": nextStates(order),
	})
}

// ListOrders returns all orders for the admin dashboard with per-status
// counts and delivered revenue. Filters: status, date (YYYY-MM-DD), user_id.
func (h *Handler) ListOrders(c *gin.Context) {
	var q OrderQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	filter := repository.OrderFilter{Status: q.Status, UserID: q.UserID}
	if q.Date != "" {
		day, err := time.Parse(time.DateOnly, q.Date)
		if err != nil {
			_ = c.Error(apperrors.Validation("invalid filter", apperrors.FieldError{
				Field:   "date",
				Message: "must be formatted as YYYY-MM-DD",
			}))
			return
		}
		filter.Day = &day
	}

	orders, err := h.orders.ListAll(c.Request.Context(), middleware.CallerFrom(c), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	summary := services.Summarize(orders)
	c.JSON(http.StatusOK, gin.H{
		"count":         summary.Count,
		"order_summary": summary.ByStatus,
		"total_revenue": summary.TotalRevenue,
		"orders":        orders,
	})
}

func (h *Handler) CancelOrder(c *gin.Context) {
	var req CancelOrderRequest
	// The body is optional.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(bindError(err))
			return
		}
	}

	order, err := h.orders.Cancel(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled", "order": order})
}

// UpdateOrderStatus advances an order. Admins drive the kitchen flow; the
// owner may only request cancellation.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req.Status, req.Note)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":           "Order status updated",
		"order":             order,
		"valid_next_states": nextStates(order),
	})
}

func (h *Handler) UpdateOrderPayment(c *gin.Context) {
	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	order, err := h.orders.UpdatePayment(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), req.PaymentStatus)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment status updated", "order": order})
}

func nextStates(order *models.Order) []models.OrderStatus {
	next := statemachine.ValidTransitionsFrom(order.Status)
	if next == nil {
		return []models.OrderStatus{}
	}
	return next
}
