package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"restaurant-api/models"
	"restaurant-api/statemachine"
)

const healthTimeout = 2 * time.Second

// Welcome is the API root.
func (h *Handler) Welcome(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to Restaurant Management API",
		"docs":    "/api/state-machine",
		"health":  "/health",
		"roles":   []models.UserRole{models.RoleCustomer, models.RoleAdmin},
	})
}

// Health reports whether the store answers a ping.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.lg.Warn("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "Restaurant Order Management API",
		"database": "connected",
	})
}

// StateMachine documents the order and payment lifecycles.
func (h *Handler) StateMachine(c *gin.Context) {
	statuses := []models.OrderStatus{
		models.StatusReceived, models.StatusPreparing, models.StatusReady,
		models.StatusDelivered, models.StatusCancelled,
	}
	var terminal []models.OrderStatus
	for _, s := range statuses {
		if statemachine.IsTerminal(s) {
			terminal = append(terminal, s)
		}
	}

	payments := []models.PaymentStatus{
		models.PaymentPending, models.PaymentCompleted, models.PaymentFailed, models.PaymentRefunded,
	}
	paymentFlow := make([]gin.H, 0, len(payments))
	for _, from := range payments {
		for _, to := range statemachine.PaymentTransitionsFrom(from) {
			paymentFlow = append(paymentFlow, gin.H{"from": from, "to": to, "actor": statemachine.ActorAdmin})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"state_machine":   statemachine.GetAllTransitions(),
		"terminal_states": terminal,
		"payment_flow":    paymentFlow,
		"description":     "Restaurant Order Lifecycle State Machine",
	})
}
