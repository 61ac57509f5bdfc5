package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"restaurant-api/access"
	"restaurant-api/handlers"
	"restaurant-api/metrics"
	"restaurant-api/middleware"
)

// NewRouter builds the engine with the middleware stack and every route.
// debug exposes store error details in responses.
func NewRouter(h *handlers.Handler, auth *middleware.Authenticator, lg *zap.Logger, debug bool) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(lg),
		middleware.RequestID(),
		middleware.RequestLogger(lg),
		middleware.Instrument(),
		middleware.CORS(),
		middleware.ErrorResponder(lg, debug),
	)
	SetupRoutes(r, h, auth)
	return r
}

func SetupRoutes(r *gin.Engine, h *handlers.Handler, auth *middleware.Authenticator) {
	r.GET("/", h.Welcome)
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authenticated := auth.Require(access.Authenticated)
	ownerOrAdmin := auth.Require(access.OwnerOrAdmin)
	adminOnly := auth.Require(access.AdminOnly)

	api := r.Group("/api")

	// ── Public routes ──────────────────────────────────────────────
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/state-machine", h.StateMachine)

	// ── Menu ───────────────────────────────────────────────────────
	menu := api.Group("/menu")
	{
		menu.GET("", h.ListMenu)
		menu.GET("/category/:category", h.ListMenuByCategory)
		menu.GET("/:id", h.GetMenuItem)
		menu.POST("", adminOnly, h.CreateMenuItem)
		menu.PUT("/:id", adminOnly, h.UpdateMenuItem)
		menu.DELETE("/:id", adminOnly, h.DeleteMenuItem)
	}

	// ── Orders ─────────────────────────────────────────────────────
	orders := api.Group("/orders")
	{
		orders.POST("", authenticated, h.CreateOrder)
		orders.GET("/my-orders", authenticated, h.GetMyOrders)
		orders.GET("", adminOnly, h.ListOrders)
		orders.GET("/:id", ownerOrAdmin, h.GetOrder)
		orders.POST("/:id/cancel", ownerOrAdmin, h.CancelOrder)
		// Status and payment values are validated before the role check, so
		// these only demand a caller here.
		orders.PUT("/:id/status", authenticated, h.UpdateOrderStatus)
		orders.PUT("/:id/payment", authenticated, h.UpdateOrderPayment)
	}

	// ── Users ──────────────────────────────────────────────────────
	users := api.Group("/users")
	{
		users.GET("/profile", authenticated, h.GetProfile)
		users.PUT("/profile", authenticated, h.UpdateProfile)
		users.PUT("/profile/password", authenticated, h.ChangePassword)
		users.GET("", adminOnly, h.ListUsers)
		users.GET("/:id", ownerOrAdmin, h.GetUser)
		users.PUT("/:id", ownerOrAdmin, h.UpdateUser)
		users.DELETE("/:id", adminOnly, h.DeleteUser)
	}
}
