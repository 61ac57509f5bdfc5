package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"restaurant-api/models"
	"restaurant-api/services"
)

type RegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

type LoginRequest struct {
	Email    string          `json:"email" binding:"required,email"`
	Password string          `json:"password" binding:"required"`
	Role     models.UserRole `json:"role" binding:"omitempty,enum"`
}

type userSummary struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
}

// Register creates a customer account and returns a token for it.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	user, err := h.users.Register(c.Request.Context(), services.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.respondWithToken(c, http.StatusCreated, "User registered successfully", user)
}

// Login checks credentials and issues a JWT.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.respondWithToken(c, http.StatusOK, "Login successful", user)
}

func (h *Handler) respondWithToken(c *gin.Context, status int, message string, user *models.User) {
	token, expires, err := h.jwt.Generate(user)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(status, gin.H{
		"message":    message,
		"token":      token,
		"expires_at": expires.UTC().Format(time.RFC3339),
		"user": userSummary{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		},
	})
}
