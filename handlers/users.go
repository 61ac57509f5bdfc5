package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-api/middleware"
	"restaurant-api/models"
	"restaurant-api/services"
)

type ProfileRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=50"`
	Email       *string `json:"email" binding:"omitempty,email"`
	PhoneNumber *string `json:"phone_number"`
	Address     *string `json:"address" binding:"omitempty,max=200"`
}

type UserUpdateRequest struct {
	ProfileRequest
	Role *models.UserRole `json:"role" binding:"omitempty,enum"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

type UserQuery struct {
	Role models.UserRole `form:"role" binding:"omitempty,enum"`
}

func (r ProfileRequest) update() services.ProfileUpdate {
	return services.ProfileUpdate{
		Name:        r.Name,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		Address:     r.Address,
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.users.Profile(c.Request.Context(), middleware.CallerFrom(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), middleware.CallerFrom(c), req.update())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": user})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	err := h.users.ChangePassword(c.Request.Context(), middleware.CallerFrom(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

// ListUsers returns every account, optionally only those with ?role=.
func (h *Handler) ListUsers(c *gin.Context) {
	var q UserQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	users, err := h.users.List(c.Request.Context(), middleware.CallerFrom(c), q.Role)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var req UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(bindError(err))
		return
	}

	user, err := h.users.Update(c.Request.Context(), middleware.CallerFrom(c), c.Param("id"), services.UserUpdate{
		ProfileUpdate: req.update(),
		Role:          req.Role,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated", "user": user})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), middleware.CallerFrom(c), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
