package handlers

import (
	"net/http"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetUserProfile returns the caller's own account.
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), who, who.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUserProfileByUserId(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	targetID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), who, targetID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetUsers(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	users, err := h.userService.ListUsers(c.Request.Context(), who)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}

func (h *UserHandler) UpdateUserProfile(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	targetID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}

	var req struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), who, targetID, services.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) SetUserRole(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	targetID, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}

	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := h.userService.SetRole(c.Request.Context(), who, targetID, role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
