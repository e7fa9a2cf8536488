package handlers

import (
	"net/http"

	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type LogoutHandler struct {
	authService services.AuthService
}

func NewLogoutHandler(authService services.AuthService) *LogoutHandler {
	return &LogoutHandler{authService: authService}
}

// Logout revokes every refresh token of the caller. Access tokens already
// issued stay valid until they expire.
func (h *LogoutHandler) Logout(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), who.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully logged out",
	})
}
