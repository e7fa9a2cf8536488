package handlers

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService services.NotificationService
}

func NewNotificationHandler(notificationService services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

const maxHorizonHours = math.MaxInt64 / int64(time.Hour)

// parseHorizon accepts a Go duration ("36h") or a bare number of hours.
// Empty means the service default.
func parseHorizon(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	if hours, err := strconv.Atoi(v); err == nil {
		if hours <= 0 {
			return 0, fmt.Errorf("%w: horizon must be positive", models.ErrInvalidInput)
		}
		if int64(hours) > maxHorizonHours {
			return 0, fmt.Errorf("%w: horizon of %d hours is out of range", models.ErrInvalidInput, hours)
		}
		return time.Duration(hours) * time.Hour, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: invalid horizon %q", models.ErrInvalidInput, v)
	}
	return d, nil
}

func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	horizon, err := parseHorizon(c.Query("horizon"))
	if err != nil {
		respondError(c, err)
		return
	}

	notifications, err := h.notificationService.GenerateDueSoon(c.Request.Context(), who.ID, horizon)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	if err := h.notificationService.MarkAllRead(c.Request.Context(), who.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}
