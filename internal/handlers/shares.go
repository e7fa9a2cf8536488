package handlers

import (
	"net/http"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

type ShareHandler struct {
	shareService services.ShareService
	taskService  services.TaskService
}

func NewShareHandler(shareService services.ShareService, taskService services.TaskService) *ShareHandler {
	return &ShareHandler{shareService: shareService, taskService: taskService}
}

type shareRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	Permission string `json:"permission" binding:"required"`
}

func (h *ShareHandler) ShareTask(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	taskID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req shareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	grantee, err := uuid.FromString(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_input", "message": "invalid user_id"})
		return
	}
	permission, err := models.ParseSharePermission(req.Permission)
	if err != nil {
		respondError(c, err)
		return
	}

	grant, err := h.shareService.ShareTask(c.Request.Context(), taskID, who.ID, grantee, permission)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, grant)
}

func (h *ShareHandler) ListGrants(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	taskID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	grants, err := h.shareService.ListGrants(c.Request.Context(), taskID, who.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shares": grants})
}

func (h *ShareHandler) RevokeShare(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	taskID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	grantee, ok := uuidParam(c, "user_id")
	if !ok {
		return
	}

	if err := h.shareService.RevokeShare(c.Request.Context(), taskID, who.ID, grantee); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ShareHandler) ListSharedWithMe(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	tasks, err := h.shareService.ListSharedWithMe(c.Request.Context(), who.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": len(tasks)})
}

// GetSharedTask is GetTask restricted to tasks the caller does not own.
func (h *ShareHandler) GetSharedTask(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	taskID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	task, level, err := h.taskService.GetTask(c.Request.Context(), taskID, who.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if level == models.AccessOwner {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "task is not shared with you"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task, "access": level})
}

func (h *ShareHandler) UpdateSharedTask(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	taskID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var patch taskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	update, err := patch.toUpdate()
	if err != nil {
		respondError(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), taskID, who.ID, update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// LeaveShare drops the caller's own grant; the task itself is untouched.
func (h *ShareHandler) LeaveShare(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	taskID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.shareService.LeaveShare(c.Request.Context(), taskID, who.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
