package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"task-tracker/backend/internal/models"
	"task-tracker/backend/internal/query"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	taskService    services.TaskService
	commentService services.CommentService
}

func NewTaskHandler(taskService services.TaskService, commentService services.CommentService) *TaskHandler {
	return &TaskHandler{taskService: taskService, commentService: commentService}
}

type taskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

// taskPatch keeps due_date raw so an explicit null (clear) can be told apart
// from an absent field (leave alone).
type taskPatch struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	DueDate     json.RawMessage `json:"due_date"`
	Status      *string         `json:"status"`
	Priority    *string         `json:"priority"`
}

func (p taskPatch) toUpdate() (services.TaskUpdate, error) {
	update := services.TaskUpdate{Title: p.Title, Description: p.Description}

	if len(p.DueDate) > 0 {
		if bytes.Equal(p.DueDate, []byte("null")) {
			update.ClearDueDate = true
		} else {
			var raw string
			if err := json.Unmarshal(p.DueDate, &raw); err != nil {
				return update, fmt.Errorf("%w: due_date must be a string", models.ErrInvalidInput)
			}
			due, err := query.ParseDate(raw)
			if err != nil {
				return update, fmt.Errorf("%w: due_date: %v", models.ErrInvalidInput, err)
			}
			update.DueDate = &due
		}
	}
	if p.Status != nil {
		status, err := models.ParseTaskStatus(*p.Status)
		if err != nil {
			return update, err
		}
		update.Status = &status
	}
	if p.Priority != nil {
		priority, err := models.ParseTaskPriority(*p.Priority)
		if err != nil {
			return update, err
		}
		update.Priority = &priority
	}
	return update, nil
}

func (h *TaskHandler) list(c *gin.Context, withFilter, withSort bool) {
	who, ok := caller(c)
	if !ok {
		return
	}

	var filter query.Filter
	if withFilter {
		f, err := query.ParseFilter(c.Request.URL.Query())
		if err != nil {
			respondError(c, err)
			return
		}
		filter = f
	}

	sort := query.DefaultSort
	if withSort {
		sort = query.ParseSort(c.Query(query.ParamSortBy), c.Query(query.ParamSortOrder))
	}

	tasks, err := h.taskService.ListTasks(c.Request.Context(), who.ID, filter, sort)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": len(tasks)})
}

// GetTasks accepts both filter and sort parameters.
func (h *TaskHandler) GetTasks(c *gin.Context) { h.list(c, true, true) }

func (h *TaskHandler) FilterTasks(c *gin.Context) { h.list(c, true, false) }

func (h *TaskHandler) SortTasks(c *gin.Context) { h.list(c, false, true) }

func (h *TaskHandler) CreateTask(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	in := services.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskStatus(req.Status),
		Priority:    models.TaskPriority(req.Priority),
	}
	if req.DueDate != "" {
		due, err := query.ParseDate(req.DueDate)
		if err != nil {
			respondError(c, fmt.Errorf("%w: due_date: %v", models.ErrInvalidInput, err))
			return
		}
		in.DueDate = &due
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), who.ID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	task, level, err := h.taskService.GetTask(c.Request.Context(), id, who.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task, "access": level})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
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

	task, err := h.taskService.UpdateTask(c.Request.Context(), id, who.ID, update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) SetStatus(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status, err := models.ParseTaskStatus(req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	task, err := h.taskService.SetStatus(c.Request.Context(), id, who.ID, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), id, who.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) ListComments(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	comments, err := h.commentService.ListComments(c.Request.Context(), id, who.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

func (h *TaskHandler) AddComment(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Comment string `json:"comment" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	comment, err := h.commentService.AddComment(c.Request.Context(), id, who.ID, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
