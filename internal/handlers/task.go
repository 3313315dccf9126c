package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/dto"
	apierrors "github.com/yukikurage/taskhub-api/internal/errors"
	"github.com/yukikurage/taskhub-api/internal/services"
	"github.com/yukikurage/taskhub-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns the tasks visible to the caller.
// Filters: project_id, status, assignee_id, assigned_to_me, due_today, sort=due_date
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	projectID, ok := parseOptionalID(c, "project_id")
	if !ok {
		return
	}
	assigneeID, ok := parseOptionalID(c, "assignee_id")
	if !ok {
		return
	}

	page := utils.PageFromQuery(c)
	input := services.ListTasksInput{
		ProjectID:     projectID,
		AssigneeID:    assigneeID,
		AssignedToMe:  c.Query("assigned_to_me") == "true",
		DueToday:      c.Query("due_today") == "true",
		SortByDueDate: c.Query("sort") == "due_date",
		Page:          page.Number,
		PageSize:      page.Size,
	}
	if raw := c.Query("status"); raw != "" {
		status := authz.TaskStatus(raw)
		if !status.Valid() {
			apierrors.BadRequest(c, "Invalid status")
			return
		}
		input.Status = &status
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), actor, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(dto.ToTaskDTOs(tasks), page.Number, page.Size, total))
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		ProjectID   uint64     `json:"project_id" binding:"required"`
		Title       string     `json:"title" binding:"required"`
		Description string     `json:"description"`
		DueDate     *time.Time `json:"due_date"`
		AssigneeID  *uint64    `json:"assignee_id"`
	}
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), actor, services.CreateTaskInput{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies the fields present in the body. "due_date": null clears
// the due date.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	// Parse raw JSON to detect which fields were sent
	var rawReq map[string]json.RawMessage
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var input services.UpdateTaskInput
	decode := func(key string, dst any) bool {
		raw, ok := rawReq[key]
		if !ok {
			return true
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			apierrors.BadRequest(c, "Invalid "+key)
			return false
		}
		return true
	}
	if !decode("title", &input.Title) || !decode("description", &input.Description) || !decode("status", &input.Status) {
		return
	}
	if raw, ok := rawReq["due_date"]; ok {
		if string(raw) == "null" {
			input.ClearDueDate = true
		} else if !decode("due_date", &input.DueDate) {
			return
		}
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), actor, id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

func (h *TaskHandler) ChangeStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	type ChangeStatusRequest struct {
		Status authz.TaskStatus `json:"status" binding:"required"`
	}
	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.ChangeStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// AssignTask sets the assignee. A null assignee_id unassigns the task.
func (h *TaskHandler) AssignTask(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	type AssignTaskRequest struct {
		AssigneeID *uint64 `json:"assignee_id"`
	}
	var req AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.AssignTask(c.Request.Context(), actor, id, req.AssigneeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// GenerateTasks generates task suggestions for a project from text using AI.
// With save=true the suggestions are stored as tasks.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	type GenerateTasksRequest struct {
		ProjectID uint64 `json:"project_id" binding:"required"`
		Text      string `json:"text" binding:"required"`
		Save      bool   `json:"save"`
	}
	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	generated, err := h.taskService.GenerateTasks(c.Request.Context(), actor, services.GenerateTasksInput{
		ProjectID: req.ProjectID,
		Text:      req.Text,
		Save:      req.Save,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if req.Save {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"tasks": generated,
	})
}
