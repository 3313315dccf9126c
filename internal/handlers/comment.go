package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskhub-api/internal/dto"
	apierrors "github.com/yukikurage/taskhub-api/internal/errors"
)

type commentRequest struct {
	Body string `json:"body" binding:"required"`
}

func (h *TaskHandler) ListComments(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}

	comments, err := h.taskService.ListComments(c.Request.Context(), actor, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": dto.ToCommentDTOs(comments)})
}

func (h *TaskHandler) AddComment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.taskService.AddComment(c.Request.Context(), actor, taskID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment))
}

func (h *TaskHandler) UpdateComment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	commentID, ok := parseID(c, "comment_id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.taskService.UpdateComment(c.Request.Context(), actor, taskID, commentID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToCommentDTO(*comment))
}

func (h *TaskHandler) DeleteComment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	taskID, ok := parseID(c, "id")
	if !ok {
		return
	}
	commentID, ok := parseID(c, "comment_id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteComment(c.Request.Context(), actor, taskID, commentID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}
