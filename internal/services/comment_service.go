package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yukikurage/taskhub-api/internal/audit"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/notify"
)

// Comments are a sub-resource of tasks and share TaskService.

// AddComment comments on a task the actor can see.
func (s *TaskService) AddComment(ctx context.Context, actor Actor, taskID uint64, body string) (*models.TaskComment, error) {
	task, err := s.findTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	facts := task.Facts()
	if err := s.check(ctx, actor, authz.ActionComment, authz.Facts{Task: &facts}); err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrCommentEmpty
	}

	comment := &models.TaskComment{TaskID: task.ID, AuthorID: actor.Principal.ID, Body: body}
	if err := s.taskRepo.CreateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	e := actor.entry(audit.ActionCreate, audit.ResourceComment, audit.ID(comment.ID))
	e.After = comment
	e.Metadata = map[string]any{"task_id": task.ID}
	s.audit.Record(ctx, e)

	s.notifyParticipants(actor, task, notify.EventCommentAdded, map[string]any{
		"task_id":    task.ID,
		"comment_id": comment.ID,
		"author_id":  comment.AuthorID,
	})
	return comment, nil
}

// ListComments lists the comments of a task the actor can see.
func (s *TaskService) ListComments(ctx context.Context, actor Actor, taskID uint64) ([]models.TaskComment, error) {
	task, err := s.findTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	facts := task.Facts()
	if err := s.check(ctx, actor, authz.ActionRead, authz.Facts{Task: &facts}); err != nil {
		return nil, err
	}

	comments, err := s.taskRepo.ListComments(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (s *TaskService) loadComment(ctx context.Context, actor Actor, taskID, commentID uint64, action authz.Action) (*models.TaskComment, error) {
	task, err := s.findTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	comment, err := s.taskRepo.FindComment(ctx, taskID, commentID)
	if err != nil {
		return nil, lookupError(err, ErrCommentNotFound, "comment")
	}

	taskFacts, commentFacts := task.Facts(), comment.Facts()
	if err := s.check(ctx, actor, action, authz.Facts{Task: &taskFacts, Comment: &commentFacts}); err != nil {
		return nil, err
	}
	return comment, nil
}

// UpdateComment edits a comment. Only its author may do so, org admins aside.
func (s *TaskService) UpdateComment(ctx context.Context, actor Actor, taskID, commentID uint64, body string) (*models.TaskComment, error) {
	comment, err := s.loadComment(ctx, actor, taskID, commentID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrCommentEmpty
	}
	before := *comment
	comment.Body = body

	if err := s.taskRepo.UpdateComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	e := actor.entry(audit.ActionUpdate, audit.ResourceComment, audit.ID(comment.ID))
	e.Before, e.After = before, comment
	s.audit.Record(ctx, e)
	return comment, nil
}

// DeleteComment removes a comment. Only its author may do so, org admins aside.
func (s *TaskService) DeleteComment(ctx context.Context, actor Actor, taskID, commentID uint64) error {
	comment, err := s.loadComment(ctx, actor, taskID, commentID, authz.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.taskRepo.DeleteComment(ctx, comment.ID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	e := actor.entry(audit.ActionDelete, audit.ResourceComment, audit.ID(comment.ID))
	e.Before = comment
	s.audit.Record(ctx, e)
	return nil
}
