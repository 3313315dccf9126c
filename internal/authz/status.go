package authz

import (
	"errors"
	"fmt"
)

// TaskStatus is a state of the task lifecycle.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusInReview   TaskStatus = "IN_REVIEW"
	TaskStatusBlocked    TaskStatus = "BLOCKED"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrUnknownStatus           = errors.New("unknown task status")
)

var transitions = map[TaskStatus][]TaskStatus{
	TaskStatusTodo:       {TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusInProgress: {TaskStatusInReview, TaskStatusBlocked, TaskStatusCancelled},
	TaskStatusInReview:   {TaskStatusDone, TaskStatusInProgress},
	TaskStatusDone:       {TaskStatusInProgress},
	TaskStatusBlocked:    {TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusCancelled:  {},
}

func (s TaskStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CheckTransition validates a status change.
func CheckTransition(from, to TaskStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
	}
	return nil
}

// AllTaskStatuses lists every lifecycle state in workflow order.
func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusTodo,
		TaskStatusInProgress,
		TaskStatusInReview,
		TaskStatusBlocked,
		TaskStatusDone,
		TaskStatusCancelled,
	}
}
