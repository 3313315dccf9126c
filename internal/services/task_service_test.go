package services

import (
	"errors"
	"time"

	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/notify"
)

func (s *ServiceTestSuite) TestEmployeeMustBeAssigneeToUpdate() {
	project := s.createProject(s.manager)
	task := s.createTask(s.manager, project.ID, s.otherEmployee)
	title := "Reworded"

	_, err := s.tasks.UpdateTask(s.ctx, s.actor(s.employee), task.ID, UpdateTaskInput{Title: &title})
	s.ErrorIs(err, authz.ErrNotOwner)

	_, err = s.tasks.AssignTask(s.ctx, s.actor(s.manager), task.ID, &s.employee.ID)
	s.Require().NoError(err)

	updated, err := s.tasks.UpdateTask(s.ctx, s.actor(s.employee), task.ID, UpdateTaskInput{Title: &title})
	s.Require().NoError(err)
	s.Equal("Reworded", updated.Title)
}

func (s *ServiceTestSuite) TestOverrideRemovesTaskDelete() {
	project := s.createProject(s.manager)
	first := s.createTask(s.manager, project.ID, nil)
	second := s.createTask(s.manager, project.ID, nil)

	s.Require().NoError(s.tasks.DeleteTask(s.ctx, s.actor(s.manager), first.ID))

	m := authz.RoleDefaults(authz.RoleProjectManager)
	m.Tasks.Delete = false
	_, err := s.permissions.Set(s.ctx, s.actor(s.orgAdmin), s.manager.ID, m)
	s.Require().NoError(err)

	err = s.tasks.DeleteTask(s.ctx, s.actor(s.manager), second.ID)
	s.ErrorIs(err, authz.ErrInsufficientCapability)
	s.True(authz.IsDenied(err))
}

func (s *ServiceTestSuite) TestStatusLifecycleIsEnforced() {
	project := s.createProject(s.manager)
	task := s.createTask(s.manager, project.ID, nil)
	pm := s.actor(s.manager)

	for _, st := range []authz.TaskStatus{authz.TaskStatusInProgress, authz.TaskStatusInReview, authz.TaskStatusDone} {
		_, err := s.tasks.ChangeStatus(s.ctx, pm, task.ID, st)
		s.Require().NoError(err, "to %s", st)
	}

	_, err := s.tasks.ChangeStatus(s.ctx, pm, task.ID, authz.TaskStatusBlocked)
	s.ErrorIs(err, authz.ErrInvalidStatusTransition)

	// Setting the current status again is not a transition.
	_, err = s.tasks.ChangeStatus(s.ctx, pm, task.ID, authz.TaskStatusDone)
	s.NoError(err)

	reopened, err := s.tasks.ChangeStatus(s.ctx, pm, task.ID, authz.TaskStatusInProgress)
	s.Require().NoError(err)
	s.Equal(authz.TaskStatusInProgress, reopened.Status)

	_, err = s.tasks.ChangeStatus(s.ctx, pm, task.ID, authz.TaskStatus("ARCHIVED"))
	s.ErrorIs(err, authz.ErrUnknownStatus)
}

func (s *ServiceTestSuite) TestStatusChangeNotifiesParticipants() {
	project := s.createProject(s.manager)
	task := s.createTask(s.manager, project.ID, s.employee)

	_, err := s.tasks.ChangeStatus(s.ctx, s.actor(s.employee), task.ID, authz.TaskStatusInProgress)
	s.Require().NoError(err)

	s.Equal([]string{notify.UserTopic(s.manager.ID)}, s.notifier.topics(notify.EventTaskStatusChanged))
	s.Equal([]string{notify.UserTopic(s.employee.ID)}, s.notifier.topics(notify.EventTaskAssigned))
}

func (s *ServiceTestSuite) TestCommentOwnership() {
	project := s.createProject(s.manager)
	task := s.createTask(s.manager, project.ID, s.employee)

	comment, err := s.tasks.AddComment(s.ctx, s.actor(s.manager), task.ID, "Please add screenshots")
	s.Require().NoError(err)
	s.Equal([]string{notify.UserTopic(s.employee.ID)}, s.notifier.topics(notify.EventCommentAdded))

	_, err = s.tasks.UpdateComment(s.ctx, s.actor(s.employee), task.ID, comment.ID, "edited")
	s.ErrorIs(err, authz.ErrNotOwner)
	err = s.tasks.DeleteComment(s.ctx, s.actor(s.employee), task.ID, comment.ID)
	s.ErrorIs(err, authz.ErrNotOwner)

	edited, err := s.tasks.UpdateComment(s.ctx, s.actor(s.orgAdmin), task.ID, comment.ID, "edited by admin")
	s.Require().NoError(err)
	s.Equal("edited by admin", edited.Body)

	own, err := s.tasks.AddComment(s.ctx, s.actor(s.employee), task.ID, "Done, see attachment")
	s.Require().NoError(err)
	s.NoError(s.tasks.DeleteComment(s.ctx, s.actor(s.employee), task.ID, own.ID))

	comments, err := s.tasks.ListComments(s.ctx, s.actor(s.employee), task.ID)
	s.Require().NoError(err)
	s.Len(comments, 1)
}

func (s *ServiceTestSuite) TestEmployeeCannotCommentOnUnassignedTask() {
	project := s.createProject(s.manager)
	task := s.createTask(s.manager, project.ID, s.otherEmployee)

	_, err := s.tasks.AddComment(s.ctx, s.actor(s.employee), task.ID, "hi")
	s.ErrorIs(err, authz.ErrNotOwner)
	_, err = s.tasks.GetTask(s.ctx, s.actor(s.employee), task.ID)
	s.ErrorIs(err, authz.ErrNotOwner)
}

func (s *ServiceTestSuite) TestEmployeeListsOnlyAssignedTasks() {
	project := s.createProject(s.manager)
	s.createTask(s.manager, project.ID, s.employee)
	s.createTask(s.manager, project.ID, s.otherEmployee)
	s.createTask(s.manager, project.ID, nil)

	tasks, total, err := s.tasks.ListTasks(s.ctx, s.actor(s.employee), ListTasksInput{})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(tasks, 1)
	s.Equal(s.employee.ID, *tasks[0].AssigneeID)

	// Asking for someone else's tasks yields nothing rather than widening the scope.
	_, total, err = s.tasks.ListTasks(s.ctx, s.actor(s.employee), ListTasksInput{AssigneeID: &s.otherEmployee.ID})
	s.Require().NoError(err)
	s.Zero(total)

	_, total, err = s.tasks.ListTasks(s.ctx, s.actor(s.manager), ListTasksInput{})
	s.Require().NoError(err)
	s.Equal(int64(3), total)
}

func (s *ServiceTestSuite) TestCrossTenantTaskReadsAsMissing() {
	project := s.createProject(s.manager)
	task := s.createTask(s.manager, project.ID, nil)
	foreign := s.actor(s.adminB)
	missing := uint64(9999)

	_, err := s.tasks.GetTask(s.ctx, foreign, task.ID)
	s.ErrorIs(err, ErrTaskNotFound)
	_, err = s.tasks.GetTask(s.ctx, foreign, missing)
	s.ErrorIs(err, ErrTaskNotFound)

	s.ErrorIs(s.tasks.DeleteTask(s.ctx, foreign, task.ID), ErrTaskNotFound)
	_, err = s.tasks.AddComment(s.ctx, foreign, task.ID, "hello")
	s.ErrorIs(err, ErrTaskNotFound)
	_, err = s.tasks.CreateTask(s.ctx, foreign, CreateTaskInput{ProjectID: project.ID, Title: "x"})
	s.ErrorIs(err, ErrProjectNotFound)

	_, err = s.tasks.AssignTask(s.ctx, s.actor(s.manager), task.ID, &s.adminB.ID)
	s.ErrorIs(err, ErrInvalidAssignee)

	_, err = s.tasks.GetTask(s.ctx, s.actor(s.manager), task.ID)
	s.NoError(err)
}

func (s *ServiceTestSuite) TestAssignRequiresCapability() {
	project := s.createProject(s.manager)
	task := s.createTask(s.manager, project.ID, s.employee)

	_, err := s.tasks.AssignTask(s.ctx, s.actor(s.employee), task.ID, &s.otherEmployee.ID)
	s.ErrorIs(err, authz.ErrInsufficientCapability)

	// The assignee is only looked up once assigning is allowed at all.
	unknown := uint64(9999)
	_, err = s.tasks.AssignTask(s.ctx, s.actor(s.employee), task.ID, &unknown)
	s.ErrorIs(err, authz.ErrInsufficientCapability)

	_, err = s.tasks.AssignTask(s.ctx, s.actor(s.manager), task.ID, &s.superAdmin.ID)
	s.ErrorIs(err, authz.ErrCannotManageSuperAdmin)

	_, err = s.tasks.AssignTask(s.ctx, s.actor(s.manager), task.ID, &unknown)
	s.ErrorIs(err, ErrInvalidAssignee)

	unassigned, err := s.tasks.AssignTask(s.ctx, s.actor(s.manager), task.ID, nil)
	s.Require().NoError(err)
	s.Nil(unassigned.AssigneeID)
}

func (s *ServiceTestSuite) TestSuperAdminCannotTouchTasks() {
	project := s.createProject(s.manager)

	_, err := s.tasks.CreateTask(s.ctx, s.actor(s.superAdmin), CreateTaskInput{ProjectID: project.ID, Title: "x"})
	s.ErrorIs(err, authz.ErrSuperAdminScopeViolation)
	_, _, err = s.tasks.ListTasks(s.ctx, s.actor(s.superAdmin), ListTasksInput{})
	s.ErrorIs(err, authz.ErrSuperAdminScopeViolation)
}

func (s *ServiceTestSuite) TestGenerateTasks() {
	project := s.createProject(s.manager)
	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	s.generator.tasks = []GeneratedTask{
		{Title: "Draft agenda", DueDate: &due},
		{Title: "   "},
		{Title: "Book room", DueDate: ptrTime(time.Now().Add(-72 * time.Hour))},
	}

	generated, err := s.tasks.GenerateTasks(s.ctx, s.actor(s.manager), GenerateTasksInput{ProjectID: project.ID, Text: "meeting notes", Save: true})
	s.Require().NoError(err)
	s.Require().Len(generated, 2)
	s.Nil(generated[1].DueDate)

	_, total, err := s.tasks.ListTasks(s.ctx, s.actor(s.manager), ListTasksInput{ProjectID: &project.ID})
	s.Require().NoError(err)
	s.Equal(int64(2), total)

	_, err = s.tasks.GenerateTasks(s.ctx, s.actor(s.employee), GenerateTasksInput{ProjectID: project.ID, Text: "x"})
	s.ErrorIs(err, authz.ErrInsufficientCapability)

	s.generator.err = errors.New("rate limited")
	_, err = s.tasks.GenerateTasks(s.ctx, s.actor(s.manager), GenerateTasksInput{ProjectID: project.ID, Text: "x"})
	s.Error(err)
	s.False(authz.IsDenied(err))

	s.tasks.generator = nil
	_, err = s.tasks.GenerateTasks(s.ctx, s.actor(s.manager), GenerateTasksInput{ProjectID: project.ID, Text: "x"})
	s.ErrorIs(err, ErrAIServiceNotConfigured)
}

func (s *ServiceTestSuite) TestTaskNotFound() {
	_, err := s.tasks.GetTask(s.ctx, s.actor(s.manager), 424242)
	s.ErrorIs(err, ErrTaskNotFound)
}

func ptrTime(t time.Time) *time.Time { return &t }
