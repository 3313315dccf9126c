package services

import (
	"github.com/yukikurage/taskhub-api/internal/audit"
	"github.com/yukikurage/taskhub-api/internal/authz"
)

func (s *ServiceTestSuite) TestTaskSummary() {
	apollo := s.createProject(s.manager)
	gemini := s.createProject(s.manager)
	first := s.createTask(s.manager, apollo.ID, nil)
	s.createTask(s.manager, apollo.ID, nil)
	s.createTask(s.manager, gemini.ID, nil)

	_, err := s.tasks.ChangeStatus(s.ctx, s.actor(s.manager), first.ID, authz.TaskStatusInProgress)
	s.Require().NoError(err)

	summary, err := s.reports.TaskSummary(s.ctx, s.actor(s.manager), nil)
	s.Require().NoError(err)
	s.Equal(int64(3), summary.Total)
	s.Equal(int64(2), summary.ByStatus[authz.TaskStatusTodo])
	s.Equal(int64(1), summary.ByStatus[authz.TaskStatusInProgress])
	s.Len(summary.ByStatus, len(authz.AllTaskStatuses()))

	scoped, err := s.reports.TaskSummary(s.ctx, s.actor(s.orgAdmin), &gemini.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), scoped.Total)

	_, err = s.reports.TaskSummary(s.ctx, s.actor(s.employee), nil)
	s.ErrorIs(err, authz.ErrInsufficientCapability)

	_, err = s.reports.TaskSummary(s.ctx, s.actor(s.adminB), &apollo.ID)
	s.ErrorIs(err, ErrProjectNotFound)
}

func (s *ServiceTestSuite) TestAuditTrailHidesSuperAdmins() {
	name := "Acme Corporation"
	_, err := s.tenants.Update(s.ctx, s.actor(s.superAdmin), s.tenantA.ID, UpdateTenantInput{Name: &name})
	s.Require().NoError(err)

	promote := "PROJECT_MANAGER"
	_, err = s.users.Update(s.ctx, s.actor(s.orgAdmin), s.employee.ID, UpdateUserInput{Role: &promote})
	s.Require().NoError(err)
	s.recorder.Wait()

	var raw int64
	s.Require().NoError(s.db.Table("audit_logs").Where("tenant_id = ?", s.tenantA.ID).Count(&raw).Error)
	s.Equal(int64(2), raw)

	entries, total, err := s.audits.List(s.ctx, s.actor(s.orgAdmin), ListAuditInput{})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(entries, 1)
	s.Equal(string(audit.ActionUpdate), entries[0].Action)
	s.Equal(audit.ResourceUser, entries[0].ResourceType)
	s.Equal("EMPLOYEE", entries[0].Before["role"])
	s.Equal("PROJECT_MANAGER", entries[0].After["role"])

	entries, total, err = s.audits.List(s.ctx, s.actor(s.orgAdmin), ListAuditInput{UserID: &s.superAdmin.ID})
	s.Require().NoError(err)
	s.Zero(total)
	s.Empty(entries)

	_, _, err = s.audits.List(s.ctx, s.actor(s.superAdmin), ListAuditInput{})
	s.ErrorIs(err, authz.ErrSuperAdminScopeViolation)

	_, _, err = s.audits.List(s.ctx, s.actor(s.manager), ListAuditInput{})
	s.ErrorIs(err, authz.ErrInsufficientCapability)
}

func (s *ServiceTestSuite) TestAuditTrailIsTenantScoped() {
	s.createProject(s.adminB)
	s.recorder.Wait()

	_, total, err := s.audits.List(s.ctx, s.actor(s.orgAdmin), ListAuditInput{ResourceType: audit.ResourceProject})
	s.Require().NoError(err)
	s.Zero(total)

	_, total, err = s.audits.List(s.ctx, s.actor(s.adminB), ListAuditInput{ResourceType: audit.ResourceProject})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
}
