package services

import (
	"errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/notify"
	"github.com/yukikurage/taskhub-api/internal/repository"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func (s *ServiceTestSuite) TestSetPermissionsScope() {
	cases := []struct {
		name   string
		actor  Actor
		target uint64
		want   error
	}{
		{"self", s.actor(s.orgAdmin), s.orgAdmin.ID, authz.ErrCannotModifySelf},
		{"super admin target", s.actor(s.orgAdmin), s.superAdmin.ID, authz.ErrCannotManageSuperAdmin},
		{"other tenant", s.actor(s.orgAdmin), s.adminB.ID, authz.ErrTenantAccessDenied},
		{"project manager actor", s.actor(s.manager), s.employee.ID, authz.ErrInsufficientCapability},
		{"employee actor", s.actor(s.employee), s.otherEmployee.ID, authz.ErrInsufficientCapability},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.permissions.Set(s.ctx, tc.actor, tc.target, authz.RoleDefaults(authz.RoleEmployee))
			s.ErrorIs(err, tc.want)
		})
	}

	peer := s.createUser("admin2@acme.test", authz.RoleOrgAdmin, &s.tenantA.ID)
	_, err := s.permissions.Set(s.ctx, s.actor(s.orgAdmin), peer.ID, authz.RoleDefaults(authz.RoleOrgAdmin))
	s.ErrorIs(err, authz.ErrInsufficientCapability)

	_, err = s.permissions.Set(s.ctx, s.actor(s.superAdmin), peer.ID, authz.RoleDefaults(authz.RoleOrgAdmin))
	s.NoError(err)

	_, err = s.permissions.Get(s.ctx, s.employee.ID)
	s.ErrorIs(err, ErrOverrideNotFound)
}

func (s *ServiceTestSuite) TestOverrideGrantsCapability() {
	project := s.createProject(s.manager)

	_, err := s.tasks.CreateTask(s.ctx, s.actor(s.employee), CreateTaskInput{ProjectID: project.ID, Title: "Self-organized"})
	s.ErrorIs(err, authz.ErrInsufficientCapability)

	m := authz.RoleDefaults(authz.RoleEmployee)
	m.Tasks.Create = true
	result, err := s.permissions.Set(s.ctx, s.actor(s.orgAdmin), s.employee.ID, m)
	s.Require().NoError(err)
	s.True(result.Overridden)

	_, err = s.tasks.CreateTask(s.ctx, s.actor(s.employee), CreateTaskInput{ProjectID: project.ID, Title: "Self-organized"})
	s.NoError(err)
}

func (s *ServiceTestSuite) TestResetToDefaultIsSnapshot() {
	m := authz.RoleDefaults(authz.RoleProjectManager)
	m.Reports.Read = false
	_, err := s.permissions.Set(s.ctx, s.actor(s.orgAdmin), s.manager.ID, m)
	s.Require().NoError(err)

	for range 2 {
		result, err := s.permissions.ResetToDefault(s.ctx, s.actor(s.orgAdmin), s.manager.ID)
		s.Require().NoError(err)
		s.True(result.Overridden)
		s.Equal(authz.RoleDefaults(authz.RoleProjectManager), result.Permissions)
	}

	stored, err := s.permissions.Get(s.ctx, s.manager.ID)
	s.Require().NoError(err)
	s.True(stored.IsActive)
	s.Equal(authz.RoleDefaults(authz.RoleProjectManager), stored.Permissions)
	s.Equal(s.orgAdmin.ID, stored.UpdatedBy)

	var rows int64
	s.Require().NoError(s.db.Table("permission_overrides").Where("user_id = ?", s.manager.ID).Count(&rows).Error)
	s.Equal(int64(1), rows)
}

func (s *ServiceTestSuite) TestPermissionChangeNotifies() {
	_, err := s.permissions.ResetToDefault(s.ctx, s.actor(s.orgAdmin), s.employee.ID)
	s.Require().NoError(err)

	s.ElementsMatch([]string{
		notify.UserTopic(s.employee.ID),
		notify.TenantAdminsTopic(s.tenantA.ID),
	}, s.notifier.topics(notify.EventPermissionsUpdated))
}

func (s *ServiceTestSuite) TestListPermissions() {
	s.Run("org admin sees managed roles of its tenant", func() {
		list, total, err := s.permissions.List(s.ctx, s.actor(s.orgAdmin), 1, 50)
		s.Require().NoError(err)
		s.Equal(int64(3), total)
		for _, up := range list {
			s.Contains([]authz.Role{authz.RoleProjectManager, authz.RoleEmployee}, up.User.Role)
			s.Equal(s.tenantA.ID, *up.User.TenantID)
			s.Equal(authz.RoleDefaults(up.User.Role), up.Permissions)
		}
	})

	s.Run("super admin sees everyone", func() {
		_, total, err := s.permissions.List(s.ctx, s.actor(s.superAdmin), 1, 50)
		s.Require().NoError(err)
		s.Equal(int64(6), total)
	})

	s.Run("others are refused", func() {
		_, _, err := s.permissions.List(s.ctx, s.actor(s.manager), 1, 50)
		s.ErrorIs(err, authz.ErrInsufficientCapability)
	})
}

func (s *ServiceTestSuite) TestEffectivePermissions() {
	own, err := s.permissions.EffectivePermissions(s.ctx, s.actor(s.employee), s.employee.ID)
	s.Require().NoError(err)
	s.False(own.Overridden)
	s.Equal(authz.RoleDefaults(authz.RoleEmployee), own.Permissions)

	_, err = s.permissions.EffectivePermissions(s.ctx, s.actor(s.employee), s.manager.ID)
	s.ErrorIs(err, authz.ErrInsufficientCapability)

	_, err = s.permissions.EffectivePermissions(s.ctx, s.actor(s.adminB), s.manager.ID)
	s.ErrorIs(err, authz.ErrTenantAccessDenied)

	_, err = s.permissions.EffectivePermissions(s.ctx, s.actor(s.orgAdmin), 9999)
	s.ErrorIs(err, ErrUserNotFound)
}

// TestOverrideLookupFailureIsNotADenial checks that a broken store surfaces as
// an error rather than as an authorization decision.
func (s *ServiceTestSuite) TestOverrideLookupFailureIsNotADenial() {
	sqlDB, mock, err := sqlmock.New()
	s.Require().NoError(err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)

	mock.ExpectQuery("SELECT (.+) FROM `permission_overrides`").WillReturnError(errors.New("connection reset by peer"))

	perms := NewPermissionService(repository.NewOverrideRepository(db), repository.NewUserRepository(db), nil, nil)
	engine := authz.NewEngine(perms)

	actor := s.actor(s.manager)
	_, err = engine.Authorize(s.ctx, actor.Principal, actor.Tenant, authz.Request{
		Action: authz.ActionRead, Category: authz.CategoryTask, Collection: true,
	})
	s.Require().Error(err)
	s.False(authz.IsDenied(err))
	s.NoError(mock.ExpectationsWereMet())
}

func (s *ServiceTestSuite) TestOverrideCannotGrantTenantManagement() {
	m := authz.RoleDefaults(authz.RoleProjectManager)
	m.Tenants = authz.Capabilities{Create: true, Read: true, Update: true, Delete: true}
	result, err := s.permissions.Set(s.ctx, s.actor(s.orgAdmin), s.manager.ID, m)
	s.Require().NoError(err)
	s.Equal(authz.Capabilities{}, result.Permissions.Tenants)

	stored, err := s.permissions.Get(s.ctx, s.manager.ID)
	s.Require().NoError(err)
	s.Equal(authz.Capabilities{}, stored.Permissions.Tenants)

	// A row written before the clamp still cannot open tenant management.
	stored.Permissions = m
	s.Require().NoError(s.db.Save(stored).Error)

	pm := s.actor(s.manager)
	_, _, err = s.tenants.List(s.ctx, pm, 1, 20)
	s.ErrorIs(err, authz.ErrInsufficientCapability)
	s.ErrorIs(s.tenants.Delete(s.ctx, pm, s.tenantB.ID), authz.ErrInsufficientCapability)
	_, err = s.tenants.Create(s.ctx, pm, CreateTenantInput{
		Name:  "Evil",
		Slug:  "evil",
		Admin: &InitialAdminInput{Email: "x@evil.test", Name: "X"},
	})
	s.ErrorIs(err, authz.ErrInsufficientCapability)

	var tenants int64
	s.Require().NoError(s.db.Model(&models.Tenant{}).Count(&tenants).Error)
	s.Equal(int64(2), tenants)
}
