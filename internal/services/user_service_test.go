package services

import (
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/constants"
)

func (s *ServiceTestSuite) TestCreateUser() {
	result, err := s.users.Create(s.ctx, s.actor(s.orgAdmin), CreateUserInput{
		Email: " New.Hire@Acme.test ", Name: "New Hire", Role: "EMPLOYEE",
	})
	s.Require().NoError(err)
	s.Equal("new.hire@acme.test", result.User.Email)
	s.Equal(s.tenantA.ID, *result.User.TenantID)
	s.Len(result.TemporaryPassword, constants.TemporaryPasswordSize)

	login, err := s.auth.Login(s.ctx, LoginInput{Email: "new.hire@acme.test", Password: result.TemporaryPassword})
	s.Require().NoError(err)
	s.Equal(result.User.ID, login.User.ID)

	_, err = s.users.Create(s.ctx, s.actor(s.orgAdmin), CreateUserInput{Email: "new.hire@acme.test", Name: "Dup", Role: "EMPLOYEE"})
	s.ErrorIs(err, ErrEmailTaken)
}

func (s *ServiceTestSuite) TestCreateUserRefusals() {
	cases := []struct {
		name  string
		actor Actor
		input CreateUserInput
		want  error
	}{
		{"super admin role", s.actor(s.orgAdmin), CreateUserInput{Email: "x@acme.test", Name: "x", Role: "SUPER_ADMIN"}, authz.ErrCannotManageSuperAdmin},
		{"project manager actor", s.actor(s.manager), CreateUserInput{Email: "x@acme.test", Name: "x", Role: "EMPLOYEE"}, authz.ErrInsufficientCapability},
		{"super admin actor", s.actor(s.superAdmin), CreateUserInput{Email: "x@acme.test", Name: "x", Role: "EMPLOYEE"}, authz.ErrSuperAdminScopeViolation},
		{"unknown role", s.actor(s.orgAdmin), CreateUserInput{Email: "x@acme.test", Name: "x", Role: "OWNER"}, ErrInvalidRole},
		{"bad email", s.actor(s.orgAdmin), CreateUserInput{Email: "not-an-email", Name: "x", Role: "EMPLOYEE"}, ErrInvalidEmail},
		{"short password", s.actor(s.orgAdmin), CreateUserInput{Email: "x@acme.test", Name: "x", Role: "EMPLOYEE", Password: "short"}, ErrPasswordTooShort},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.users.Create(s.ctx, tc.actor, tc.input)
			s.ErrorIs(err, tc.want)
		})
	}
}

func (s *ServiceTestSuite) TestUserSelfProtection() {
	admin := s.actor(s.orgAdmin)
	role := "EMPLOYEE"
	inactive := false

	_, err := s.users.Update(s.ctx, admin, s.orgAdmin.ID, UpdateUserInput{Role: &role})
	s.ErrorIs(err, authz.ErrCannotModifySelf)
	_, err = s.users.Update(s.ctx, admin, s.orgAdmin.ID, UpdateUserInput{IsActive: &inactive})
	s.ErrorIs(err, authz.ErrCannotModifySelf)
	s.ErrorIs(s.users.Delete(s.ctx, admin, s.orgAdmin.ID), authz.ErrCannotModifySelf)

	name := "Renamed Admin"
	updated, err := s.users.Update(s.ctx, admin, s.orgAdmin.ID, UpdateUserInput{Name: &name})
	s.Require().NoError(err)
	s.Equal("Renamed Admin", updated.Name)
}

func (s *ServiceTestSuite) TestUpdateUserRole() {
	admin := s.actor(s.orgAdmin)
	promote := "PROJECT_MANAGER"
	updated, err := s.users.Update(s.ctx, admin, s.employee.ID, UpdateUserInput{Role: &promote})
	s.Require().NoError(err)
	s.Equal(authz.RoleProjectManager, updated.Role)

	elevate := "SUPER_ADMIN"
	_, err = s.users.Update(s.ctx, admin, s.employee.ID, UpdateUserInput{Role: &elevate})
	s.ErrorIs(err, authz.ErrCannotManageSuperAdmin)
}

func (s *ServiceTestSuite) TestUserAccessAcrossBoundaries() {
	_, err := s.users.Get(s.ctx, s.actor(s.orgAdmin), s.superAdmin.ID)
	s.ErrorIs(err, authz.ErrCannotManageSuperAdmin)

	// Users of another tenant read exactly like ids that do not exist.
	_, err = s.users.Get(s.ctx, s.actor(s.orgAdmin), s.adminB.ID)
	s.ErrorIs(err, ErrUserNotFound)
	_, err = s.users.Get(s.ctx, s.actor(s.orgAdmin), 9999)
	s.ErrorIs(err, ErrUserNotFound)

	s.ErrorIs(s.users.Delete(s.ctx, s.actor(s.adminB), s.employee.ID), ErrUserNotFound)

	s.NoError(s.users.Delete(s.ctx, s.actor(s.orgAdmin), s.otherEmployee.ID))
	_, err = s.users.Get(s.ctx, s.actor(s.orgAdmin), s.otherEmployee.ID)
	s.ErrorIs(err, ErrUserNotFound)
}

func (s *ServiceTestSuite) TestListUsers() {
	users, total, err := s.users.List(s.ctx, s.actor(s.orgAdmin), ListUsersInput{})
	s.Require().NoError(err)
	s.Equal(int64(4), total)
	for _, u := range users {
		s.Equal(s.tenantA.ID, *u.TenantID)
	}

	role := "EMPLOYEE"
	_, total, err = s.users.List(s.ctx, s.actor(s.orgAdmin), ListUsersInput{Role: &role})
	s.Require().NoError(err)
	s.Equal(int64(2), total)

	_, _, err = s.users.List(s.ctx, s.actor(s.employee), ListUsersInput{})
	s.ErrorIs(err, authz.ErrInsufficientCapability)
}
