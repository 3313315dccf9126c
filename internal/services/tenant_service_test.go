package services

import (
	"github.com/yukikurage/taskhub-api/internal/authz"
)

func (s *ServiceTestSuite) TestCreateTenantWithAdmin() {
	result, err := s.tenants.Create(s.ctx, s.actor(s.superAdmin), CreateTenantInput{
		Name:  "Initech",
		Slug:  "Initech",
		Admin: &InitialAdminInput{Email: "boss@initech.test", Name: "Bill"},
	})
	s.Require().NoError(err)
	s.Equal("initech", result.Tenant.Slug)
	s.Require().NotNil(result.Admin)
	s.Equal(authz.RoleOrgAdmin, result.Admin.Role)
	s.Equal(result.Tenant.ID, *result.Admin.TenantID)
	s.NotEmpty(result.TemporaryPassword)

	login, err := s.auth.Login(s.ctx, LoginInput{Email: "boss@initech.test", Password: result.TemporaryPassword})
	s.Require().NoError(err)
	p, _, err := s.authn.Authenticate(s.ctx, login.Token)
	s.Require().NoError(err)
	s.Equal(authz.RoleOrgAdmin, p.Role)
	s.Equal(result.Tenant.ID, *p.TenantID)
}

func (s *ServiceTestSuite) TestCreateTenantValidation() {
	sa := s.actor(s.superAdmin)
	cases := []struct {
		name  string
		input CreateTenantInput
		want  error
	}{
		{"blank name", CreateTenantInput{Name: " ", Slug: "blank"}, ErrNameRequired},
		{"short slug", CreateTenantInput{Name: "A", Slug: "a"}, ErrSlugInvalid},
		{"slug with spaces", CreateTenantInput{Name: "A", Slug: "a b"}, ErrSlugInvalid},
		{"taken slug", CreateTenantInput{Name: "Acme 2", Slug: "acme"}, ErrSlugTaken},
		{"taken admin email", CreateTenantInput{Name: "Hooli", Slug: "hooli", Admin: &InitialAdminInput{Email: "admin@acme.test", Name: "Gavin"}}, ErrEmailTaken},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.tenants.Create(s.ctx, sa, tc.input)
			s.ErrorIs(err, tc.want)
		})
	}
}

func (s *ServiceTestSuite) TestTenantManagementIsSuperAdminOnly() {
	_, err := s.tenants.Create(s.ctx, s.actor(s.orgAdmin), CreateTenantInput{Name: "Rogue", Slug: "rogue"})
	s.ErrorIs(err, authz.ErrInsufficientCapability)

	_, _, err = s.tenants.List(s.ctx, s.actor(s.orgAdmin), 1, 20)
	s.ErrorIs(err, authz.ErrInsufficientCapability)

	tenants, total, err := s.tenants.List(s.ctx, s.actor(s.superAdmin), 1, 20)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(tenants, 2)
}

func (s *ServiceTestSuite) TestDeactivatedTenantBlocksLogin() {
	inactive := false
	_, err := s.tenants.Update(s.ctx, s.actor(s.superAdmin), s.tenantA.ID, UpdateTenantInput{IsActive: &inactive})
	s.Require().NoError(err)

	_, err = s.auth.Login(s.ctx, LoginInput{Email: "admin@acme.test", Password: "password123"})
	s.ErrorIs(err, ErrTenantInactive)

	_, err = s.auth.Login(s.ctx, LoginInput{Email: "admin@globex.test", Password: "password123"})
	s.NoError(err)
}

func (s *ServiceTestSuite) TestDeleteTenantKeepsData() {
	project := s.createProject(s.manager)

	s.Require().NoError(s.tenants.Delete(s.ctx, s.actor(s.superAdmin), s.tenantA.ID))
	_, err := s.tenants.Get(s.ctx, s.actor(s.superAdmin), s.tenantA.ID)
	s.ErrorIs(err, ErrTenantNotFound)

	var projects int64
	s.Require().NoError(s.db.Table("projects").Where("id = ? AND deleted_at IS NULL", project.ID).Count(&projects).Error)
	s.Equal(int64(1), projects)
}
