package services

import (
	"github.com/yukikurage/taskhub-api/internal/authz"
)

func (s *ServiceTestSuite) TestProjectManagerNarrowing() {
	project := s.createProject(s.manager)
	s.Equal(s.manager.ID, project.OwnerID)
	s.Equal(s.manager.ID, project.ManagerID)

	otherPM := s.createUser("pm2@acme.test", authz.RoleProjectManager, &s.tenantA.ID)
	name := "Apollo 2"

	_, err := s.projects.Update(s.ctx, s.actor(otherPM), project.ID, UpdateProjectInput{Name: &name})
	s.ErrorIs(err, authz.ErrNotOwner)

	_, err = s.projects.AddMember(s.ctx, s.actor(s.manager), project.ID, otherPM.ID, authz.MemberRoleLead)
	s.Require().NoError(err)

	updated, err := s.projects.Update(s.ctx, s.actor(otherPM), project.ID, UpdateProjectInput{Name: &name})
	s.Require().NoError(err)
	s.Equal("Apollo 2", updated.Name)

	// Project managers lack the delete capability regardless of ownership.
	s.ErrorIs(s.projects.Delete(s.ctx, s.actor(s.manager), project.ID), authz.ErrInsufficientCapability)
}

func (s *ServiceTestSuite) TestProjectMembership() {
	project := s.createProject(s.manager)

	_, err := s.projects.AddMember(s.ctx, s.actor(s.manager), project.ID, s.employee.ID, authz.MemberRole("OWNER"))
	s.ErrorIs(err, ErrInvalidMemberRole)

	_, err = s.projects.AddMember(s.ctx, s.actor(s.manager), project.ID, s.adminB.ID, "")
	s.ErrorIs(err, ErrUserNotFound)

	_, err = s.projects.AddMember(s.ctx, s.actor(s.employee), project.ID, s.employee.ID, "")
	s.ErrorIs(err, authz.ErrInsufficientCapability)
	_, err = s.projects.AddMember(s.ctx, s.actor(s.employee), project.ID, 9999, "")
	s.ErrorIs(err, authz.ErrInsufficientCapability)

	_, err = s.projects.AddMember(s.ctx, s.actor(s.adminB), project.ID, s.adminB.ID, "")
	s.ErrorIs(err, ErrProjectNotFound)

	withMember, err := s.projects.AddMember(s.ctx, s.actor(s.manager), project.ID, s.employee.ID, "")
	s.Require().NoError(err)
	found := false
	for _, m := range withMember.Members {
		if m.UserID == s.employee.ID {
			found = true
			s.Equal(authz.MemberRoleMember, m.Role)
		}
	}
	s.True(found)

	s.ErrorIs(s.projects.RemoveMember(s.ctx, s.actor(s.manager), project.ID, s.otherEmployee.ID), ErrMemberNotFound)
	s.NoError(s.projects.RemoveMember(s.ctx, s.actor(s.manager), project.ID, s.employee.ID))
}

func (s *ServiceTestSuite) TestEmployeeListsOnlyMemberProjects() {
	joined := s.createProject(s.manager)
	s.createProject(s.manager)

	_, err := s.projects.AddMember(s.ctx, s.actor(s.manager), joined.ID, s.employee.ID, authz.MemberRoleViewer)
	s.Require().NoError(err)

	projects, total, err := s.projects.List(s.ctx, s.actor(s.employee), ListProjectsInput{})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(joined.ID, projects[0].ID)

	_, total, err = s.projects.List(s.ctx, s.actor(s.orgAdmin), ListProjectsInput{})
	s.Require().NoError(err)
	s.Equal(int64(2), total)

	_, total, err = s.projects.List(s.ctx, s.actor(s.orgAdmin), ListProjectsInput{Mine: true})
	s.Require().NoError(err)
	s.Zero(total)

	_, err = s.projects.Create(s.ctx, s.actor(s.employee), CreateProjectInput{Name: "Side quest"})
	s.ErrorIs(err, authz.ErrInsufficientCapability)
}

func (s *ServiceTestSuite) TestDeleteProjectRemovesTasks() {
	project := s.createProject(s.orgAdmin)
	task := s.createTask(s.orgAdmin, project.ID, nil)

	s.Require().NoError(s.projects.Delete(s.ctx, s.actor(s.orgAdmin), project.ID))

	_, err := s.projects.Get(s.ctx, s.actor(s.orgAdmin), project.ID)
	s.ErrorIs(err, ErrProjectNotFound)
	_, err = s.tasks.GetTask(s.ctx, s.actor(s.orgAdmin), task.ID)
	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *ServiceTestSuite) TestCreateProjectWithForeignManager() {
	_, err := s.projects.Create(s.ctx, s.actor(s.orgAdmin), CreateProjectInput{Name: "Joint venture", ManagerID: &s.adminB.ID})
	s.ErrorIs(err, ErrInvalidManager)
}
