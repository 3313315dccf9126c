package services

import (
	"github.com/yukikurage/taskhub-api/internal/audit"
	"github.com/yukikurage/taskhub-api/internal/auth"
	"golang.org/x/crypto/bcrypt"
)

func (s *ServiceTestSuite) TestLoginAndLogout() {
	result, err := s.auth.Login(s.ctx, LoginInput{Email: "  PM@acme.test", Password: "password123", ClientIP: "198.51.100.7"})
	s.Require().NoError(err)
	s.NotEmpty(result.Token)
	s.True(result.ExpiresAt.After(result.User.CreatedAt))

	p, claims, err := s.authn.Authenticate(s.ctx, result.Token)
	s.Require().NoError(err)
	s.Equal(s.manager.ID, p.ID)
	s.Equal(s.manager.Role, p.Role)

	actor := s.actor(s.manager)
	me, err := s.auth.Me(s.ctx, actor)
	s.Require().NoError(err)
	s.Equal("pm@acme.test", me.Email)

	s.Require().NoError(s.auth.Logout(s.ctx, actor, result.Token, claims))
	_, _, err = s.authn.Authenticate(s.ctx, result.Token)
	s.ErrorIs(err, auth.ErrRevokedToken)
}

func (s *ServiceTestSuite) TestLoginFailures() {
	_, err := s.auth.Login(s.ctx, LoginInput{Email: "emp@acme.test", Password: "wrong-password"})
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = s.auth.Login(s.ctx, LoginInput{Email: "nobody@acme.test", Password: "password123"})
	s.ErrorIs(err, ErrInvalidCredentials)

	s.Require().NoError(s.db.Model(s.otherEmployee).Update("is_active", false).Error)
	_, err = s.auth.Login(s.ctx, LoginInput{Email: "emp2@acme.test", Password: "password123"})
	s.ErrorIs(err, ErrInvalidCredentials)

	s.recorder.Wait()
	entries, total, err := s.audits.List(s.ctx, s.actor(s.orgAdmin), ListAuditInput{Action: string(audit.ActionLoginFailed)})
	s.Require().NoError(err)
	// The unknown email carries no tenant and stays out of the tenant trail.
	s.Equal(int64(2), total)
	reasons := []any{entries[0].Metadata["reason"], entries[1].Metadata["reason"]}
	s.ElementsMatch([]any{"bad_password", "inactive_user"}, reasons)
}

func (s *ServiceTestSuite) TestLoginUnknownEmailStillComparesHash() {
	var hashes [][]byte
	s.auth.compare = func(hash, password []byte) error {
		hashes = append(hashes, hash)
		return bcrypt.CompareHashAndPassword(hash, password)
	}

	_, err := s.auth.Login(s.ctx, LoginInput{Email: "nobody@acme.test", Password: "password123"})
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = s.auth.Login(s.ctx, LoginInput{Email: "emp@acme.test", Password: "wrong-password"})
	s.ErrorIs(err, ErrInvalidCredentials)

	s.Require().Len(hashes, 2)
	s.Equal(dummyPasswordHash(), hashes[0])
	s.Equal([]byte(s.employee.PasswordHash), hashes[1])
}
