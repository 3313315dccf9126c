package auth

import (
	"context"

	"github.com/yukikurage/taskhub-api/internal/authz"
)

// Authenticator turns a presented token into a principal.
type Authenticator struct {
	tokens  *TokenManager
	revoked RevocationList
}

func NewAuthenticator(tokens *TokenManager, revoked RevocationList) *Authenticator {
	if revoked == nil {
		revoked = NewMemoryRevocationList()
	}
	return &Authenticator{tokens: tokens, revoked: revoked}
}

// Authenticate verifies token and rejects revoked ones. A revocation lookup
// failure is returned as is so callers can report it as an infrastructure
// error.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (authz.Principal, *Claims, error) {
	claims, err := a.tokens.Verify(token)
	if err != nil {
		return authz.Principal{}, nil, err
	}

	revoked, err := a.revoked.IsRevoked(ctx, token)
	if err != nil {
		return authz.Principal{}, nil, err
	}
	if revoked {
		return authz.Principal{}, nil, ErrRevokedToken
	}

	p, err := claims.Principal()
	if err != nil {
		return authz.Principal{}, nil, err
	}
	return p, claims, nil
}

// Issue signs a token for p.
func (a *Authenticator) Issue(p authz.Principal) (string, *Claims, error) {
	return a.tokens.Issue(p)
}

// Revoke invalidates token for the rest of its lifetime.
func (a *Authenticator) Revoke(ctx context.Context, token string, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	return a.revoked.Revoke(ctx, token, claims.ExpiresAt.Time)
}
