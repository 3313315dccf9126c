package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yukikurage/taskhub-api/internal/authz"
)

const issuer = "taskhub"

var (
	// ErrUnauthenticated indicates no credential was presented.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidToken indicates the token failed validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates the token was valid but has expired.
	ErrExpiredToken = errors.New("token has expired")
	// ErrRevokedToken indicates the token was revoked by logout.
	ErrRevokedToken = errors.New("token has been revoked")
)

// Claims represents JWT claims used across the service. The role and tenant
// are fixed at issuance; role changes take effect with the next token.
type Claims struct {
	Role     authz.Role `json:"role"`
	TenantID *uint64    `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal rebuilds the authenticated actor from the claims.
func (c *Claims) Principal() (authz.Principal, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return authz.Principal{}, ErrInvalidToken
	}
	if !c.Role.Valid() {
		return authz.Principal{}, ErrInvalidToken
	}
	return authz.Principal{ID: id, Role: c.Role, TenantID: c.TenantID}, nil
}

// TokenManager signs and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be greater than zero")
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for p.
func (m *TokenManager) Issue(p authz.Principal) (string, *Claims, error) {
	if p.ID == 0 || !p.Role.Valid() {
		return "", nil, errors.New("principal is incomplete")
	}

	now := m.now().UTC()
	claims := &Claims{
		Role:     p.Role,
		TenantID: p.TenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatUint(p.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature and required claims of token.
func (m *TokenManager) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if _, err := claims.Principal(); err != nil {
		return nil, err
	}
	return claims, nil
}

// TTL returns the lifetime of issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}
