package auth

import (
	"context"
	"time"

	"radpanel/internal/models"
)

// Session is the authenticated caller of one request. It is built from a
// validated token plus the current account row and handed to handlers explicitly.
type Session struct {
	UserID    uint
	Username  string
	Role      models.Role
	TokenID   string
	ExpiresAt time.Time
}

// NewSession combines token claims with the loaded account.
func NewSession(claims *Claims, user *models.User) *Session {
	s := &Session{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		TokenID:  claims.ID,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s
}

func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == models.RoleAdmin
}

// Remaining is how long the session's token stays valid.
func (s *Session) Remaining(now time.Time) time.Duration {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

// Revoker records ended sessions until their tokens would expire anyway.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
