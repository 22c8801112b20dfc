package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"radpanel/internal/auth"
	"radpanel/internal/models"
	"radpanel/internal/repository"
)

// AuthService starts, resolves and ends sessions.
type AuthService struct {
	repos   *repository.Repos
	hasher  auth.Hasher
	tokens  *auth.TokenManager
	revoker auth.Revoker
	now     func() time.Time
}

// LoginResult is a freshly issued session.
type LoginResult struct {
	Token   string
	Session *auth.Session
	User    *models.User
}

// Login checks credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*LoginResult, error) {
	user, err := s.repos.Users.FindByUsername(strings.TrimSpace(req.Username))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.hasher.Check(user.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, ErrUserDisabled
	}

	token, claims, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Session: auth.NewSession(claims, user), User: user}, nil
}

// Authenticate resolves a token to a session. Revoked tokens and disabled
// accounts are rejected on every request.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Session, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: session ended", ErrUnauthenticated)
		}
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	user, err := s.repos.Users.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: account no longer exists", ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive() {
		return nil, ErrUserDisabled
	}
	return auth.NewSession(claims, user), nil
}

// Logout ends the session so its token is refused until it expires.
func (s *AuthService) Logout(ctx context.Context, sess *auth.Session) error {
	if sess == nil || s.revoker == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, sess.TokenID, sess.Remaining(s.now()))
}

// ChangePassword replaces the caller's password after checking the old one.
func (s *AuthService) ChangePassword(userID uint, req models.ChangePasswordRequest) error {
	user, err := s.repos.Users.FindByID(userID)
	if err != nil {
		return notFound(err, "user")
	}
	if err := s.hasher.Check(user.PasswordHash, req.OldPassword); err != nil {
		return ErrInvalidCredentials
	}
	if len(req.NewPassword) < minPasswordLength {
		return validation("password must be at least %d characters", minPasswordLength)
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}
	return s.repos.Users.Update(userID, map[string]interface{}{"password_hash": hash})
}
