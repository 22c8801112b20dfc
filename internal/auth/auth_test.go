package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"radpanel/internal/models"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	token, claims, err := m.Generate(42, models.RoleAgent)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)

	got, err := m.Validate(token)
	require.NoError(t, err)
	id, err := got.UserID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
	assert.Equal(t, models.RoleAgent, got.Role)
	assert.Equal(t, claims.ID, got.ID)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	token, _, err := m.Generate(1, models.RoleAdmin)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewTokenManager("other", time.Hour).Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewTokenManager("secret", time.Hour)
		expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := expired.Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestBCryptHasher(t *testing.T) {
	h := NewBCryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret")
	require.NoError(t, err)
	assert.NoError(t, h.Check(hash, "s3cret"))
	assert.ErrorIs(t, h.Check(hash, "wrong"), ErrPasswordMismatch)
	assert.ErrorIs(t, h.Check("", "x"), ErrPasswordMismatch)

	_, err = h.Hash("")
	assert.Error(t, err)
}

func TestPolicy_Authorize(t *testing.T) {
	p := DefaultPolicy()
	admin := &Session{UserID: 1, Role: models.RoleAdmin}
	agent := &Session{UserID: 2, Role: models.RoleAgent}
	user := &Session{UserID: 3, Role: models.RoleEndUser}

	tests := []struct {
		name    string
		session *Session
		method  string
		path    string
		want    error
	}{
		{"login is public", nil, http.MethodPost, "/api/auth/login", nil},
		{"me needs session", nil, http.MethodGet, "/api/auth/me", ErrUnauthenticated},
		{"me for agent", agent, http.MethodGet, "/api/auth/me", nil},
		{"public methods list", nil, http.MethodGet, "/api/payment-methods", nil},
		{"methods write is not public", nil, http.MethodPost, "/api/payment-methods", ErrUnauthenticated},
		{"admin area for admin", admin, http.MethodGet, "/api/admin/agents", nil},
		{"admin area for agent", agent, http.MethodGet, "/api/admin/agents", ErrForbidden},
		{"admin area anonymous", nil, http.MethodGet, "/api/admin/agents", ErrUnauthenticated},
		{"payments for agent", agent, http.MethodPost, "/api/payments/upload", nil},
		{"payments for end user", user, http.MethodGet, "/api/payments/my", nil},
		{"payments not for admin", admin, http.MethodGet, "/api/payments/my", ErrForbidden},
		{"orders for all roles", user, http.MethodGet, "/api/orders/my", nil},
		{"plans for any role", user, http.MethodGet, "/api/plans", nil},
		{"segment boundary", agent, http.MethodGet, "/api/plansx", ErrForbidden},
		{"unmatched denied", admin, http.MethodGet, "/api/unknown", ErrForbidden},
		{"unmatched anonymous", nil, http.MethodGet, "/api/unknown", ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Authorize(tt.session, tt.method, tt.path)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestPolicy_LongestPrefixWins(t *testing.T) {
	p := NewPolicy(
		Rule{Prefix: "/api/", Roles: []models.Role{models.RoleAdmin}},
		Rule{Prefix: "/api/open", Public: true},
	)
	assert.True(t, p.IsPublic(http.MethodGet, "/api/open/x"))
	assert.False(t, p.IsPublic(http.MethodGet, "/api/closed"))
}

func TestSession(t *testing.T) {
	_, claims, err := NewTokenManager("s", time.Hour).Generate(5, models.RoleAgent)
	require.NoError(t, err)

	s := NewSession(claims, &models.User{ID: 5, Username: "bob", Role: models.RoleAgent})
	assert.Equal(t, claims.ID, s.TokenID)
	assert.False(t, s.IsAdmin())
	assert.InDelta(t, time.Hour.Seconds(), s.Remaining(time.Now()).Seconds(), 5)

	var nilSession *Session
	assert.False(t, nilSession.IsAdmin())
}
