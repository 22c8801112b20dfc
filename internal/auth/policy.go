package auth

import (
	"errors"
	"net/http"
	"strings"

	"radpanel/internal/models"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden for role")
	ErrUserDisabled    = errors.New("account is disabled")
)

// Rule grants access to every path under Prefix. Public rules need no
// session; otherwise an empty Roles list admits any signed-in role.
type Rule struct {
	Prefix string
	Method string
	Public bool
	Roles  []models.Role
}

func (r Rule) admits(role models.Role) bool {
	if len(r.Roles) == 0 {
		return role.Valid()
	}
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Policy is the single role to route table. The longest matching prefix wins
// and a path matching nothing is denied.
type Policy struct {
	rules []Rule
}

func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: rules}
}

// DefaultPolicy is the route table of the API.
func DefaultPolicy() *Policy {
	all := []models.Role{models.RoleAdmin, models.RoleAgent, models.RoleEndUser}
	return NewPolicy(
		Rule{Prefix: "/api/health", Public: true},
		Rule{Prefix: "/api/auth/login", Public: true},
		Rule{Prefix: "/api/auth/register", Public: true},
		Rule{Prefix: "/api/auth/logout", Public: true},
		Rule{Prefix: "/api/auth/"},
		Rule{Prefix: "/api/payment-methods", Method: http.MethodGet, Public: true},
		Rule{Prefix: "/api/admin/", Roles: []models.Role{models.RoleAdmin}},
		Rule{Prefix: "/api/marzban/", Roles: all},
		Rule{Prefix: "/api/orders", Roles: all},
		Rule{Prefix: "/api/payments", Roles: []models.Role{models.RoleAgent, models.RoleEndUser}},
		Rule{Prefix: "/api/plans"},
		Rule{Prefix: "/api/me"},
	)
}

// Match returns the longest rule whose prefix and method fit the request.
func (p *Policy) Match(method, path string) (Rule, bool) {
	var best Rule
	found := false
	for _, r := range p.rules {
		if r.Method != "" && r.Method != method {
			continue
		}
		if !prefixMatch(path, r.Prefix) {
			continue
		}
		if !found || len(r.Prefix) > len(best.Prefix) {
			best, found = r, true
		}
	}
	return best, found
}

// IsPublic reports whether the request may proceed without a session.
func (p *Policy) IsPublic(method, path string) bool {
	r, ok := p.Match(method, path)
	return ok && r.Public
}

// Authorize decides whether s may reach the route. A nil session is anonymous.
func (p *Policy) Authorize(s *Session, method, path string) error {
	r, ok := p.Match(method, path)
	if !ok {
		if s == nil {
			return ErrUnauthenticated
		}
		return ErrForbidden
	}
	if r.Public {
		return nil
	}
	if s == nil {
		return ErrUnauthenticated
	}
	if !r.admits(s.Role) {
		return ErrForbidden
	}
	return nil
}

// prefixMatch matches whole path segments: "/api/plans" matches
// "/api/plans" and "/api/plans/3" but not "/api/plansx".
func prefixMatch(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) || strings.HasSuffix(prefix, "/") {
		return true
	}
	return path[len(prefix)] == '/'
}
