package panel

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUserNotFound is returned when the panel has no account with the username.
	ErrUserNotFound = errors.New("panel: user not found")
	// ErrUserExists is returned when creating an account whose username is taken.
	ErrUserExists = errors.New("panel: user already exists")
)

// PanelUser represents a user on a VPN panel.
type PanelUser struct {
	Username    string   `json:"username"`
	Status      string   `json:"status"` // active, disabled, limited, expired, on_hold
	DataLimit   int64    `json:"data_limit"`
	UsedTraffic int64    `json:"used_traffic"`
	ExpireTime  int64    `json:"expire_time"`
	SubLink     string   `json:"sub_link"`
	OnlineAt    string   `json:"online_at,omitempty"`
	Links       []string `json:"links"`
	Note        string   `json:"note,omitempty"`
}

// CreateUserRequest contains params for creating a user on a panel.
// An OnHold account stays idle until first connection and then runs for
// HoldDuration; ExpireAt is ignored for it.
type CreateUserRequest struct {
	Username     string        `json:"username"`
	DataLimit    int64         `json:"data_limit"` // bytes, 0 = unlimited
	ExpireAt     time.Time     `json:"expire_at"`
	OnHold       bool          `json:"on_hold,omitempty"`
	HoldDuration time.Duration `json:"hold_duration,omitempty"`
	Note         string        `json:"note,omitempty"`
}

// ModifyUserRequest contains params for modifying a user on a panel.
type ModifyUserRequest struct {
	Status     string `json:"status,omitempty"`
	DataLimit  int64  `json:"data_limit,omitempty"`
	ExpireTime int64  `json:"expire_time,omitempty"`
	Note       string `json:"note,omitempty"`
}

// PanelClient is the provisioning gateway: the VPN panel that owns accounts.
type PanelClient interface {
	// Authenticate logs in and stores the auth token/session.
	Authenticate(ctx context.Context) error

	// GetUser gets a user by username. Returns ErrUserNotFound when absent.
	GetUser(ctx context.Context, username string) (*PanelUser, error)

	// CreateUser creates a new user. Returns ErrUserExists on a taken username.
	CreateUser(ctx context.Context, req CreateUserRequest) (*PanelUser, error)

	// ModifyUser modifies an existing user.
	ModifyUser(ctx context.Context, username string, req ModifyUserRequest) (*PanelUser, error)

	// DeleteUser removes a user from the panel. Returns ErrUserNotFound when absent.
	DeleteUser(ctx context.Context, username string) error

	// DisableUser disables a user account.
	DisableUser(ctx context.Context, username string) error

	// GetSystemStats returns panel system statistics (online users, traffic, etc.).
	GetSystemStats(ctx context.Context) (map[string]interface{}, error)

	// PanelType returns the panel type identifier.
	PanelType() string
}

// UsernameAvailable asks the panel whether username is free.
func UsernameAvailable(ctx context.Context, c PanelClient, username string) (bool, error) {
	_, err := c.GetUser(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}
