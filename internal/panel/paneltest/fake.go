// Package paneltest provides an in-memory PanelClient for tests.
package paneltest

import (
	"context"
	"sync"

	"radpanel/internal/panel"
)

// Fake is an in-memory provisioning gateway. Setting one of the Err fields
// makes the matching call fail.
type Fake struct {
	mu    sync.Mutex
	Users map[string]*panel.PanelUser

	CreateErr  error
	DeleteErr  error
	DisableErr error
	GetErr     error

	Lookups  int
	Created  []string
	Requests []panel.CreateUserRequest
	Deleted  []string
	Disabled []string
}

func NewFake() *Fake {
	return &Fake{Users: make(map[string]*panel.PanelUser)}
}

func (f *Fake) PanelType() string { return "fake" }

func (f *Fake) Authenticate(context.Context) error { return nil }

func (f *Fake) GetUser(_ context.Context, username string) (*panel.PanelUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Lookups++
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	u, ok := f.Users[username]
	if !ok {
		return nil, panel.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *Fake) CreateUser(_ context.Context, req panel.CreateUserRequest) (*panel.PanelUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	if _, ok := f.Users[req.Username]; ok {
		return nil, panel.ErrUserExists
	}
	u := &panel.PanelUser{
		Username:   req.Username,
		Status:     "active",
		DataLimit:  req.DataLimit,
		ExpireTime: req.ExpireAt.Unix(),
		SubLink:    "https://sub.example.com/" + req.Username,
		Note:       req.Note,
	}
	if req.OnHold {
		u.Status = "on_hold"
		u.ExpireTime = 0
	}
	f.Users[req.Username] = u
	f.Created = append(f.Created, req.Username)
	f.Requests = append(f.Requests, req)
	cp := *u
	return &cp, nil
}

func (f *Fake) ModifyUser(_ context.Context, username string, req panel.ModifyUserRequest) (*panel.PanelUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[username]
	if !ok {
		return nil, panel.ErrUserNotFound
	}
	if req.Status != "" {
		u.Status = req.Status
	}
	cp := *u
	return &cp, nil
}

func (f *Fake) DeleteUser(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.Users[username]; !ok {
		return panel.ErrUserNotFound
	}
	delete(f.Users, username)
	f.Deleted = append(f.Deleted, username)
	return nil
}

func (f *Fake) DisableUser(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DisableErr != nil {
		return f.DisableErr
	}
	u, ok := f.Users[username]
	if !ok {
		return panel.ErrUserNotFound
	}
	u.Status = "disabled"
	f.Disabled = append(f.Disabled, username)
	return nil
}

func (f *Fake) GetSystemStats(context.Context) (map[string]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]interface{}{"total_user": float64(len(f.Users))}, nil
}

// SetUsage sets the used traffic of an existing account.
func (f *Fake) SetUsage(username string, used int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.Users[username]; ok {
		u.UsedTraffic = used
	}
}
