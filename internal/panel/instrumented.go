package panel

import (
	"context"
	"errors"
	"time"

	"radpanel/internal/metrics"
)

// Instrumented wraps a PanelClient and records call counts and latency.
type Instrumented struct {
	next PanelClient
}

func NewInstrumented(next PanelClient) *Instrumented {
	return &Instrumented{next: next}
}

func observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ErrUserNotFound):
		result = "not_found"
	case errors.Is(err, ErrUserExists):
		result = "conflict"
	case err != nil:
		result = "error"
	}
	metrics.ObserveGateway(op, result, time.Since(start).Milliseconds())
}

func (i *Instrumented) PanelType() string { return i.next.PanelType() }

func (i *Instrumented) Authenticate(ctx context.Context) (err error) {
	defer func(start time.Time) { observe("authenticate", start, err) }(time.Now())
	return i.next.Authenticate(ctx)
}

func (i *Instrumented) GetUser(ctx context.Context, username string) (u *PanelUser, err error) {
	defer func(start time.Time) { observe("get_user", start, err) }(time.Now())
	return i.next.GetUser(ctx, username)
}

func (i *Instrumented) CreateUser(ctx context.Context, req CreateUserRequest) (u *PanelUser, err error) {
	defer func(start time.Time) { observe("create_user", start, err) }(time.Now())
	return i.next.CreateUser(ctx, req)
}

func (i *Instrumented) ModifyUser(ctx context.Context, username string, req ModifyUserRequest) (u *PanelUser, err error) {
	defer func(start time.Time) { observe("modify_user", start, err) }(time.Now())
	return i.next.ModifyUser(ctx, username, req)
}

func (i *Instrumented) DeleteUser(ctx context.Context, username string) (err error) {
	defer func(start time.Time) { observe("delete_user", start, err) }(time.Now())
	return i.next.DeleteUser(ctx, username)
}

func (i *Instrumented) DisableUser(ctx context.Context, username string) (err error) {
	defer func(start time.Time) { observe("disable_user", start, err) }(time.Now())
	return i.next.DisableUser(ctx, username)
}

func (i *Instrumented) GetSystemStats(ctx context.Context) (s map[string]interface{}, err error) {
	defer func(start time.Time) { observe("system_stats", start, err) }(time.Now())
	return i.next.GetSystemStats(ctx)
}
