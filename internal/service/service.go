// Package service holds the business rules of the panel: the wallet ledger,
// payment review, order lifecycle and the catalog around them.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"radpanel/internal/auth"
	"radpanel/internal/models"
	"radpanel/internal/panel"
	"radpanel/internal/pkg/lock"
	"radpanel/internal/pkg/upload"
	"radpanel/internal/repository"
)

// Notifier is told about events an administrator should see.
type Notifier interface {
	PaymentUploaded(ctx context.Context, payment *models.Payment, owner *models.User)
}

type nopNotifier struct{}

func (nopNotifier) PaymentUploaded(context.Context, *models.Payment, *models.User) {}

// Deps are the collaborators shared by every service.
type Deps struct {
	Repos    *repository.Repos
	Locker   lock.Locker
	Panel    panel.PanelClient
	Uploads  *upload.Store
	Hasher   auth.Hasher
	Tokens   *auth.TokenManager
	Revoker  auth.Revoker
	Notifier Notifier
	Logger   *zap.Logger
	Now      func() time.Time
}

// Services is the full service layer.
type Services struct {
	Ledger         *Ledger
	Payments       *PaymentService
	Orders         *OrderService
	Plans          *PlanService
	PaymentMethods *PaymentMethodService
	Users          *UserService
	Auth           *AuthService
	Reports        *ReportService
}

func New(d Deps) *Services {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Locker == nil {
		d.Locker = lock.NewMemory()
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Hasher == nil {
		d.Hasher = auth.NewBCryptHasher(0)
	}

	ledger := &Ledger{repos: d.Repos, locker: d.Locker, logger: d.Logger, now: d.Now}
	payments := &PaymentService{repos: d.Repos, ledger: ledger, uploads: d.Uploads, notifier: d.Notifier, logger: d.Logger, now: d.Now}

	return &Services{
		Ledger:         ledger,
		Payments:       payments,
		Orders:         &OrderService{repos: d.Repos, ledger: ledger, payments: payments, panel: d.Panel, logger: d.Logger, now: d.Now},
		Plans:          &PlanService{repos: d.Repos},
		PaymentMethods: &PaymentMethodService{repos: d.Repos},
		Users:          &UserService{repos: d.Repos, hasher: d.Hasher},
		Auth:           &AuthService{repos: d.Repos, hasher: d.Hasher, tokens: d.Tokens, revoker: d.Revoker, now: d.Now},
		Reports:        &ReportService{repos: d.Repos},
	}
}
