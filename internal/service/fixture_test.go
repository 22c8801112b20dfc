package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"radpanel/internal/auth"
	"radpanel/internal/models"
	"radpanel/internal/panel/paneltest"
	"radpanel/internal/pkg/lock"
	"radpanel/internal/pkg/marker"
	"radpanel/internal/pkg/testdb"
	"radpanel/internal/pkg/upload"
	"radpanel/internal/repository"
)

type fixture struct {
	repos   *repository.Repos
	svc     *Services
	panel   *paneltest.Fake
	uploads *upload.Store
	notes   *recordingNotifier

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repos:   repository.NewRepos(testdb.Open(t)),
		panel:   paneltest.NewFake(),
		uploads: upload.NewStore(t.TempDir(), 1<<20),
		notes:   &recordingNotifier{},
		now:     time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
	}
	f.svc = New(Deps{
		Repos:    f.repos,
		Locker:   lock.NewMemory(),
		Panel:    f.panel,
		Uploads:  f.uploads,
		Hasher:   auth.NewBCryptHasher(bcrypt.MinCost),
		Tokens:   auth.NewTokenManager("test-secret", time.Hour),
		Revoker:  marker.Revoker{Store: marker.NewMemory()},
		Notifier: f.notes,
		Now:      f.clock,
	})
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) setNow(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

func (f *fixture) agent(t *testing.T, username string, confirmed, pending int64) *models.User {
	t.Helper()
	u, err := f.svc.Users.CreateAgent(context.Background(), models.AgentCreateRequest{
		Username:  username,
		Password:  "secret123",
		FirstName: "Test",
		LastName:  "Agent",
	})
	require.NoError(t, err)
	f.setWallet(t, u.ID, confirmed, pending)
	return u
}

func (f *fixture) endUser(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := f.svc.Users.RegisterEndUser(context.Background(), models.RegisterRequest{Username: username, Password: "secret123"})
	require.NoError(t, err)
	return u
}

func (f *fixture) setWallet(t *testing.T, ownerID uint, confirmed, pending int64) {
	t.Helper()
	require.NoError(t, f.repos.Wallets.SaveBalances(&models.Wallet{
		OwnerID:         ownerID,
		CreditConfirmed: confirmed,
		CreditPending:   pending,
	}))
}

func (f *fixture) wallet(t *testing.T, ownerID uint) *models.Wallet {
	t.Helper()
	w, err := f.svc.Ledger.Wallet(ownerID)
	require.NoError(t, err)
	return w
}

func (f *fixture) plan(t *testing.T, days int, pricePublic, priceAgent int64) *models.Plan {
	t.Helper()
	p, err := f.svc.Plans.Create(models.PlanRequest{
		Name:        "Plan",
		Days:        days,
		DataLimitGB: 50,
		PricePublic: pricePublic,
		PriceAgent:  priceAgent,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) cardMethod(t *testing.T) *models.PaymentMethod {
	t.Helper()
	return f.method(t, models.MethodCard, map[string]interface{}{
		"card_number":    "6037991234567890",
		"account_holder": "Shop Owner",
	})
}

func (f *fixture) method(t *testing.T, typ models.PaymentMethodType, cfg map[string]interface{}) *models.PaymentMethod {
	t.Helper()
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	m, err := f.svc.PaymentMethods.Create(models.PaymentMethodRequest{Type: typ, Alias: string(typ), Config: raw})
	require.NoError(t, err)
	return m
}

func (f *fixture) upload(t *testing.T, ownerID uint, amount int64, methodID uint) *models.Payment {
	t.Helper()
	p, err := f.svc.Payments.Upload(context.Background(), UploadInput{OwnerID: ownerID, Amount: amount, MethodID: methodID, Receipt: pngReceipt()})
	require.NoError(t, err)
	return p
}

func admin() *auth.Session {
	return &auth.Session{UserID: 9999, Username: "admin", Role: models.RoleAdmin}
}

func sessionOf(u *models.User) *auth.Session {
	return &auth.Session{UserID: u.ID, Username: u.Username, Role: u.Role}
}

func pngReceipt() io.Reader {
	b := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	return bytes.NewReader(b)
}

type recordingNotifier struct {
	mu       sync.Mutex
	payments []uint
}

func (n *recordingNotifier) PaymentUploaded(_ context.Context, p *models.Payment, _ *models.User) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payments = append(n.payments, p.ID)
}
