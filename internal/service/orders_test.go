package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radpanel/internal/models"
	"radpanel/internal/panel"
)

var panelUser = panel.PanelUser{Username: "existing", Status: "active"}

func TestOrder_CreateDebitsConfirmedThenPending(t *testing.T) {
	f := newFixture(t)
	u := f.agent(t, "agent1", 50000, 60000)
	plan := f.plan(t, 30, 120000, 100000)

	order, err := f.svc.Orders.Create(context.Background(), sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "testuser"})
	require.NoError(t, err)

	assert.Equal(t, models.OrderActive, order.Status)
	assert.Equal(t, int64(100000), order.PricePaid)
	assert.Equal(t, "https://sub.example.com/testuser", order.SubscriptionURL)
	assert.True(t, order.IsOwnedBy(u.ID))
	assert.True(t, order.ExpiresAt.Equal(order.CreatedAt.Add(30*24*time.Hour)))
	assert.True(t, order.CreatedAt.Equal(f.clock()))

	w := f.wallet(t, u.ID)
	assert.Equal(t, int64(10000), w.Total())
	assert.Equal(t, int64(0), w.CreditConfirmed)
	assert.Equal(t, int64(10000), w.CreditPending)

	assert.Equal(t, []string{"testuser"}, f.panel.Created)
	account := f.panel.Users["testuser"]
	assert.Equal(t, order.ExpiresAt.Unix(), account.ExpireTime)
	assert.Equal(t, int64(50)*1024*1024*1024, account.DataLimit)

	rows, _, err := f.svc.Reports.Transactions(u.ID, 10, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.TxOrderCreated, rows[0].Type)
	assert.Equal(t, int64(-100000), rows[0].Amount)
	assert.Equal(t, int64(110000), rows[0].BalanceBefore)
	assert.Equal(t, int64(10000), rows[0].BalanceAfter)
	require.NotNil(t, rows[0].OrderID)
	assert.Equal(t, order.ID, *rows[0].OrderID)
}

func TestOrder_CreatePreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plan := f.plan(t, 30, 120000, 100000)

	t.Run("insufficient credit", func(t *testing.T) {
		u := f.agent(t, "poor", 40000, 50000)
		_, err := f.svc.Orders.Create(ctx, sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "poor_user"})
		assert.ErrorIs(t, err, ErrInsufficientCredit)
		assert.Equal(t, int64(90000), f.wallet(t, u.ID).Total())
	})

	t.Run("negative wallet", func(t *testing.T) {
		u := f.agent(t, "negative", -10, 500000)
		require.NoError(t, f.repos.Wallets.SaveBalances(&models.Wallet{OwnerID: u.ID, CreditConfirmed: -600000, CreditPending: 500000}))
		_, err := f.svc.Orders.Create(ctx, sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "neg_user"})
		assert.ErrorIs(t, err, ErrNegativeBalance)
	})

	t.Run("inactive plan", func(t *testing.T) {
		u := f.agent(t, "rich", 1000000, 0)
		inactive := f.plan(t, 30, 1, 1)
		require.NoError(t, f.svc.Plans.Deactivate(inactive.ID))
		_, err := f.svc.Orders.Create(ctx, sessionOf(u), CreateOrderInput{PlanID: inactive.ID, Username: "some_user"})
		assert.ErrorIs(t, err, ErrPlanInactive)
	})

	t.Run("bad username", func(t *testing.T) {
		u := f.agent(t, "rich2", 1000000, 0)
		_, err := f.svc.Orders.Create(ctx, sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "no spaces!"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("taken at gateway", func(t *testing.T) {
		u := f.agent(t, "rich3", 1000000, 0)
		f.panel.Users["outside"] = &panelUser
		_, err := f.svc.Orders.Create(ctx, sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "outside"})
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	orders, total, err := f.svc.Orders.List("", 50, 1)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)
	assert.Empty(t, f.panel.Created)
}

func TestOrder_DuplicateUsername(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, 30, 100, 100)
	a := f.agent(t, "agent1", 1000, 0)
	b := f.agent(t, "agent2", 1000, 0)
	ctx := context.Background()

	available, err := f.svc.Orders.CheckUsername(ctx, "testuser")
	require.NoError(t, err)
	assert.True(t, available)

	_, err = f.svc.Orders.Create(ctx, sessionOf(a), CreateOrderInput{PlanID: plan.ID, Username: "testuser"})
	require.NoError(t, err)

	available, err = f.svc.Orders.CheckUsername(ctx, "testuser")
	require.NoError(t, err)
	assert.False(t, available)

	_, err = f.svc.Orders.Create(ctx, sessionOf(b), CreateOrderInput{PlanID: plan.ID, Username: "testuser"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Equal(t, int64(1000), f.wallet(t, b.ID).Total())
}

func TestOrder_ConcurrentSameUsername(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, 30, 100, 100)
	agents := []*models.User{
		f.agent(t, "agent1", 1000, 0),
		f.agent(t, "agent2", 1000, 0),
		f.agent(t, "agent3", 1000, 0),
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		errs []error
	)
	for _, a := range agents {
		wg.Add(1)
		go func(a *models.User) {
			defer wg.Done()
			_, err := f.svc.Orders.Create(context.Background(), sessionOf(a), CreateOrderInput{PlanID: plan.ID, Username: "contested"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			errs = append(errs, err)
		}(a)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrUsernameTaken)
	}
	_, total, err := f.svc.Orders.List("", 50, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	var spent int64
	for _, a := range agents {
		spent += 1000 - f.wallet(t, a.ID).Total()
	}
	assert.Equal(t, int64(100), spent)
}

func TestOrder_ProvisioningFailureLeavesNothing(t *testing.T) {
	f := newFixture(t)
	u := f.agent(t, "agent1", 500, 0)
	plan := f.plan(t, 30, 100, 100)
	f.panel.CreateErr = errors.New("gateway down")

	_, err := f.svc.Orders.Create(context.Background(), sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "testuser"})
	require.ErrorIs(t, err, ErrProvisioning)

	exists, err := f.repos.Orders.ExistsUsername("testuser")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, int64(500), f.wallet(t, u.ID).Total())

	// The username stays usable once the gateway recovers.
	f.panel.CreateErr = nil
	_, err = f.svc.Orders.Create(context.Background(), sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "testuser"})
	require.NoError(t, err)
}

func TestOrder_AdminOrderIsOwnerlessAndFree(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, 7, 100, 100)

	order, err := f.svc.Orders.Create(context.Background(), admin(), CreateOrderInput{PlanID: plan.ID, Username: "vip_user"})
	require.NoError(t, err)
	assert.Nil(t, order.OwnerID)
	assert.Zero(t, order.PricePaid)
	assert.Equal(t, models.OrderActive, order.Status)
}

func TestOrder_Refund(t *testing.T) {
	f := newFixture(t)
	u := f.agent(t, "agent1", 50000, 60000)
	plan := f.plan(t, 30, 120000, 100000)
	ctx := context.Background()

	order, err := f.svc.Orders.Create(ctx, sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "testuser"})
	require.NoError(t, err)

	_, err = f.svc.Orders.Refund(ctx, sessionOf(u), order.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)

	refunded, err := f.svc.Orders.Refund(ctx, admin(), order.ID, "customer asked")
	require.NoError(t, err)
	assert.Equal(t, models.OrderRefunded, refunded.Status)
	assert.True(t, refunded.Status.IsTerminal())
	assert.Equal(t, []string{"testuser"}, f.panel.Deleted)

	w := f.wallet(t, u.ID)
	assert.Equal(t, int64(110000), w.Total())
	assert.Equal(t, int64(100000), w.CreditConfirmed)

	_, err = f.svc.Orders.Refund(ctx, admin(), order.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.Orders.Disable(ctx, admin(), order.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, int64(110000), f.wallet(t, u.ID).Total())
}

func TestOrder_RefundWhenGatewayAccountAlreadyGone(t *testing.T) {
	f := newFixture(t)
	u := f.agent(t, "agent1", 1000, 0)
	plan := f.plan(t, 30, 100, 100)
	ctx := context.Background()

	order, err := f.svc.Orders.Create(ctx, sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "testuser"})
	require.NoError(t, err)
	delete(f.panel.Users, "testuser")

	_, err = f.svc.Orders.Refund(ctx, admin(), order.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), f.wallet(t, u.ID).Total())
}

func TestOrder_RefundGatewayErrorKeepsOrderActive(t *testing.T) {
	f := newFixture(t)
	u := f.agent(t, "agent1", 1000, 0)
	plan := f.plan(t, 30, 100, 100)
	ctx := context.Background()

	order, err := f.svc.Orders.Create(ctx, sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "testuser"})
	require.NoError(t, err)
	f.panel.DeleteErr = errors.New("timeout")

	_, err = f.svc.Orders.Refund(ctx, admin(), order.ID, "")
	require.ErrorIs(t, err, ErrProvisioning)

	got, err := f.svc.Orders.Get(admin(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderActive, got.Status)
	assert.Equal(t, int64(900), f.wallet(t, u.ID).Total())
}

func TestOrder_RefundOfStaleReadKeepsExpiredAccount(t *testing.T) {
	f := newFixture(t)
	u := f.agent(t, "agent1", 1000, 0)
	plan := f.plan(t, 30, 100, 100)
	ctx := context.Background()

	order, err := f.svc.Orders.Create(ctx, sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "testuser"})
	require.NoError(t, err)
	stale, err := f.repos.Orders.FindByID(order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderActive, stale.Status)

	// The expiry sweep lands between the read and the refund.
	f.setNow(order.ExpiresAt.Add(time.Second))
	n, err := f.svc.Orders.ExpireDue(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	err = f.svc.Orders.refundLocked(ctx, stale, 9999, "")
	require.ErrorIs(t, err, ErrInvalidTransition)

	assert.Empty(t, f.panel.Deleted)
	assert.Contains(t, f.panel.Users, "testuser")
	assert.Equal(t, int64(900), f.wallet(t, u.ID).Total())
	got, err := f.repos.Orders.FindByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderExpired, got.Status)
}

func TestOrder_ExpireDue(t *testing.T) {
	f := newFixture(t)
	u := f.agent(t, "agent1", 1000, 0)
	plan := f.plan(t, 30, 100, 100)
	ctx := context.Background()

	order, err := f.svc.Orders.Create(ctx, sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "testuser"})
	require.NoError(t, err)

	f.setNow(order.ExpiresAt)
	n, err := f.svc.Orders.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.advance(time.Second)
	n, err = f.svc.Orders.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.svc.Orders.Get(sessionOf(u), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderExpired, got.Status)

	_, err = f.svc.Orders.Refund(ctx, admin(), order.ID, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrder_CreateWithReceipt(t *testing.T) {
	f := newFixture(t)
	u := f.endUser(t, "customer")
	plan := f.plan(t, 30, 80000, 60000)
	m := f.cardMethod(t)
	ctx := context.Background()

	order, payment, err := f.svc.Orders.CreateWithReceipt(ctx, sessionOf(u),
		CreateOrderInput{PlanID: plan.ID, Username: "customer_vpn"},
		ReceiptInput{MethodID: m.ID, Receipt: pngReceipt()})
	require.NoError(t, err)

	assert.Equal(t, models.OrderActive, order.Status)
	assert.Equal(t, int64(80000), order.PricePaid)
	require.NotNil(t, order.PaymentID)
	assert.Equal(t, payment.ID, *order.PaymentID)
	assert.Equal(t, models.PaymentPending, payment.Status)
	assert.Equal(t, int64(80000), payment.Amount)
	assert.Equal(t, []uint{payment.ID}, f.notes.payments)
	assert.Equal(t, 1, f.panel.Lookups, "username is checked at the gateway once")

	w := f.wallet(t, u.ID)
	assert.Zero(t, w.Total())
	assert.Zero(t, w.CreditPending)

	// A rejected receipt leaves the customer owing the plan price.
	_, err = f.svc.Payments.Reject(ctx, payment.ID, 9999, "no transfer found")
	require.NoError(t, err)
	w = f.wallet(t, u.ID)
	assert.Equal(t, int64(-80000), w.Total())
	assert.Zero(t, w.CreditPending)
	require.NotNil(t, w.NegativeSince)

	_, _, err = f.svc.Orders.CreateWithReceipt(ctx, sessionOf(u),
		CreateOrderInput{PlanID: plan.ID, Username: "customer_vpn2"},
		ReceiptInput{MethodID: m.ID, Receipt: pngReceipt()})
	assert.ErrorIs(t, err, ErrNegativeBalance)

	_, total, err := f.svc.Payments.ListMine(u.ID, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	w = f.wallet(t, u.ID)
	assert.Equal(t, int64(-80000), w.Total())
	assert.Zero(t, w.CreditPending)
}

func TestOrder_CreateWithReceiptWithdrawsPaymentOnGatewayFailure(t *testing.T) {
	f := newFixture(t)
	u := f.endUser(t, "customer")
	plan := f.plan(t, 30, 80000, 60000)
	m := f.cardMethod(t)
	f.panel.CreateErr = errors.New("gateway down")

	order, payment, err := f.svc.Orders.CreateWithReceipt(context.Background(), sessionOf(u),
		CreateOrderInput{PlanID: plan.ID, Username: "customer_vpn"},
		ReceiptInput{MethodID: m.ID, Receipt: pngReceipt()})
	require.ErrorIs(t, err, ErrProvisioning)
	assert.Nil(t, order)
	assert.Nil(t, payment)

	_, total, err := f.svc.Payments.ListMine(u.ID, 10, 1)
	require.NoError(t, err)
	assert.Zero(t, total)

	w := f.wallet(t, u.ID)
	assert.Zero(t, w.CreditPending)
	assert.Zero(t, w.CreditConfirmed)
	assert.Nil(t, w.NegativeSince)

	used, err := f.repos.Orders.ExistsUsername("customer_vpn")
	require.NoError(t, err)
	assert.False(t, used)

	entries, err := os.ReadDir(f.uploads.Dir)
	if !os.IsNotExist(err) {
		require.NoError(t, err)
	}
	assert.Empty(t, entries)
	assert.Empty(t, f.notes.payments)
}

func TestOrder_CreateWithAliasOnHold(t *testing.T) {
	f := newFixture(t)
	u := f.agent(t, "agent1", 100000, 0)
	plan := f.plan(t, 30, 100000, 60000)

	order, err := f.svc.Orders.Create(context.Background(), sessionOf(u), CreateOrderInput{
		PlanID:   plan.ID,
		Username: "held_user",
		Alias:    "  Office router ",
		OnHold:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Office router", order.Alias)

	require.Len(t, f.panel.Requests, 1)
	req := f.panel.Requests[0]
	assert.True(t, req.OnHold)
	assert.Equal(t, 30*24*time.Hour, req.HoldDuration)
	assert.Equal(t, fmt.Sprintf("order #%d: Office router", order.ID), req.Note)
	assert.Equal(t, "on_hold", f.panel.Users["held_user"].Status)

	_, err = f.svc.Orders.Create(context.Background(), sessionOf(u), CreateOrderInput{
		PlanID:   plan.ID,
		Username: "other_user",
		Alias:    strings.Repeat("x", 101),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOrder_CreateWithReceiptRejectsTakenUsernameBeforeUpload(t *testing.T) {
	f := newFixture(t)
	u := f.endUser(t, "customer")
	plan := f.plan(t, 30, 80000, 60000)
	m := f.cardMethod(t)
	f.panel.Users["taken"] = &panelUser

	_, _, err := f.svc.Orders.CreateWithReceipt(context.Background(), sessionOf(u),
		CreateOrderInput{PlanID: plan.ID, Username: "taken"},
		ReceiptInput{MethodID: m.ID, Receipt: pngReceipt()})
	require.ErrorIs(t, err, ErrUsernameTaken)

	_, total, err := f.svc.Payments.ListMine(u.ID, 10, 1)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestOrder_EnforceNegativeCredit(t *testing.T) {
	f := newFixture(t)
	u := f.agent(t, "agent1", 1000, 0)
	other := f.agent(t, "agent2", 1000, 0)
	plan := f.plan(t, 30, 100, 100)
	ctx := context.Background()

	o1, err := f.svc.Orders.Create(ctx, sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "user_one"})
	require.NoError(t, err)
	o2, err := f.svc.Orders.Create(ctx, sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "user_two"})
	require.NoError(t, err)
	o3, err := f.svc.Orders.Create(ctx, sessionOf(other), CreateOrderInput{PlanID: plan.ID, Username: "user_three"})
	require.NoError(t, err)

	_, err = f.svc.Ledger.AdjustConfirmed(ctx, u.ID, -5000, 9999, "chargeback")
	require.NoError(t, err)

	f.advance(23 * time.Hour)
	n, err := f.svc.Orders.EnforceNegativeCredit(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.advance(2 * time.Hour)
	n, err = f.svc.Orders.EnforceNegativeCredit(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"user_one", "user_two"}, f.panel.Disabled)

	for _, id := range []uint{o1.ID, o2.ID} {
		got, err := f.svc.Orders.Get(admin(), id)
		require.NoError(t, err)
		assert.Equal(t, models.OrderDisabled, got.Status)
	}
	got, err := f.svc.Orders.Get(admin(), o3.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderActive, got.Status)

	rows, _, err := f.svc.Reports.Transactions(u.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TxOrderDisabled, rows[0].Type)
	assert.Zero(t, rows[0].Amount)
}

func TestOrder_AccessAndSync(t *testing.T) {
	f := newFixture(t)
	owner := f.agent(t, "agent1", 1000, 0)
	stranger := f.agent(t, "agent2", 1000, 0)
	plan := f.plan(t, 30, 100, 100)
	ctx := context.Background()

	order, err := f.svc.Orders.Create(ctx, sessionOf(owner), CreateOrderInput{PlanID: plan.ID, Username: "testuser"})
	require.NoError(t, err)

	_, err = f.svc.Orders.Get(sessionOf(stranger), order.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Orders.AccountInfo(ctx, sessionOf(stranger), "testuser")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Orders.Get(sessionOf(owner), 999)
	assert.ErrorIs(t, err, ErrNotFound)

	f.panel.SetUsage("testuser", 4096)
	synced, err := f.svc.Orders.SyncUsage(ctx, sessionOf(owner), "testuser")
	require.NoError(t, err)
	assert.Equal(t, int64(4096), synced.UsedTraffic)
	require.NotNil(t, synced.SyncedAt)

	f.panel.SetUsage("testuser", 8192)
	n, err := f.svc.Orders.SyncActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mine, total, err := f.svc.Orders.ListMine(sessionOf(owner), 500, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(8192), mine[0].UsedTraffic)

	info, err := f.svc.Orders.AccountInfo(ctx, sessionOf(owner), "testuser")
	require.NoError(t, err)
	assert.Equal(t, "active", info.Status)
}
