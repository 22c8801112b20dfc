package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radpanel/internal/models"
)

func TestWalletTx_Debit(t *testing.T) {
	tests := []struct {
		name          string
		confirmed     int64
		pending       int64
		amount        int64
		wantConfirmed int64
		wantPending   int64
		wantErr       error
	}{
		{name: "confirmed first", confirmed: 50000, pending: 60000, amount: 100000, wantConfirmed: 0, wantPending: 10000},
		{name: "confirmed covers all", confirmed: 150000, pending: 10, amount: 100000, wantConfirmed: 50000, wantPending: 10},
		{name: "negative confirmed leaves it alone", confirmed: -10, pending: 200, amount: 100, wantConfirmed: -10, wantPending: 100},
		{name: "exact total", confirmed: 30, pending: 70, amount: 100, wantConfirmed: 0, wantPending: 0},
		{name: "insufficient", confirmed: 30, pending: 60, amount: 100, wantErr: ErrInsufficientCredit},
		{name: "negative wallet", confirmed: -100, pending: 50, amount: 1, wantErr: ErrNegativeBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			u := f.agent(t, "agent1", tt.confirmed, tt.pending)

			w, err := f.svc.Ledger.Mutate(context.Background(), u.ID, func(wt *WalletTx) error {
				return wt.Debit(tt.amount, Ref{})
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				after := f.wallet(t, u.ID)
				assert.Equal(t, tt.confirmed, after.CreditConfirmed)
				assert.Equal(t, tt.pending, after.CreditPending)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantConfirmed, w.CreditConfirmed)
			assert.Equal(t, tt.wantPending, w.CreditPending)
			assert.Equal(t, tt.confirmed+tt.pending-tt.amount, w.Total())
		})
	}
}

func TestLedger_AdjustConfirmed(t *testing.T) {
	f := newFixture(t)
	u := f.agent(t, "agent1", 0, 0)
	ctx := context.Background()

	_, err := f.svc.Ledger.AdjustConfirmed(ctx, u.ID, 0, 9999, "")
	require.ErrorIs(t, err, ErrValidation)

	w, err := f.svc.Ledger.AdjustConfirmed(ctx, u.ID, 75000, 9999, "opening balance")
	require.NoError(t, err)
	assert.Equal(t, int64(75000), w.CreditConfirmed)
	assert.Nil(t, w.NegativeSince)

	w, err = f.svc.Ledger.AdjustConfirmed(ctx, u.ID, -100000, 9999, "correction")
	require.NoError(t, err)
	assert.Equal(t, int64(-25000), w.Total())
	require.NotNil(t, w.NegativeSince)
	assert.True(t, w.NegativeSince.Equal(f.clock()))

	negative, err := f.svc.Ledger.IsNegative(u.ID)
	require.NoError(t, err)
	assert.True(t, negative)

	rows, total, err := f.svc.Reports.Transactions(u.ID, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, models.TxChargeManual, rows[0].Type)
	assert.Equal(t, int64(75000), rows[0].BalanceBefore)
	assert.Equal(t, int64(-25000), rows[0].BalanceAfter)
	require.NotNil(t, rows[0].ActorID)
	assert.Equal(t, uint(9999), *rows[0].ActorID)

	_, err = f.svc.Ledger.AdjustConfirmed(ctx, 4242, 10, 9999, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_RejectNeverLeavesPendingNegative(t *testing.T) {
	f := newFixture(t)
	u := f.agent(t, "agent1", 0, 0)
	m := f.cardMethod(t)
	p := f.upload(t, u.ID, 80000, m.ID)

	// Spend the pending credit before the payment is reviewed.
	_, err := f.svc.Ledger.Mutate(context.Background(), u.ID, func(wt *WalletTx) error {
		return wt.Debit(80000, Ref{})
	})
	require.NoError(t, err)

	_, err = f.svc.Payments.Reject(context.Background(), p.ID, 9999, "fake receipt")
	require.NoError(t, err)

	w := f.wallet(t, u.ID)
	assert.Equal(t, int64(0), w.CreditPending)
	assert.Equal(t, int64(-80000), w.CreditConfirmed)
	assert.True(t, w.IsNegative())
}

func TestLedger_ApproveMovesExactAmount(t *testing.T) {
	f := newFixture(t)
	u := f.agent(t, "agent1", 50000, 0)
	m := f.cardMethod(t)
	plan := f.plan(t, 30, 120000, 100000)
	ctx := context.Background()

	p := f.upload(t, u.ID, 60000, m.ID)
	_, err := f.svc.Orders.Create(ctx, sessionOf(u), CreateOrderInput{PlanID: plan.ID, Username: "exactuser"})
	require.NoError(t, err)

	before := f.wallet(t, u.ID)
	assert.Equal(t, int64(0), before.CreditConfirmed)
	assert.Equal(t, int64(10000), before.CreditPending)

	_, err = f.svc.Payments.Approve(ctx, p.ID, 9999, "")
	require.NoError(t, err)

	after := f.wallet(t, u.ID)
	assert.Equal(t, before.CreditConfirmed+60000, after.CreditConfirmed)
	assert.Equal(t, before.CreditPending-60000, after.CreditPending)
	assert.Equal(t, before.Total(), after.Total())
	assert.False(t, after.IsNegative())
}

func TestLedger_CryptoBonus(t *testing.T) {
	f := newFixture(t)
	u := f.agent(t, "agent1", 0, 0)
	m := f.method(t, models.MethodCrypto, map[string]interface{}{
		"coin":      "USDT",
		"network":   "TRC20",
		"wallet":    "TXyz",
		"bonus_pct": decimal.RequireFromString("2.5"),
	})
	p := f.upload(t, u.ID, 100001, m.ID)

	_, err := f.svc.Payments.Approve(context.Background(), p.ID, 9999, "")
	require.NoError(t, err)

	w := f.wallet(t, u.ID)
	assert.Equal(t, int64(0), w.CreditPending)
	assert.Equal(t, int64(100001+2500), w.CreditConfirmed)

	rows, _, err := f.svc.Reports.Transactions(u.ID, 10, 1)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.TxChargeBonus, rows[0].Type)
	assert.Equal(t, int64(2500), rows[0].Amount)
	assert.Equal(t, models.TxChargeApproved, rows[1].Type)
	assert.Equal(t, int64(100001), rows[1].Amount)
}
