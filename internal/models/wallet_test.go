package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWallet_Totals(t *testing.T) {
	w := Wallet{CreditConfirmed: 50000, CreditPending: 60000}
	assert.Equal(t, int64(110000), w.Total())
	assert.False(t, w.IsNegative())

	w.CreditConfirmed = -70000
	assert.True(t, w.IsNegative())
}

func TestWallet_Settle(t *testing.T) {
	w := Wallet{CreditConfirmed: 100, CreditPending: -40}
	w.Settle()
	assert.Equal(t, int64(60), w.CreditConfirmed)
	assert.Equal(t, int64(0), w.CreditPending)

	w = Wallet{CreditConfirmed: 100, CreditPending: 40}
	w.Settle()
	assert.Equal(t, int64(100), w.CreditConfirmed)
	assert.Equal(t, int64(40), w.CreditPending)
}

func TestWallet_TrackNegative(t *testing.T) {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	w := Wallet{CreditConfirmed: -1}
	w.TrackNegative(first)
	require.NotNil(t, w.NegativeSince)
	assert.Equal(t, first, *w.NegativeSince)

	w.TrackNegative(later)
	assert.Equal(t, first, *w.NegativeSince, "first negative time is kept")

	w.CreditConfirmed = 0
	w.TrackNegative(later)
	assert.Nil(t, w.NegativeSince)
}

func TestNewWalletView(t *testing.T) {
	v := NewWalletView(Wallet{CreditConfirmed: -100, CreditPending: 50})
	assert.Equal(t, int64(-50), v.TotalCredit)
	assert.True(t, v.IsNegative)
	assert.False(t, v.CanCreateOrders)
}
