package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderPendingPayment, OrderActive, true},
		{OrderActive, OrderExpired, true},
		{OrderActive, OrderDisabled, true},
		{OrderActive, OrderRefunded, true},
		{OrderPendingPayment, OrderRefunded, false},
		{OrderExpired, OrderActive, false},
		{OrderRefunded, OrderActive, false},
		{OrderDisabled, OrderRefunded, false},
		{OrderExpired, OrderRefunded, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.False(t, OrderPendingPayment.IsTerminal())
	assert.False(t, OrderActive.IsTerminal())
	assert.True(t, OrderExpired.IsTerminal())
	assert.True(t, OrderDisabled.IsTerminal())
	assert.True(t, OrderRefunded.IsTerminal())
}

func TestExpiryFor(t *testing.T) {
	created := time.Date(2024, 3, 30, 22, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 4, 29, 22, 15, 0, 0, time.UTC), ExpiryFor(created, 30))
	assert.Equal(t, created, ExpiryFor(created, 0))
}

func TestOrder_IsOwnedBy(t *testing.T) {
	owner := uint(7)
	assert.True(t, Order{OwnerID: &owner}.IsOwnedBy(7))
	assert.False(t, Order{OwnerID: &owner}.IsOwnedBy(8))
	assert.False(t, Order{}.IsOwnedBy(7))
}
