package models

import "time"

// Wallet maps to the `wallets` table, one row per agent or end user.
// Amounts are signed integer currency units.
type Wallet struct {
	OwnerID         uint       `gorm:"column:owner_id;primaryKey;autoIncrement:false" json:"owner_id"`
	CreditConfirmed int64      `gorm:"column:credit_confirmed;not null;default:0" json:"credit_confirmed"`
	CreditPending   int64      `gorm:"column:credit_pending;not null;default:0" json:"credit_pending"`
	NegativeSince   *time.Time `gorm:"column:negative_since;index" json:"negative_since,omitempty"`
	UpdatedAt       time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// Total is confirmed plus pending credit.
func (w Wallet) Total() int64 {
	return w.CreditConfirmed + w.CreditPending
}

// IsNegative reports whether the total credit is below zero.
func (w Wallet) IsNegative() bool {
	return w.Total() < 0
}

// Settle keeps pending credit non-negative by moving any deficit onto
// confirmed credit. The total is unchanged.
func (w *Wallet) Settle() {
	if w.CreditPending < 0 {
		w.CreditConfirmed += w.CreditPending
		w.CreditPending = 0
	}
}

// TrackNegative stamps or clears NegativeSince after a balance change.
func (w *Wallet) TrackNegative(now time.Time) {
	switch {
	case w.IsNegative() && w.NegativeSince == nil:
		t := now
		w.NegativeSince = &t
	case !w.IsNegative():
		w.NegativeSince = nil
	}
}
