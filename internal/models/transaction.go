package models

import "time"

type TransactionType string

const (
	TxChargePending  TransactionType = "CHARGE_PENDING"
	TxChargeApproved TransactionType = "CHARGE_APPROVED"
	TxChargeRejected TransactionType = "CHARGE_REJECTED"
	TxChargeManual   TransactionType = "CHARGE_MANUAL"
	TxChargeBonus    TransactionType = "CHARGE_BONUS"
	TxOrderCreated   TransactionType = "ORDER_CREATED"
	TxOrderRefund    TransactionType = "ORDER_REFUND"
	TxOrderDisabled  TransactionType = "ORDER_DISABLED"
)

// Transaction maps to the `transactions` table: one audit row per wallet mutation.
// BalanceBefore / BalanceAfter are total credit.
type Transaction struct {
	ID            uint            `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OwnerID       uint            `gorm:"column:owner_id;index;not null" json:"owner_id"`
	Type          TransactionType `gorm:"column:type;size:30;index;not null" json:"type"`
	Amount        int64           `gorm:"column:amount;not null" json:"amount"`
	BalanceBefore int64           `gorm:"column:balance_before" json:"balance_before"`
	BalanceAfter  int64           `gorm:"column:balance_after" json:"balance_after"`
	PaymentID     *uint           `gorm:"column:payment_id;index" json:"payment_id,omitempty"`
	OrderID       *uint           `gorm:"column:order_id;index" json:"order_id,omitempty"`
	ActorID       *uint           `gorm:"column:actor_id" json:"actor_id,omitempty"`
	Notes         string          `gorm:"column:notes;type:text" json:"notes,omitempty"`
	CreatedAt     time.Time       `gorm:"column:created_at;index" json:"created_at"`

	Owner *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}
