package models

import "time"

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentApproved PaymentStatus = "APPROVED"
	PaymentRejected PaymentStatus = "REJECTED"
)

// Payment maps to the `payments` table: an uploaded receipt awaiting review.
type Payment struct {
	ID              uint          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OwnerID         uint          `gorm:"column:owner_id;index;not null" json:"owner_id"`
	Amount          int64         `gorm:"column:amount;not null" json:"amount"`
	PaymentMethodID uint          `gorm:"column:payment_method_id;index;not null" json:"payment_method_id"`
	ReceiptPath     string        `gorm:"column:receipt_path;size:500" json:"receipt_path"`
	ReceiptURL      string        `gorm:"column:receipt_url;size:500" json:"receipt_url"`
	Status          PaymentStatus `gorm:"column:status;size:20;index;not null;default:PENDING" json:"status"`
	AdminNotes      string        `gorm:"column:admin_notes;type:text" json:"admin_notes,omitempty"`
	ReviewedBy      *uint         `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time    `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time     `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"column:updated_at" json:"updated_at"`

	PaymentMethod *PaymentMethod `gorm:"foreignKey:PaymentMethodID" json:"payment_method,omitempty"`
	Owner         *User          `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p Payment) IsPending() bool {
	return p.Status == PaymentPending
}
