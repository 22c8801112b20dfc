package models

import "time"

type OrderStatus string

const (
	OrderPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderActive         OrderStatus = "ACTIVE"
	OrderExpired        OrderStatus = "EXPIRED"
	OrderDisabled       OrderStatus = "DISABLED"
	OrderRefunded       OrderStatus = "REFUNDED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPendingPayment: {OrderActive},
	OrderActive:         {OrderExpired, OrderDisabled, OrderRefunded},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// Order maps to the `orders` table. Plan terms are copied in at creation.
type Order struct {
	ID              uint        `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PlanID          uint        `gorm:"column:plan_id;index;not null" json:"plan_id"`
	OwnerID         *uint       `gorm:"column:owner_id;index" json:"owner_id,omitempty"`
	MarzbanUsername string      `gorm:"column:marzban_username;size:64;uniqueIndex;not null" json:"marzban_username"`
	Alias           string      `gorm:"column:alias;size:100" json:"alias,omitempty"`
	PlanName        string      `gorm:"column:plan_name;size:200" json:"plan_name"`
	Days            int         `gorm:"column:days;not null" json:"days"`
	DataLimitGB     int         `gorm:"column:data_limit_gb;not null" json:"data_limit_gb"`
	PricePaid       int64       `gorm:"column:price_paid;not null" json:"price_paid"`
	PaymentID       *uint       `gorm:"column:payment_id" json:"payment_id,omitempty"`
	Status          OrderStatus `gorm:"column:status;size:20;index;not null" json:"status"`
	SubscriptionURL string      `gorm:"column:subscription_url;size:1000" json:"subscription_url,omitempty"`
	UsedTraffic     int64       `gorm:"column:used_traffic;default:0" json:"used_traffic"`
	SyncedAt        *time.Time  `gorm:"column:synced_at" json:"synced_at,omitempty"`
	CreatedAt       time.Time   `gorm:"column:created_at" json:"created_at"`
	ExpiresAt       time.Time   `gorm:"column:expires_at;index" json:"expires_at"`
	UpdatedAt       time.Time   `gorm:"column:updated_at" json:"updated_at"`

	Plan *Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// ExpiryFor returns created plus the given number of whole days.
func ExpiryFor(created time.Time, days int) time.Time {
	return created.Add(time.Duration(days) * 24 * time.Hour)
}

// IsOwnedBy reports whether userID owns the order.
func (o Order) IsOwnedBy(userID uint) bool {
	return o.OwnerID != nil && *o.OwnerID == userID
}

// DataLimitBytes converts the plan limit to the gateway's unit. Zero is unlimited.
func (o Order) DataLimitBytes() int64 {
	return int64(o.DataLimitGB) * 1024 * 1024 * 1024
}
