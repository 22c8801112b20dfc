package models

import "time"

type PlanStatus string

const (
	PlanActive   PlanStatus = "ACTIVE"
	PlanInactive PlanStatus = "INACTIVE"
)

// Plan maps to the `plans` table.
type Plan struct {
	ID          uint       `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string     `gorm:"column:name;size:200;not null" json:"name"`
	Days        int        `gorm:"column:days;not null" json:"days"`
	DataLimitGB int        `gorm:"column:data_limit_gb;not null" json:"data_limit_gb"`
	PricePublic int64      `gorm:"column:price_public;not null" json:"price_public"`
	PriceAgent  int64      `gorm:"column:price_agent;not null" json:"price_agent"`
	Status      PlanStatus `gorm:"column:status;size:20;index;not null;default:ACTIVE" json:"status"`
	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Plan) TableName() string {
	return "plans"
}

// PriceFor returns the price charged to an account of the given role.
func (p Plan) PriceFor(role Role) int64 {
	if role == RoleAgent {
		return p.PriceAgent
	}
	return p.PricePublic
}

// IsActive reports whether new orders may reference the plan.
func (p Plan) IsActive() bool {
	return p.Status == PlanActive
}
