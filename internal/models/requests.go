package models

import "encoding/json"

// --- Auth ---

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

type ProfileUpdateRequest struct {
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	ShopName  *string `json:"shop_name,omitempty"`
	Province  *string `json:"province,omitempty"`
	City      *string `json:"city,omitempty"`
	Address   *string `json:"address,omitempty"`
}

// --- Agents ---

type AgentCreateRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	ShopName  string `json:"shop_name,omitempty"`
	Province  string `json:"province,omitempty"`
	City      string `json:"city,omitempty"`
	Address   string `json:"address,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type AgentUpdateRequest struct {
	Email     *string `json:"email,omitempty"`
	Password  *string `json:"password,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	ShopName  *string `json:"shop_name,omitempty"`
	Province  *string `json:"province,omitempty"`
	City      *string `json:"city,omitempty"`
	Address   *string `json:"address,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type CreditAdjustRequest struct {
	Amount int64  `json:"amount"`
	Notes  string `json:"notes"`
}

// --- Plans ---

type PlanRequest struct {
	Name        string     `json:"name"`
	Days        int        `json:"days"`
	DataLimitGB int        `json:"data_limit_gb"`
	PricePublic int64      `json:"price_public"`
	PriceAgent  int64      `json:"price_agent"`
	Status      PlanStatus `json:"status,omitempty"`
}

// --- Payment methods ---

type PaymentMethodRequest struct {
	Type             PaymentMethodType   `json:"type"`
	Alias            string              `json:"alias"`
	Config           json.RawMessage     `json:"config"`
	Status           PaymentMethodStatus `json:"status,omitempty"`
	DailyLimitCount  int                 `json:"daily_limit_count"`
	DailyLimitAmount int64               `json:"daily_limit_amount"`
	Notes            string              `json:"notes,omitempty"`
}

// --- Payments ---

type PaymentReviewRequest struct {
	Notes string `json:"notes"`
}

// --- Orders ---

type OrderCreateRequest struct {
	PlanID          uint   `json:"plan_id"`
	MarzbanUsername string `json:"marzban_username"`
	Alias           string `json:"alias"`
	OnHold          bool   `json:"on_hold"`
}
