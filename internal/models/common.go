package models

// APIResponse is the envelope every JSON endpoint answers with.
type APIResponse struct {
	Status bool        `json:"status"`
	Msg    string      `json:"msg"`
	Obj    interface{} `json:"obj"`
}

// PaginatedResponse wraps list results with pagination info.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// WalletView is the wallet as shown to its owner.
type WalletView struct {
	CreditConfirmed int64 `json:"credit_confirmed"`
	CreditPending   int64 `json:"credit_pending"`
	TotalCredit     int64 `json:"total_credit"`
	IsNegative      bool  `json:"is_negative"`
	CanCreateOrders bool  `json:"can_create_orders"`
}

// NewWalletView builds the owner-facing view of w.
func NewWalletView(w Wallet) WalletView {
	return WalletView{
		CreditConfirmed: w.CreditConfirmed,
		CreditPending:   w.CreditPending,
		TotalCredit:     w.Total(),
		IsNegative:      w.IsNegative(),
		CanCreateOrders: !w.IsNegative(),
	}
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalAgents     int64 `json:"total_agents"`
	ActiveOrders    int64 `json:"active_orders"`
	PendingPayments int64 `json:"pending_payments"`
	TotalRevenue    int64 `json:"total_revenue"`
}

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Agent{},
		&EndUser{},
		&Wallet{},
		&Plan{},
		&PaymentMethod{},
		&Payment{},
		&Order{},
		&Transaction{},
		&JobRun{},
	}
}
