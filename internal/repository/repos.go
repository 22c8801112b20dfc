package repository

import (
	"context"

	"gorm.io/gorm"
)

const defaultPageSize = 50

// Repos bundles every repository over one *gorm.DB (or one transaction).
type Repos struct {
	db *gorm.DB

	Users          *UserRepository
	Wallets        *WalletRepository
	Plans          *PlanRepository
	PaymentMethods *PaymentMethodRepository
	Payments       *PaymentRepository
	Orders         *OrderRepository
	Transactions   *TransactionRepository
	JobRuns        *JobRunRepository
}

func NewRepos(db *gorm.DB) *Repos {
	return &Repos{
		db:             db,
		Users:          NewUserRepository(db),
		Wallets:        NewWalletRepository(db),
		Plans:          NewPlanRepository(db),
		PaymentMethods: NewPaymentMethodRepository(db),
		Payments:       NewPaymentRepository(db),
		Orders:         NewOrderRepository(db),
		Transactions:   NewTransactionRepository(db),
		JobRuns:        NewJobRunRepository(db),
	}
}

// DB exposes the underlying handle.
func (r *Repos) DB() *gorm.DB {
	return r.db
}

// Transaction runs fn with a Repos bound to a single database transaction.
// Returning an error from fn rolls everything back.
func (r *Repos) Transaction(ctx context.Context, fn func(tx *Repos) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepos(tx))
	})
}

// pageBounds normalises limit/page and returns the row offset.
func pageBounds(limit, page int) (int, int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	return limit, page, (page - 1) * limit
}
