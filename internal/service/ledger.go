package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"radpanel/internal/metrics"
	"radpanel/internal/models"
	"radpanel/internal/pkg/lock"
	"radpanel/internal/repository"
)

const walletLockTTL = 30 * time.Second

// Ref links an audit row to what caused it.
type Ref struct {
	PaymentID *uint
	OrderID   *uint
	ActorID   *uint
	Notes     string
}

// Ledger owns every wallet balance change. Mutations for one owner are
// serialized by the owner lock and applied in a single DB transaction that
// re-reads the wallet row with FOR UPDATE.
type Ledger struct {
	repos  *repository.Repos
	locker lock.Locker
	logger *zap.Logger
	now    func() time.Time
}

func walletLockKey(ownerID uint) string {
	return fmt.Sprintf("wallet:%d", ownerID)
}

// LockOwner takes the per-owner lock. The returned func releases it.
func (l *Ledger) LockOwner(ctx context.Context, ownerID uint) (func(), error) {
	unlock, err := l.locker.Lock(ctx, walletLockKey(ownerID), walletLockTTL)
	if err != nil {
		return nil, fmt.Errorf("lock wallet %d: %w", ownerID, err)
	}
	return unlock, nil
}

// Mutate locks the owner and runs fn against its wallet in one transaction.
func (l *Ledger) Mutate(ctx context.Context, ownerID uint, fn func(*WalletTx) error) (*models.Wallet, error) {
	unlock, err := l.LockOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return l.mutateLocked(ctx, ownerID, fn)
}

// mutateLocked is Mutate for callers already holding the owner lock.
func (l *Ledger) mutateLocked(ctx context.Context, ownerID uint, fn func(*WalletTx) error) (*models.Wallet, error) {
	var (
		wallet  *models.Wallet
		applied []models.TransactionType
	)
	err := l.repos.Transaction(ctx, func(tx *repository.Repos) error {
		w, err := tx.Wallets.FindByOwnerForUpdate(ownerID)
		if err != nil {
			return notFound(err, "wallet")
		}
		wt := &WalletTx{repos: tx, wallet: w, now: l.now().UTC()}
		if err := fn(wt); err != nil {
			return err
		}
		w.TrackNegative(wt.now)
		if err := tx.Wallets.SaveBalances(w); err != nil {
			return fmt.Errorf("save wallet: %w", err)
		}
		wallet = w
		applied = wt.applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, t := range applied {
		metrics.IncWalletAdjustment(string(t))
	}
	return wallet, nil
}

// WalletTx is a wallet opened for update inside a transaction.
type WalletTx struct {
	repos   *repository.Repos
	wallet  *models.Wallet
	now     time.Time
	applied []models.TransactionType
}

// Repos returns repositories bound to the same transaction.
func (t *WalletTx) Repos() *repository.Repos { return t.repos }

// Wallet returns the wallet as currently mutated.
func (t *WalletTx) Wallet() *models.Wallet { return t.wallet }

func (t *WalletTx) record(typ models.TransactionType, amount, before int64, ref Ref) error {
	row := &models.Transaction{
		OwnerID:       t.wallet.OwnerID,
		Type:          typ,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  t.wallet.Total(),
		PaymentID:     ref.PaymentID,
		OrderID:       ref.OrderID,
		ActorID:       ref.ActorID,
		Notes:         ref.Notes,
		CreatedAt:     t.now,
	}
	if err := t.repos.Transactions.Create(row); err != nil {
		return fmt.Errorf("write %s audit row: %w", typ, err)
	}
	t.applied = append(t.applied, typ)
	return nil
}

// CreditPending adds an uploaded payment to pending credit.
func (t *WalletTx) CreditPending(amount int64, ref Ref) error {
	before := t.wallet.Total()
	t.wallet.CreditPending += amount
	return t.record(models.TxChargePending, amount, before, ref)
}

// ApprovePending moves exactly amount from pending to confirmed. Pending
// may go below zero when the credit was spent before approval.
func (t *WalletTx) ApprovePending(amount int64, ref Ref) error {
	before := t.wallet.Total()
	t.wallet.CreditPending -= amount
	t.wallet.CreditConfirmed += amount
	return t.record(models.TxChargeApproved, amount, before, ref)
}

// RejectPending removes amount from pending credit. When the pending credit
// was already spent, the shortfall lands on confirmed credit.
func (t *WalletTx) RejectPending(amount int64, ref Ref) error {
	before := t.wallet.Total()
	t.wallet.CreditPending -= amount
	t.wallet.Settle()
	return t.record(models.TxChargeRejected, -amount, before, ref)
}

// AdjustConfirmed applies an admin correction, positive or negative.
func (t *WalletTx) AdjustConfirmed(amount int64, ref Ref) error {
	before := t.wallet.Total()
	t.wallet.CreditConfirmed += amount
	return t.record(models.TxChargeManual, amount, before, ref)
}

// CreditBonus adds a payment method bonus to confirmed credit.
func (t *WalletTx) CreditBonus(amount int64, ref Ref) error {
	before := t.wallet.Total()
	t.wallet.CreditConfirmed += amount
	return t.record(models.TxChargeBonus, amount, before, ref)
}

// Debit charges an order, taking confirmed credit first and then pending.
func (t *WalletTx) Debit(amount int64, ref Ref) error {
	w := t.wallet
	if w.IsNegative() {
		return ErrNegativeBalance
	}
	if w.Total() < amount {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientCredit, amount, w.Total())
	}
	before := w.Total()
	fromConfirmed := amount
	if w.CreditConfirmed < fromConfirmed {
		fromConfirmed = max(w.CreditConfirmed, 0)
	}
	w.CreditConfirmed -= fromConfirmed
	w.CreditPending -= amount - fromConfirmed
	return t.record(models.TxOrderCreated, -amount, before, ref)
}

// Refund returns an order price to confirmed credit.
func (t *WalletTx) Refund(amount int64, ref Ref) error {
	before := t.wallet.Total()
	t.wallet.CreditConfirmed += amount
	return t.record(models.TxOrderRefund, amount, before, ref)
}

// Note writes a zero-amount audit row.
func (t *WalletTx) Note(typ models.TransactionType, ref Ref) error {
	return t.record(typ, 0, t.wallet.Total(), ref)
}

// AdjustConfirmed changes an owner's confirmed credit directly.
func (l *Ledger) AdjustConfirmed(ctx context.Context, ownerID uint, amount int64, actorID uint, notes string) (*models.Wallet, error) {
	if amount == 0 {
		return nil, validation("amount must not be zero")
	}
	w, err := l.Mutate(ctx, ownerID, func(wt *WalletTx) error {
		return wt.AdjustConfirmed(amount, Ref{ActorID: &actorID, Notes: notes})
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info("wallet adjusted",
		zap.Uint("owner_id", ownerID),
		zap.Int64("amount", amount),
		zap.Uint("actor_id", actorID))
	return w, nil
}

// ApprovePayment settles a pending payment into confirmed credit. A payment
// that is no longer PENDING fails with ErrPaymentNotPending.
func (l *Ledger) ApprovePayment(ctx context.Context, paymentID, reviewerID uint, notes string) (*models.Payment, error) {
	return l.review(ctx, paymentID, reviewerID, models.PaymentApproved, notes)
}

// RejectPayment drops a pending payment from pending credit.
func (l *Ledger) RejectPayment(ctx context.Context, paymentID, reviewerID uint, notes string) (*models.Payment, error) {
	return l.review(ctx, paymentID, reviewerID, models.PaymentRejected, notes)
}

func (l *Ledger) review(ctx context.Context, paymentID, reviewerID uint, status models.PaymentStatus, notes string) (*models.Payment, error) {
	payment, err := l.repos.Payments.FindByID(paymentID)
	if err != nil {
		return nil, notFound(err, "payment")
	}
	if !payment.IsPending() {
		return nil, ErrPaymentNotPending
	}

	var bonus int64
	if status == models.PaymentApproved && payment.PaymentMethod != nil && payment.PaymentMethod.Type == models.MethodCrypto {
		if cfg, err := payment.PaymentMethod.DecodeConfig(); err == nil {
			bonus = cfg.(models.CryptoConfig).Bonus(payment.Amount)
		} else {
			l.logger.Warn("crypto method config unreadable, approving without bonus",
				zap.Uint("method_id", payment.PaymentMethodID), zap.Error(err))
		}
	}

	_, err = l.Mutate(ctx, payment.OwnerID, func(wt *WalletTx) error {
		n, err := wt.Repos().Payments.Review(paymentID, status, notes, reviewerID, wt.now)
		if err != nil {
			return fmt.Errorf("review payment: %w", err)
		}
		if n == 0 {
			return ErrPaymentNotPending
		}
		ref := Ref{PaymentID: &paymentID, ActorID: &reviewerID, Notes: notes}
		if status == models.PaymentRejected {
			return wt.RejectPending(payment.Amount, ref)
		}
		if err := wt.ApprovePending(payment.Amount, ref); err != nil {
			return err
		}
		if bonus > 0 {
			return wt.CreditBonus(bonus, Ref{PaymentID: &paymentID, ActorID: &reviewerID, Notes: "crypto bonus"})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncPayment(string(status))
	l.logger.Info("payment reviewed",
		zap.Uint("payment_id", paymentID),
		zap.String("status", string(status)),
		zap.Int64("amount", payment.Amount),
		zap.Int64("bonus", bonus),
		zap.Uint("reviewer_id", reviewerID))

	return l.repos.Payments.FindByID(paymentID)
}

// Wallet returns the owner's balances.
func (l *Ledger) Wallet(ownerID uint) (*models.Wallet, error) {
	w, err := l.repos.Wallets.FindByOwner(ownerID)
	if err != nil {
		return nil, notFound(err, "wallet")
	}
	return w, nil
}

// TotalCredit is confirmed plus pending credit.
func (l *Ledger) TotalCredit(ownerID uint) (int64, error) {
	w, err := l.Wallet(ownerID)
	if err != nil {
		return 0, err
	}
	return w.Total(), nil
}

// IsNegative reports whether the owner's total credit is below zero.
func (l *Ledger) IsNegative(ownerID uint) (bool, error) {
	w, err := l.Wallet(ownerID)
	if err != nil {
		return false, err
	}
	return w.IsNegative(), nil
}
