package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"radpanel/internal/metrics"
	"radpanel/internal/models"
	"radpanel/internal/pkg/upload"
	"radpanel/internal/pkg/utils"
	"radpanel/internal/repository"
)

// PaymentService handles receipt uploads and the admin approval queue.
type PaymentService struct {
	repos    *repository.Repos
	ledger   *Ledger
	uploads  *upload.Store
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// UploadInput is a receipt claim from a wallet owner.
type UploadInput struct {
	OwnerID  uint
	Amount   int64
	MethodID uint
	Receipt  io.Reader
}

// Upload stores the receipt, records a PENDING payment and credits the
// amount to pending credit.
func (s *PaymentService) Upload(ctx context.Context, in UploadInput) (*models.Payment, error) {
	owner, method, err := s.checkUpload(in)
	if err != nil {
		return nil, err
	}

	unlock, err := s.ledger.LockOwner(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	payment, err := s.uploadLocked(ctx, owner, method, in)
	if err != nil {
		return nil, err
	}
	s.notifier.PaymentUploaded(ctx, payment, owner)
	return payment, nil
}

func (s *PaymentService) checkUpload(in UploadInput) (*models.User, *models.PaymentMethod, error) {
	if in.Amount <= 0 {
		return nil, nil, validation("amount must be positive")
	}
	if in.Receipt == nil {
		return nil, nil, validation("receipt file is required")
	}
	owner, err := s.repos.Users.FindByID(in.OwnerID)
	if err != nil {
		return nil, nil, notFound(err, "user")
	}
	if !owner.Role.HasWallet() {
		return nil, nil, fmt.Errorf("%w: %s accounts have no wallet", ErrForbidden, owner.Role)
	}
	if !owner.IsActive() {
		return nil, nil, ErrUserDisabled
	}
	method, err := s.repos.PaymentMethods.FindByID(in.MethodID)
	if err != nil {
		return nil, nil, notFound(err, "payment method")
	}
	if !method.IsActive() {
		return nil, nil, validation("payment method is not active")
	}
	return owner, method, nil
}

// uploadLocked runs with the owner lock held. Callers notify admins once
// the payment is final.
func (s *PaymentService) uploadLocked(ctx context.Context, owner *models.User, method *models.PaymentMethod, in UploadInput) (*models.Payment, error) {
	if err := s.checkDailyLimits(method, in.Amount); err != nil {
		return nil, err
	}

	saved, err := s.uploads.Save(in.Receipt)
	if err != nil {
		if errors.Is(err, upload.ErrTooLarge) || errors.Is(err, upload.ErrUnsupportedType) || errors.Is(err, upload.ErrEmpty) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, fmt.Errorf("store receipt: %w", err)
	}

	payment := &models.Payment{
		OwnerID:         owner.ID,
		Amount:          in.Amount,
		PaymentMethodID: method.ID,
		ReceiptPath:     saved.Path,
		ReceiptURL:      saved.URL,
		Status:          models.PaymentPending,
		CreatedAt:       s.now().UTC(),
	}
	_, err = s.ledger.mutateLocked(ctx, owner.ID, func(wt *WalletTx) error {
		if err := wt.Repos().Payments.Create(payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		return wt.CreditPending(in.Amount, Ref{PaymentID: &payment.ID})
	})
	if err != nil {
		if rmErr := s.uploads.Remove(saved.Path); rmErr != nil {
			s.logger.Warn("remove orphan receipt", zap.String("path", saved.Path), zap.Error(rmErr))
		}
		return nil, err
	}

	metrics.IncPayment(string(models.PaymentPending))
	s.logger.Info("payment uploaded",
		zap.Uint("payment_id", payment.ID),
		zap.Uint("owner_id", owner.ID),
		zap.Int64("amount", in.Amount),
		zap.Uint("method_id", method.ID))

	payment.PaymentMethod = method
	return payment, nil
}

// discardLocked withdraws a payment recorded by uploadLocked: the row is
// deleted, its pending credit reversed and the receipt file removed.
// Runs with the owner lock held.
func (s *PaymentService) discardLocked(ctx context.Context, payment *models.Payment, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()

	_, err := s.ledger.mutateLocked(ctx, payment.OwnerID, func(wt *WalletTx) error {
		if err := wt.Repos().Payments.Delete(payment.ID); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		return wt.RejectPending(payment.Amount, Ref{PaymentID: &payment.ID, Notes: reason})
	})
	if err != nil {
		s.logger.Error("compensation: withdraw payment", zap.Uint("payment_id", payment.ID), zap.Error(err))
		return
	}
	if err := s.uploads.Remove(payment.ReceiptPath); err != nil {
		s.logger.Warn("remove orphan receipt", zap.String("path", payment.ReceiptPath), zap.Error(err))
	}
}

// checkDailyLimits enforces the method's per-day count and amount caps
// against today's non-rejected payments.
func (s *PaymentService) checkDailyLimits(method *models.PaymentMethod, amount int64) error {
	if method.DailyLimitCount <= 0 && method.DailyLimitAmount <= 0 {
		return nil
	}
	from := utils.StartOfDay(s.now().UTC())
	count, total, err := s.repos.Payments.DailyUsage(method.ID, from, from.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("daily usage: %w", err)
	}
	if method.DailyLimitCount > 0 && count >= int64(method.DailyLimitCount) {
		return fmt.Errorf("%w: %d payments today", ErrLimitExceeded, count)
	}
	if method.DailyLimitAmount > 0 && total+amount > method.DailyLimitAmount {
		return fmt.Errorf("%w: %s of %s used today", ErrLimitExceeded,
			utils.FormatNumber(total), utils.FormatNumber(method.DailyLimitAmount))
	}
	return nil
}

// Approve settles a pending payment.
func (s *PaymentService) Approve(ctx context.Context, paymentID, reviewerID uint, notes string) (*models.Payment, error) {
	return s.ledger.ApprovePayment(ctx, paymentID, reviewerID, notes)
}

// Reject drops a pending payment.
func (s *PaymentService) Reject(ctx context.Context, paymentID, reviewerID uint, notes string) (*models.Payment, error) {
	return s.ledger.RejectPayment(ctx, paymentID, reviewerID, notes)
}

// Get returns one payment.
func (s *PaymentService) Get(id uint) (*models.Payment, error) {
	p, err := s.repos.Payments.FindByID(id)
	if err != nil {
		return nil, notFound(err, "payment")
	}
	return p, nil
}

// List is the admin queue, optionally filtered by status.
func (s *PaymentService) List(status models.PaymentStatus, limit, page int) ([]models.Payment, int64, error) {
	switch status {
	case "", models.PaymentPending, models.PaymentApproved, models.PaymentRejected:
	default:
		return nil, 0, validation("unknown payment status %q", status)
	}
	return s.repos.Payments.FindAll(limit, page, status, 0)
}

// ListMine returns the owner's own payments.
func (s *PaymentService) ListMine(ownerID uint, limit, page int) ([]models.Payment, int64, error) {
	return s.repos.Payments.FindAll(limit, page, "", ownerID)
}

// CleanupReceipts removes receipt files older than retention that no
// pending payment still references.
func (s *PaymentService) CleanupReceipts(retention time.Duration) (int, error) {
	paths, err := s.repos.Payments.PendingReceiptPaths()
	if err != nil {
		return 0, fmt.Errorf("pending receipts: %w", err)
	}
	keep := make(map[string]bool, len(paths))
	for _, p := range paths {
		keep[p] = true
	}
	return s.uploads.Cleanup(s.now().Add(-retention), keep)
}
