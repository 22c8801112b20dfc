package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"radpanel/internal/auth"
	"radpanel/internal/metrics"
	"radpanel/internal/models"
	"radpanel/internal/panel"
	"radpanel/internal/pkg/utils"
	"radpanel/internal/repository"
)

const (
	compensateTimeout = 15 * time.Second
	syncBatchSize     = 100
	maxMyOrdersPage   = 100
	maxAliasLen       = 100
)

// OrderService runs the order lifecycle against the wallet and the gateway.
type OrderService struct {
	repos    *repository.Repos
	ledger   *Ledger
	payments *PaymentService
	panel    panel.PanelClient
	logger   *zap.Logger
	now      func() time.Time
}

// CreateOrderInput names the plan and the gateway username of a new order.
// OnHold accounts start their period on first connection.
type CreateOrderInput struct {
	PlanID   uint
	Username string
	Alias    string
	OnHold   bool
}

// ReceiptInput is the payment that accompanies a self-service order.
type ReceiptInput struct {
	MethodID uint
	Receipt  io.Reader
}

// Create provisions an order paid from the caller's wallet. Admin orders
// are ownerless and free.
func (s *OrderService) Create(ctx context.Context, sess *auth.Session, in CreateOrderInput) (*models.Order, error) {
	plan, in, err := s.checkCreate(in)
	if err != nil {
		return nil, err
	}
	if sess.IsAdmin() {
		return s.createLocked(ctx, nil, plan, 0, in)
	}
	if sess == nil || !sess.Role.HasWallet() {
		return nil, ErrForbidden
	}

	unlock, err := s.ledger.LockOwner(ctx, sess.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	owner := sess.UserID
	return s.createLocked(ctx, &owner, plan, plan.PriceFor(sess.Role), in)
}

// CreateWithReceipt is the self-service flow: the receipt is recorded as
// pending credit for the plan price, then the order is created against it
// without waiting for approval.
func (s *OrderService) CreateWithReceipt(ctx context.Context, sess *auth.Session, in CreateOrderInput, receipt ReceiptInput) (*models.Order, *models.Payment, error) {
	if sess == nil || !sess.Role.HasWallet() {
		return nil, nil, ErrForbidden
	}
	plan, in, err := s.checkCreate(in)
	if err != nil {
		return nil, nil, err
	}
	price := plan.PriceFor(sess.Role)
	upload := UploadInput{OwnerID: sess.UserID, Amount: price, MethodID: receipt.MethodID, Receipt: receipt.Receipt}
	owner, method, err := s.payments.checkUpload(upload)
	if err != nil {
		return nil, nil, err
	}

	unlock, err := s.ledger.LockOwner(ctx, sess.UserID)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	// The receipt adds exactly price, so the wallet only has to be non-negative.
	w, err := s.ledger.Wallet(sess.UserID)
	if err != nil {
		return nil, nil, err
	}
	if w.IsNegative() {
		return nil, nil, ErrNegativeBalance
	}
	if err := s.checkUsername(ctx, in.Username); err != nil {
		return nil, nil, err
	}
	payment, err := s.payments.uploadLocked(ctx, owner, method, upload)
	if err != nil {
		return nil, nil, err
	}
	ownerID := sess.UserID
	order, err := s.provisionLocked(ctx, &ownerID, plan, price, &payment.ID, in)
	if err != nil {
		s.payments.discardLocked(ctx, payment, "order not created")
		return nil, nil, err
	}
	s.payments.notifier.PaymentUploaded(ctx, payment, owner)
	return order, payment, nil
}

func (s *OrderService) checkCreate(in CreateOrderInput) (*models.Plan, CreateOrderInput, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Alias = strings.TrimSpace(in.Alias)
	if !utils.ValidUsername(in.Username) {
		return nil, in, validation("username must be 3-32 letters, digits or underscores")
	}
	if len(in.Alias) > maxAliasLen {
		return nil, in, validation(fmt.Sprintf("alias must be at most %d characters", maxAliasLen))
	}
	plan, err := s.repos.Plans.FindByID(in.PlanID)
	if err != nil {
		return nil, in, notFound(err, "plan")
	}
	if !plan.IsActive() {
		return nil, in, ErrPlanInactive
	}
	return plan, in, nil
}

// checkUsername rejects usernames used by any past order or present at the gateway.
func (s *OrderService) checkUsername(ctx context.Context, username string) error {
	used, err := s.repos.Orders.ExistsUsername(username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if used {
		return ErrUsernameTaken
	}
	available, err := panel.UsernameAvailable(ctx, s.panel, username)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvisioning, err)
	}
	if !available {
		return ErrUsernameTaken
	}
	return nil
}

// createLocked runs with the owner lock held. A nil owner is an admin order.
func (s *OrderService) createLocked(ctx context.Context, owner *uint, plan *models.Plan, price int64, in CreateOrderInput) (*models.Order, error) {
	if owner != nil {
		w, err := s.ledger.Wallet(*owner)
		if err != nil {
			return nil, err
		}
		if w.IsNegative() {
			return nil, ErrNegativeBalance
		}
		if w.Total() < price {
			return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCredit, price, w.Total())
		}
	}
	if err := s.checkUsername(ctx, in.Username); err != nil {
		return nil, err
	}
	return s.provisionLocked(ctx, owner, plan, price, nil, in)
}

// provisionLocked inserts the order, creates the gateway account and debits
// the wallet. The caller has checked credit and the username.
func (s *OrderService) provisionLocked(ctx context.Context, owner *uint, plan *models.Plan, price int64, paymentID *uint, in CreateOrderInput) (*models.Order, error) {
	username := in.Username
	now := s.now().UTC().Truncate(time.Second)
	order := &models.Order{
		PlanID:          plan.ID,
		OwnerID:         owner,
		MarzbanUsername: username,
		Alias:           in.Alias,
		PlanName:        plan.Name,
		Days:            plan.Days,
		DataLimitGB:     plan.DataLimitGB,
		PricePaid:       price,
		PaymentID:       paymentID,
		Status:          models.OrderPendingPayment,
		CreatedAt:       now,
		ExpiresAt:       models.ExpiryFor(now, plan.Days),
	}
	if err := s.repos.Orders.Create(order); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	account, err := s.panel.CreateUser(ctx, panel.CreateUserRequest{
		Username:     username,
		DataLimit:    order.DataLimitBytes(),
		ExpireAt:     order.ExpiresAt,
		OnHold:       in.OnHold,
		HoldDuration: time.Duration(plan.Days) * 24 * time.Hour,
		Note:         orderNote(order),
	})
	if err != nil {
		s.discardOrder(ctx, order, false)
		if errors.Is(err, panel.ErrUserExists) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}

	activate := func(tx *repository.Repos) error {
		return transition(tx, order, models.OrderActive, map[string]interface{}{"subscription_url": account.SubLink})
	}
	if owner != nil {
		_, err = s.ledger.mutateLocked(ctx, *owner, func(wt *WalletTx) error {
			if err := wt.Debit(price, Ref{OrderID: &order.ID, PaymentID: paymentID}); err != nil {
				return err
			}
			return activate(wt.Repos())
		})
	} else {
		err = activate(s.repos)
	}
	if err != nil {
		s.discardOrder(ctx, order, true)
		return nil, err
	}

	metrics.IncOrder(string(models.OrderActive))
	s.logger.Info("order created",
		zap.Uint("order_id", order.ID),
		zap.String("username", username),
		zap.Uint("plan_id", plan.ID),
		zap.Int64("price", price))

	stored, err := s.repos.Orders.FindByID(order.ID)
	if err != nil {
		return order, nil
	}
	return stored, nil
}

func orderNote(o *models.Order) string {
	if o.Alias != "" {
		return fmt.Sprintf("order #%d: %s", o.ID, o.Alias)
	}
	return fmt.Sprintf("order #%d", o.ID)
}

// discardOrder undoes a half-created order, deleting the gateway account
// first when one was provisioned.
func (s *OrderService) discardOrder(ctx context.Context, order *models.Order, provisioned bool) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()

	if provisioned {
		if err := s.panel.DeleteUser(ctx, order.MarzbanUsername); err != nil && !errors.Is(err, panel.ErrUserNotFound) {
			s.logger.Error("compensation: delete gateway account",
				zap.Uint("order_id", order.ID),
				zap.String("username", order.MarzbanUsername),
				zap.Error(err))
		}
	}
	if err := s.repos.Orders.Delete(order.ID); err != nil {
		s.logger.Error("compensation: delete order row", zap.Uint("order_id", order.ID), zap.Error(err))
	}
}

// transition moves order to status with a conditional update on its current status.
func transition(repos *repository.Repos, order *models.Order, to models.OrderStatus, extra map[string]interface{}) error {
	if !models.CanTransition(order.Status, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, to)
	}
	n, err := repos.Orders.Transition(order.ID, order.Status, to, extra)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: order %d is no longer %s", ErrInvalidTransition, order.ID, order.Status)
	}
	order.Status = to
	return nil
}

// lockOrder takes the owner lock for order, if it has an owner, and re-reads it.
func (s *OrderService) lockOrder(ctx context.Context, id uint) (*models.Order, func(), error) {
	order, err := s.repos.Orders.FindByID(id)
	if err != nil {
		return nil, nil, notFound(err, "order")
	}
	if order.OwnerID == nil {
		return order, func() {}, nil
	}
	unlock, err := s.ledger.LockOwner(ctx, *order.OwnerID)
	if err != nil {
		return nil, nil, err
	}
	order, err = s.repos.Orders.FindByID(id)
	if err != nil {
		unlock()
		return nil, nil, notFound(err, "order")
	}
	return order, unlock, nil
}

// Refund deprovisions an ACTIVE order and returns its price to the owner.
// A gateway account that is already gone counts as deprovisioned, so a
// retried refund completes.
func (s *OrderService) Refund(ctx context.Context, sess *auth.Session, id uint, notes string) (*models.Order, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	order, unlock, err := s.lockOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !models.CanTransition(order.Status, models.OrderRefunded) {
		return nil, fmt.Errorf("%w: %s order cannot be refunded", ErrInvalidTransition, order.Status)
	}
	if err := s.refundLocked(ctx, order, sess.UserID, notes); err != nil {
		return nil, err
	}
	return s.repos.Orders.FindByID(order.ID)
}

// refundLocked re-reads the order under a row lock so the expiry sweep
// cannot move it while the gateway account is deleted.
func (s *OrderService) refundLocked(ctx context.Context, order *models.Order, actor uint, notes string) error {
	refund := func(tx *repository.Repos) error {
		current, err := tx.Orders.FindByIDForUpdate(order.ID)
		if err != nil {
			return notFound(err, "order")
		}
		if !models.CanTransition(current.Status, models.OrderRefunded) {
			return fmt.Errorf("%w: %s order cannot be refunded", ErrInvalidTransition, current.Status)
		}
		if err := s.panel.DeleteUser(ctx, current.MarzbanUsername); err != nil && !errors.Is(err, panel.ErrUserNotFound) {
			return fmt.Errorf("%w: %v", ErrProvisioning, err)
		}
		*order = *current
		return transition(tx, order, models.OrderRefunded, nil)
	}

	var err error
	if order.OwnerID != nil {
		_, err = s.ledger.mutateLocked(ctx, *order.OwnerID, func(wt *WalletTx) error {
			if err := refund(wt.Repos()); err != nil {
				return err
			}
			return wt.Refund(order.PricePaid, Ref{OrderID: &order.ID, ActorID: &actor, Notes: notes})
		})
	} else {
		err = s.repos.Transaction(ctx, refund)
	}
	if err != nil {
		return err
	}

	metrics.IncOrder(string(models.OrderRefunded))
	s.logger.Info("order refunded",
		zap.Uint("order_id", order.ID),
		zap.Int64("amount", order.PricePaid),
		zap.Uint("actor_id", actor))
	return nil
}

// Disable turns off an ACTIVE order at the gateway and marks it DISABLED.
func (s *OrderService) Disable(ctx context.Context, sess *auth.Session, id uint, notes string) (*models.Order, error) {
	if !sess.IsAdmin() {
		return nil, ErrForbidden
	}
	order, unlock, err := s.lockOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	actor := sess.UserID
	if err := s.disableLocked(ctx, order, Ref{ActorID: &actor, Notes: notes}); err != nil {
		return nil, err
	}
	return s.repos.Orders.FindByID(order.ID)
}

func (s *OrderService) disableLocked(ctx context.Context, order *models.Order, ref Ref) error {
	if !models.CanTransition(order.Status, models.OrderDisabled) {
		return fmt.Errorf("%w: %s order cannot be disabled", ErrInvalidTransition, order.Status)
	}
	if err := s.panel.DisableUser(ctx, order.MarzbanUsername); err != nil && !errors.Is(err, panel.ErrUserNotFound) {
		return fmt.Errorf("%w: %v", ErrProvisioning, err)
	}

	var err error
	if order.OwnerID != nil {
		ref.OrderID = &order.ID
		_, err = s.ledger.mutateLocked(ctx, *order.OwnerID, func(wt *WalletTx) error {
			if err := transition(wt.Repos(), order, models.OrderDisabled, nil); err != nil {
				return err
			}
			return wt.Note(models.TxOrderDisabled, ref)
		})
	} else {
		err = transition(s.repos, order, models.OrderDisabled, nil)
	}
	if err != nil {
		return err
	}

	metrics.IncOrder(string(models.OrderDisabled))
	s.logger.Info("order disabled", zap.Uint("order_id", order.ID), zap.String("notes", ref.Notes))
	return nil
}

// ExpireDue marks ACTIVE orders whose expiry has passed as EXPIRED.
func (s *OrderService) ExpireDue(ctx context.Context) (int64, error) {
	n, err := s.repos.Orders.ExpireDue(s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("expire orders: %w", err)
	}
	if n > 0 {
		metrics.AddOrders(string(models.OrderExpired), int(n))
		s.logger.Info("orders expired", zap.Int64("count", n))
	}
	return n, nil
}

// SyncUsage refreshes one order's usage snapshot from the gateway.
func (s *OrderService) SyncUsage(ctx context.Context, sess *auth.Session, username string) (*models.Order, error) {
	order, err := s.repos.Orders.FindByUsername(username)
	if err != nil {
		return nil, notFound(err, "order")
	}
	if !sess.IsAdmin() && !order.IsOwnedBy(sess.UserID) {
		return nil, ErrForbidden
	}
	account, err := s.panel.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, panel.ErrUserNotFound) {
			return nil, fmt.Errorf("gateway account %w", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}
	if err := s.repos.Orders.UpdateUsage(order.ID, account.UsedTraffic, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("store usage: %w", err)
	}
	return s.repos.Orders.FindByID(order.ID)
}

// SyncActive refreshes the usage snapshot of every ACTIVE order.
func (s *OrderService) SyncActive(ctx context.Context) (int, error) {
	var afterID uint
	synced := 0
	for {
		orders, err := s.repos.Orders.FindActive(afterID, syncBatchSize)
		if err != nil {
			return synced, fmt.Errorf("load active orders: %w", err)
		}
		for _, o := range orders {
			if err := ctx.Err(); err != nil {
				return synced, err
			}
			afterID = o.ID
			account, err := s.panel.GetUser(ctx, o.MarzbanUsername)
			if err != nil {
				s.logger.Warn("usage sync failed", zap.Uint("order_id", o.ID), zap.String("username", o.MarzbanUsername), zap.Error(err))
				continue
			}
			if err := s.repos.Orders.UpdateUsage(o.ID, account.UsedTraffic, s.now().UTC()); err != nil {
				return synced, fmt.Errorf("store usage: %w", err)
			}
			synced++
		}
		if len(orders) < syncBatchSize {
			return synced, nil
		}
	}
}

// EnforceNegativeCredit disables the ACTIVE orders of agents whose wallet
// has been negative for longer than grace.
func (s *OrderService) EnforceNegativeCredit(ctx context.Context, grace time.Duration) (int, error) {
	wallets, err := s.repos.Wallets.FindNegativeAgentsSince(s.now().UTC().Add(-grace))
	if err != nil {
		return 0, fmt.Errorf("load negative wallets: %w", err)
	}
	disabled := 0
	for _, w := range wallets {
		n, err := s.disableOwnerOrders(ctx, w.OwnerID)
		disabled += n
		if err != nil {
			s.logger.Error("negative credit enforcement", zap.Uint("owner_id", w.OwnerID), zap.Error(err))
		}
	}
	return disabled, nil
}

func (s *OrderService) disableOwnerOrders(ctx context.Context, ownerID uint) (int, error) {
	unlock, err := s.ledger.LockOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	// The wallet may have been topped up since it was listed.
	w, err := s.ledger.Wallet(ownerID)
	if err != nil || !w.IsNegative() {
		return 0, err
	}
	orders, err := s.repos.Orders.FindActiveByOwner(ownerID)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range orders {
		if err := s.disableLocked(ctx, &orders[i], Ref{Notes: "wallet negative past grace period"}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Get returns an order the caller may see.
func (s *OrderService) Get(sess *auth.Session, id uint) (*models.Order, error) {
	order, err := s.repos.Orders.FindByID(id)
	if err != nil {
		return nil, notFound(err, "order")
	}
	if !sess.IsAdmin() && !order.IsOwnedBy(sess.UserID) {
		return nil, ErrForbidden
	}
	return order, nil
}

// List is the admin view over every order.
func (s *OrderService) List(status models.OrderStatus, limit, page int) ([]models.Order, int64, error) {
	return s.repos.Orders.FindAll(limit, page, status, 0)
}

// ListMine returns the caller's orders.
func (s *OrderService) ListMine(sess *auth.Session, limit, page int) ([]models.Order, int64, error) {
	if limit > maxMyOrdersPage {
		limit = maxMyOrdersPage
	}
	return s.repos.Orders.FindAll(limit, page, "", sess.UserID)
}

// CheckUsername reports whether username can be used for a new order.
func (s *OrderService) CheckUsername(ctx context.Context, username string) (bool, error) {
	if !utils.ValidUsername(username) {
		return false, validation("username must be 3-32 letters, digits or underscores")
	}
	err := s.checkUsername(ctx, username)
	if errors.Is(err, ErrUsernameTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AccountInfo returns the live gateway view of an account the caller owns.
func (s *OrderService) AccountInfo(ctx context.Context, sess *auth.Session, username string) (*panel.PanelUser, error) {
	if !sess.IsAdmin() {
		order, err := s.repos.Orders.FindByUsername(username)
		if err != nil {
			return nil, notFound(err, "order")
		}
		if !order.IsOwnedBy(sess.UserID) {
			return nil, ErrForbidden
		}
	}
	account, err := s.panel.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, panel.ErrUserNotFound) {
			return nil, fmt.Errorf("gateway account %w", ErrNotFound)
		}
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}
	return account, nil
}

// GatewayHealth reports the gateway's system stats.
func (s *OrderService) GatewayHealth(ctx context.Context) (map[string]interface{}, error) {
	stats, err := s.panel.GetSystemStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvisioning, err)
	}
	return stats, nil
}
