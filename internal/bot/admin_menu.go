package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"radpanel/internal/models"
	"radpanel/internal/panel"
	"radpanel/internal/pkg/utils"
	"radpanel/internal/service"
)

const (
	pendingPageSize = 10
	commandTimeout  = 30 * time.Second
	reviewNote      = "reviewed from Telegram"
)

const helpText = "🤖 <b>RAD Panel admin bot</b>\n\n" +
	"/stats - panel statistics\n" +
	"/pending - receipts waiting for review\n" +
	"/order &lt;username&gt; - live account info from the gateway"

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Send(helpText, tele.ModeHTML)
}

func (b *Bot) handleStats(c tele.Context) error {
	stats, err := b.svc.Reports.Stats()
	if err != nil {
		b.logger.Error("bot stats", zap.Error(err))
		return c.Send("Could not load statistics.")
	}
	return c.Send(formatStats(stats, time.Now()), tele.ModeHTML)
}

func (b *Bot) handlePending(c tele.Context) error {
	return b.sendPendingPage(c, 1)
}

func (b *Bot) handlePendingPage(c tele.Context) error {
	page, err := strconv.Atoi(c.Data())
	if err != nil || page < 1 {
		page = 1
	}
	return b.sendPendingPage(c, page)
}

func (b *Bot) sendPendingPage(c tele.Context, page int) error {
	payments, total, err := b.svc.Payments.List(models.PaymentPending, pendingPageSize, page)
	if err != nil {
		b.logger.Error("bot pending payments", zap.Error(err))
		return c.Send("Could not load pending payments.")
	}
	if total == 0 {
		return c.Send("✅ No receipts are waiting for review.")
	}

	pages := pageCount(total, pendingPageSize)
	if err := c.Send(fmt.Sprintf("🧾 Pending receipts: %d (page %d/%d)", total, page, pages)); err != nil {
		return err
	}
	for i := range payments {
		p := &payments[i]
		if err := c.Send(formatPayment(p, p.Owner), b.keyboard.ReviewKeyboard(p.ID), tele.ModeHTML); err != nil {
			return err
		}
	}
	if pager := b.keyboard.PendingPager(page, pages); pager != nil {
		return c.Send("More receipts:", pager)
	}
	return nil
}

func (b *Bot) handleOrder(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return c.Send("Usage: /order &lt;username&gt;", tele.ModeHTML)
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	info, err := b.svc.Orders.AccountInfo(ctx, b.adminSession(), args[0])
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return c.Send(fmt.Sprintf("No account named <code>%s</code>.", html.EscapeString(args[0])), tele.ModeHTML)
		}
		b.logger.Warn("bot account info", zap.String("username", args[0]), zap.Error(err))
		return c.Send("Could not reach the VPN gateway.")
	}
	return c.Send(formatAccount(info), tele.ModeHTML)
}

func (b *Bot) handleApprove(c tele.Context) error {
	return b.review(c, "approved", b.svc.Payments.Approve)
}

func (b *Bot) handleReject(c tele.Context) error {
	return b.review(c, "rejected", b.svc.Payments.Reject)
}

type reviewFunc func(ctx context.Context, paymentID, reviewerID uint, notes string) (*models.Payment, error)

func (b *Bot) review(c tele.Context, verb string, fn reviewFunc) error {
	id, err := strconv.ParseUint(c.Data(), 10, 64)
	if err != nil {
		return c.Send("Invalid payment reference.")
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	payment, err := fn(ctx, uint(id), b.reviewer, reviewNote)
	switch {
	case err == nil:
		b.logger.Info("payment reviewed from bot", zap.Uint64("payment_id", id), zap.String("result", verb))
		return c.Send(fmt.Sprintf("Payment #%d %s (%s).", payment.ID, verb, utils.FormatNumber(payment.Amount)))
	case errors.Is(err, service.ErrPaymentNotPending):
		return c.Send(fmt.Sprintf("Payment #%d was already reviewed.", id))
	case errors.Is(err, service.ErrNotFound):
		return c.Send(fmt.Sprintf("Payment #%d does not exist.", id))
	default:
		b.logger.Error("bot payment review", zap.Uint64("payment_id", id), zap.Error(err))
		return c.Send(fmt.Sprintf("Could not review payment #%d.", id))
	}
}

func formatStats(s *models.Stats, at time.Time) string {
	return fmt.Sprintf(
		"📊 <b>Panel statistics</b>\n\n"+
			"👥 Agents: <code>%d</code>\n"+
			"✅ Active orders: <code>%d</code>\n"+
			"⏳ Pending payments: <code>%d</code>\n"+
			"💵 Approved revenue: <code>%s</code>\n"+
			"🕒 Report time: <code>%s</code>",
		s.TotalAgents,
		s.ActiveOrders,
		s.PendingPayments,
		utils.FormatNumber(s.TotalRevenue),
		at.Format(time.DateTime),
	)
}

// formatPayment renders a receipt card. owner may be nil.
func formatPayment(p *models.Payment, owner *models.User) string {
	who := fmt.Sprintf("#%d", p.OwnerID)
	if owner != nil {
		who = fmt.Sprintf("%s (%s)", html.EscapeString(owner.Username), strings.ToLower(string(owner.Role)))
	}
	method := fmt.Sprintf("#%d", p.PaymentMethodID)
	if p.PaymentMethod != nil {
		method = fmt.Sprintf("%s (%s)", html.EscapeString(p.PaymentMethod.Alias), p.PaymentMethod.Type)
	}
	return fmt.Sprintf(
		"💵 <b>Receipt #%d</b>\n\n"+
			"👤 From: %s\n"+
			"💳 Method: %s\n"+
			"💰 Amount: <code>%s</code>\n"+
			"🕒 Uploaded: <code>%s</code>",
		p.ID,
		who,
		method,
		utils.FormatNumber(p.Amount),
		p.CreatedAt.Format(time.DateTime),
	)
}

func formatAccount(u *panel.PanelUser) string {
	limit := "unlimited"
	if u.DataLimit > 0 {
		limit = utils.FormatBytes(u.DataLimit)
	}
	expires := "never"
	if u.ExpireTime > 0 {
		expires = time.Unix(u.ExpireTime, 0).UTC().Format(time.DateTime)
	}
	text := fmt.Sprintf(
		"👤 <b>%s</b>\n\n"+
			"Status: <code>%s</code>\n"+
			"Traffic: <code>%s</code> / <code>%s</code>\n"+
			"Expires: <code>%s</code>",
		html.EscapeString(u.Username),
		html.EscapeString(u.Status),
		utils.FormatBytes(u.UsedTraffic),
		limit,
		expires,
	)
	if u.SubLink != "" {
		text += fmt.Sprintf("\nSubscription: <code>%s</code>", html.EscapeString(u.SubLink))
	}
	return text
}

func pageCount(total int64, size int) int {
	pages := int((total + int64(size) - 1) / int64(size))
	if pages == 0 {
		pages = 1
	}
	return pages
}
