package bot

import (
	"strconv"

	tele "gopkg.in/telebot.v3"
)

// Callback endpoints. The button payload carries the payment ID or page.
var (
	btnApprove     = tele.Btn{Unique: "approve"}
	btnReject      = tele.Btn{Unique: "reject"}
	btnPendingPage = tele.Btn{Unique: "pending_page"}
)

// KeyboardBuilder constructs the bot's inline keyboards.
type KeyboardBuilder struct{}

// ReviewKeyboard builds approve/reject buttons for one pending payment.
func (kb *KeyboardBuilder) ReviewKeyboard(paymentID uint) *tele.ReplyMarkup {
	id := strconv.FormatUint(uint64(paymentID), 10)
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(
			menu.Data("✅ Approve", btnApprove.Unique, id),
			menu.Data("❌ Reject", btnReject.Unique, id),
		),
	)
	return menu
}

// PendingPager builds previous/next buttons for the pending queue.
// It returns nil when everything fits on one page.
func (kb *KeyboardBuilder) PendingPager(page, totalPages int) *tele.ReplyMarkup {
	if totalPages <= 1 {
		return nil
	}
	menu := &tele.ReplyMarkup{}
	var row []tele.Btn
	if page > 1 {
		row = append(row, menu.Data("⬅️ Prev", btnPendingPage.Unique, strconv.Itoa(page-1)))
	}
	if page < totalPages {
		row = append(row, menu.Data("Next ➡️", btnPendingPage.Unique, strconv.Itoa(page+1)))
	}
	menu.Inline(menu.Row(row...))
	return menu
}
