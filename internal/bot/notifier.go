package bot

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"radpanel/internal/models"
)

// PaymentUploaded pushes a new receipt to every admin chat with review
// buttons. Delivery runs in the background and failures are only logged.
func (b *Bot) PaymentUploaded(_ context.Context, payment *models.Payment, owner *models.User) {
	if b.out == nil || len(b.cfg.AdminIDs) == 0 {
		return
	}
	p := *payment
	go b.sendReceipt(&p, owner)
}

func (b *Bot) sendReceipt(p *models.Payment, owner *models.User) {
	caption := formatPayment(p, owner)
	markup := b.keyboard.ReviewKeyboard(p.ID)

	for _, chatID := range b.cfg.AdminIDs {
		to := &tele.User{ID: chatID}
		_, err := b.out.Send(to, receiptMedia(p.ReceiptPath, caption), markup, tele.ModeHTML)
		if err != nil {
			b.logger.Warn("send receipt with file failed, falling back to text",
				zap.Int64("chat_id", chatID), zap.Uint("payment_id", p.ID), zap.Error(err))
			_, err = b.out.Send(to, caption, markup, tele.ModeHTML)
		}
		if err != nil {
			b.logger.Error("notify admin about payment",
				zap.Int64("chat_id", chatID), zap.Uint("payment_id", p.ID), zap.Error(err))
		}
	}
}

// receiptMedia picks a photo for images and a document for anything else.
func receiptMedia(path, caption string) tele.Sendable {
	file := tele.FromDisk(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return &tele.Photo{File: file, Caption: caption}
	default:
		return &tele.Document{File: file, Caption: caption, FileName: filepath.Base(path)}
	}
}
