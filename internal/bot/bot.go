package bot

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"

	"radpanel/internal/auth"
	"radpanel/internal/config"
	"radpanel/internal/models"
	"radpanel/internal/service"
)

// messenger is the part of telebot used to push messages outside a handler.
type messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Bot is the admin-side Telegram bot: receipt alerts and quick review.
type Bot struct {
	tb         *tele.Bot
	webhook    *tele.Webhook
	useWebhook bool
	cfg        config.BotConfig
	svc        *service.Services
	reviewer   uint
	logger     *zap.Logger
	keyboard   *KeyboardBuilder
	out        messenger
}

// New creates and configures a new Bot instance. reviewer is the panel
// admin account that approvals made from Telegram are recorded under.
func New(cfg config.BotConfig, svc *service.Services, reviewer uint, logger *zap.Logger) (*Bot, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.UpdateMode))
	if mode == "" {
		mode = "auto"
	}

	useWebhook := true
	switch mode {
	case "polling":
		useWebhook = false
	case "webhook":
		useWebhook = true
	default: // auto
		useWebhook = strings.TrimSpace(cfg.WebhookURL) != ""
	}

	var poller tele.Poller
	var webhook *tele.Webhook
	if useWebhook {
		if strings.TrimSpace(cfg.WebhookURL) == "" {
			return nil, fmt.Errorf("BOT_WEBHOOK_URL is required when BOT_UPDATE_MODE=webhook")
		}
		webhook = &tele.Webhook{
			Listen:   "", // mounted on Echo instead of telebot's own server
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.WebhookURL},
		}
		poller = webhook
	} else {
		poller = &tele.LongPoller{Timeout: 10 * time.Second}
	}

	tb, err := tele.NewBot(tele.Settings{
		Token:     cfg.Token,
		Poller:    poller,
		ParseMode: tele.ModeHTML,
		OnError: func(err error, c tele.Context) {
			logger.Error("telebot error", zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telebot: %w", err)
	}

	b := newBot(tb, cfg, svc, reviewer, logger)
	b.webhook = webhook
	b.useWebhook = useWebhook
	b.registerHandlers()
	return b, nil
}

func newBot(tb *tele.Bot, cfg config.BotConfig, svc *service.Services, reviewer uint, logger *zap.Logger) *Bot {
	b := &Bot{
		tb:       tb,
		cfg:      cfg,
		svc:      svc,
		reviewer: reviewer,
		logger:   logger,
		keyboard: &KeyboardBuilder{},
	}
	if tb != nil {
		b.out = tb
	}
	return b
}

func (b *Bot) registerHandlers() {
	b.tb.Use(middleware.Recover(func(err error, c tele.Context) {
		b.logger.Error("bot handler panicked", zap.Error(err))
	}))
	// Only configured admin chats may talk to the bot.
	b.tb.Use(middleware.Whitelist(b.cfg.AdminIDs...))

	b.tb.Handle("/start", b.handleHelp)
	b.tb.Handle("/help", b.handleHelp)
	b.tb.Handle("/stats", b.handleStats)
	b.tb.Handle("/pending", b.handlePending)
	b.tb.Handle("/order", b.handleOrder)

	b.tb.Handle(&btnApprove, b.handleApprove, middleware.AutoRespond())
	b.tb.Handle(&btnReject, b.handleReject, middleware.AutoRespond())
	b.tb.Handle(&btnPendingPage, b.handlePendingPage, middleware.AutoRespond())
}

// adminSession is the identity bot commands act with.
func (b *Bot) adminSession() *auth.Session {
	return &auth.Session{UserID: b.reviewer, Username: "telegram", Role: models.RoleAdmin}
}

// WebhookHandler returns the webhook handler for mounting on Echo.
// Returns nil when running in long-polling mode.
func (b *Bot) WebhookHandler() http.Handler {
	if b.webhook == nil {
		return nil
	}
	return b.webhook
}

// Start begins polling/webhook processing. It blocks until Stop.
func (b *Bot) Start() {
	if b.useWebhook {
		b.logger.Info("Starting Telegram bot", zap.String("mode", "webhook"), zap.String("webhook_url", b.cfg.WebhookURL))
	} else {
		// Long polling requires webhook to be removed first.
		if err := b.tb.RemoveWebhook(true); err != nil {
			b.logger.Warn("Failed to remove webhook before long polling", zap.Error(err))
		}
		b.logger.Info("Starting Telegram bot", zap.String("mode", "polling"))
	}
	b.tb.Start()
}

// Stop gracefully shuts down the bot.
func (b *Bot) Stop() {
	b.tb.Stop()
}
