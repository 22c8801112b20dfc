// Package notify relays build-agent notifications to a Telegram chat.
package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrNotConfigured is returned when no bot token or chat is set.
var ErrNotConfigured = errors.New("bot token or chat ID not configured")

const (
	parseMode    = "Markdown"
	sendTimeout  = 10 * time.Second
	logPreviewSz = 100
)

// Sender delivers a message to a chat and returns its message ID.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text, parseMode string) (int64, error)
}

// Result is what the relay endpoint answers with.
type Result struct {
	Success   bool   `json:"success"`
	MessageID int64  `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Relay formats notifications and forwards them. Every attempt is appended
// to the event log.
type Relay struct {
	sender Sender
	chatID string
	events *zap.Logger
	now    func() time.Time
}

// NewRelay builds a relay. A nil sender or empty chatID leaves it unconfigured.
func NewRelay(sender Sender, chatID string, events *zap.Logger) *Relay {
	if events == nil {
		events = zap.NewNop()
	}
	return &Relay{sender: sender, chatID: chatID, events: events, now: time.Now}
}

// Notify formats a typed notification and sends it.
func (r *Relay) Notify(ctx context.Context, typ string, data map[string]interface{}) Result {
	return r.send(ctx, Format(typ, data))
}

// Setup sends a test message to check the configuration.
func (r *Relay) Setup(ctx context.Context) Result {
	msg := "🔧 *Setup Test*\n\nTelegram notification system is working!\n\nTimestamp: " +
		r.now().Format("2006-01-02 15:04:05")
	return r.send(ctx, msg)
}

func (r *Relay) send(ctx context.Context, text string) Result {
	if r.sender == nil || r.chatID == "" {
		return Result{Error: ErrNotConfigured.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	id, err := r.sender.SendMessage(ctx, r.chatID, text, parseMode)
	if err != nil {
		r.events.Error("ERROR: " + oneLine(err.Error()))
		return Result{Error: err.Error()}
	}
	r.events.Info("SUCCESS: " + oneLine(preview(text)))
	return Result{Success: true, MessageID: id}
}

// preview cuts text to the first logPreviewSz bytes on a rune boundary.
func preview(text string) string {
	if len(text) <= logPreviewSz {
		return text
	}
	cut := logPreviewSz
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NewEventLog opens path for appending and returns a logger writing
// "[2006-01-02 15:04:05] MESSAGE" lines to it.
func NewEventLog(path string) (*zap.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	ws, closeFn, err := zap.Open(path)
	if err != nil {
		return nil, nil, err
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(eventEncoderConfig()), ws, zapcore.DebugLevel)
	return zap.New(core), closeFn, nil
}

func eventEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		ConsoleSeparator: " ",
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + t.Format("2006-01-02 15:04:05") + "]")
		},
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}
