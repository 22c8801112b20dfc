package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendMessage(ctx context.Context, chatID, text, parseMode string) (int64, error) {
	args := m.Called(ctx, chatID, text, parseMode)
	return args.Get(0).(int64), args.Error(1)
}

func TestFormat(t *testing.T) {
	msg := Format("task_complete", map[string]interface{}{
		"task_id": "T-12", "title": "Wallet ledger", "model": "m1", "time": "14m",
	})
	assert.Equal(t, "✅ *Task Complete*\n\nTask: `T-12`\nTitle: Wallet ledger\nModel: m1\nTime: 14m\nStatus: Completed ✅", msg)

	msg = Format("budget_warning", map[string]interface{}{"spent": 12.5, "budget": float64(20), "remaining": 7.5, "tasks_remaining": float64(3)})
	assert.Contains(t, msg, "Spent: $12.5 of $20\nRemaining: $7.5\nTasks left: 3")

	msg = Format("help_needed", map[string]interface{}{"issue": "which bank?"})
	assert.Equal(t, "🆘 *Need Help*\n\nTask: ``\nIssue: which bank?\n\nWaiting for your decision", msg)

	msg = Format("deploy", map[string]interface{}{"env": "prod"})
	assert.True(t, strings.HasPrefix(msg, "📋 *Notification*\n\n{"))
	assert.Contains(t, msg, `"env": "prod"`)
}

func TestRelay_Notify(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "notifications.log")
	events, closeLog, err := NewEventLog(logPath)
	require.NoError(t, err)
	defer closeLog()

	sender := &mockSender{}
	sender.On("SendMessage", mock.Anything, "-100200", mock.MatchedBy(func(text string) bool {
		return strings.HasPrefix(text, "🔄 *Task Started*")
	}), "Markdown").Return(int64(77), nil).Once()
	sender.On("SendMessage", mock.Anything, "-100200", mock.Anything, "Markdown").
		Return(int64(0), errors.New("Bad Request: chat not found")).Once()

	relay := NewRelay(sender, "-100200", events)

	res := relay.Notify(context.Background(), "task_start", map[string]interface{}{"task_id": "T-1"})
	assert.Equal(t, Result{Success: true, MessageID: 77}, res)

	res = relay.Notify(context.Background(), "error", map[string]interface{}{"error": "boom"})
	assert.False(t, res.Success)
	assert.Equal(t, "Bad Request: chat not found", res.Error)

	sender.AssertExpectations(t)
	require.NoError(t, events.Sync())

	raw, err := os.ReadFile(logPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] SUCCESS: 🔄 \*Task Started\*`, lines[0])
	assert.Regexp(t, `^\[[^\]]+\] ERROR: Bad Request: chat not found$`, lines[1])
}

func TestRelay_NotConfigured(t *testing.T) {
	relay := NewRelay(nil, "", nil)
	res := relay.Setup(context.Background())
	assert.False(t, res.Success)
	assert.Equal(t, ErrNotConfigured.Error(), res.Error)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := strings.Repeat("ب", 80)
	p := preview(long)
	assert.LessOrEqual(t, len(p), 100)
	assert.True(t, strings.HasPrefix(long, p))
	assert.Equal(t, 50, len([]rune(p)))
}
