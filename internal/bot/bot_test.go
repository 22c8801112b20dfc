package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"radpanel/internal/config"
	"radpanel/internal/models"
	"radpanel/internal/panel/paneltest"
	"radpanel/internal/pkg/testdb"
	"radpanel/internal/pkg/upload"
	"radpanel/internal/repository"
	"radpanel/internal/service"
)

const testReviewer = 42

// fakeContext implements the handful of tele.Context methods the handlers use.
type fakeContext struct {
	tele.Context
	data string
	args []string
	sent []interface{}
}

func (c *fakeContext) Data() string   { return c.data }
func (c *fakeContext) Args() []string { return c.args }

func (c *fakeContext) Send(what interface{}, opts ...interface{}) error {
	c.sent = append(c.sent, what)
	return nil
}

func (c *fakeContext) texts() []string {
	var out []string
	for _, s := range c.sent {
		if str, ok := s.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

type sentMessage struct {
	to   tele.Recipient
	what interface{}
}

type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor func(what interface{}) bool
}

func (m *fakeMessenger) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor != nil && m.failFor(what) {
		return nil, errors.New("file upload failed")
	}
	m.sent = append(m.sent, sentMessage{to: to, what: what})
	return &tele.Message{}, nil
}

type botFixture struct {
	bot   *Bot
	svc   *service.Services
	repos *repository.Repos
	out   *fakeMessenger
}

func newBotFixture(t *testing.T, adminIDs ...int64) *botFixture {
	t.Helper()
	repos := repository.NewRepos(testdb.Open(t))
	svc := service.New(service.Deps{
		Repos:   repos,
		Panel:   paneltest.NewFake(),
		Uploads: upload.NewStore(t.TempDir(), 1<<20),
	})
	out := &fakeMessenger{}
	b := newBot(nil, config.BotConfig{AdminIDs: adminIDs}, svc, testReviewer, zap.NewNop())
	b.out = out
	return &botFixture{bot: b, svc: svc, repos: repos, out: out}
}

func (f *botFixture) pendingPayment(t *testing.T, username string, amount int64) *models.Payment {
	t.Helper()
	ctx := context.Background()
	agent, err := f.svc.Users.CreateAgent(ctx, models.AgentCreateRequest{
		Username: username, Password: "secret123", FirstName: "Test", LastName: "Agent",
	})
	require.NoError(t, err)
	method, err := f.svc.PaymentMethods.Create(models.PaymentMethodRequest{
		Type:   models.MethodCard,
		Alias:  "Main card",
		Config: []byte(`{"card_number":"6037991234567890","account_holder":"Shop Owner"}`),
	})
	require.NoError(t, err)

	receipt := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	p, err := f.svc.Payments.Upload(ctx, service.UploadInput{
		OwnerID: agent.ID, Amount: amount, MethodID: method.ID, Receipt: bytes.NewReader(receipt),
	})
	require.NoError(t, err)
	return p
}

func TestNew_WebhookModeNeedsURL(t *testing.T) {
	_, err := New(config.BotConfig{Token: "123:abc", UpdateMode: "webhook"}, nil, testReviewer, zap.NewNop())
	assert.ErrorContains(t, err, "BOT_WEBHOOK_URL")
}

func TestHandleApprove(t *testing.T) {
	f := newBotFixture(t)
	p := f.pendingPayment(t, "agent_one", 250000)

	c := &fakeContext{data: fmt.Sprint(p.ID)}
	require.NoError(t, f.bot.handleApprove(c))
	assert.Equal(t, []string{fmt.Sprintf("Payment #%d approved (250,000).", p.ID)}, c.texts())

	stored, err := f.repos.Payments.FindByID(p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentApproved, stored.Status)
	require.NotNil(t, stored.ReviewedBy)
	assert.EqualValues(t, testReviewer, *stored.ReviewedBy)

	t.Run("second tap reports already reviewed", func(t *testing.T) {
		c := &fakeContext{data: fmt.Sprint(p.ID)}
		require.NoError(t, f.bot.handleReject(c))
		assert.Contains(t, c.texts()[0], "already reviewed")
	})
}

func TestHandleReject_BadReferences(t *testing.T) {
	f := newBotFixture(t)

	c := &fakeContext{data: "not-a-number"}
	require.NoError(t, f.bot.handleReject(c))
	assert.Equal(t, []string{"Invalid payment reference."}, c.texts())

	c = &fakeContext{data: "999"}
	require.NoError(t, f.bot.handleReject(c))
	assert.Equal(t, []string{"Payment #999 does not exist."}, c.texts())
}

func TestHandlePending(t *testing.T) {
	f := newBotFixture(t)

	c := &fakeContext{}
	require.NoError(t, f.bot.handlePending(c))
	assert.Equal(t, []string{"✅ No receipts are waiting for review."}, c.texts())

	p := f.pendingPayment(t, "agent_two", 1000)
	c = &fakeContext{}
	require.NoError(t, f.bot.handlePending(c))
	texts := c.texts()
	require.Len(t, texts, 2)
	assert.Equal(t, "🧾 Pending receipts: 1 (page 1/1)", texts[0])
	assert.Contains(t, texts[1], fmt.Sprintf("Receipt #%d", p.ID))
	assert.Contains(t, texts[1], "agent_two (agent)")
	assert.Contains(t, texts[1], "Main card (CARD)")
}

func TestHandleOrder_Usage(t *testing.T) {
	f := newBotFixture(t)
	c := &fakeContext{}
	require.NoError(t, f.bot.handleOrder(c))
	assert.Contains(t, c.texts()[0], "Usage: /order")
}

func TestHandleStats(t *testing.T) {
	f := newBotFixture(t)
	f.pendingPayment(t, "agent_three", 500)

	c := &fakeContext{}
	require.NoError(t, f.bot.handleStats(c))
	require.Len(t, c.texts(), 1)
	assert.Contains(t, c.texts()[0], "Agents: <code>1</code>")
	assert.Contains(t, c.texts()[0], "Pending payments: <code>1</code>")
}

func TestSendReceipt(t *testing.T) {
	f := newBotFixture(t, 1001, 1002)
	p := &models.Payment{ID: 7, OwnerID: 3, Amount: 12000, ReceiptPath: "/tmp/receipt.png", CreatedAt: time.Now()}

	f.bot.sendReceipt(p, &models.User{Username: "agent<x>", Role: models.RoleAgent})

	require.Len(t, f.out.sent, 2)
	assert.Equal(t, "1001", f.out.sent[0].to.Recipient())
	photo, ok := f.out.sent[0].what.(*tele.Photo)
	require.True(t, ok)
	assert.Contains(t, photo.Caption, "agent&lt;x&gt;")
}

func TestSendReceipt_FallsBackToText(t *testing.T) {
	f := newBotFixture(t, 1001)
	f.out.failFor = func(what interface{}) bool {
		_, isString := what.(string)
		return !isString
	}
	p := &models.Payment{ID: 8, Amount: 500, ReceiptPath: "/tmp/receipt.pdf"}

	f.bot.sendReceipt(p, nil)

	require.Len(t, f.out.sent, 1)
	text, ok := f.out.sent[0].what.(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(text, "💵 <b>Receipt #8</b>"))
}

func TestPaymentUploaded_NoAdminsIsNoop(t *testing.T) {
	f := newBotFixture(t)
	f.bot.PaymentUploaded(context.Background(), &models.Payment{ID: 1}, nil)
	assert.Empty(t, f.out.sent)
}

func TestReceiptMedia(t *testing.T) {
	_, isPhoto := receiptMedia("a/b.JPG", "c").(*tele.Photo)
	assert.True(t, isPhoto)

	doc, isDoc := receiptMedia("a/b.pdf", "c").(*tele.Document)
	require.True(t, isDoc)
	assert.Equal(t, "b.pdf", doc.FileName)
}

func TestPendingPager(t *testing.T) {
	kb := &KeyboardBuilder{}
	assert.Nil(t, kb.PendingPager(1, 1))

	first := kb.PendingPager(1, 3)
	require.Len(t, first.InlineKeyboard, 1)
	require.Len(t, first.InlineKeyboard[0], 1)
	assert.Equal(t, "2", first.InlineKeyboard[0][0].Data)

	middle := kb.PendingPager(2, 3)
	assert.Len(t, middle.InlineKeyboard[0], 2)
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 1, pageCount(0, 10))
	assert.Equal(t, 1, pageCount(10, 10))
	assert.Equal(t, 2, pageCount(11, 10))
}
