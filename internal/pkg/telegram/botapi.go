package telegram

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const defaultAPIBase = "https://api.telegram.org"

// BotAPI is a minimal Telegram Bot API client for outbound notifications.
type BotAPI struct {
	token  string
	client *resty.Client
}

// NewBotAPI creates a client for token. apiBase overrides the Telegram host when non-empty.
func NewBotAPI(token, apiBase string) *BotAPI {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &BotAPI{
		token:  token,
		client: resty.New().SetBaseURL(apiBase + "/bot" + token),
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// Call makes a raw API call and returns the result field.
func (b *BotAPI) Call(ctx context.Context, method string, params map[string]interface{}) (json.RawMessage, error) {
	var out apiResponse
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(params).
		SetResult(&out).
		SetError(&out).
		Post("/" + method)
	if err != nil {
		return nil, fmt.Errorf("telegram API call %s failed: %w", method, err)
	}
	if !out.OK {
		if out.Description == "" {
			out.Description = resp.Status()
		}
		return nil, fmt.Errorf("telegram API call %s: %s", method, out.Description)
	}
	return out.Result, nil
}

// SendMessage sends a text message and returns its message_id.
func (b *BotAPI) SendMessage(ctx context.Context, chatID, text, parseMode string) (int64, error) {
	params := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if parseMode != "" {
		params["parse_mode"] = parseMode
	}

	raw, err := b.Call(ctx, "sendMessage", params)
	if err != nil {
		return 0, err
	}
	var msg struct {
		MessageID int64 `json:"message_id"`
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return 0, fmt.Errorf("decode sendMessage result: %w", err)
	}
	return msg.MessageID, nil
}
