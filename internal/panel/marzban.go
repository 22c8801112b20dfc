package panel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"radpanel/internal/pkg/httpclient"
)

const marzbanTokenTTL = 50 * time.Minute

// MarzbanClient implements PanelClient for Marzban panels.
type MarzbanClient struct {
	baseURL  string
	username string
	password string
	proxies  []string
	client   *httpclient.Client

	mu        sync.Mutex
	token     string
	tokenTime time.Time
}

// NewMarzbanClient creates a new Marzban panel client. proxies lists the
// protocols enabled on created accounts.
func NewMarzbanClient(baseURL, username, password string, proxies []string, client *httpclient.Client) *MarzbanClient {
	if client == nil {
		client = httpclient.New().WithTimeout(30 * time.Second)
	}
	if len(proxies) == 0 {
		proxies = []string{"vless"}
	}
	return &MarzbanClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		proxies:  proxies,
		client:   client,
	}
}

func (m *MarzbanClient) PanelType() string {
	return "marzban"
}

// Authenticate obtains a bearer token from the Marzban panel.
func (m *MarzbanClient) Authenticate(ctx context.Context) error {
	resp, err := m.client.PostForm(ctx, m.baseURL+"/api/admin/token", map[string]string{
		"username": m.username,
		"password": m.password,
	})
	if err != nil {
		return fmt.Errorf("marzban auth failed: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("marzban auth failed: status %d: %s", resp.StatusCode, detailOf(resp.Body))
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return fmt.Errorf("marzban auth parse error: %w", err)
	}
	if result.AccessToken == "" {
		return fmt.Errorf("marzban auth: no access_token in response")
	}

	m.mu.Lock()
	m.token = result.AccessToken
	m.tokenTime = time.Now()
	m.mu.Unlock()
	return nil
}

// bearer returns a valid token, re-authenticating when it is missing or old.
func (m *MarzbanClient) bearer(ctx context.Context) (string, error) {
	m.mu.Lock()
	token, issued := m.token, m.tokenTime
	m.mu.Unlock()

	if token != "" && time.Since(issued) < marzbanTokenTTL {
		return token, nil
	}
	if err := m.Authenticate(ctx); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// do sends an authenticated request, retrying once with a fresh token on 401.
func (m *MarzbanClient) do(ctx context.Context, method, path string, body interface{}) (*httpclient.Response, error) {
	token, err := m.bearer(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := m.client.Do(ctx, method, m.baseURL+path, body, httpclient.Bearer(token))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	if err := m.Authenticate(ctx); err != nil {
		return nil, err
	}
	token, err = m.bearer(ctx)
	if err != nil {
		return nil, err
	}
	return m.client.Do(ctx, method, m.baseURL+path, body, httpclient.Bearer(token))
}

type marzbanUser struct {
	Username        string   `json:"username"`
	Status          string   `json:"status"`
	DataLimit       *int64   `json:"data_limit"`
	UsedTraffic     int64    `json:"used_traffic"`
	Expire          *int64   `json:"expire"`
	SubscriptionURL string   `json:"subscription_url"`
	OnlineAt        *string  `json:"online_at"`
	Links           []string `json:"links"`
	Note            *string  `json:"note"`
}

func (u marzbanUser) toPanelUser() *PanelUser {
	out := &PanelUser{
		Username:    u.Username,
		Status:      u.Status,
		UsedTraffic: u.UsedTraffic,
		SubLink:     u.SubscriptionURL,
		Links:       u.Links,
	}
	if u.DataLimit != nil {
		out.DataLimit = *u.DataLimit
	}
	if u.Expire != nil {
		out.ExpireTime = *u.Expire
	}
	if u.OnlineAt != nil {
		out.OnlineAt = *u.OnlineAt
	}
	if u.Note != nil {
		out.Note = *u.Note
	}
	return out
}

func decodeUser(resp *httpclient.Response) (*PanelUser, error) {
	var raw marzbanUser
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, fmt.Errorf("marzban parse error: %w", err)
	}
	return raw.toPanelUser(), nil
}

func userPath(username string) string {
	return "/api/user/" + url.PathEscape(username)
}

func (m *MarzbanClient) GetUser(ctx context.Context, username string) (*PanelUser, error) {
	resp, err := m.do(ctx, http.MethodGet, userPath(username), nil)
	if err != nil {
		return nil, fmt.Errorf("marzban get user failed: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUserNotFound
	case !resp.OK():
		return nil, fmt.Errorf("marzban get user: status %d: %s", resp.StatusCode, detailOf(resp.Body))
	}
	return decodeUser(resp)
}

func (m *MarzbanClient) CreateUser(ctx context.Context, req CreateUserRequest) (*PanelUser, error) {
	proxies := make(map[string]interface{}, len(m.proxies))
	for _, p := range m.proxies {
		proxies[p] = map[string]interface{}{}
	}

	body := map[string]interface{}{
		"username":   req.Username,
		"status":     "active",
		"data_limit": req.DataLimit,
		"proxies":    proxies,
		"note":       req.Note,
	}
	switch {
	case req.OnHold:
		body["status"] = "on_hold"
		body["expire"] = 0
		body["on_hold_expire_duration"] = int64(req.HoldDuration / time.Second)
	case !req.ExpireAt.IsZero():
		body["expire"] = req.ExpireAt.Unix()
	}

	resp, err := m.do(ctx, http.MethodPost, "/api/user", body)
	if err != nil {
		return nil, fmt.Errorf("marzban create user failed: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusConflict:
		return nil, ErrUserExists
	case !resp.OK():
		return nil, fmt.Errorf("marzban create user error: status %d: %s", resp.StatusCode, detailOf(resp.Body))
	}
	return decodeUser(resp)
}

func (m *MarzbanClient) ModifyUser(ctx context.Context, username string, req ModifyUserRequest) (*PanelUser, error) {
	body := map[string]interface{}{}
	if req.Status != "" {
		body["status"] = req.Status
	}
	if req.DataLimit > 0 {
		body["data_limit"] = req.DataLimit
	}
	if req.ExpireTime > 0 {
		body["expire"] = req.ExpireTime
	}
	if req.Note != "" {
		body["note"] = req.Note
	}

	resp, err := m.do(ctx, http.MethodPut, userPath(username), body)
	if err != nil {
		return nil, fmt.Errorf("marzban modify user failed: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUserNotFound
	case !resp.OK():
		return nil, fmt.Errorf("marzban modify user: status %d: %s", resp.StatusCode, detailOf(resp.Body))
	}
	return decodeUser(resp)
}

func (m *MarzbanClient) DeleteUser(ctx context.Context, username string) error {
	resp, err := m.do(ctx, http.MethodDelete, userPath(username), nil)
	if err != nil {
		return fmt.Errorf("marzban delete user failed: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrUserNotFound
	case !resp.OK():
		return fmt.Errorf("marzban delete user: status %d: %s", resp.StatusCode, detailOf(resp.Body))
	}
	return nil
}

func (m *MarzbanClient) DisableUser(ctx context.Context, username string) error {
	_, err := m.ModifyUser(ctx, username, ModifyUserRequest{Status: "disabled"})
	return err
}

func (m *MarzbanClient) GetSystemStats(ctx context.Context) (map[string]interface{}, error) {
	resp, err := m.do(ctx, http.MethodGet, "/api/system", nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("marzban system stats: status %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// detailOf extracts Marzban's {"detail": ...} error message.
func detailOf(body []byte) string {
	var raw struct {
		Detail interface{} `json:"detail"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Detail == nil {
		return strings.TrimSpace(string(body))
	}
	if s, ok := raw.Detail.(string); ok {
		return s
	}
	b, _ := json.Marshal(raw.Detail)
	return string(b)
}
