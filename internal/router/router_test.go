package router_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"radpanel/internal/auth"
	"radpanel/internal/bootstrap"
	"radpanel/internal/config"
	"radpanel/internal/models"
	"radpanel/internal/notify"
	"radpanel/internal/panel/paneltest"
	"radpanel/internal/pkg/marker"
	"radpanel/internal/pkg/testdb"
	"radpanel/internal/pkg/upload"
	"radpanel/internal/repository"
	"radpanel/internal/router"
	"radpanel/internal/service"
)

type nopSender struct{}

func (nopSender) SendMessage(context.Context, string, string, string) (int64, error) { return 1, nil }

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	db := testdb.Open(t)
	hasher := auth.NewBCryptHasher(bcrypt.MinCost)
	require.NoError(t, bootstrap.MigrateAndSeed(db, config.AdminSeedConfig{Username: "root", Password: "rootpass1"}, hasher, zap.NewNop()))

	cfg := &config.Config{
		Server: config.ServerConfig{CORSOrigins: []string{"*"}, IdempotencyTTL: time.Minute},
		JWT:    config.JWTConfig{Secret: "test-secret", Expiry: time.Hour},
		Upload: config.UploadConfig{Dir: t.TempDir(), MaxSize: 1 << 20},
	}
	markers := marker.NewMemory()
	svc := service.New(service.Deps{
		Repos:   repository.NewRepos(db),
		Panel:   paneltest.NewFake(),
		Uploads: upload.NewStore(cfg.Upload.Dir, cfg.Upload.MaxSize),
		Hasher:  hasher,
		Tokens:  auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiry),
		Revoker: marker.Revoker{Store: markers},
	})

	e := echo.New()
	router.Setup(e, router.Deps{
		Config:   cfg,
		Services: svc,
		Relay:    notify.NewRelay(nopSender{}, "1", zap.NewNop()),
		Markers:  markers,
		Logger:   zap.NewNop(),
	})
	return e
}

func do(e *echo.Echo, method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo, username, password string) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/api/auth/login", "", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Obj struct {
			AccessToken string `json:"access_token"`
		} `json:"obj"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Obj.AccessToken)
	return resp.Obj.AccessToken
}

func TestRouter_Health(t *testing.T) {
	e := newServer(t)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/health", "", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/health", "", "").Code)
}

func TestRouter_Policy(t *testing.T) {
	e := newServer(t)

	rec := do(e, http.MethodGet, "/api/plans", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodPost, "/api/auth/register", "", `{"username":"buyer_1","password":"buyerpass1"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	token := login(t, e, "buyer_1", "buyerpass1")
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/me/wallet", token, "").Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/api/admin/agents", token, "").Code)

	var resp models.APIResponse
	rec = do(e, http.MethodPost, "/api/auth/login", "", `{"username":"buyer_1","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Status)
}

func TestRouter_AdminPlanWithIdempotencyKey(t *testing.T) {
	e := newServer(t)
	token := login(t, e, "root", "rootpass1")
	body := `{"name":"Monthly","days":30,"data_limit_gb":50,"price_public":100000,"price_agent":80000}`

	rec := do(e, http.MethodPost, "/api/admin/plans", token, body, "Idempotency-Key", "plan-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(e, http.MethodPost, "/api/admin/plans", token, body, "Idempotency-Key", "plan-1")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(e, http.MethodGet, "/api/plans", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Monthly")
}

func TestRouter_AdminOrderRetryAfterFailure(t *testing.T) {
	e := newServer(t)
	token := login(t, e, "root", "rootpass1")

	rec := do(e, http.MethodPost, "/api/admin/plans", token,
		`{"name":"Monthly","days":30,"data_limit_gb":50,"price_public":100000,"price_agent":80000}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Obj struct {
			ID uint `json:"id"`
		} `json:"obj"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(e, http.MethodPost, "/api/orders", token,
		`{"plan_id":9999,"marzban_username":"office_vpn","alias":"Office","on_hold":true}`,
		"Idempotency-Key", "order-1")
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	body := fmt.Sprintf(`{"plan_id":%d,"marzban_username":"office_vpn","alias":"Office","on_hold":true}`, created.Obj.ID)
	rec = do(e, http.MethodPost, "/api/orders", token, body, "Idempotency-Key", "order-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"alias":"Office"`)

	rec = do(e, http.MethodPost, "/api/orders", token, body, "Idempotency-Key", "order-1")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_NotifyRelay(t *testing.T) {
	e := newServer(t)

	rec := do(e, http.MethodPost, "/notify", "", `{"data":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/api/notify", "", `{"type":"error","data":{"task_id":"T1","error":"boom"}}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
