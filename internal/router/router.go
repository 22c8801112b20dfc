package router

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"radpanel/internal/auth"
	"radpanel/internal/config"
	"radpanel/internal/handler"
	"radpanel/internal/handler/api"
	"radpanel/internal/middleware"
	"radpanel/internal/notify"
	"radpanel/internal/pkg/marker"
	"radpanel/internal/service"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Config         *config.Config
	Services       *service.Services
	Relay          *notify.Relay
	Markers        marker.Store
	Logger         *zap.Logger
	WebhookHandler http.Handler
}

// Setup configures all routes for the Echo server.
func Setup(e *echo.Echo, d Deps) {
	cfg := d.Config
	logger := d.Logger
	svc := d.Services

	// Global middleware
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.CORS(cfg.Server.CORSOrigins))

	authHandler := api.NewAuthHandler(svc, cfg.JWT.CookieSecure, cfg.JWT.Expiry, logger)
	meHandler := api.NewMeHandler(svc, logger)
	planHandler := api.NewPlanHandler(svc, logger)
	methodHandler := api.NewPaymentMethodHandler(svc, logger)
	agentHandler := api.NewAgentHandler(svc, logger)
	paymentHandler := api.NewPaymentHandler(svc, logger)
	orderHandler := api.NewOrderHandler(svc, logger)
	reportHandler := api.NewReportHandler(svc, logger)
	notifyHandler := handler.NewNotifyHandler(d.Relay, logger)

	// Every /api route passes the session and role policy check.
	g := e.Group("/api")
	g.Use(middleware.Session(svc.Auth, auth.DefaultPolicy(), logger))
	g.Use(middleware.Idempotency(d.Markers, cfg.Server.IdempotencyTTL, logger))

	g.GET("/health", health)

	g.POST("/auth/login", authHandler.Login)
	g.POST("/auth/register", authHandler.Register)
	g.POST("/auth/logout", authHandler.Logout)
	g.GET("/auth/me", authHandler.Me)
	g.POST("/auth/change-password", authHandler.ChangePassword)

	g.GET("/me/profile", meHandler.Profile)
	g.PUT("/me/profile", meHandler.UpdateProfile)
	g.GET("/me/wallet", meHandler.Wallet)
	g.GET("/me/transactions", meHandler.Transactions)

	g.GET("/plans", planHandler.List)
	g.GET("/plans/:id", planHandler.Get)

	g.GET("/payment-methods", methodHandler.Public)

	g.POST("/payments/upload", paymentHandler.Upload)
	g.GET("/payments/my", paymentHandler.Mine)

	g.POST("/orders", orderHandler.Create)
	g.POST("/orders/self-service", orderHandler.SelfService)
	g.GET("/orders", orderHandler.List)
	g.GET("/orders/my", orderHandler.Mine)
	g.GET("/orders/:id", orderHandler.Get)
	g.DELETE("/orders/:id", orderHandler.Refund)

	g.GET("/marzban/check-username/:username", orderHandler.CheckUsername)
	g.GET("/marzban/user/:username", orderHandler.AccountInfo)
	g.POST("/marzban/sync/:username", orderHandler.Sync)
	g.GET("/marzban/health", orderHandler.Health)

	admin := g.Group("/admin")
	admin.GET("/agents", agentHandler.List)
	admin.POST("/agents", agentHandler.Create)
	admin.GET("/agents/:id", agentHandler.Get)
	admin.PUT("/agents/:id", agentHandler.Update)
	admin.DELETE("/agents/:id", agentHandler.Disable)
	admin.POST("/agents/:id/enable", agentHandler.Enable)
	admin.POST("/agents/:id/credit", agentHandler.Credit)
	admin.GET("/agents/:id/transactions", agentHandler.Transactions)

	admin.GET("/plans", planHandler.List)
	admin.POST("/plans", planHandler.Create)
	admin.PUT("/plans/:id", planHandler.Update)
	admin.DELETE("/plans/:id", planHandler.Delete)

	admin.GET("/payment-methods", methodHandler.List)
	admin.POST("/payment-methods", methodHandler.Create)
	admin.GET("/payment-methods/:id", methodHandler.Get)
	admin.PUT("/payment-methods/:id", methodHandler.Update)
	admin.DELETE("/payment-methods/:id", methodHandler.Delete)

	admin.GET("/payments", paymentHandler.List)
	admin.GET("/payments/pending", paymentHandler.Pending)
	admin.GET("/payments/:id", paymentHandler.Get)
	admin.POST("/payments/:id/approve", paymentHandler.Approve)
	admin.POST("/payments/:id/reject", paymentHandler.Reject)

	admin.POST("/orders/:id/disable", orderHandler.Disable)

	admin.GET("/reports/stats", reportHandler.Stats)
	admin.GET("/reports/export", reportHandler.Export)

	// Telegram relay, unauthenticated.
	for _, path := range []string{"/notify", "/api/notify"} {
		e.POST(path, notifyHandler.Send)
		e.GET(path, notifyHandler.Info)
	}

	// Admin bot webhook
	if d.WebhookHandler != nil {
		e.POST("/bot/webhook", echo.WrapHandler(d.WebhookHandler))
	} else {
		logger.Info("Telegram webhook route disabled (bot update mode is polling)")
	}

	e.Static("/uploads", cfg.Upload.Dir)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check
	e.GET("/health", health)
}

func health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
