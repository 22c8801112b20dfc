package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"radpanel/internal/auth"
	"radpanel/internal/bootstrap"
	"radpanel/internal/bot"
	"radpanel/internal/config"
	cronpkg "radpanel/internal/cron"
	"radpanel/internal/metrics"
	"radpanel/internal/models"
	"radpanel/internal/notify"
	"radpanel/internal/panel"
	"radpanel/internal/pkg/lock"
	"radpanel/internal/pkg/marker"
	"radpanel/internal/pkg/telegram"
	"radpanel/internal/pkg/upload"
	"radpanel/internal/repository"
	"radpanel/internal/router"
	"radpanel/internal/service"
)

func main() {
	// --- Logger ---
	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if hasArg("--bootstrap-db") {
		if err := runDBBootstrap(logger); err != nil {
			logger.Fatal("Database bootstrap failed", zap.Error(err))
		}
		logger.Info("Database bootstrap completed")
		return
	}

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// --- Database ---
	db, err := config.NewDatabase(&cfg.Database, cfg.Server.Debug)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	hasher := auth.NewBCryptHasher(0)
	if err := bootstrap.MigrateAndSeed(db, cfg.Admin, hasher, logger); err != nil {
		logger.Fatal("Failed to bootstrap database schema", zap.Error(err))
	}
	repos := repository.NewRepos(db)

	// --- Redis (in-memory fallback) ---
	locker := lock.NewMemory()
	markers := marker.NewMemory()
	rdb, err := config.NewRedis(cfg.Redis)
	switch {
	case err != nil:
		logger.Warn("Redis unavailable, using in-memory locks and markers", zap.Error(err))
	case rdb == nil:
		logger.Info("REDIS_ADDR not set, using in-memory locks and markers")
	default:
		defer rdb.Close()
		locker = lock.New(rdb)
		markers = marker.New(rdb, "radpanel:")
	}

	// --- Provisioning gateway ---
	gateway, err := panel.PanelFactory(cfg.Panel)
	if err != nil {
		logger.Fatal("Failed to create panel client", zap.Error(err))
	}

	// --- Services ---
	// The admin bot and the services reference each other, so svc is
	// filled in place once the bot exists.
	svc := new(service.Services)
	var notifier service.Notifier
	var teleBot *bot.Bot
	if cfg.Bot.Token != "" {
		teleBot, err = bot.New(cfg.Bot, svc, reviewerID(repos, cfg.Admin.Username, logger), logger)
		if err != nil {
			logger.Fatal("Failed to create bot", zap.Error(err))
		}
		notifier = teleBot
	} else {
		logger.Info("BOT_TOKEN not set, admin bot disabled")
	}
	*svc = *service.New(service.Deps{
		Repos:    repos,
		Locker:   locker,
		Panel:    panel.NewInstrumented(gateway),
		Uploads:  upload.NewStore(cfg.Upload.Dir, cfg.Upload.MaxSize),
		Hasher:   hasher,
		Tokens:   auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiry),
		Revoker:  marker.Revoker{Store: markers},
		Notifier: notifier,
		Logger:   logger,
	})

	// --- Notify relay ---
	events, closeEvents, err := notify.NewEventLog(cfg.Notify.LogFile)
	if err != nil {
		logger.Warn("Notification log unavailable", zap.String("path", cfg.Notify.LogFile), zap.Error(err))
		events, closeEvents = zap.NewNop(), func() {}
	}
	defer closeEvents()
	relay := notify.NewRelay(telegram.NewBotAPI(cfg.Notify.BotToken, ""), cfg.Notify.ChatID, events)

	// --- Routes ---
	metrics.MustRegister()
	e := echo.New()
	e.HideBanner = true
	deps := router.Deps{
		Config:   cfg,
		Services: svc,
		Relay:    relay,
		Markers:  markers,
		Logger:   logger,
	}
	if teleBot != nil {
		deps.WebhookHandler = teleBot.WebhookHandler()
	}
	router.Setup(e, deps)

	// --- Cron Scheduler ---
	scheduler := cronpkg.New(cfg, svc, repos.JobRuns, logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start cron scheduler", zap.Error(err))
	}

	// --- Start Server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		logger.Info("Starting server", zap.String("name", cfg.Server.Name), zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	if teleBot != nil {
		go teleBot.Start()
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	if teleBot != nil {
		teleBot.Stop()
	}

	ctx := scheduler.Stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("APP_DEBUG") == "true" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func hasArg(name string) bool {
	for _, arg := range os.Args[1:] {
		if arg == name {
			return true
		}
	}
	return false
}

// reviewerID picks the admin account that bot approvals are recorded
// under: the configured admin, else the first admin found.
func reviewerID(repos *repository.Repos, username string, logger *zap.Logger) uint {
	if username != "" {
		if u, err := repos.Users.FindByUsername(username); err == nil && u.Role == models.RoleAdmin {
			return u.ID
		}
	}
	admins, _, err := repos.Users.FindAll(1, 1, models.RoleAdmin, "", "")
	if err != nil || len(admins) == 0 {
		logger.Warn("No admin account found for bot reviews")
		return 0
	}
	return admins[0].ID
}

func runDBBootstrap(logger *zap.Logger) error {
	dbCfg, admin, err := config.LoadDatabaseOnly()
	if err != nil {
		return err
	}
	db, err := config.NewDatabase(dbCfg, false)
	if err != nil {
		return err
	}
	if err := bootstrap.MigrateAndSeed(db, *admin, auth.NewBCryptHasher(0), logger); err != nil {
		return err
	}
	logger.Info("Schema migration and admin seed completed")
	return nil
}
