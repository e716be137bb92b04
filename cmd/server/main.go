package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-hopeforjob-automation/internal/ai"
	"go-hopeforjob-automation/internal/api"
	"go-hopeforjob-automation/internal/automator"
	"go-hopeforjob-automation/internal/automator/platforms"
	"go-hopeforjob-automation/internal/browser"
	"go-hopeforjob-automation/internal/config"
	"go-hopeforjob-automation/internal/notify"
	"go-hopeforjob-automation/internal/orchestrator"
	"go-hopeforjob-automation/internal/queue"
	"go-hopeforjob-automation/internal/secrets"
	"go-hopeforjob-automation/internal/store/postgres"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("❌ Failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	log := logrus.NewEntry(logger)
	log.Info("🔧 Config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := postgres.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect database: %v", err)
	}
	defer repo.Close()
	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("❌ Failed to migrate database: %v", err)
	}

	var decrypter secrets.Decrypter = secrets.Plaintext{}
	if cfg.SecretsKey != "" {
		box, err := secrets.NewBox(cfg.SecretsKey)
		if err != nil {
			log.Fatalf("❌ Invalid secrets key: %v", err)
		}
		decrypter = box
	} else {
		log.Warn("⚠️ No secrets key configured, credentials are read as plaintext")
	}

	var uploader browser.Uploader
	if cfg.S3.Bucket != "" {
		s3u, err := browser.NewS3Uploader(cfg.S3.Bucket, cfg.S3.Region)
		if err != nil {
			log.Fatalf("❌ Failed to init S3 uploader: %v", err)
		}
		uploader = s3u
		log.Infof("🪣 Screenshots upload to s3://%s", cfg.S3.Bucket)
	}
	shots := browser.NewScreenshots(cfg.Browser.ScreenshotDir, uploader, log)

	manager, err := browser.NewManager(cfg.Browser, shots, log)
	if err != nil {
		log.Fatalf("❌ Failed to init Playwright: %v", err)
	}
	defer manager.Close()

	deps := automator.Deps{
		Secrets:  decrypter,
		Log:      log,
		Pacing:   browser.PacingFromConfig(cfg.Pacing),
		Timeouts: browser.TimeoutsFromConfig(cfg.Automation),
		Limits:   automator.Limits{MaxSteps: cfg.Automation.MaxSteps, MaxPages: cfg.Automation.MaxPages},
	}
	if cfg.AI.Enabled {
		deps.Resolver = ai.NewOpenAIResolver(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Model, log)
		log.Infof("🤖 AI field resolver enabled (%s)", cfg.AI.Model)
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Telegram.Token != "" {
		bot, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log)
		if err != nil {
			log.Warnf("⚠️ Telegram disabled: %v", err)
		} else {
			notifier = bot
			log.Info("🤖 Telegram Bot initialized.")
		}
	}

	orch := orchestrator.New(repo, manager, platforms.Registry(), deps, notifier, orchestrator.Options{
		ApplyDelay: cfg.Automation.ApplyDelay(),
		Retention:  cfg.Automation.Retention(),
	}, log)

	q := queue.New(queue.Config{
		Workers:     cfg.Workers.Count,
		QueueSize:   cfg.Workers.QueueSize,
		TaskTimeout: cfg.Workers.TaskTimeout(),
		Log:         log,
	})
	orch.RegisterHandlers(q)
	// tasks outlive the signal until Shutdown's drain window expires
	q.Start(context.Background())

	if cfg.Automation.CleanupSchedule != "" {
		c, err := orch.ScheduleCleanup(cfg.Automation.CleanupSchedule)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		defer c.Stop()
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	api.NewHandler(orch, repo, log).Register(r)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		log.Infof("🚀 Server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("⚠️ HTTP server shutdown")
	}
	if err := q.Shutdown(cfg.Workers.ShutdownTimeout()); err != nil {
		log.WithError(err).Warn("⚠️ Worker pool did not drain in time")
	}
	log.Info("🏁 Server stopped.")
}
