package main

import (
	"context"
	"time"

	"go-hopeforjob-automation/internal/config"
	"go-hopeforjob-automation/internal/store/postgres"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("❌ Failed to load config: %v", err)
	}
	log := logrus.NewEntry(config.NewLogger(cfg.LogLevel, cfg.LogFormat))
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is not set. Please check your .env file.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Info("Attempting to connect to PostgreSQL...")
	repo, err := postgres.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to the database: %v", err)
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Info("✅ Schema is up to date")
}
