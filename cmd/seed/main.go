package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/oggyb/movie-rating/internal/config"
	"github.com/oggyb/movie-rating/internal/db"
	"github.com/oggyb/movie-rating/internal/logger"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := config.New()
	logger.InitFromConfig(cfg)

	if err := seed(cfg); err != nil {
		logger.Error("seeding failed", "err", err)
		os.Exit(1)
	}
	logger.Info("seeding completed", "accounts", 6, "password", db.DemoPassword)
}

func seed(cfg *config.Config) error {
	database, err := db.NewDB(context.Background(), cfg, logger.L())
	if err != nil {
		return err
	}
	defer db.Close(database)

	return db.SeedTestData(database)
}
