// cmd/db/historian.go is an asynchronous historian service that pops accepted table actions from a
// Redis queue and persists them to the game_actions table in PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fourcolor/internal/cache"
	"github.com/jason-s-yu/fourcolor/internal/database"
	"github.com/jason-s-yu/fourcolor/internal/historian"
	"github.com/jason-s-yu/fourcolor/internal/notify"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.ConnectDB(ctx); err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		logger.Fatal(err)
	}

	if err := cache.ConnectRedis(); err != nil {
		logger.Fatal(err)
	}
	defer cache.Rdb.Close()

	hs := historian.New(historian.Config{
		BatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		Inactivity: time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
	}, cache.Rdb, database.InsertActions, logger, nil)
	hs.OnAbandon(database.MarkAbandoned)

	// Servers still holding an abandoned game in memory hear about it over NATS.
	if os.Getenv("NATS_URL") != "" {
		pub, err := notify.Connect(logger)
		if err != nil {
			logger.Fatal(err)
		}
		defer pub.Close()
		hs.OnAbandoned(func(ctx context.Context, ids []uuid.UUID) {
			if err := pub.PublishAbandoned(ctx, ids); err != nil {
				logger.Warn(err)
			}
		})
	}

	hs.Run(ctx)
	logger.Info("historian shutdown complete")
}

// getEnv retrieves an environment variable's value or returns a default.
func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

// getEnvInt retrieves an integer value from an environment variable or returns a default value.
func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
