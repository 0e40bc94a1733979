// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fourcolor/internal/auth"
	"github.com/jason-s-yu/fourcolor/internal/cache"
	"github.com/jason-s-yu/fourcolor/internal/database"
	"github.com/jason-s-yu/fourcolor/internal/game"
	"github.com/jason-s-yu/fourcolor/internal/handlers"
	"github.com/jason-s-yu/fourcolor/internal/notify"
	"github.com/jason-s-yu/fourcolor/internal/table"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsed, err := logrus.ParseLevel(lvl)
		if err != nil {
			logger.Fatalf("bad LOG_LEVEL: %v", err)
		}
		logger.SetLevel(parsed)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := auth.Init(); err != nil {
		logger.Fatal(err)
	}

	cfg := table.Config{
		RuleName:        database.FourColorRuleName,
		Rule:            game.DefaultConfig(),
		ResponseTimeout: time.Duration(getEnvInt("RESPONSE_TIMEOUT_SEC", 30)) * time.Second,
	}
	if path := os.Getenv("RULES_FILE"); path != "" {
		rule, err := game.LoadConfigFile(path)
		if err != nil {
			logger.Fatal(err)
		}
		cfg.Rule = rule
		logger.WithField("file", path).Info("loaded rules file")
	}

	var opts []table.Option

	// Postgres is optional: without PG_HOST tables live in memory only.
	if os.Getenv("PG_HOST") != "" {
		if err := database.ConnectDB(ctx); err != nil {
			logger.Fatalf("failed to connect to database: %v", err)
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			logger.Fatal(err)
		}
		ruleID, err := loadRule(ctx, &cfg)
		if err != nil {
			logger.Fatal(err)
		}
		cfg.RuleID = ruleID
		opts = append(opts, table.WithStore(database.Store{}))
		logger.WithField("rule", ruleID).Info("connected to database")
	}

	if os.Getenv("REDIS_ADDR") != "" {
		if err := cache.ConnectRedis(); err != nil {
			logger.Fatal(err)
		}
		defer cache.Rdb.Close()
		q := cache.NewQueue(cache.Rdb, "")
		opts = append(opts, table.WithQueue(q))
		logger.WithField("queue", q.Name()).Info("publishing actions to historian queue")
	}

	var pub *notify.Publisher
	if os.Getenv("NATS_URL") != "" {
		var err error
		pub, err = notify.Connect(logger)
		if err != nil {
			logger.Fatal(err)
		}
		defer pub.Close()
		opts = append(opts, table.WithNotifier(pub))
		logger.Info("publishing state changes to NATS")
	}

	svc := table.NewService(cfg, logger, opts...)

	if pub != nil {
		unsubscribe, err := pub.SubscribeAbandoned(func(id uuid.UUID) {
			if err := svc.Abandon(id); err == nil {
				logger.WithField("table", id).Info("closed abandoned game")
			}
		})
		if err != nil {
			logger.Fatal(err)
		}
		defer unsubscribe()
	}
	ts := handlers.NewTableServer(svc, logger)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	server := &http.Server{Addr: addr, Handler: ts.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}()

	logger.Infof("Running on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
}

// loadRule seeds the built-in rule when missing. With no RULES_FILE the stored rule wins over the
// built-in default, so edits made in the database take effect.
func loadRule(ctx context.Context, cfg *table.Config) (uuid.UUID, error) {
	row, err := database.SeedFourColorRule(ctx, cfg.Rule)
	if err != nil {
		return uuid.Nil, err
	}
	if os.Getenv("RULES_FILE") == "" {
		rule, err := database.LoadRuleConfig(row)
		if err != nil {
			return uuid.Nil, err
		}
		cfg.Rule = rule
	}
	return row.ID, nil
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
