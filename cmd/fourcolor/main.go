// cmd/fourcolor/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jason-s-yu/fourcolor/internal/database"
	"github.com/jason-s-yu/fourcolor/internal/game"
	"github.com/jason-s-yu/fourcolor/internal/notify"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var cli struct {
	Debug bool `help:"enable debug logging"`

	Deal  DealCmd  `cmd:"" help:"deal a game and print the initial state as JSON"`
	Rules RulesCmd `cmd:"" help:"validate a rules file and print it"`
	Seed  SeedCmd  `cmd:"" help:"write the Four Color Card rule into Postgres"`
	Watch WatchCmd `cmd:"" help:"print table state changes published on NATS"`
}

// loadRules reads path, or returns the built-in rule when path is empty.
func loadRules(path string) (game.GameConfig, error) {
	if path == "" {
		return game.DefaultConfig(), nil
	}
	return game.LoadConfigFile(path)
}

type DealCmd struct {
	Rules   string   `help:"rules file (.yaml or .json); built-in rule when empty" type:"existingfile"`
	Players []string `help:"seat order" default:"east,south,west,north"`
	Seed    int64    `help:"random seed; 0 uses time seed" default:"0"`
}

func (c *DealCmd) Run(out io.Writer) error {
	cfg, err := loadRules(c.Rules)
	if err != nil {
		return err
	}
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	state, err := game.InitializeGame(cfg, c.Players, rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

type RulesCmd struct {
	Rules  string `help:"rules file (.yaml or .json); built-in rule when empty" type:"existingfile"`
	Format string `help:"output format" enum:"yaml,json" default:"yaml"`
}

func (c *RulesCmd) Run(out io.Writer) error {
	cfg, err := loadRules(c.Rules)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if c.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "# deck size: %d\n", cfg.DeckSize())
	return err
}

type SeedCmd struct {
	Rules string `help:"rules file to seed instead of the built-in rule" type:"existingfile"`
}

func (c *SeedCmd) Run(ctx context.Context, logger *logrus.Logger) error {
	cfg, err := loadRules(c.Rules)
	if err != nil {
		return err
	}
	if err := database.ConnectDB(ctx); err != nil {
		return err
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}
	row, err := database.SeedFourColorRule(ctx, cfg)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"id": row.ID, "name": row.Name}).Info("rule ready")
	return nil
}

type WatchCmd struct{}

func (c *WatchCmd) Run(ctx context.Context, logger *logrus.Logger) error {
	pub, err := notify.Connect(logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	unsubscribe, err := pub.SubscribeStates(func(msg notify.StateMessage) {
		entry := logger.WithFields(logrus.Fields{"table": msg.TableID, "sequence": msg.Sequence})
		if msg.State == nil {
			entry.Info("state")
			return
		}
		entry.WithFields(logrus.Fields{
			"phase": game.PhaseOf(msg.State),
			"turn":  msg.State.CurrentPlayerTurn,
			"deck":  len(msg.State.Deck),
		}).Info("state")
	})
	if err != nil {
		return err
	}
	defer unsubscribe()

	<-ctx.Done()
	return nil
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("fourcolor"),
		kong.Description("Four Color Cards tooling"),
		kong.UsageOnError(),
	)

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if cli.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.BindTo(io.Writer(os.Stdout), (*io.Writer)(nil))
	kctx.Bind(logger)
	if err := kctx.Run(); err != nil {
		logger.Fatal(err)
	}
}
