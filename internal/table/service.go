// internal/table/service.go
package table

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/fourcolor/internal/game"
	"github.com/jason-s-yu/fourcolor/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrTableNotFound  = errors.New("table not found")
	ErrTableFull      = errors.New("table is full")
	ErrAlreadyStarted = errors.New("table has already started")
	ErrNotOwner       = errors.New("only the table owner can do that")
	ErrNotSeated      = errors.New("player is not seated at this table")
	ErrNotPlaying     = errors.New("table is not playing")
)

// Store persists tables, game states and the action log.
type Store interface {
	SaveTable(ctx context.Context, t models.Table) error
	SaveGameState(ctx context.Context, tableID, gameStateID uuid.UUID, round, sequence int, state *models.GameState) error
	AppendAction(ctx context.Context, rec models.ActionRecord) error
}

// ActionQueue receives every accepted action for the historian.
type ActionQueue interface {
	PublishAction(ctx context.Context, rec models.ActionRecord) error
}

// Notifier announces state changes to other nodes.
type Notifier interface {
	PublishState(ctx context.Context, tableID uuid.UUID, sequence int, state *models.GameState) error
}

// Config selects the rule every table of the service plays.
type Config struct {
	RuleID          uuid.UUID
	RuleName        string
	Rule            game.GameConfig
	ResponseTimeout time.Duration
}

// Service owns the in-memory tables and routes requests to them.
type Service struct {
	mu     sync.Mutex
	tables map[uuid.UUID]*Table
	rng    *rand.Rand

	ruleID          uuid.UUID
	ruleName        string
	rule            game.GameConfig
	responseTimeout time.Duration

	store    Store
	queue    ActionQueue
	notifier Notifier
	clock    quartz.Clock
	logger   *logrus.Logger
}

// Option customizes a Service.
type Option func(*Service)

func WithStore(st Store) Option       { return func(s *Service) { s.store = st } }
func WithQueue(q ActionQueue) Option  { return func(s *Service) { s.queue = q } }
func WithNotifier(n Notifier) Option  { return func(s *Service) { s.notifier = n } }
func WithClock(c quartz.Clock) Option { return func(s *Service) { s.clock = c } }
func WithSeed(seed int64) Option      { return func(s *Service) { s.rng = rand.New(rand.NewSource(seed)) } }

// NewService returns an empty service. Store, queue and notifier are optional.
func NewService(cfg Config, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		tables:          make(map[uuid.UUID]*Table),
		ruleID:          cfg.RuleID,
		ruleName:        cfg.RuleName,
		rule:            cfg.Rule,
		responseTimeout: cfg.ResponseTimeout,
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.clock == nil {
		s.clock = quartz.NewReal()
	}
	if s.logger == nil {
		s.logger = logrus.New()
	}
	return s
}

// Rule returns the game rule tables are created with.
func (s *Service) Rule() game.GameConfig {
	return s.rule
}

// RuleName returns the game_rules.name of Rule, empty when the rule did not come from the database.
func (s *Service) RuleName() string {
	return s.ruleName
}

// newEngine gives each table its own random source, since *rand.Rand is not safe for concurrent use.
func (s *Service) newEngine() *game.Engine {
	s.mu.Lock()
	seed := s.rng.Int63()
	s.mu.Unlock()
	return game.NewEngine(s.rule, game.WithRand(rand.New(rand.NewSource(seed))), game.WithClock(s.clock))
}

// Get returns the table with the given id.
func (s *Service) Get(id uuid.UUID) (*Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	return t, ok
}

func (s *Service) mustGet(id uuid.UUID) (*Table, error) {
	t, ok := s.Get(id)
	if !ok {
		return nil, ErrTableNotFound
	}
	return t, nil
}

// List returns every table row, in no particular order.
func (s *Service) List() []models.Table {
	s.mu.Lock()
	tables := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, t)
	}
	s.mu.Unlock()

	out := make([]models.Table, 0, len(tables))
	for _, t := range tables {
		out = append(out, t.Info())
	}
	return out
}

// Delete stops and forgets a table.
func (s *Service) Delete(id uuid.UUID) {
	s.mu.Lock()
	t, ok := s.tables[id]
	delete(s.tables, id)
	s.mu.Unlock()
	if ok {
		t.stopTimers()
	}
}

// Create opens a waiting table with owner already seated.
func (s *Service) Create(ctx context.Context, owner, name string) (models.Table, error) {
	if owner == "" {
		return models.Table{}, ErrNotSeated
	}
	info := models.Table{
		ID:        uuid.New(),
		Name:      name,
		RuleID:    s.ruleID,
		Owner:     owner,
		Status:    models.TableWaiting,
		Players:   []string{owner},
		CreatedAt: s.clock.Now(),
	}
	if s.store != nil {
		if err := s.store.SaveTable(ctx, info); err != nil {
			return models.Table{}, fmt.Errorf("failed to save table: %w", err)
		}
	}

	t := newTable(info, s.newEngine(), s)
	s.mu.Lock()
	s.tables[info.ID] = t
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"table": info.ID, "owner": owner}).Info("table created")
	return t.Info(), nil
}

// Join seats playerID at a waiting table. Joining twice is a no-op.
func (s *Service) Join(ctx context.Context, tableID uuid.UUID, playerID string) (models.Table, error) {
	t, err := s.mustGet(tableID)
	if err != nil {
		return models.Table{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seated(playerID) {
		return t.infoLocked(), nil
	}
	if t.info.Status != models.TableWaiting {
		return models.Table{}, ErrAlreadyStarted
	}
	if limit := s.rule.Meta.PlayerCount.Max; limit > 0 && len(t.info.Players) >= limit {
		return models.Table{}, ErrTableFull
	}

	info := t.infoLocked()
	info.Players = append(info.Players, playerID)
	if s.store != nil {
		if err := s.store.SaveTable(ctx, info); err != nil {
			return models.Table{}, fmt.Errorf("failed to save table: %w", err)
		}
	}
	t.info = info

	s.logger.WithFields(logrus.Fields{"table": tableID, "player": playerID, "seats": len(info.Players)}).Info("player joined table")
	t.broadcastLocked(EventState, nil)
	return t.infoLocked(), nil
}

// Leave removes playerID from a waiting table. The table is deleted when its last player leaves;
// ownership passes to the next seat when the owner leaves.
func (s *Service) Leave(ctx context.Context, tableID uuid.UUID, playerID string) error {
	t, err := s.mustGet(tableID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	if !t.seated(playerID) {
		t.mu.Unlock()
		return ErrNotSeated
	}
	if t.info.Status == models.TablePlaying {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}

	info := t.infoLocked()
	players := info.Players[:0]
	for _, p := range info.Players {
		if p != playerID {
			players = append(players, p)
		}
	}
	info.Players = players
	if info.Owner == playerID && len(players) > 0 {
		info.Owner = players[0]
	}
	if s.store != nil {
		if err := s.store.SaveTable(ctx, info); err != nil {
			t.mu.Unlock()
			return fmt.Errorf("failed to save table: %w", err)
		}
	}
	t.info = info
	empty := len(players) == 0
	if !empty {
		t.broadcastLocked(EventState, nil)
	}
	t.mu.Unlock()

	if empty {
		s.Delete(tableID)
	}
	s.logger.WithFields(logrus.Fields{"table": tableID, "player": playerID}).Info("player left table")
	return nil
}

// Start deals a new game at the table. Only the owner may start, and only from waiting or after a
// finished game.
func (s *Service) Start(ctx context.Context, tableID uuid.UUID, playerID string) (models.Table, error) {
	t, err := s.mustGet(tableID)
	if err != nil {
		return models.Table{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.info.Owner != playerID {
		return models.Table{}, ErrNotOwner
	}
	if t.info.Status == models.TablePlaying {
		return models.Table{}, ErrAlreadyStarted
	}

	state, err := t.engine.InitializeGame(t.info.Players)
	if err != nil {
		return models.Table{}, fmt.Errorf("failed to start game: %w", err)
	}

	gameStateID := uuid.New()
	round := t.round + 1
	info := t.infoLocked()
	info.Status = models.TablePlaying
	info.CurrentGame = gameStateID
	if err := s.persist(ctx, info, gameStateID, round, 0, state, nil); err != nil {
		return models.Table{}, err
	}

	t.info = info
	t.state = state
	t.gameStateID = gameStateID
	t.round = round
	t.sequence = 0
	s.afterCommit(ctx, tableID, 0, nil, state)
	t.armResponseTimerLocked()

	s.logger.WithFields(logrus.Fields{
		"table":  tableID,
		"round":  round,
		"dealer": state.GameSpecificData.Dealer,
		"bonus":  state.GameSpecificData.BonusCard.String(),
	}).Info("game started")
	t.broadcastLocked(EventState, nil)
	return t.infoLocked(), nil
}

// Abandon ends the running game of a table that went idle. The stored row has already been
// marked finished, so only the in-memory table changes. The owner may start a new game.
func (s *Service) Abandon(tableID uuid.UUID) error {
	t, err := s.mustGet(tableID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.info.Status != models.TablePlaying {
		return ErrNotPlaying
	}
	if t.responseTimer != nil {
		t.responseTimer.Stop()
		t.responseTimer = nil
	}
	t.info.Status = models.TableFinished
	s.logger.WithFields(logrus.Fields{"table": tableID, "sequence": t.sequence}).Info("game abandoned")
	t.broadcastLocked(EventState, nil)
	return nil
}

// Submit applies one action from playerID. Rejected actions come back as *game.ActionError.
func (s *Service) Submit(ctx context.Context, tableID uuid.UUID, playerID string, action models.GameAction) (*models.ActionRecord, error) {
	t, err := s.mustGet(tableID)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.seated(playerID) {
		return nil, ErrNotSeated
	}

	log := s.logger.WithFields(logrus.Fields{"table": tableID, "player": playerID, "action": action.ActionType})
	rec, err := t.submitLocked(ctx, playerID, action)
	if err != nil {
		var actionErr *game.ActionError
		if errors.As(err, &actionErr) {
			log.Debugf("action rejected: %s", actionErr.Message)
		} else {
			log.Warnf("action failed: %v", err)
		}
		return nil, err
	}
	log.WithField("sequence", rec.SequenceNumber).Debug("action accepted")
	if t.state.GameSpecificData.GameEnded {
		log.WithField("scores", t.state.GameSpecificData.FinalScores).Info("game finished")
	}
	return rec, nil
}

// Snapshot returns the table as seen by playerID.
func (s *Service) Snapshot(tableID uuid.UUID, playerID string) (Snapshot, error) {
	t, err := s.mustGet(tableID)
	if err != nil {
		return Snapshot{}, err
	}
	return t.Snapshot(playerID), nil
}

// Subscribe registers fn for events of tableID rendered for playerID.
func (s *Service) Subscribe(tableID uuid.UUID, playerID string, fn func(Event)) (func(), error) {
	t, err := s.mustGet(tableID)
	if err != nil {
		return nil, err
	}
	return t.Subscribe(playerID, fn), nil
}

// persist writes a new state and the table row, plus the action when no queue is configured.
// Without a store it is a no-op.
func (s *Service) persist(ctx context.Context, info models.Table, gameStateID uuid.UUID, round, seq int, state *models.GameState, rec *models.ActionRecord) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveGameState(ctx, info.ID, gameStateID, round, seq, state); err != nil {
		return fmt.Errorf("failed to save game state: %w", err)
	}
	// with a queue configured the historian owns the action log
	if rec != nil && s.queue == nil {
		if err := s.store.AppendAction(ctx, *rec); err != nil {
			return fmt.Errorf("failed to append action: %w", err)
		}
	}
	if err := s.store.SaveTable(ctx, info); err != nil {
		return fmt.Errorf("failed to save table: %w", err)
	}
	return nil
}

// afterCommit fans a committed state out to the historian queue and other nodes. Failures are
// logged; the state is already durable.
func (s *Service) afterCommit(ctx context.Context, tableID uuid.UUID, seq int, rec *models.ActionRecord, state *models.GameState) {
	log := s.logger.WithFields(logrus.Fields{"table": tableID, "sequence": seq})
	if rec != nil && s.queue != nil {
		if err := s.queue.PublishAction(ctx, *rec); err != nil {
			log.Warnf("failed to queue action: %v", err)
		}
	}
	if s.notifier != nil {
		if err := s.notifier.PublishState(ctx, tableID, seq, state); err != nil {
			log.Warnf("failed to publish state: %v", err)
		}
	}
}
