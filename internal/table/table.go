// internal/table/table.go
package table

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/fourcolor/internal/game"
	"github.com/jason-s-yu/fourcolor/internal/models"
	"github.com/sirupsen/logrus"
)

// EventType names the events pushed to table subscribers.
type EventType string

const (
	EventState   EventType = "state"
	EventTimeout EventType = "response_timeout"
)

// Snapshot is a table as seen by one player: the table row, the action sequence reached so far and
// the player's view of the running game.
type Snapshot struct {
	Table    models.Table       `json:"table"`
	Sequence int                `json:"sequence"`
	State    *game.ObfGameState `json:"state,omitempty"`
}

// Event is delivered to every subscriber after the table changes.
type Event struct {
	Type EventType `json:"type"`
	Snapshot
	Action *models.ActionRecord `json:"action,omitempty"`
}

type subscriber struct {
	playerID string
	fn       func(Event)
}

// Table is the single writer for one game. Every mutation happens under mu, so actions are applied
// strictly one after another, each against the latest committed state.
type Table struct {
	mu sync.Mutex

	info   models.Table
	engine *game.Engine

	state       *models.GameState
	gameStateID uuid.UUID
	round       int
	sequence    int

	subscribers map[int]subscriber
	nextSubID   int

	clock           quartz.Clock
	responseTimeout time.Duration
	responseTimer   *quartz.Timer

	svc *Service
}

func newTable(info models.Table, engine *game.Engine, svc *Service) *Table {
	return &Table{
		info:            info,
		engine:          engine,
		subscribers:     make(map[int]subscriber),
		clock:           svc.clock,
		responseTimeout: svc.responseTimeout,
		svc:             svc,
	}
}

// ID returns the table id.
func (t *Table) ID() uuid.UUID {
	return t.info.ID
}

// Info returns a copy of the table row.
func (t *Table) Info() models.Table {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.infoLocked()
}

func (t *Table) infoLocked() models.Table {
	info := t.info
	info.Players = append([]string{}, t.info.Players...)
	return info
}

// State returns a deep copy of the full game state, nil before the first start.
func (t *Table) State() *models.GameState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}

// Sequence returns the number of actions accepted in the current game.
func (t *Table) Sequence() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sequence
}

// Snapshot returns the table as seen by playerID.
func (t *Table) Snapshot(playerID string) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked(playerID)
}

func (t *Table) snapshotLocked(playerID string) Snapshot {
	snap := Snapshot{Table: t.infoLocked(), Sequence: t.sequence}
	if t.state != nil {
		view := t.engine.View(t.state, playerID)
		snap.State = &view
	}
	return snap
}

// Subscribe registers fn to receive every event of this table, rendered for playerID, starting
// with a state event for the current snapshot. fn is called with the table lock held and must not
// block or call back into the table. The returned function removes the subscription.
func (t *Table) Subscribe(playerID string, fn func(Event)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSubID
	t.nextSubID++
	t.subscribers[id] = subscriber{playerID: playerID, fn: fn}
	fn(Event{Type: EventState, Snapshot: t.snapshotLocked(playerID)})
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subscribers, id)
	}
}

func (t *Table) broadcastLocked(typ EventType, action *models.ActionRecord) {
	for _, sub := range t.subscribers {
		sub.fn(Event{Type: typ, Snapshot: t.snapshotLocked(sub.playerID), Action: action})
	}
}

func (t *Table) seated(playerID string) bool {
	for _, p := range t.info.Players {
		if p == playerID {
			return true
		}
	}
	return false
}

// submitLocked runs one action through the engine and commits it. The new state only becomes
// current once it has been persisted.
func (t *Table) submitLocked(ctx context.Context, playerID string, action models.GameAction) (*models.ActionRecord, error) {
	if t.info.Status != models.TablePlaying || t.state == nil {
		return nil, ErrNotPlaying
	}

	next, _, err := t.engine.Process(t.state, playerID, action.ActionType, action.ActionData)
	if err != nil {
		return nil, err
	}

	seq := t.sequence + 1
	rec := models.ActionRecord{
		TableID:        t.info.ID,
		GameStateID:    t.gameStateID,
		SequenceNumber: seq,
		PlayerID:       playerID,
		ActionType:     action.ActionType,
		ActionData:     action.ActionData,
		Timestamp:      t.clock.Now().UnixMilli(),
	}

	info := t.infoLocked()
	if next.GameSpecificData.GameEnded {
		info.Status = models.TableFinished
	}
	if err := t.svc.persist(ctx, info, t.gameStateID, t.round, seq, next, &rec); err != nil {
		return nil, err
	}

	t.state = next
	t.sequence = seq
	t.info = info
	t.svc.afterCommit(ctx, t.info.ID, seq, &rec, next)
	t.armResponseTimerLocked()
	t.broadcastLocked(EventState, &rec)
	return &rec, nil
}

// armResponseTimerLocked stops any pending response timer and starts a new one when the current
// state is waiting on a responder. On expiry the responder passes.
func (t *Table) armResponseTimerLocked() {
	if t.responseTimer != nil {
		t.responseTimer.Stop()
		t.responseTimer = nil
	}
	if t.responseTimeout <= 0 || t.state == nil {
		return
	}
	gsd := t.state.GameSpecificData
	if gsd.GameEnded || !gsd.WaitingForResponse || len(gsd.ResponseAllowedPlayers) == 0 {
		return
	}
	seq := t.sequence
	responder := gsd.ResponseAllowedPlayers[0]
	t.responseTimer = t.clock.AfterFunc(t.responseTimeout, func() {
		t.expireResponse(seq, responder)
	}, "table", "response")
}

func (t *Table) expireResponse(seq int, responder string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sequence != seq {
		// someone acted before the timer fired
		return
	}
	log := t.svc.logger.WithFields(logrus.Fields{"table": t.info.ID, "player": responder, "sequence": seq})
	log.Info("response window timed out, passing")
	t.broadcastLocked(EventTimeout, nil)
	if _, err := t.submitLocked(context.Background(), responder, models.GameAction{ActionType: game.ActionPass}); err != nil {
		log.Warnf("failed to apply timeout pass: %v", err)
	}
}

func (t *Table) stopTimers() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.responseTimer != nil {
		t.responseTimer.Stop()
		t.responseTimer = nil
	}
}
