// internal/game/engine.go
package game

import (
	"errors"
	"math/rand"
	"time"

	"github.com/coder/quartz"
	"github.com/jason-s-yu/fourcolor/internal/models"
)

// Action types accepted by the engine.
const (
	ActionDraw      = "draw"
	ActionPlayCards = "play_cards"
	ActionChi       = "chi"
	ActionPeng      = "peng"
	ActionKai       = "kai"
	ActionHu        = "hu"
	ActionPass      = "pass"
)

// ActionTypes lists every action type in the vocabulary.
var ActionTypes = []string{ActionPlayCards, ActionChi, ActionPeng, ActionKai, ActionHu, ActionDraw, ActionPass}

// Phase is the derived position of a game in the action state machine.
type Phase string

const (
	PhaseAwaitingTurnAction Phase = "awaiting_turn_action"
	PhaseAwaitingResponse   Phase = "awaiting_response"
	PhaseGameEnded          Phase = "game_ended"
)

// PhaseOf derives the phase of s. Exactly one phase holds for any state.
func PhaseOf(s *models.GameState) Phase {
	switch {
	case s.GameSpecificData.GameEnded:
		return PhaseGameEnded
	case s.GameSpecificData.WaitingForResponse:
		return PhaseAwaitingResponse
	default:
		return PhaseAwaitingTurnAction
	}
}

// Rejection categories. An *ActionError matches its category with errors.Is.
var (
	ErrTurnOwnership = errors.New("turn ownership violation")
	ErrPhase         = errors.New("phase violation")
	ErrPossession    = errors.New("possession violation")
	ErrPattern       = errors.New("pattern violation")
	ErrDeckEmpty     = errors.New("deck exhausted")
	ErrGameEnded     = errors.New("game has ended")
	ErrUnknownAction = errors.New("unknown action")
)

// ActionError is returned by Process when validation rejects an action.
type ActionError struct {
	Action   string
	Category error
	Message  string
}

func (e *ActionError) Error() string {
	return e.Action + ": " + e.Message
}

func (e *ActionError) Unwrap() error {
	return e.Category
}

// Result is the outcome of a validation. Validation never mutates state and never fails loudly.
type Result struct {
	Valid   bool               `json:"valid"`
	Message string             `json:"message"`
	Pattern *models.ChiPattern `json:"pattern,omitempty"`

	category error
}

// Category returns the rejection category of an invalid result, nil when valid.
func (r Result) Category() error {
	return r.category
}

func valid(msg string) Result {
	return Result{Valid: true, Message: msg}
}

func invalid(category error, msg string) Result {
	return Result{Valid: false, Message: msg, category: category}
}

type (
	validateFunc func(e *Engine, s *models.GameState, playerID string, data models.ActionData) Result
	applyFunc    func(e *Engine, s *models.GameState, playerID string, data models.ActionData) *models.GameState
)

type actionHandler struct {
	validate validateFunc
	apply    applyFunc
}

var handlers = map[string]actionHandler{
	ActionDraw:      {validateDraw, applyDraw},
	ActionPlayCards: {validatePlayCards, applyPlayCards},
	ActionChi:       {validateChi, applyChi},
	ActionPeng:      {validatePeng, applyPeng},
	ActionKai:       {validateKai, applyKai},
	ActionHu:        {validateHu, applyHu},
	ActionPass:      {validatePass, applyPass},
}

// Engine binds a rule config to the random source and clock used while playing it.
type Engine struct {
	Config GameConfig
	rng    *rand.Rand
	clock  quartz.Clock
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRand injects the random source used for shuffling and dealer selection.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithClock injects the clock used to stamp last_play.
func WithClock(clock quartz.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

// NewEngine returns an Engine for cfg, seeded from the wall clock unless WithRand is given.
func NewEngine(cfg GameConfig, opts ...Option) *Engine {
	e := &Engine{Config: cfg}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.clock == nil {
		e.clock = quartz.NewReal()
	}
	return e
}

// InitializeGame deals a new game for playerIDs using the engine's random source.
func (e *Engine) InitializeGame(playerIDs []string) (*models.GameState, error) {
	return InitializeGame(e.Config, playerIDs, e.rng)
}

// Validate checks whether playerID may perform actionType with data against s.
func (e *Engine) Validate(s *models.GameState, playerID, actionType string, data models.ActionData) Result {
	h, ok := handlers[actionType]
	if !ok {
		return invalid(ErrUnknownAction, "Unknown action type: "+actionType)
	}
	if r := validateCommon(s, playerID); !r.Valid {
		return r
	}
	return h.validate(e, s, playerID, data)
}

// Apply produces the next state for an action that Validate accepted. s is left untouched.
// The result of applying an action that did not validate is undefined; use Process instead.
func (e *Engine) Apply(s *models.GameState, playerID, actionType string, data models.ActionData) *models.GameState {
	h, ok := handlers[actionType]
	if !ok {
		return s.Clone()
	}
	return h.apply(e, s, playerID, data)
}

// Process validates and applies in one step, so an illegal action can never reach apply.
// The validated chi pattern is threaded into apply regardless of what the caller sent.
func (e *Engine) Process(s *models.GameState, playerID, actionType string, data models.ActionData) (*models.GameState, Result, error) {
	r := e.Validate(s, playerID, actionType, data)
	if !r.Valid {
		return nil, r, &ActionError{Action: actionType, Category: r.category, Message: r.Message}
	}
	if actionType == ActionChi {
		data.Pattern = r.Pattern
	}
	return e.Apply(s, playerID, actionType, data), r, nil
}

// ValidActions lists the action types playerID could legally attempt right now, ignoring card
// arguments. play_cards and chi are reported when the phase and seat allow them.
func (e *Engine) ValidActions(s *models.GameState, playerID string) []string {
	var out []string
	for _, a := range ActionTypes {
		var r Result
		switch a {
		case ActionPlayCards:
			r = e.Validate(s, playerID, a, models.ActionData{Cards: firstCard(s.PlayerHands[playerID])})
		case ActionChi:
			r = validateCommon(s, playerID)
			if r.Valid {
				r = validateChiSeat(s, playerID)
			}
		default:
			r = e.Validate(s, playerID, a, models.ActionData{})
		}
		if r.Valid {
			out = append(out, a)
		}
	}
	return out
}

func firstCard(hand []models.Card) []models.Card {
	if len(hand) == 0 {
		return nil
	}
	return hand[:1]
}

func (e *Engine) now() int64 {
	return e.clock.Now().UnixMilli()
}
