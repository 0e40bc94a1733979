// internal/game/engine_test.go
package game

import (
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/coder/quartz"
	"github.com/jason-s-yu/fourcolor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seats = []string{"a", "b", "c", "d"}

// newTestEngine returns an engine over cfg with a fixed seed and a mock clock.
func newTestEngine(t *testing.T, cfg GameConfig) (*Engine, *quartz.Mock) {
	t.Helper()
	clk := quartz.NewMock(t)
	return NewEngine(cfg, WithRand(rand.New(rand.NewSource(1))), WithClock(clk)), clk
}

// handState builds a four-seat game where "a" deals and acts first. Seats missing from hands get
// an empty hand.
func handState(hands map[string][]models.Card) *models.GameState {
	s := &models.GameState{
		Players:           append([]string{}, seats...),
		PlayerHands:       map[string][]models.Card{},
		Deck:              []models.Card{card("white", "马"), card("white", "炮"), card("yellow", "士")},
		DiscardPile:       []models.Card{},
		CurrentPlayerTurn: "a",
		PlayerMelds:       map[string]models.MeldSet{},
		GameSpecificData: models.GameSpecificData{
			Dealer:                 "a",
			BonusCard:              card("green", "将"),
			BonusValue:             3,
			ResponseAllowedPlayers: []string{},
		},
	}
	for _, id := range seats {
		s.PlayerHands[id] = models.CloneCards(hands[id])
		s.PlayerMelds[id] = models.NewMeldSet()
	}
	return s
}

// mustProcess runs an action that is expected to be accepted.
func mustProcess(t *testing.T, e *Engine, s *models.GameState, playerID, action string, data models.ActionData) *models.GameState {
	t.Helper()
	next, r, err := e.Process(s, playerID, action, data)
	require.NoError(t, err, "%s by %s: %s", action, playerID, r.Message)
	require.True(t, r.Valid)
	return next
}

// requireRejected asserts that an action is refused with the given category.
func requireRejected(t *testing.T, e *Engine, s *models.GameState, playerID, action string, data models.ActionData, category error) Result {
	t.Helper()
	before := s.Clone()
	next, r, err := e.Process(s, playerID, action, data)
	require.Error(t, err)
	assert.Nil(t, next)
	assert.False(t, r.Valid)
	assert.ErrorIs(t, err, category)
	assert.ErrorIs(t, r.Category(), category)

	var actionErr *ActionError
	require.True(t, errors.As(err, &actionErr))
	assert.Equal(t, action, actionErr.Action)
	assert.Equal(t, r.Message, actionErr.Message)
	assert.Equal(t, before, s, "rejected action must not touch the state")
	return r
}

func TestDraw(t *testing.T) {
	e, clk := newTestEngine(t, DefaultConfig())
	s := handState(map[string][]models.Card{"a": {card("red", "车")}})
	before := s.Clone()

	next := mustProcess(t, e, s, "a", ActionDraw, models.ActionData{})

	assert.Equal(t, before, s, "draw must not mutate its input")
	assert.Len(t, next.Deck, 2)
	require.Len(t, next.PlayerHands["a"], 2)
	assert.Equal(t, card("white", "马"), next.PlayerHands["a"][1])
	require.NotNil(t, next.LastPlay)
	assert.Equal(t, models.LastPlayDraw, next.LastPlay.Type)
	assert.Equal(t, "a", next.LastPlay.Player)
	assert.Equal(t, []models.Card{card("white", "马")}, next.LastPlay.Cards)
	assert.Equal(t, clk.Now().UnixMilli(), next.LastPlay.Timestamp)
	assert.Equal(t, "a", next.CurrentPlayerTurn, "the drawer still owes a discard")
	assert.Equal(t, PhaseAwaitingTurnAction, PhaseOf(next))
}

func TestDrawRejections(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	s := handState(map[string][]models.Card{"a": {card("red", "车")}})

	r := requireRejected(t, e, s, "b", ActionDraw, models.ActionData{}, ErrTurnOwnership)
	assert.Equal(t, "Not your turn", r.Message)

	empty := s.Clone()
	empty.Deck = []models.Card{}
	r = requireRejected(t, e, empty, "a", ActionDraw, models.ActionData{}, ErrDeckEmpty)
	assert.Equal(t, "Deck is empty", r.Message)

	waiting := mustProcess(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("red", "车")}})
	requireRejected(t, e, waiting, "a", ActionDraw, models.ActionData{}, ErrPhase)

	requireRejected(t, e, s, "zed", ActionDraw, models.ActionData{}, ErrTurnOwnership)
}

// TestPlayCardsOpensResponseWindow checks the turn invariant right after a discard.
func TestPlayCardsOpensResponseWindow(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	s := handState(map[string][]models.Card{"a": {card("red", "车"), card("green", "象")}})

	next := mustProcess(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("green", "象")}})

	assert.Equal(t, "a", next.CurrentPlayerTurn, "turn stays on the discarder while the window is open")
	assert.True(t, next.GameSpecificData.WaitingForResponse)
	assert.Equal(t, []string{"b"}, next.GameSpecificData.ResponseAllowedPlayers)
	assert.Equal(t, []models.Card{card("green", "象")}, next.DiscardPile)
	assert.Equal(t, []models.Card{card("red", "车")}, next.PlayerHands["a"])
	require.NotNil(t, next.LastPlay)
	assert.Empty(t, next.LastPlay.Type)
	assert.Equal(t, "a", next.LastPlay.Player)
	assert.Equal(t, PhaseAwaitingResponse, PhaseOf(next))
}

// TestPlayCardsWrapsAroundSeats gives the last seat's discard to the first seat.
func TestPlayCardsWrapsAroundSeats(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	s := handState(map[string][]models.Card{"d": {card("red", "车")}})
	s.CurrentPlayerTurn = "d"

	next := mustProcess(t, e, s, "d", ActionPlayCards, models.ActionData{Cards: []models.Card{card("red", "车")}})
	assert.Equal(t, []string{"a"}, next.GameSpecificData.ResponseAllowedPlayers)
}

func TestPlayCardsRejections(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	s := handState(map[string][]models.Card{
		"a": {card("red", "车"), card("green", "象")},
		"b": {card("red", "车")},
	})

	requireRejected(t, e, s, "b", ActionPlayCards, models.ActionData{Cards: []models.Card{card("red", "车")}}, ErrTurnOwnership)

	r := requireRejected(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("white", "卒")}}, ErrPossession)
	assert.Equal(t, "You don't have this card", r.Message)

	r = requireRejected(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("red", "车"), card("green", "象")}}, ErrPossession)
	assert.Equal(t, "Must play exactly one card", r.Message)

	requireRejected(t, e, s, "a", ActionPlayCards, models.ActionData{}, ErrPossession)

	waiting := mustProcess(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("red", "车")}})
	r = requireRejected(t, e, waiting, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("green", "象")}}, ErrPhase)
	assert.Equal(t, "Waiting for other players to respond", r.Message)
}

// TestChiSoldiers claims a red soldier with green and white soldiers for two points.
func TestChiSoldiers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CustomData.RankNames.Soldier = "soldier"
	cfg.CustomData.ChiPatterns = []PatternRule{{Type: PatternSoldierDiff3, Points: 2}}
	e, _ := newTestEngine(t, cfg)

	s := handState(map[string][]models.Card{
		"a": {card("red", "soldier"), card("red", "车")},
		"b": {card("green", "soldier"), card("white", "soldier"), card("yellow", "马")},
	})
	s = mustProcess(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("red", "soldier")}})

	offered := models.ActionData{Cards: []models.Card{card("green", "soldier"), card("white", "soldier")}}
	r := e.Validate(s, "b", ActionChi, offered)
	require.True(t, r.Valid, r.Message)
	assert.Equal(t, &models.ChiPattern{Type: PatternSoldierDiff3, Points: 2}, r.Pattern)

	next := mustProcess(t, e, s, "b", ActionChi, offered)

	assert.Empty(t, next.DiscardPile, "chi pops the discard")
	assert.Equal(t, []models.Card{card("yellow", "马")}, next.PlayerHands["b"])
	require.Len(t, next.PlayerMelds["b"].Chi, 1)
	meld := next.PlayerMelds["b"].Chi[0]
	assert.Len(t, meld.Cards, 3)
	assert.Equal(t, card("red", "soldier"), meld.Cards[0])
	assert.Equal(t, 2, meld.Points)
	assert.Equal(t, "b", next.CurrentPlayerTurn)
	assert.False(t, next.GameSpecificData.WaitingForResponse)
	assert.Empty(t, next.GameSpecificData.ResponseAllowedPlayers)
	assert.Equal(t, s.TotalCards(), next.TotalCards())

	// the claimer owes a discard
	assert.Equal(t, PhaseAwaitingTurnAction, PhaseOf(next))
	mustProcess(t, e, next, "b", ActionPlayCards, models.ActionData{Cards: []models.Card{card("yellow", "马")}})
}

// TestChiIgnoresCallerPattern makes sure points come from validation, not from the client.
func TestChiIgnoresCallerPattern(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	s := handState(map[string][]models.Card{
		"a": {card("yellow", "将")},
		"b": {card("red", "车")},
	})
	s = mustProcess(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("yellow", "将")}})

	next := mustProcess(t, e, s, "b", ActionChi, models.ActionData{Pattern: &models.ChiPattern{Type: "made_up", Points: 99}})
	require.Len(t, next.PlayerMelds["b"].Chi, 1)
	assert.Equal(t, 1, next.PlayerMelds["b"].Chi[0].Points)
	assert.Equal(t, []models.Card{card("yellow", "将")}, next.PlayerMelds["b"].Chi[0].Cards)
}

func TestChiRejections(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	s := handState(map[string][]models.Card{
		"a": {card("green", "马"), card("red", "卒")},
		"b": {card("green", "车"), card("red", "炮")},
		"c": {card("green", "车"), card("green", "炮")},
	})

	r := requireRejected(t, e, s, "b", ActionChi, models.ActionData{Cards: []models.Card{card("green", "车"), card("green", "炮")}}, ErrPhase)
	assert.Equal(t, "No discard to respond to", r.Message)

	s = mustProcess(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("green", "马")}})

	r = requireRejected(t, e, s, "c", ActionChi, models.ActionData{Cards: []models.Card{card("green", "车"), card("green", "炮")}}, ErrTurnOwnership)
	assert.Equal(t, "Can only chi from previous player", r.Message)

	r = requireRejected(t, e, s, "b", ActionChi, models.ActionData{Cards: []models.Card{card("green", "车"), card("green", "炮")}}, ErrPossession)
	assert.Equal(t, "You don't have these cards", r.Message)

	r = requireRejected(t, e, s, "b", ActionChi, models.ActionData{Cards: []models.Card{card("green", "车"), card("green", "车")}}, ErrPossession)
	assert.Equal(t, "You don't have these cards", r.Message, "duplicates need duplicate copies in hand")

	r = requireRejected(t, e, s, "b", ActionChi, models.ActionData{Cards: []models.Card{card("green", "车"), card("red", "炮")}}, ErrPattern)
	assert.Equal(t, "Invalid chi combination", r.Message)

	// successor outside the allowed list, e.g. after the window was rewritten by a host
	closed := s.Clone()
	closed.GameSpecificData.ResponseAllowedPlayers = []string{"c"}
	r = requireRejected(t, e, closed, "b", ActionChi, models.ActionData{Cards: []models.Card{card("green", "车"), card("red", "炮")}}, ErrTurnOwnership)
	assert.Equal(t, "Not allowed to respond", r.Message)
}

// TestPeng checks the hand and pile deltas around a peng.
func TestPeng(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	s := handState(map[string][]models.Card{
		"a": {card("yellow", "车"), card("red", "马")},
		"c": {card("yellow", "车"), card("green", "士"), card("yellow", "车"), card("yellow", "车")},
	})
	s = mustProcess(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("yellow", "车")}})
	discard := s.DiscardPile[len(s.DiscardPile)-1]

	before := countMatching(s.PlayerHands["c"], discard)
	require.GreaterOrEqual(t, before, 2)

	next := mustProcess(t, e, s, "c", ActionPeng, models.ActionData{})

	assert.Equal(t, before-2, countMatching(next.PlayerHands["c"], discard))
	assert.Len(t, next.DiscardPile, len(s.DiscardPile)-1)
	assert.Len(t, next.PlayerHands["c"], 2)
	require.Len(t, next.PlayerMelds["c"].Peng, 1)
	assert.Equal(t, PengPoints, next.PlayerMelds["c"].Peng[0].Points)
	assert.Len(t, next.PlayerMelds["c"].Peng[0].Cards, 3)
	for _, c := range next.PlayerMelds["c"].Peng[0].Cards {
		assert.True(t, c.Matches(discard))
	}
	assert.Equal(t, "c", next.CurrentPlayerTurn, "peng may skip seats")
	assert.False(t, next.GameSpecificData.WaitingForResponse)
	assert.Equal(t, s.TotalCards(), next.TotalCards())
}

func TestPengRejections(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	s := handState(map[string][]models.Card{
		"a": {card("yellow", "车"), card("yellow", "车"), card("yellow", "车")},
		"b": {card("yellow", "车"), card("red", "车")},
	})

	requireRejected(t, e, s, "b", ActionPeng, models.ActionData{}, ErrPhase)

	s = mustProcess(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("yellow", "车")}})

	r := requireRejected(t, e, s, "b", ActionPeng, models.ActionData{}, ErrPossession)
	assert.Equal(t, "Need at least 2 matching cards to peng", r.Message)

	r = requireRejected(t, e, s, "a", ActionPeng, models.ActionData{}, ErrTurnOwnership)
	assert.Equal(t, "Cannot claim your own discard", r.Message)
}

// TestKai promotes a kan with the matching discard.
func TestKai(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	s := handState(map[string][]models.Card{
		"a": {card("white", "炮")},
		"d": {card("red", "将")},
	})
	kan := models.Meld{Cards: []models.Card{card("white", "炮"), card("white", "炮"), card("white", "炮")}, Points: 3}
	melds := s.PlayerMelds["d"]
	melds.Kan = append(melds.Kan, kan)
	s.PlayerMelds["d"] = melds

	s = mustProcess(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("white", "炮")}})
	next := mustProcess(t, e, s, "d", ActionKai, models.ActionData{})

	assert.Empty(t, next.PlayerMelds["d"].Kan)
	require.Len(t, next.PlayerMelds["d"].Kai, 1)
	assert.Len(t, next.PlayerMelds["d"].Kai[0].Cards, 4)
	assert.Equal(t, KaiPoints, next.PlayerMelds["d"].Kai[0].Points)
	assert.Empty(t, next.DiscardPile)
	assert.Equal(t, "d", next.CurrentPlayerTurn)
	assert.Equal(t, s.TotalCards(), next.TotalCards())
	assert.Len(t, s.PlayerMelds["d"].Kan, 1, "input state keeps its kan")

	r := requireRejected(t, e, s, "c", ActionKai, models.ActionData{}, ErrPossession)
	assert.Equal(t, "No matching kan to kai", r.Message)
}

// TestHu wins on a discard and settles the table.
func TestHu(t *testing.T) {
	cfg := DefaultConfig()
	e, _ := newTestEngine(t, cfg)
	s := handState(map[string][]models.Card{
		"a": {card("red", "卒"), card("red", "车")},
		"c": {card("green", "卒"), card("green", "马")},
	})
	melds := s.PlayerMelds["c"]
	melds.Chi = append(melds.Chi, models.Meld{Cards: []models.Card{card("yellow", "将")}, Points: 1})
	melds.Kai = append(melds.Kai, models.Meld{Cards: []models.Card{card("white", "士"), card("white", "士"), card("white", "士"), card("white", "士")}, Points: KaiPoints})
	s.PlayerMelds["c"] = melds

	s = mustProcess(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("red", "卒")}})
	next := mustProcess(t, e, s, "c", ActionHu, models.ActionData{})

	gsd := next.GameSpecificData
	assert.True(t, gsd.GameEnded)
	assert.Equal(t, "c", gsd.Winner)
	assert.Equal(t, PhaseGameEnded, PhaseOf(next))
	assert.Len(t, next.PlayerHands["c"], 3)
	assert.Empty(t, next.DiscardPile)
	assert.False(t, gsd.WaitingForResponse)
	assert.Equal(t, map[string]int{"a": -14, "b": -14, "c": 42, "d": -14}, gsd.FinalScores)
	assert.Zero(t, sum(gsd.FinalScores))
	assert.Equal(t, s.TotalCards(), next.TotalCards())

	for _, action := range ActionTypes {
		r := requireRejected(t, e, next, "a", action, models.ActionData{}, ErrGameEnded)
		assert.Equal(t, "Game has ended", r.Message)
	}
	assert.Empty(t, e.ValidActions(next, "c"))
}

func TestHuRejections(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	s := handState(map[string][]models.Card{
		"a": {card("red", "卒"), card("red", "车")},
		"b": {card("green", "卒")},
	})
	s = mustProcess(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("red", "卒")}})

	r := requireRejected(t, e, s, "b", ActionHu, models.ActionData{}, ErrPattern)
	assert.Equal(t, "Cannot form winning hand", r.Message)

	requireRejected(t, e, s, "a", ActionHu, models.ActionData{}, ErrTurnOwnership)
}

func TestIsWinningHand(t *testing.T) {
	for n, want := range map[int]bool{0: true, 1: true, 2: false, 3: true, 4: true, 5: false, 21: true, 20: false} {
		assert.Equal(t, want, IsWinningHand(make([]models.Card, n)), "hand of %d", n)
	}
}

// TestPassDeclines closes the window and gives the turn to the seat after the discarder.
func TestPassDeclines(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	s := handState(map[string][]models.Card{"a": {card("red", "卒"), card("red", "车")}})
	s = mustProcess(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("red", "卒")}})

	r := requireRejected(t, e, s, "c", ActionPass, models.ActionData{}, ErrTurnOwnership)
	assert.Equal(t, "Not allowed to pass", r.Message)

	next := mustProcess(t, e, s, "b", ActionPass, models.ActionData{})
	assert.False(t, next.GameSpecificData.WaitingForResponse)
	assert.Empty(t, next.GameSpecificData.ResponseAllowedPlayers)
	assert.Equal(t, "b", next.CurrentPlayerTurn)
	assert.Equal(t, s.DiscardPile, next.DiscardPile, "the discard stays on the pile")

	mustProcess(t, e, next, "b", ActionDraw, models.ActionData{})
}

// TestPassDiscardsDrawnCard turns a fresh draw into the drawer's discard.
func TestPassDiscardsDrawnCard(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	s := handState(map[string][]models.Card{"a": {card("red", "车")}})

	requireRejected(t, e, s, "a", ActionPass, models.ActionData{}, ErrPhase)

	drawn := mustProcess(t, e, s, "a", ActionDraw, models.ActionData{})
	requireRejected(t, e, drawn, "b", ActionPass, models.ActionData{}, ErrPhase)

	next := mustProcess(t, e, drawn, "a", ActionPass, models.ActionData{})
	assert.Equal(t, []models.Card{card("red", "车")}, next.PlayerHands["a"])
	assert.Equal(t, []models.Card{card("white", "马")}, next.DiscardPile)
	assert.Equal(t, "b", next.CurrentPlayerTurn)
	assert.False(t, next.GameSpecificData.WaitingForResponse)
	require.NotNil(t, next.LastPlay)
	assert.Empty(t, next.LastPlay.Type)
	assert.Equal(t, next.TotalCards(), s.TotalCards())

	requireRejected(t, e, next, "a", ActionPass, models.ActionData{}, ErrPhase)

	// once the drawn card has left the hand there is nothing to discard
	played := mustProcess(t, e, drawn, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("white", "马")}})
	played = mustProcess(t, e, played, "b", ActionPass, models.ActionData{})
	requireRejected(t, e, played, "a", ActionPass, models.ActionData{}, ErrPhase)
}

func TestUnknownAction(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	s := handState(nil)
	r := requireRejected(t, e, s, "a", "shuffle", models.ActionData{}, ErrUnknownAction)
	assert.Contains(t, r.Message, "shuffle")
}

func TestValidActions(t *testing.T) {
	e, _ := newTestEngine(t, DefaultConfig())
	s := handState(map[string][]models.Card{
		"a": {card("red", "卒"), card("red", "车")},
		"b": {card("green", "马")},
		"c": {card("green", "马")},
	})

	assert.Equal(t, []string{ActionPlayCards, ActionDraw}, e.ValidActions(s, "a"))
	assert.Empty(t, e.ValidActions(s, "b"))

	s = mustProcess(t, e, s, "a", ActionPlayCards, models.ActionData{Cards: []models.Card{card("red", "卒")}})
	assert.Equal(t, []string{ActionChi, ActionPass}, e.ValidActions(s, "b"))
	assert.Empty(t, e.ValidActions(s, "c"))
	assert.Empty(t, e.ValidActions(s, "a"))
}

// TestRandomPlayConservation plays random legal actions and checks the state invariants after each.
func TestRandomPlayConservation(t *testing.T) {
	cfg := DefaultConfig()
	for seed := int64(1); seed <= 30; seed++ {
		rng := rand.New(rand.NewSource(seed))
		e := NewEngine(cfg, WithRand(rng), WithClock(quartz.NewMock(t)))

		s, err := e.InitializeGame(seats)
		require.NoError(t, err)
		total := cfg.DeckSize()

		for step := 0; step < 300; step++ {
			moves := legalMoves(e, s)
			if len(moves) == 0 {
				break
			}
			m := moves[rng.Intn(len(moves))]

			before := s.Clone()
			next, r, err := e.Process(s, m.player, m.action, m.data)
			require.NoError(t, err, "seed %d step %d: %s by %s: %s", seed, step, m.action, m.player, r.Message)
			require.Equal(t, before, s, "seed %d step %d: input mutated", seed, step)
			s = next

			require.Equal(t, total, s.TotalCards(), "seed %d step %d: cards not conserved after %s", seed, step, m.action)
			require.GreaterOrEqual(t, s.SeatIndex(s.CurrentPlayerTurn), 0)

			gsd := s.GameSpecificData
			if gsd.WaitingForResponse {
				require.NotEmpty(t, gsd.ResponseAllowedPlayers)
				require.NotContains(t, gsd.ResponseAllowedPlayers, s.LastPlay.Player)
			} else {
				require.Empty(t, gsd.ResponseAllowedPlayers)
			}
			if gsd.GameEnded {
				require.Zero(t, sum(gsd.FinalScores))
				break
			}
		}
	}
}

type move struct {
	player string
	action string
	data   models.ActionData
}

// legalMoves enumerates accepted actions for every seat, including single discards and chi offers
// of zero or two cards.
func legalMoves(e *Engine, s *models.GameState) []move {
	var out []move
	try := func(player, action string, data models.ActionData) {
		if e.Validate(s, player, action, data).Valid {
			out = append(out, move{player, action, data})
		}
	}
	for _, p := range s.Players {
		hand := s.PlayerHands[p]
		for _, action := range ActionTypes {
			switch action {
			case ActionPlayCards:
				for _, c := range hand {
					try(p, action, models.ActionData{Cards: []models.Card{c}})
				}
			case ActionChi:
				if !validateChiSeat(s, p).Valid {
					continue
				}
				try(p, action, models.ActionData{})
				for i := range hand {
					for j := i + 1; j < len(hand); j++ {
						try(p, action, models.ActionData{Cards: []models.Card{hand[i], hand[j]}})
					}
				}
			default:
				try(p, action, models.ActionData{})
			}
		}
	}
	return slices.Clip(out)
}
