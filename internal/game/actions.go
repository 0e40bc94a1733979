// internal/game/actions.go
package game

import (
	"slices"

	"github.com/jason-s-yu/fourcolor/internal/models"
)

// Meld point values fixed by the rules.
const (
	PengPoints = 1
	KaiPoints  = 6
)

func validateCommon(s *models.GameState, playerID string) Result {
	if s.GameSpecificData.GameEnded {
		return invalid(ErrGameEnded, "Game has ended")
	}
	if s.SeatIndex(playerID) < 0 {
		return invalid(ErrTurnOwnership, "You are not seated in this game")
	}
	return valid("")
}

// --- draw ---

func validateDraw(e *Engine, s *models.GameState, playerID string, _ models.ActionData) Result {
	if s.CurrentPlayerTurn != playerID {
		return invalid(ErrTurnOwnership, "Not your turn")
	}
	if s.GameSpecificData.WaitingForResponse {
		return invalid(ErrPhase, "Cannot draw while waiting for response")
	}
	if len(s.Deck) == 0 {
		return invalid(ErrDeckEmpty, "Deck is empty")
	}
	return valid("Valid draw")
}

func applyDraw(e *Engine, s *models.GameState, playerID string, _ models.ActionData) *models.GameState {
	ns := s.Clone()
	card := ns.Deck[0]
	ns.Deck = ns.Deck[1:]
	ns.PlayerHands[playerID] = append(ns.PlayerHands[playerID], card)
	ns.LastPlay = &models.LastPlay{
		Player:    playerID,
		Cards:     []models.Card{card},
		Type:      models.LastPlayDraw,
		Timestamp: e.now(),
	}
	return ns
}

// --- play_cards ---

func validatePlayCards(e *Engine, s *models.GameState, playerID string, data models.ActionData) Result {
	if s.CurrentPlayerTurn != playerID {
		return invalid(ErrTurnOwnership, "Not your turn")
	}
	if s.GameSpecificData.WaitingForResponse {
		return invalid(ErrPhase, "Waiting for other players to respond")
	}
	if len(data.Cards) != 1 {
		return invalid(ErrPossession, "Must play exactly one card")
	}
	if indexOfCard(s.PlayerHands[playerID], data.Cards[0]) < 0 {
		return invalid(ErrPossession, "You don't have this card")
	}
	return valid("Valid play")
}

func applyPlayCards(e *Engine, s *models.GameState, playerID string, data models.ActionData) *models.GameState {
	ns := s.Clone()
	hand, removed := removeCards(ns.PlayerHands[playerID], data.Cards[:1])
	ns.PlayerHands[playerID] = hand
	ns.DiscardPile = append(ns.DiscardPile, removed...)
	ns.LastPlay = &models.LastPlay{
		Player:    playerID,
		Cards:     removed,
		Timestamp: e.now(),
	}
	openResponseWindow(ns, playerID)
	return ns
}

// --- chi ---

// validateChiSeat checks that playerID holds the chi right: the open discard came from the seat
// immediately before them and they were granted the response.
func validateChiSeat(s *models.GameState, playerID string) Result {
	if !s.GameSpecificData.WaitingForResponse || s.LastPlay == nil {
		return invalid(ErrPhase, "No discard to respond to")
	}
	if s.LastPlay.Player != s.PreviousPlayer(playerID) {
		return invalid(ErrTurnOwnership, "Can only chi from previous player")
	}
	if !slices.Contains(s.GameSpecificData.ResponseAllowedPlayers, playerID) {
		return invalid(ErrTurnOwnership, "Not allowed to respond")
	}
	return valid("")
}

func validateChi(e *Engine, s *models.GameState, playerID string, data models.ActionData) Result {
	if r := validateChiSeat(s, playerID); !r.Valid {
		return r
	}
	if !holdsAll(s.PlayerHands[playerID], data.Cards) {
		return invalid(ErrPossession, "You don't have these cards")
	}
	pattern, ok := IdentifyChiPattern(e.Config, s.LastPlay.Cards[0], data.Cards)
	if !ok {
		return invalid(ErrPattern, "Invalid chi combination")
	}
	r := valid("Valid chi")
	r.Pattern = pattern
	return r
}

func applyChi(e *Engine, s *models.GameState, playerID string, data models.ActionData) *models.GameState {
	ns := s.Clone()
	discard := popDiscard(ns)

	pattern := data.Pattern
	if pattern == nil {
		pattern, _ = IdentifyChiPattern(e.Config, discard, data.Cards)
	}
	points := 0
	if pattern != nil {
		points = pattern.Points
	}

	hand, removed := removeCards(ns.PlayerHands[playerID], data.Cards)
	ns.PlayerHands[playerID] = hand

	melds := ns.PlayerMelds[playerID]
	melds.Chi = append(melds.Chi, models.Meld{
		Cards:  append([]models.Card{discard}, removed...),
		Points: points,
	})
	ns.PlayerMelds[playerID] = melds

	closeResponseWindow(ns)
	ns.CurrentPlayerTurn = playerID
	return ns
}

// --- peng ---

func validateClaim(s *models.GameState, playerID string) Result {
	if !s.GameSpecificData.WaitingForResponse || s.LastPlay == nil {
		return invalid(ErrPhase, "No discard to respond to")
	}
	if s.LastPlay.Player == playerID {
		return invalid(ErrTurnOwnership, "Cannot claim your own discard")
	}
	return valid("")
}

func validatePeng(e *Engine, s *models.GameState, playerID string, _ models.ActionData) Result {
	if r := validateClaim(s, playerID); !r.Valid {
		return r
	}
	if countMatching(s.PlayerHands[playerID], s.LastPlay.Cards[0]) < 2 {
		return invalid(ErrPossession, "Need at least 2 matching cards to peng")
	}
	return valid("Valid peng")
}

func applyPeng(e *Engine, s *models.GameState, playerID string, _ models.ActionData) *models.GameState {
	ns := s.Clone()
	discard := popDiscard(ns)

	hand := ns.PlayerHands[playerID]
	meldCards := []models.Card{discard}
	for i := len(hand) - 1; i >= 0 && len(meldCards) < 3; i-- {
		if hand[i].Matches(discard) {
			meldCards = append(meldCards, hand[i])
			hand = slices.Delete(hand, i, i+1)
		}
	}
	ns.PlayerHands[playerID] = hand

	melds := ns.PlayerMelds[playerID]
	melds.Peng = append(melds.Peng, models.Meld{Cards: meldCards, Points: PengPoints})
	ns.PlayerMelds[playerID] = melds

	closeResponseWindow(ns)
	ns.CurrentPlayerTurn = playerID
	return ns
}

// --- kai ---

func findKan(melds models.MeldSet, card models.Card) int {
	return slices.IndexFunc(melds.Kan, func(m models.Meld) bool {
		return len(m.Cards) > 0 && m.Cards[0].Matches(card)
	})
}

func validateKai(e *Engine, s *models.GameState, playerID string, _ models.ActionData) Result {
	if r := validateClaim(s, playerID); !r.Valid {
		return r
	}
	if findKan(s.PlayerMelds[playerID], s.LastPlay.Cards[0]) < 0 {
		return invalid(ErrPossession, "No matching kan to kai")
	}
	return valid("Valid kai")
}

func applyKai(e *Engine, s *models.GameState, playerID string, _ models.ActionData) *models.GameState {
	ns := s.Clone()
	discard := popDiscard(ns)

	melds := ns.PlayerMelds[playerID]
	idx := findKan(melds, discard)
	kan := melds.Kan[idx]
	melds.Kan = slices.Delete(melds.Kan, idx, idx+1)
	melds.Kai = append(melds.Kai, models.Meld{
		Cards:  append(kan.Cards, discard),
		Points: KaiPoints,
	})
	ns.PlayerMelds[playerID] = melds

	closeResponseWindow(ns)
	ns.CurrentPlayerTurn = playerID
	return ns
}

// --- hu ---

// IsWinningHand is the completion check applied to the concealed hand after the claimed card has
// been added. It only looks at the hand size: size mod 3 must be 0 or 1. It does not check that the
// cards partition into runs or triples, and declared melds are not counted.
func IsWinningHand(hand []models.Card) bool {
	r := len(hand) % 3
	return r == 0 || r == 1
}

func validateHu(e *Engine, s *models.GameState, playerID string, _ models.ActionData) Result {
	if r := validateClaim(s, playerID); !r.Valid {
		return r
	}
	hand := append(models.CloneCards(s.PlayerHands[playerID]), s.LastPlay.Cards[0])
	if !IsWinningHand(hand) {
		return invalid(ErrPattern, "Cannot form winning hand")
	}
	return valid("Valid hu")
}

func applyHu(e *Engine, s *models.GameState, playerID string, _ models.ActionData) *models.GameState {
	ns := s.Clone()
	discard := popDiscard(ns)
	ns.PlayerHands[playerID] = append(ns.PlayerHands[playerID], discard)

	closeResponseWindow(ns)
	gsd := &ns.GameSpecificData
	gsd.FinalScores = CalculateFinalScores(e.Config, ns, playerID)
	gsd.Winner = playerID
	gsd.GameEnded = true
	return ns
}

// --- pass ---

// "pass" covers two separate operations: declining an open response window, and discarding the
// card the current player has just drawn.

func canDiscardDrawn(s *models.GameState, playerID string) bool {
	lp := s.LastPlay
	return !s.GameSpecificData.WaitingForResponse &&
		s.CurrentPlayerTurn == playerID &&
		lp != nil && lp.Type == models.LastPlayDraw && lp.Player == playerID &&
		len(lp.Cards) == 1 && indexOfCard(s.PlayerHands[playerID], lp.Cards[0]) >= 0
}

func validatePass(e *Engine, s *models.GameState, playerID string, _ models.ActionData) Result {
	if s.GameSpecificData.WaitingForResponse {
		if !slices.Contains(s.GameSpecificData.ResponseAllowedPlayers, playerID) {
			return invalid(ErrTurnOwnership, "Not allowed to pass")
		}
		return valid("Valid pass")
	}
	if canDiscardDrawn(s, playerID) {
		return valid("Valid pass, drawn card discarded")
	}
	return invalid(ErrPhase, "Not allowed to pass")
}

func applyPass(e *Engine, s *models.GameState, playerID string, data models.ActionData) *models.GameState {
	if s.GameSpecificData.WaitingForResponse {
		return declineResponse(s)
	}
	return discardDrawn(e, s, playerID)
}

// declineResponse closes the window and hands the turn to the seat after the discarder.
func declineResponse(s *models.GameState) *models.GameState {
	ns := s.Clone()
	closeResponseWindow(ns)
	if ns.LastPlay != nil {
		ns.CurrentPlayerTurn = ns.NextPlayer(ns.LastPlay.Player)
	}
	return ns
}

// discardDrawn turns the freshly drawn card into the player's discard and advances the turn.
func discardDrawn(e *Engine, s *models.GameState, playerID string) *models.GameState {
	ns := s.Clone()
	hand, removed := removeCards(ns.PlayerHands[playerID], ns.LastPlay.Cards[:1])
	ns.PlayerHands[playerID] = hand
	ns.DiscardPile = append(ns.DiscardPile, removed...)
	ns.LastPlay = &models.LastPlay{
		Player:    playerID,
		Cards:     removed,
		Timestamp: e.now(),
	}
	ns.CurrentPlayerTurn = ns.NextPlayer(playerID)
	return ns
}

// --- helpers ---

func openResponseWindow(s *models.GameState, discarder string) {
	s.GameSpecificData.WaitingForResponse = true
	s.GameSpecificData.ResponseAllowedPlayers = []string{s.NextPlayer(discarder)}
}

func closeResponseWindow(s *models.GameState) {
	s.GameSpecificData.WaitingForResponse = false
	s.GameSpecificData.ResponseAllowedPlayers = []string{}
}

// popDiscard removes and returns the top of the discard pile.
func popDiscard(s *models.GameState) models.Card {
	last := len(s.DiscardPile) - 1
	card := s.DiscardPile[last]
	s.DiscardPile = s.DiscardPile[:last]
	return card
}

func indexOfCard(hand []models.Card, card models.Card) int {
	return slices.IndexFunc(hand, card.Matches)
}

func countMatching(hand []models.Card, card models.Card) int {
	n := 0
	for _, c := range hand {
		if c.Matches(card) {
			n++
		}
	}
	return n
}

// holdsAll reports whether hand contains every card of cards, counting duplicates.
func holdsAll(hand, cards []models.Card) bool {
	remaining := models.CloneCards(hand)
	for _, c := range cards {
		i := indexOfCard(remaining, c)
		if i < 0 {
			return false
		}
		remaining = slices.Delete(remaining, i, i+1)
	}
	return true
}

// removeCards removes the first match of each card from hand and returns the new hand together with
// the hand's own copies of the removed cards.
func removeCards(hand, cards []models.Card) ([]models.Card, []models.Card) {
	out := models.CloneCards(hand)
	removed := make([]models.Card, 0, len(cards))
	for _, c := range cards {
		if i := indexOfCard(out, c); i >= 0 {
			removed = append(removed, out[i])
			out = slices.Delete(out, i, i+1)
		}
	}
	return out, removed
}
