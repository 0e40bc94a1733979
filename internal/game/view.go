// internal/game/view.go
package game

import "github.com/jason-s-yu/fourcolor/internal/models"

// ObfPlayerState is one seat as seen by the requesting player. Hands of other players are reduced
// to their size; declared melds are public.
type ObfPlayerState struct {
	PlayerID      string         `json:"player_id"`
	HandSize      int            `json:"hand_size"`
	IsCurrentTurn bool           `json:"is_current_turn"`
	IsDealer      bool           `json:"is_dealer"`
	Melds         models.MeldSet `json:"melds"`
	Hand          []models.Card  `json:"hand,omitempty"`
}

// ObfGameState is the snapshot pushed to a single player.
type ObfGameState struct {
	Phase                  Phase            `json:"phase"`
	CurrentPlayerTurn      string           `json:"current_player_turn"`
	DeckSize               int              `json:"deck_size"`
	DiscardSize            int              `json:"discard_size"`
	DiscardTop             *models.Card     `json:"discard_top,omitempty"`
	LastPlay               *models.LastPlay `json:"last_play,omitempty"`
	BonusCard              models.Card      `json:"bonus_card"`
	BonusValue             int              `json:"bonus_value"`
	ResponseAllowedPlayers []string         `json:"response_allowed_players"`
	Players                []ObfPlayerState `json:"players"`
	Winner                 string           `json:"winner,omitempty"`
	FinalScores            map[string]int   `json:"final_scores,omitempty"`
	ValidActions           []string         `json:"valid_actions,omitempty"`
}

// View returns the snapshot of s visible to forPlayer. An empty forPlayer yields the spectator view.
// A drawn card stays hidden from everyone but the drawer.
func (e *Engine) View(s *models.GameState, forPlayer string) ObfGameState {
	gsd := s.GameSpecificData
	obf := ObfGameState{
		Phase:                  PhaseOf(s),
		CurrentPlayerTurn:      s.CurrentPlayerTurn,
		DeckSize:               len(s.Deck),
		DiscardSize:            len(s.DiscardPile),
		BonusCard:              gsd.BonusCard,
		BonusValue:             gsd.BonusValue,
		ResponseAllowedPlayers: append([]string{}, gsd.ResponseAllowedPlayers...),
		Winner:                 gsd.Winner,
		FinalScores:            gsd.FinalScores,
	}
	if len(s.DiscardPile) > 0 {
		top := s.DiscardPile[len(s.DiscardPile)-1]
		obf.DiscardTop = &top
	}
	if lp := s.LastPlay; lp != nil {
		shown := *lp
		shown.Cards = models.CloneCards(lp.Cards)
		if lp.Type == models.LastPlayDraw && lp.Player != forPlayer {
			shown.Cards = []models.Card{}
		}
		obf.LastPlay = &shown
	}

	for _, id := range s.Players {
		ps := ObfPlayerState{
			PlayerID:      id,
			HandSize:      len(s.PlayerHands[id]),
			IsCurrentTurn: id == s.CurrentPlayerTurn,
			IsDealer:      id == gsd.Dealer,
			Melds:         s.PlayerMelds[id].Clone(),
		}
		// reveal everything once the game is over
		if id == forPlayer || gsd.GameEnded {
			ps.Hand = models.CloneCards(s.PlayerHands[id])
		}
		obf.Players = append(obf.Players, ps)
	}

	if forPlayer != "" && s.SeatIndex(forPlayer) >= 0 {
		obf.ValidActions = e.ValidActions(s, forPlayer)
	}
	return obf
}
