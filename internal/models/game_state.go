// internal/models/game_state.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Meld categories.
const (
	MeldKan  = "kan"
	MeldYu   = "yu"
	MeldKai  = "kai"
	MeldPeng = "peng"
	MeldChi  = "chi"
)

// Meld is a declared group of cards owned by one player.
type Meld struct {
	Cards  []Card `json:"cards"`
	Points int    `json:"points"`
}

// MeldSet holds every declared meld of one player, grouped by category.
type MeldSet struct {
	Kan  []Meld `json:"kan"`
	Yu   []Meld `json:"yu"`
	Kai  []Meld `json:"kai"`
	Peng []Meld `json:"peng"`
	Chi  []Meld `json:"chi"`
}

// NewMeldSet returns a MeldSet with every category initialized to an empty list.
func NewMeldSet() MeldSet {
	return MeldSet{Kan: []Meld{}, Yu: []Meld{}, Kai: []Meld{}, Peng: []Meld{}, Chi: []Meld{}}
}

// All returns the melds of every category in kan, yu, kai, peng, chi order.
func (m MeldSet) All() []Meld {
	all := make([]Meld, 0, len(m.Kan)+len(m.Yu)+len(m.Kai)+len(m.Peng)+len(m.Chi))
	all = append(all, m.Kan...)
	all = append(all, m.Yu...)
	all = append(all, m.Kai...)
	all = append(all, m.Peng...)
	all = append(all, m.Chi...)
	return all
}

// CardCount is the number of cards across every meld.
func (m MeldSet) CardCount() int {
	n := 0
	for _, meld := range m.All() {
		n += len(meld.Cards)
	}
	return n
}

// Clone deep-copies the set.
func (m MeldSet) Clone() MeldSet {
	return MeldSet{
		Kan:  cloneMelds(m.Kan),
		Yu:   cloneMelds(m.Yu),
		Kai:  cloneMelds(m.Kai),
		Peng: cloneMelds(m.Peng),
		Chi:  cloneMelds(m.Chi),
	}
}

func cloneMelds(melds []Meld) []Meld {
	out := make([]Meld, len(melds))
	for i, m := range melds {
		out[i] = Meld{Cards: CloneCards(m.Cards), Points: m.Points}
	}
	return out
}

// LastPlayDraw marks a LastPlay produced by a draw. Discards leave Type empty.
const LastPlayDraw = "draw"

// LastPlay records the most recent draw or discard.
type LastPlay struct {
	Player    string `json:"player"`
	Cards     []Card `json:"cards"`
	Type      string `json:"type,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// GameSpecificData carries the Four Color Cards bookkeeping that sits outside hands and piles.
type GameSpecificData struct {
	Dealer                 string         `json:"dealer"`
	BonusCard              Card           `json:"bonus_card"`
	BonusValue             int            `json:"bonus_value"`
	WaitingForResponse     bool           `json:"waiting_for_response"`
	ResponseAllowedPlayers []string       `json:"response_allowed_players"`
	Winner                 string         `json:"winner,omitempty"`
	FinalScores            map[string]int `json:"final_scores,omitempty"`
	GameEnded              bool           `json:"game_ended,omitempty"`
}

// GameState is the full, shared state of a single game. Values are treated as immutable: the engine
// returns a fresh GameState for every accepted action.
type GameState struct {
	// Players is the seating order. "Next seat" is the cyclic successor in this list.
	Players           []string           `json:"players"`
	PlayerHands       map[string][]Card  `json:"player_hands"`
	Deck              []Card             `json:"deck"`
	DiscardPile       []Card             `json:"discard_pile"`
	CurrentPlayerTurn string             `json:"current_player_turn"`
	PlayerMelds       map[string]MeldSet `json:"player_melds"`
	LastPlay          *LastPlay          `json:"last_play"`
	GameSpecificData  GameSpecificData   `json:"game_specific_data"`
}

// UnmarshalJSON decodes a state. States stored without a players list are seated in the order
// their player_hands keys appear in the document.
func (s *GameState) UnmarshalJSON(data []byte) error {
	type plain GameState
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if len(p.Players) == 0 && len(p.PlayerHands) > 0 {
		var raw struct {
			PlayerHands json.RawMessage `json:"player_hands"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		seats, err := objectKeys(raw.PlayerHands)
		if err != nil {
			return fmt.Errorf("reading seat order from player_hands: %w", err)
		}
		p.Players = seats
	}
	*s = GameState(p)
	return nil
}

// objectKeys lists the keys of a JSON object in document order.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// Clone returns a deep copy of s sharing no slices or maps with it.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := &GameState{
		Players:           append([]string{}, s.Players...),
		PlayerHands:       make(map[string][]Card, len(s.PlayerHands)),
		Deck:              CloneCards(s.Deck),
		DiscardPile:       CloneCards(s.DiscardPile),
		CurrentPlayerTurn: s.CurrentPlayerTurn,
		PlayerMelds:       make(map[string]MeldSet, len(s.PlayerMelds)),
		GameSpecificData:  s.GameSpecificData,
	}
	for id, hand := range s.PlayerHands {
		out.PlayerHands[id] = CloneCards(hand)
	}
	for id, melds := range s.PlayerMelds {
		out.PlayerMelds[id] = melds.Clone()
	}
	if s.LastPlay != nil {
		lp := *s.LastPlay
		lp.Cards = CloneCards(s.LastPlay.Cards)
		out.LastPlay = &lp
	}
	gsd := &out.GameSpecificData
	gsd.ResponseAllowedPlayers = append([]string{}, s.GameSpecificData.ResponseAllowedPlayers...)
	if s.GameSpecificData.FinalScores != nil {
		gsd.FinalScores = make(map[string]int, len(s.GameSpecificData.FinalScores))
		for id, v := range s.GameSpecificData.FinalScores {
			gsd.FinalScores[id] = v
		}
	}
	return out
}

// SeatIndex returns the seat of playerID or -1 if the player is not seated.
func (s *GameState) SeatIndex(playerID string) int {
	for i, p := range s.Players {
		if p == playerID {
			return i
		}
	}
	return -1
}

// NextPlayer returns the cyclic successor of playerID in seating order.
func (s *GameState) NextPlayer(playerID string) string {
	idx := s.SeatIndex(playerID)
	if idx < 0 || len(s.Players) == 0 {
		return ""
	}
	return s.Players[(idx+1)%len(s.Players)]
}

// PreviousPlayer returns the cyclic predecessor of playerID in seating order.
func (s *GameState) PreviousPlayer(playerID string) string {
	idx := s.SeatIndex(playerID)
	if idx < 0 || len(s.Players) == 0 {
		return ""
	}
	return s.Players[(idx-1+len(s.Players))%len(s.Players)]
}

// TotalCards counts hand, deck, discard and meld cards. It is constant across every transition.
func (s *GameState) TotalCards() int {
	n := len(s.Deck) + len(s.DiscardPile)
	for _, hand := range s.PlayerHands {
		n += len(hand)
	}
	for _, melds := range s.PlayerMelds {
		n += melds.CardCount()
	}
	return n
}
