// internal/models/card.go
package models

// Card types.
const (
	CardTypeRegular = "regular"
	CardTypeJinTiao = "jin_tiao"
)

// Card is an immutable card value. Duplicate suit/rank pairs are allowed by the deck definition,
// so two cards are considered the same for possession checks when suit and rank match.
type Card struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
	Type string `json:"type,omitempty"`
}

// Matches reports whether c has the same suit and rank as other.
func (c Card) Matches(other Card) bool {
	return c.Suit == other.Suit && c.Rank == other.Rank
}

// String returns a compact suit/rank label for log lines.
func (c Card) String() string {
	return c.Suit + ":" + c.Rank
}

// CloneCards returns a copy of cards that never aliases the input. A nil input yields an empty slice
// so JSON encodes it as [] rather than null.
func CloneCards(cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}
