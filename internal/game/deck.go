// internal/game/deck.go
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jason-s-yu/fourcolor/internal/models"
)

var (
	// ErrNotEnoughCards is returned when the configured deal exceeds the deck.
	ErrNotEnoughCards = errors.New("not enough cards to deal")
	// ErrInvalidPlayers is returned for empty, duplicated or out-of-range seat lists.
	ErrInvalidPlayers = errors.New("invalid player list")
)

// bonusValues maps a suit to its bonus card value: 黄=1, 红=2, 绿=3, 白=4.
var bonusValues = map[string]int{
	"yellow": 1,
	"red":    2,
	"green":  3,
	"white":  4,
}

// BonusCardValue returns the bonus value of card's suit, 0 for suits outside the table.
func BonusCardValue(card models.Card) int {
	return bonusValues[card.Suit]
}

// CreateDeck builds the unshuffled deck: every suit × rank as a regular card (repeated Copies
// times), followed by the special-rank cards in the configured special suit.
func CreateDeck(cfg GameConfig) []models.Card {
	def := cfg.CustomData.DeckDefinition
	deck := make([]models.Card, 0, cfg.DeckSize())
	for range cfg.RegularCopies() {
		for _, suit := range def.Suits {
			for _, rank := range def.Ranks {
				deck = append(deck, models.Card{Suit: suit, Rank: rank, Type: models.CardTypeRegular})
			}
		}
	}
	suit := cfg.SpecialSuit()
	for _, rank := range def.SpecialRank.Cards {
		deck = append(deck, models.Card{Suit: suit, Rank: rank, Type: models.CardTypeJinTiao})
	}
	return deck
}

// ShuffleDeck returns a uniformly shuffled copy of deck (Fisher-Yates). The input is not modified.
// A nil rng shuffles with a time-seeded source.
func ShuffleDeck(deck []models.Card, rng *rand.Rand) []models.Card {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	out := models.CloneCards(deck)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// InitializeGame creates the opening state: a random dealer, dealt hands in seat order, the
// remaining draw pile and the exposed bonus card. The dealer acts first.
func InitializeGame(cfg GameConfig, playerIDs []string, rng *rand.Rand) (*models.GameState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validatePlayers(cfg, playerIDs); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	shuffled := ShuffleDeck(CreateDeck(cfg), rng)
	dealerCards := cfg.Setup.InitialCards.Dealer
	otherCards := cfg.Setup.InitialCards.Others
	needed := dealerCards + otherCards*(len(playerIDs)-1)
	if needed > len(shuffled) {
		return nil, fmt.Errorf("%w: deal needs %d cards, deck has %d", ErrNotEnoughCards, needed, len(shuffled))
	}

	dealer := playerIDs[rng.Intn(len(playerIDs))]

	state := &models.GameState{
		Players:           append([]string{}, playerIDs...),
		PlayerHands:       make(map[string][]models.Card, len(playerIDs)),
		DiscardPile:       []models.Card{},
		CurrentPlayerTurn: dealer,
		PlayerMelds:       make(map[string]models.MeldSet, len(playerIDs)),
	}

	idx := 0
	for _, id := range playerIDs {
		n := otherCards
		if id == dealer {
			n = dealerCards
		}
		state.PlayerHands[id] = models.CloneCards(shuffled[idx : idx+n])
		state.PlayerMelds[id] = models.NewMeldSet()
		idx += n
	}
	state.Deck = models.CloneCards(shuffled[idx:])

	dealerHand := state.PlayerHands[dealer]
	bonus := dealerHand[len(dealerHand)-1]
	state.GameSpecificData = models.GameSpecificData{
		Dealer:                 dealer,
		BonusCard:              bonus,
		BonusValue:             BonusCardValue(bonus),
		ResponseAllowedPlayers: []string{},
	}
	return state, nil
}

// minPlayers keeps the discarder out of its own response window.
const minPlayers = 2

func validatePlayers(cfg GameConfig, playerIDs []string) error {
	if len(playerIDs) < minPlayers {
		return fmt.Errorf("%w: %d players, need at least %d", ErrInvalidPlayers, len(playerIDs), minPlayers)
	}
	pc := cfg.Meta.PlayerCount
	if pc.Min > 0 && len(playerIDs) < pc.Min || pc.Max > 0 && len(playerIDs) > pc.Max {
		return fmt.Errorf("%w: %d players outside %d..%d", ErrInvalidPlayers, len(playerIDs), pc.Min, pc.Max)
	}
	seen := make(map[string]bool, len(playerIDs))
	for _, id := range playerIDs {
		if id == "" {
			return fmt.Errorf("%w: empty player id", ErrInvalidPlayers)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate player %s", ErrInvalidPlayers, id)
		}
		seen[id] = true
	}
	return nil
}
