// internal/game/patterns.go
package game

import (
	"sort"

	"github.com/jason-s-yu/fourcolor/internal/models"
)

// IdentifyChiPattern evaluates the configured chi patterns in order against the discarded card plus
// the offered cards and returns the first match.
func IdentifyChiPattern(cfg GameConfig, discard models.Card, offered []models.Card) (*models.ChiPattern, bool) {
	all := make([]models.Card, 0, len(offered)+1)
	all = append(all, discard)
	all = append(all, offered...)

	for _, p := range cfg.CustomData.ChiPatterns {
		if matchPattern(cfg, p, discard, offered, all) {
			return &models.ChiPattern{Type: p.Type, Points: p.Points}, true
		}
	}
	return nil, false
}

func matchPattern(cfg GameConfig, p PatternRule, discard models.Card, offered, all []models.Card) bool {
	switch p.Type {
	case PatternSequence:
		return sameSuit(all) && sameRankMultiset(all, p.Ranks)
	case PatternSoldierDiff3:
		return distinctSoldiers(all, cfg.SoldierRank(), 3)
	case PatternSoldierDiff4:
		return distinctSoldiers(all, cfg.SoldierRank(), 4)
	case PatternSingleJiang:
		return len(offered) == 0 && discard.Rank == cfg.GeneralRank()
	case PatternSingleJinTiao:
		return len(offered) == 0 && discard.Type == models.CardTypeJinTiao
	}
	return false
}

func sameSuit(cards []models.Card) bool {
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			return false
		}
	}
	return true
}

// sameRankMultiset compares ranks ignoring order but counting duplicates.
func sameRankMultiset(cards []models.Card, ranks []string) bool {
	if len(cards) != len(ranks) {
		return false
	}
	got := make([]string, len(cards))
	for i, c := range cards {
		got[i] = c.Rank
	}
	want := append([]string{}, ranks...)
	sort.Strings(got)
	sort.Strings(want)
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// distinctSoldiers requires exactly count soldier cards with pairwise distinct suits.
func distinctSoldiers(cards []models.Card, soldier string, count int) bool {
	if len(cards) != count {
		return false
	}
	suits := make(map[string]bool, len(cards))
	for _, c := range cards {
		if c.Rank != soldier {
			return false
		}
		suits[c.Suit] = true
	}
	return len(suits) == count
}
