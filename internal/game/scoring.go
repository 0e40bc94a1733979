// internal/game/scoring.go
package game

import "github.com/jason-s-yu/fourcolor/internal/models"

// MeldPoints sums the points of every declared meld in the set.
func MeldPoints(melds models.MeldSet) int {
	total := 0
	for _, m := range melds.All() {
		total += m.Points
	}
	return total
}

// IsDaHu reports whether a winner's melds qualify for the big-win multiplier (any kai or yu).
func IsDaHu(melds models.MeldSet) bool {
	return len(melds.Kai) > 0 || len(melds.Yu) > 0
}

// WinnerTotal is the per-opponent amount the winner collects.
func WinnerTotal(cfg GameConfig, melds models.MeldSet) int {
	total := MeldPoints(melds)
	if IsDaHu(melds) {
		if m := cfg.CustomData.ScoringRules.DaHuMultiplier; m > 0 {
			total *= m
		}
	}
	return total
}

// CalculateFinalScores settles a win: the winner receives total × (players − 1) and every other
// player pays total. The result always sums to zero.
func CalculateFinalScores(cfg GameConfig, state *models.GameState, winnerID string) map[string]int {
	total := WinnerTotal(cfg, state.PlayerMelds[winnerID])
	scores := make(map[string]int, len(state.Players))
	for _, id := range state.Players {
		if id == winnerID {
			scores[id] = total * (len(state.Players) - 1)
		} else {
			scores[id] = -total
		}
	}
	return scores
}
