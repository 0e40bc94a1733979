// internal/game/config.go
package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Chi pattern types.
const (
	PatternSequence      = "sequence"
	PatternSoldierDiff3  = "soldier_diff_3"
	PatternSoldierDiff4  = "soldier_diff_4"
	PatternSingleJiang   = "single_jiang"
	PatternSingleJinTiao = "single_jin_tiao"
)

// Default rank names used by the soldier and general chi patterns.
const (
	DefaultSoldierRank = "卒"
	DefaultGeneralRank = "将"
)

// GameConfig is the rule definition stored in game_rules.config_json.
type GameConfig struct {
	Meta       MetaConfig  `json:"meta" yaml:"meta"`
	Setup      SetupConfig `json:"setup" yaml:"setup"`
	CustomData CustomData  `json:"custom_data" yaml:"custom_data"`
}

type MetaConfig struct {
	PlayerCount PlayerCount `json:"player_count" yaml:"player_count"`
	DeckType    string      `json:"deck_type,omitempty" yaml:"deck_type,omitempty"`
}

// PlayerCount bounds the number of seats. Zero means unbounded.
type PlayerCount struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

type SetupConfig struct {
	InitialCards InitialCards `json:"initial_cards" yaml:"initial_cards"`
}

// InitialCards is the number of cards dealt to the dealer and to every other seat.
type InitialCards struct {
	Dealer int `json:"dealer" yaml:"dealer"`
	Others int `json:"others" yaml:"others"`
}

type CustomData struct {
	DeckDefinition DeckDefinition `json:"deck_definition" yaml:"deck_definition"`
	ChiPatterns    []PatternRule  `json:"chi_patterns" yaml:"chi_patterns"`
	ScoringRules   ScoringRules   `json:"scoring_rules" yaml:"scoring_rules"`
	RankNames      RankNames      `json:"rank_names,omitempty" yaml:"rank_names,omitempty"`
}

type DeckDefinition struct {
	Suits []string `json:"suits" yaml:"suits"`
	Ranks []string `json:"ranks" yaml:"ranks"`
	// Copies is how many times each suit × rank card appears. Zero means one.
	Copies      int         `json:"copies,omitempty" yaml:"copies,omitempty"`
	SpecialRank SpecialRank `json:"special_rank" yaml:"special_rank"`
}

// SpecialRank lists the jin_tiao cards. They all share the suit named by Color.
type SpecialRank struct {
	Name  string   `json:"name,omitempty" yaml:"name,omitempty"`
	Cards []string `json:"cards" yaml:"cards"`
	Color string   `json:"color,omitempty" yaml:"color,omitempty"`
}

// PatternRule is one entry of the ordered chi pattern list.
type PatternRule struct {
	Type   string   `json:"type" yaml:"type"`
	Ranks  []string `json:"ranks,omitempty" yaml:"ranks,omitempty"`
	Points int      `json:"points" yaml:"points"`
}

// ScoringRules holds the settlement multipliers. Only DaHuMultiplier takes part in settlement; the
// jin_tiao multipliers and the liuju limit are kept so stored rules round-trip unchanged.
type ScoringRules struct {
	DaHuMultiplier       int `json:"da_hu_multiplier" yaml:"da_hu_multiplier"`
	JinTiaoKanMultiplier int `json:"jin_tiao_kan_multiplier,omitempty" yaml:"jin_tiao_kan_multiplier,omitempty"`
	JinTiaoYuMultiplier  int `json:"jin_tiao_yu_multiplier,omitempty" yaml:"jin_tiao_yu_multiplier,omitempty"`
	LiujuDeckLimit       int `json:"liuju_deck_limit,omitempty" yaml:"liuju_deck_limit,omitempty"`
}

// RankNames overrides the rank labels the soldier and general patterns look for.
type RankNames struct {
	Soldier string `json:"soldier,omitempty" yaml:"soldier,omitempty"`
	General string `json:"general,omitempty" yaml:"general,omitempty"`
}

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid game config")

// DefaultConfig returns the Four Color Card rule as seeded into game_rules.
func DefaultConfig() GameConfig {
	return GameConfig{
		Meta: MetaConfig{
			PlayerCount: PlayerCount{Min: 4, Max: 4},
			DeckType:    "four_color_custom",
		},
		Setup: SetupConfig{InitialCards: InitialCards{Dealer: 21, Others: 20}},
		CustomData: CustomData{
			DeckDefinition: DeckDefinition{
				Suits:  []string{"yellow", "red", "green", "white"},
				Ranks:  []string{"将", "士", "象", "车", "马", "炮", "卒"},
				Copies: 4,
				SpecialRank: SpecialRank{
					Name:  "jin_tiao",
					Cards: []string{"公", "侯", "伯", "子", "男"},
					Color: "red",
				},
			},
			ChiPatterns: []PatternRule{
				{Type: PatternSequence, Ranks: []string{"车", "马", "炮"}, Points: 1},
				{Type: PatternSequence, Ranks: []string{"将", "士", "象"}, Points: 1},
				{Type: PatternSoldierDiff3, Points: 1},
				{Type: PatternSoldierDiff4, Points: 2},
				{Type: PatternSingleJiang, Points: 1},
				{Type: PatternSingleJinTiao, Points: 3},
			},
			ScoringRules: ScoringRules{
				DaHuMultiplier:       2,
				JinTiaoKanMultiplier: 3,
				JinTiaoYuMultiplier:  3,
				LiujuDeckLimit:       8,
			},
		},
	}
}

// SoldierRank returns the configured soldier rank label.
func (c GameConfig) SoldierRank() string {
	if c.CustomData.RankNames.Soldier != "" {
		return c.CustomData.RankNames.Soldier
	}
	return DefaultSoldierRank
}

// GeneralRank returns the configured general rank label.
func (c GameConfig) GeneralRank() string {
	if c.CustomData.RankNames.General != "" {
		return c.CustomData.RankNames.General
	}
	return DefaultGeneralRank
}

// SpecialSuit is the suit given to jin_tiao cards.
func (c GameConfig) SpecialSuit() string {
	if c.CustomData.DeckDefinition.SpecialRank.Color != "" {
		return c.CustomData.DeckDefinition.SpecialRank.Color
	}
	return "red"
}

// RegularCopies is the number of copies of every regular card.
func (c GameConfig) RegularCopies() int {
	if c.CustomData.DeckDefinition.Copies > 0 {
		return c.CustomData.DeckDefinition.Copies
	}
	return 1
}

// DeckSize is the number of cards CreateDeck produces.
func (c GameConfig) DeckSize() int {
	d := c.CustomData.DeckDefinition
	return c.RegularCopies()*len(d.Suits)*len(d.Ranks) + len(d.SpecialRank.Cards)
}

// Validate checks the config for values that would make a game unplayable.
func (c GameConfig) Validate() error {
	d := c.CustomData.DeckDefinition
	if c.DeckSize() == 0 {
		return fmt.Errorf("%w: deck definition is empty", ErrInvalidConfig)
	}
	if len(d.Suits) > 0 && len(d.Ranks) == 0 || len(d.Ranks) > 0 && len(d.Suits) == 0 {
		return fmt.Errorf("%w: suits and ranks must both be set", ErrInvalidConfig)
	}
	if d.Copies < 0 {
		return fmt.Errorf("%w: copies must be non-negative", ErrInvalidConfig)
	}
	ic := c.Setup.InitialCards
	if ic.Dealer < 1 || ic.Others < 0 {
		return fmt.Errorf("%w: initial_cards must be dealer >= 1 and others >= 0", ErrInvalidConfig)
	}
	pc := c.Meta.PlayerCount
	if pc.Min < 0 || pc.Max < 0 || (pc.Max > 0 && (pc.Min > pc.Max || pc.Max < minPlayers)) {
		return fmt.Errorf("%w: player_count range %d..%d", ErrInvalidConfig, pc.Min, pc.Max)
	}
	for i, p := range c.CustomData.ChiPatterns {
		switch p.Type {
		case PatternSequence:
			if len(p.Ranks) == 0 {
				return fmt.Errorf("%w: chi_patterns[%d] sequence needs ranks", ErrInvalidConfig, i)
			}
		case PatternSoldierDiff3, PatternSoldierDiff4, PatternSingleJiang, PatternSingleJinTiao:
		default:
			return fmt.Errorf("%w: chi_patterns[%d] unknown type %q", ErrInvalidConfig, i, p.Type)
		}
	}
	if c.CustomData.ScoringRules.DaHuMultiplier < 0 {
		return fmt.Errorf("%w: da_hu_multiplier must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// ParseConfig decodes a JSON rule document (the game_rules.config_json shape) and validates it.
func ParseConfig(data []byte) (GameConfig, error) {
	var cfg GameConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return GameConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return GameConfig{}, err
	}
	return cfg, nil
}

// ParseConfigYAML decodes a YAML rule document and validates it.
func ParseConfigYAML(data []byte) (GameConfig, error) {
	var cfg GameConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return GameConfig{}, fmt.Errorf("failed to parse yaml config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return GameConfig{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads a rule file. Files ending in .yaml or .yml are decoded as YAML, anything else as JSON.
func LoadConfigFile(path string) (GameConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GameConfig{}, fmt.Errorf("failed to read rule file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseConfigYAML(data)
	default:
		return ParseConfig(data)
	}
}
