// Package cards implements the chance/destiny card draw engine.
package cards

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"

	"partyboard/internal/domain"

	"gopkg.in/yaml.v3"
)

// Table names one of the two card tables.
type Table string

const (
	// TableChance holds favorable cards.
	TableChance Table = "chance"
	// TableDestiny holds unfavorable cards.
	TableDestiny Table = "destiny"
)

// Effect is what a card does besides changing the score.
type Effect string

const (
	EffectScoreOnly    Effect = "score_only"
	EffectResetToStart Effect = "reset_to_start"
	EffectScorePenalty Effect = "score_penalty"
	EffectMoveBack     Effect = "move_back"
)

// Card is one hand-authored table entry.
type Card struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Effect      Effect `yaml:"effect" json:"effect"`
	Delta       int    `yaml:"delta" json:"delta"`
	Steps       int    `yaml:"steps,omitempty" json:"steps,omitempty"`
	Weight      int    `yaml:"weight,omitempty" json:"-"`
}

// Deck holds both tables.
type Deck struct {
	Chance  []Card `yaml:"chance"`
	Destiny []Card `yaml:"destiny"`
}

//go:embed cards.yaml
var defaultDeckYAML []byte

var ErrEmptyTable = errors.New("card table is empty")

// TableForTile maps a landed tile to the table it draws from.
func TableForTile(tileType domain.TileType) (Table, bool) {
	switch tileType {
	case domain.TileChance:
		return TableChance, true
	case domain.TileDestiny:
		return TableDestiny, true
	default:
		return "", false
	}
}

// DefaultDeck parses the embedded card tables.
func DefaultDeck() (*Deck, error) {
	return ParseDeck(defaultDeckYAML)
}

// ParseDeck decodes and validates a YAML deck.
func ParseDeck(data []byte) (*Deck, error) {
	var d Deck
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal card tables: %w", err)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Deck) validate() error {
	seen := make(map[string]Table)
	var errs []error
	check := func(table Table, cards []Card) {
		if len(cards) == 0 {
			errs = append(errs, fmt.Errorf("%s: %w", table, ErrEmptyTable))
		}
		for _, c := range cards {
			if prev, ok := seen[c.ID]; ok {
				errs = append(errs, fmt.Errorf("card %q appears in %s and %s", c.ID, prev, table))
			}
			seen[c.ID] = table
			switch c.Effect {
			case EffectScoreOnly, EffectResetToStart, EffectScorePenalty, EffectMoveBack:
			default:
				errs = append(errs, fmt.Errorf("card %q: unknown effect %q", c.ID, c.Effect))
			}
			if c.Effect == EffectMoveBack && c.Steps <= 0 {
				errs = append(errs, fmt.Errorf("card %q: move_back needs positive steps", c.ID))
			}
			if c.Weight < 0 {
				errs = append(errs, fmt.Errorf("card %q: negative weight", c.ID))
			}
		}
	}
	check(TableChance, d.Chance)
	check(TableDestiny, d.Destiny)
	return errors.Join(errs...)
}

func (d *Deck) table(t Table) []Card {
	if t == TableDestiny {
		return d.Destiny
	}
	return d.Chance
}

// Engine draws cards and applies their effects.
type Engine struct {
	deck *Deck
	rng  *rand.Rand
}

// NewEngine constructs an Engine over deck using rng for draws.
func NewEngine(deck *Deck, rng *rand.Rand) *Engine {
	return &Engine{deck: deck, rng: rng}
}

// Draw picks a card from the table. Weight defaults to 1, so equal weights are uniform.
func (e *Engine) Draw(t Table) (Card, error) {
	cards := e.deck.table(t)
	if len(cards) == 0 {
		return Card{}, fmt.Errorf("%s: %w", t, ErrEmptyTable)
	}

	total := 0
	for _, c := range cards {
		total += weightOf(c)
	}
	pick := e.rng.Intn(total)
	for _, c := range cards {
		pick -= weightOf(c)
		if pick < 0 {
			return c, nil
		}
	}
	return cards[len(cards)-1], nil
}

func weightOf(c Card) int {
	if c.Weight <= 0 {
		return 1
	}
	return c.Weight
}

// Outcome records how a card changed a team.
type Outcome struct {
	Card         Card
	Table        Table
	ScoreDelta   int // delta actually applied after flooring
	Score        int
	FromPosition int
	ToPosition   int
}

// Apply mutates the team according to the card.
func Apply(team *domain.Team, t Table, card Card) Outcome {
	out := Outcome{Card: card, Table: t, FromPosition: team.Position}

	switch card.Effect {
	case EffectResetToStart:
		team.Position = 0
		out.ScoreDelta = domain.AdjustScore(team, card.Delta, 1)
	case EffectMoveBack:
		team.Position -= card.Steps
		if team.Position < 0 {
			team.Position = 0
		}
		out.ScoreDelta = domain.AdjustScore(team, card.Delta, 0)
	default:
		out.ScoreDelta = domain.AdjustScore(team, card.Delta, 0)
	}

	out.Score = team.Score
	out.ToPosition = team.Position
	return out
}
