// Package config holds the static, process-wide game configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"partyboard/internal/domain"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix prefixes every runtime env key read by Load.
const EnvPrefix = "PARTYBOARD_"

// TransitionPolicy decides what happens to an advance requested while a turn
// transition is already in flight.
type TransitionPolicy string

const (
	// PolicyDrop ignores the overlapping request.
	PolicyDrop TransitionPolicy = "drop"
	// PolicyQueue keeps at most one request and runs it once the node settles.
	PolicyQueue TransitionPolicy = "queue"
)

type GameConfig struct {
	MaxPlayers             int `json:"max_players" env:"MAX_PLAYERS"`
	MaxTeamSize            int `json:"max_team_size" env:"MAX_TEAM_SIZE"`
	BoardLength            int `json:"board_length" env:"BOARD_LENGTH"`
	TurnDurationSeconds    int `json:"turn_duration_seconds" env:"TURN_DURATION_SECONDS"`
	SessionDurationMinutes int `json:"session_duration_minutes" env:"SESSION_DURATION_MINUTES"`
	MaxRuns                int `json:"max_runs" env:"MAX_RUNS"`

	StartingScore  int `json:"starting_score" env:"STARTING_SCORE"`
	SuccessScore   int `json:"success_score" env:"SUCCESS_SCORE"`
	PartialScore   int `json:"partial_score" env:"PARTIAL_SCORE"`
	FailureScore   int `json:"failure_score" env:"FAILURE_SCORE"`
	TimeoutPenalty int `json:"timeout_penalty" env:"TIMEOUT_PENALTY"`

	// MiniGameTimeLimits maps an event kind to its limit in seconds. Kinds not
	// listed use DefaultMiniGameSeconds.
	MiniGameTimeLimits     map[string]int `json:"minigame_time_limits" env:"MINIGAME_TIME_LIMITS"`
	DefaultMiniGameSeconds int            `json:"default_minigame_seconds" env:"DEFAULT_MINIGAME_SECONDS"`
	MiniGameGraceSeconds   int            `json:"minigame_grace_seconds" env:"MINIGAME_GRACE_SECONDS"`

	SettleDelayMS         int              `json:"settle_delay_ms" env:"SETTLE_DELAY_MS"`
	CardRevealDelayMS     int              `json:"card_reveal_delay_ms" env:"CARD_REVEAL_DELAY_MS"`
	MoveAckTimeoutSeconds int              `json:"move_ack_timeout_seconds" env:"MOVE_ACK_TIMEOUT_SECONDS"`
	TickRate              int              `json:"tick_rate" env:"TICK_RATE"`
	TransitionPolicy      TransitionPolicy `json:"transition_policy" env:"TRANSITION_POLICY"`
	LogLevel              string           `json:"log_level" env:"LOG_LEVEL"`

	PredefinedTeams []domain.TeamPreset `json:"predefined_teams"`
}

// Default returns the built-in configuration.
func Default() *GameConfig {
	return &GameConfig{
		MaxPlayers:             200,
		MaxTeamSize:            12,
		BoardLength:            24,
		TurnDurationSeconds:    60,
		SessionDurationMinutes: 90,
		MaxRuns:                3,
		StartingScore:          100,
		SuccessScore:           20,
		PartialScore:           10,
		FailureScore:           0,
		TimeoutPenalty:         -10,
		MiniGameTimeLimits: map[string]int{
			string(domain.EventQuiz):          30,
			string(domain.EventTrueFalse):     20,
			string(domain.EventWorkflow):      60,
			string(domain.EventMatching):      60,
			string(domain.EventTeamChallenge): 90,
		},
		DefaultMiniGameSeconds: 45,
		MiniGameGraceSeconds:   5,
		SettleDelayMS:          1500,
		CardRevealDelayMS:      3000,
		MoveAckTimeoutSeconds:  10,
		TickRate:               5,
		TransitionPolicy:       PolicyDrop,
		LogLevel:               "info",
		PredefinedTeams: []domain.TeamPreset{
			{ID: "red", Name: "Red Rockets", Color: "#e74c3c", Emblem: "rocket"},
			{ID: "blue", Name: "Blue Whales", Color: "#3498db", Emblem: "whale"},
			{ID: "green", Name: "Green Giants", Color: "#2ecc71", Emblem: "tree"},
			{ID: "yellow", Name: "Yellow Jackets", Color: "#f1c40f", Emblem: "bee"},
		},
	}
}

// Load builds a configuration from the defaults, an optional JSON file at path
// and the Nakama runtime env map, in that order of precedence. A file listing
// predefined_teams replaces the default presets. Minigame time limits merge
// per kind, so a layer only overrides the kinds it names.
func Load(path string, environ map[string]string) (*GameConfig, error) {
	c := Default()
	limits := c.MiniGameTimeLimits
	presets := c.PredefinedTeams
	c.MiniGameTimeLimits = nil
	c.PredefinedTeams = nil

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read game config: %w", err)
		}
		if err := json.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
		}
	}
	mergeLimits(limits, c.MiniGameTimeLimits)
	c.MiniGameTimeLimits = nil
	if c.PredefinedTeams == nil {
		c.PredefinedTeams = presets
	}

	if len(environ) > 0 {
		upper := make(map[string]string, len(environ))
		for k, v := range environ {
			upper[strings.ToUpper(k)] = v
		}
		if err := env.ParseWithOptions(c, env.Options{Environment: upper, Prefix: EnvPrefix}); err != nil {
			return nil, fmt.Errorf("parse env: %w", err)
		}
	}
	mergeLimits(limits, c.MiniGameTimeLimits)
	c.MiniGameTimeLimits = limits

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func mergeLimits(dst, src map[string]int) {
	for kind, seconds := range src {
		dst[kind] = seconds
	}
}

// Validate reports every invalid setting at once.
func (c *GameConfig) Validate() error {
	var errs []error
	positive := []struct {
		name  string
		value int
	}{
		{"max_players", c.MaxPlayers},
		{"max_team_size", c.MaxTeamSize},
		{"turn_duration_seconds", c.TurnDurationSeconds},
		{"session_duration_minutes", c.SessionDurationMinutes},
		{"max_runs", c.MaxRuns},
		{"default_minigame_seconds", c.DefaultMiniGameSeconds},
		{"move_ack_timeout_seconds", c.MoveAckTimeoutSeconds},
		{"tick_rate", c.TickRate},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.value))
		}
	}
	if c.BoardLength < domain.MinBoardLength {
		errs = append(errs, fmt.Errorf("board_length must be at least %d, got %d", domain.MinBoardLength, c.BoardLength))
	}
	if c.StartingScore < 0 {
		errs = append(errs, fmt.Errorf("starting_score must not be negative, got %d", c.StartingScore))
	}
	if c.TickRate > 30 {
		errs = append(errs, fmt.Errorf("tick_rate must be at most 30, got %d", c.TickRate))
	}
	if c.SettleDelayMS < 0 || c.CardRevealDelayMS < 0 || c.MiniGameGraceSeconds < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	switch c.TransitionPolicy {
	case PolicyDrop, PolicyQueue:
	default:
		errs = append(errs, fmt.Errorf("transition_policy must be %q or %q, got %q", PolicyDrop, PolicyQueue, c.TransitionPolicy))
	}

	known := make(map[string]bool, len(domain.EventKinds))
	for _, k := range domain.EventKinds {
		known[string(k)] = true
	}
	for kind, secs := range c.MiniGameTimeLimits {
		if !known[kind] {
			errs = append(errs, fmt.Errorf("minigame_time_limits: unknown kind %q", kind))
		} else if secs <= 0 {
			errs = append(errs, fmt.Errorf("minigame_time_limits: %s must be positive, got %d", kind, secs))
		}
	}

	seen := make(map[string]bool, len(c.PredefinedTeams))
	for i, p := range c.PredefinedTeams {
		switch {
		case strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "":
			errs = append(errs, fmt.Errorf("predefined_teams[%d]: id and name are required", i))
		case seen[p.ID]:
			errs = append(errs, fmt.Errorf("predefined_teams[%d]: duplicate id %q", i, p.ID))
		}
		seen[p.ID] = true
	}
	return errors.Join(errs...)
}

func (c *GameConfig) TurnDuration() time.Duration {
	return time.Duration(c.TurnDurationSeconds) * time.Second
}

func (c *GameConfig) SessionDuration() time.Duration {
	return time.Duration(c.SessionDurationMinutes) * time.Minute
}

func (c *GameConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

func (c *GameConfig) CardRevealDelay() time.Duration {
	return time.Duration(c.CardRevealDelayMS) * time.Millisecond
}

func (c *GameConfig) MoveAckTimeout() time.Duration {
	return time.Duration(c.MoveAckTimeoutSeconds) * time.Second
}

func (c *GameConfig) MiniGameGrace() time.Duration {
	return time.Duration(c.MiniGameGraceSeconds) * time.Second
}

func (c *GameConfig) DefaultMiniGameLimit() time.Duration {
	return time.Duration(c.DefaultMiniGameSeconds) * time.Second
}

// MiniGameLimits converts the per-kind limits to durations.
func (c *GameConfig) MiniGameLimits() map[domain.EventKind]time.Duration {
	out := make(map[domain.EventKind]time.Duration, len(c.MiniGameTimeLimits))
	for kind, secs := range c.MiniGameTimeLimits {
		out[domain.EventKind(kind)] = time.Duration(secs) * time.Second
	}
	return out
}
