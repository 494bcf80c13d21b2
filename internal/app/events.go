package app

import (
	"partyboard/internal/cards"
	"partyboard/internal/domain"
)

// EventKind identifies emitted session events for Nakama dispatch.
type EventKind string

const (
	EventPlayerJoined       EventKind = "player_joined"
	EventPlayerLeft         EventKind = "player_left"
	EventTeamCreated        EventKind = "team_created"
	EventTeamChanged        EventKind = "team_changed"
	EventSessionStarted     EventKind = "session_started"
	EventDiceResult         EventKind = "dice_result"
	EventTileLanded         EventKind = "tile_landed"
	EventMiniGameStarted    EventKind = "minigame_started"
	EventMiniGameTimerArmed EventKind = "minigame_timer_armed"
	EventMiniGameGraded     EventKind = "minigame_graded"
	EventCardDrawn          EventKind = "card_drawn"
	EventScoreChanged       EventKind = "score_changed"
	EventTransitionBegun    EventKind = "turn_transition_begun"
	EventTurnEnded          EventKind = "turn_ended"
	EventCaptainChanged     EventKind = "captain_changed"
	EventTurnTimer          EventKind = "turn_timer"
	EventSessionPaused      EventKind = "session_paused"
	EventSessionResumed     EventKind = "session_resumed"
	EventSettingsChanged    EventKind = "settings_changed"
	EventSessionEnded       EventKind = "session_ended"
	EventSessionReset       EventKind = "session_reset"
)

// Event is a session event. Every event is broadcast to the whole match.
type Event struct {
	Kind    EventKind
	Payload any
}

type PlayerJoinedPayload struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Group    string `json:"group,omitempty"`
	Host     bool   `json:"host"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id,omitempty"`
}

type TeamCreatedPayload struct {
	TeamID string `json:"team_id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Emblem string `json:"emblem"`
}

type TeamChangedPayload struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`
	// FromTeamID is set when the player left another team on the way.
	FromTeamID string `json:"from_team_id,omitempty"`
}

type SessionStartedPayload struct {
	TurnOrder []string `json:"turn_order"`
	Round     int      `json:"round"`
}

type DiceResultPayload struct {
	TeamID string `json:"team_id"`
	Dice   [2]int `json:"dice"`
	Total  int    `json:"total"`
	From   int    `json:"from"`
	To     int    `json:"to"`
}

type TileLandedPayload struct {
	TeamID   string      `json:"team_id"`
	Position int         `json:"position"`
	Tile     domain.Tile `json:"tile"`
	// AutoCommitted is true when the server committed the move after the
	// acknowledgment window closed.
	AutoCommitted bool `json:"auto_committed,omitempty"`
}

type MiniGameStartedPayload struct {
	TeamID           string           `json:"team_id"`
	InstanceID       string           `json:"instance_id"`
	Kind             domain.EventKind `json:"kind"`
	TimeLimitSeconds int              `json:"time_limit_seconds"`
	Puzzle           any              `json:"puzzle"`
}

type MiniGameTimerArmedPayload struct {
	TeamID           string `json:"team_id"`
	InstanceID       string `json:"instance_id"`
	TimeLimitSeconds int    `json:"time_limit_seconds"`
	DeadlineUnixMS   int64  `json:"deadline_unix_ms"`
}

type MiniGameGradedPayload struct {
	TeamID     string           `json:"team_id"`
	InstanceID string           `json:"instance_id"`
	Kind       domain.EventKind `json:"kind"`
	Outcome    string           `json:"outcome"`
	Accuracy   float64          `json:"accuracy"`
	ScoreDelta int              `json:"score_delta"`
	Score      int              `json:"score"`
	Feedback   string           `json:"feedback"`
}

type CardDrawnPayload struct {
	TeamID  string      `json:"team_id"`
	Variant cards.Table `json:"variant"`
	Card    cards.Card  `json:"card"`
	From    int         `json:"from"`
	To      int         `json:"to"`
}

type ScoreChangedPayload struct {
	TeamID string `json:"team_id"`
	Delta  int    `json:"delta"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

type TransitionBegunPayload struct {
	TeamID string `json:"team_id,omitempty"`
	Reason string `json:"reason"`
}

type TurnEndedPayload struct {
	TeamID        string `json:"team_id"`
	RunsCompleted int    `json:"runs_completed"`
	Round         int    `json:"round"`
	Reason        string `json:"reason"`
}

type CaptainChangedPayload struct {
	TeamID    string `json:"team_id"`
	CaptainID string `json:"captain_id"`
	Round     int    `json:"round"`
}

type TurnTimerPayload struct {
	TeamID           string `json:"team_id"`
	SecondsRemaining int    `json:"seconds_remaining"`
}

type SettingsChangedPayload struct {
	TurnDurationSeconds int `json:"turn_duration_seconds"`
	MaxRuns             int `json:"max_runs"`
}

type Standing struct {
	TeamID        string `json:"team_id"`
	Name          string `json:"name"`
	Score         int    `json:"score"`
	RunsCompleted int    `json:"runs_completed"`
}

type SessionEndedPayload struct {
	Reason    string     `json:"reason"`
	WinnerID  string     `json:"winner_id,omitempty"`
	Standings []Standing `json:"standings"`
}

type SessionResetPayload struct {
	BoardLength int `json:"board_length"`
}
