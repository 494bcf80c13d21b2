package app

import (
	"sort"

	"partyboard/internal/domain"
)

type TeamView struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Color         string   `json:"color"`
	Emblem        string   `json:"emblem"`
	Predefined    bool     `json:"predefined"`
	Members       []string `json:"members"`
	CaptainID     string   `json:"captain_id,omitempty"`
	Score         int      `json:"score"`
	Position      int      `json:"position"`
	RunsCompleted int      `json:"runs_completed"`
	Moving        bool     `json:"moving"`
	MiniGameLive  bool     `json:"minigame_live"`
}

type PlayerView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Group  string `json:"group,omitempty"`
	TeamID string `json:"team_id,omitempty"`
}

type PendingMoveView struct {
	TeamID string `json:"team_id"`
	From   int    `json:"from"`
	To     int    `json:"to"`
	Dice   [2]int `json:"dice"`
}

// Snapshot is the full public state of a session.
type Snapshot struct {
	Phase            domain.Phase     `json:"phase"`
	Node             Node             `json:"node"`
	Paused           bool             `json:"paused"`
	Round            int              `json:"round"`
	MaxRuns          int              `json:"max_runs"`
	TurnSeconds      int              `json:"turn_seconds"`
	SecondsRemaining int              `json:"seconds_remaining"`
	CurrentTeamID    string           `json:"current_team_id,omitempty"`
	TurnOrder        []string         `json:"turn_order"`
	HostUserID       string           `json:"host_user_id,omitempty"`
	Teams            []TeamView       `json:"teams"`
	Players          []PlayerView     `json:"players"`
	Board            []domain.Tile    `json:"board"`
	Pending          *PendingMoveView `json:"pending,omitempty"`
	EndReason        string           `json:"end_reason,omitempty"`
	WinnerID         string           `json:"winner_id,omitempty"`
}

// Snapshot captures the current public state. Answer keys are never included.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:            s.phase,
		Node:             s.node,
		Paused:           s.paused,
		Round:            s.round,
		MaxRuns:          s.maxRuns,
		TurnSeconds:      int(s.turnLimit.Seconds()),
		SecondsRemaining: s.SecondsRemaining(),
		TurnOrder:        s.TurnOrder(),
		HostUserID:       s.hostUserID,
		Board:            append([]domain.Tile(nil), s.board.Tiles...),
		EndReason:        s.endReason,
		WinnerID:         s.winnerID,
	}
	if t := s.CurrentTeam(); t != nil {
		snap.CurrentTeamID = t.ID
	}
	for _, t := range s.roster.Teams {
		snap.Teams = append(snap.Teams, TeamView{
			ID:            t.ID,
			Name:          t.Name,
			Color:         t.Color,
			Emblem:        t.Emblem,
			Predefined:    t.Predefined,
			Members:       append([]string{}, t.Members...),
			CaptainID:     t.CaptainID,
			Score:         t.Score,
			Position:      t.Position,
			RunsCompleted: t.RunsCompleted,
			Moving:        t.Moving,
			MiniGameLive:  s.games.Live(t.ID) != nil,
		})
	}
	for _, p := range s.roster.Players {
		snap.Players = append(snap.Players, PlayerView{ID: p.ID, Name: p.Name, Group: p.Group, TeamID: p.TeamID})
	}
	sort.Slice(snap.Players, func(i, j int) bool { return snap.Players[i].ID < snap.Players[j].ID })
	if s.pending != nil {
		snap.Pending = &PendingMoveView{TeamID: s.pending.TeamID, From: s.pending.From, To: s.pending.To, Dice: s.pending.Dice}
	}
	return snap
}

// PlayerCount returns the number of registered players.
func (s *Session) PlayerCount() int {
	return len(s.roster.Players)
}
