package app

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"partyboard/internal/domain"
	"partyboard/internal/log"
)

// HostCommand is a host-control request. Payload's shape depends on Action.
type HostCommand struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type adjustScoreArgs struct {
	TeamID string `json:"team_id"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type turnTimeArgs struct {
	Seconds int `json:"seconds"`
}

type maxRoundsArgs struct {
	MaxRounds int `json:"max_rounds"`
}

// HostControl runs a host action on behalf of actorUserID.
func (s *Session) HostControl(actorUserID string, cmd HostCommand) ([]Event, error) {
	if !s.IsHost(actorUserID) {
		return nil, ErrNotHost
	}
	s.log.Info().Str("action", cmd.Action).Msg("host control")

	switch cmd.Action {
	case ActionSkipTurn:
		if err := s.requireRunning(); err != nil {
			return nil, err
		}
		return s.ForceAdvance(ReasonHostSkip)

	case ActionAdjustScore:
		var args adjustScoreArgs
		if err := decodeArgs(cmd.Payload, &args); err != nil {
			return nil, err
		}
		return s.AdjustScore(args.TeamID, args.Delta, args.Reason)

	case ActionEndGame:
		return s.End(actorUserID, EndHost)

	case ActionResetGame:
		return s.Reset(actorUserID)

	case ActionPauseGame:
		return s.Pause()

	case ActionResumeGame:
		return s.Resume()

	case ActionUpdateTurnTime:
		var args turnTimeArgs
		if err := decodeArgs(cmd.Payload, &args); err != nil {
			return nil, err
		}
		return s.UpdateTurnTime(args.Seconds)

	case ActionUpdateMaxRounds:
		var args maxRoundsArgs
		if err := decodeArgs(cmd.Payload, &args); err != nil {
			return nil, err
		}
		return s.UpdateMaxRuns(args.MaxRounds)
	}
	return nil, domain.NewError(domain.KindValidation, domain.CodeInvalidArgument, fmt.Sprintf("unknown host action %q", cmd.Action))
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return ErrInvalidArgument
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return domain.NewError(domain.KindValidation, domain.CodeInvalidArgument, "invalid host payload: "+err.Error())
	}
	return nil
}

// AdjustScore applies a bounded score change to any team and re-evaluates
// the win condition.
func (s *Session) AdjustScore(teamID string, delta int, reason string) ([]Event, error) {
	if s.phase == domain.PhaseEnded {
		return nil, ErrSessionEnded
	}
	team := s.roster.Team(teamID)
	if team == nil {
		return nil, domain.ErrTeamNotFound
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "host"
	}
	applied := domain.AdjustScore(team, delta, 0)
	s.log.Info().Str(log.FieldTeam, teamID).Int("delta", applied).Str(log.FieldReason, reason).Msg("score adjusted")
	events := []Event{{Kind: EventScoreChanged, Payload: ScoreChangedPayload{
		TeamID: teamID,
		Delta:  applied,
		Score:  team.Score,
		Reason: reason,
	}}}
	return append(events, s.checkWin()...), nil
}

// Pause freezes every timer. Player actions are refused until Resume.
func (s *Session) Pause() ([]Event, error) {
	if s.phase != domain.PhaseInProgress {
		return nil, ErrSessionNotRunning
	}
	if s.paused {
		return nil, ErrSessionPaused
	}
	s.paused = true
	s.pausedAt = s.now()
	return []Event{{Kind: EventSessionPaused}}, nil
}

// Resume shifts every deadline by the time spent paused.
func (s *Session) Resume() ([]Event, error) {
	if s.phase != domain.PhaseInProgress {
		return nil, ErrSessionNotRunning
	}
	if !s.paused {
		return nil, domain.NewError(domain.KindValidation, domain.CodeInvalidArgument, "session is not paused")
	}
	d := s.now().Sub(s.pausedAt)
	shift := func(t *time.Time) {
		if !t.IsZero() {
			*t = t.Add(d)
		}
	}
	shift(&s.turnDeadline)
	shift(&s.settleAt)
	shift(&s.cardAdvanceAt)
	shift(&s.fallbackAt)
	if s.pending != nil {
		shift(&s.pending.AckDeadline)
	}
	s.games.Shift(d)
	s.paused = false
	s.pausedAt = time.Time{}
	return []Event{{Kind: EventSessionResumed}}, nil
}

// UpdateTurnTime changes the countdown length and rearms the running countdown.
func (s *Session) UpdateTurnTime(seconds int) ([]Event, error) {
	if seconds <= 0 {
		return nil, domain.NewError(domain.KindValidation, domain.CodeInvalidArgument, "turn time must be positive")
	}
	s.turnLimit = time.Duration(seconds) * time.Second
	if s.phase == domain.PhaseInProgress && !s.turnDeadline.IsZero() {
		ref := s.now()
		if s.paused {
			ref = s.pausedAt
		}
		s.armCountdown(ref)
	}
	return []Event{s.settingsChanged()}, nil
}

// UpdateMaxRuns changes the run cap. Counters above the new cap are clamped.
func (s *Session) UpdateMaxRuns(n int) ([]Event, error) {
	if n <= 0 {
		return nil, domain.NewError(domain.KindValidation, domain.CodeInvalidArgument, "max rounds must be positive")
	}
	s.maxRuns = n
	for _, t := range s.roster.Teams {
		if t.RunsCompleted > n {
			t.RunsCompleted = n
		}
	}
	return append([]Event{s.settingsChanged()}, s.checkWin()...), nil
}

func (s *Session) settingsChanged() Event {
	return Event{Kind: EventSettingsChanged, Payload: SettingsChangedPayload{
		TurnDurationSeconds: int(s.turnLimit / time.Second),
		MaxRuns:             s.maxRuns,
	}}
}
