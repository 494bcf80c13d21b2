package app

import (
	"time"

	"partyboard/internal/config"
	"partyboard/internal/domain"
	"partyboard/internal/log"
	"partyboard/internal/minigame"
)

// Start moves the session from lobby to in_progress. Empty teams are left out
// of the turn order.
func (s *Session) Start(actorUserID string) ([]Event, error) {
	switch s.phase {
	case domain.PhaseInProgress:
		return nil, ErrSessionInProgress
	case domain.PhaseEnded:
		return nil, ErrSessionEnded
	}
	if s.hostUserID != "" && !s.IsHost(actorUserID) {
		return nil, ErrNotHost
	}
	populated := s.roster.PopulatedTeams()
	if len(populated) == 0 {
		return nil, ErrNoPopulatedTeams
	}

	now := s.now()
	s.turnOrder = s.turnOrder[:0]
	for _, t := range populated {
		s.turnOrder = append(s.turnOrder, t.ID)
	}
	s.turnIndex = 0
	s.orphaned = false
	s.round = 1
	s.phase = domain.PhaseInProgress
	s.node = NodeIdle
	s.fallbackAt = now.Add(s.cfg.SessionDuration())

	team := s.CurrentTeam()
	captain := domain.RotateCaptain(team)
	s.armCountdown(now)

	s.log.Info().Strs("turn_order", s.turnOrder).Msg("session started")
	return []Event{
		{Kind: EventSessionStarted, Payload: SessionStartedPayload{TurnOrder: s.TurnOrder(), Round: s.round}},
		{Kind: EventCaptainChanged, Payload: CaptainChangedPayload{TeamID: team.ID, CaptainID: captain, Round: s.round}},
	}, nil
}

// AdvanceTurn ends the current turn and hands it to the next team. While a
// transition is in flight the configured overlap policy applies.
func (s *Session) AdvanceTurn(reason string) ([]Event, error) {
	return s.advance(reason)
}

// ForceAdvance is AdvanceTurn for host skips and orphaned turns.
func (s *Session) ForceAdvance(reason string) ([]Event, error) {
	if s.paused {
		return nil, ErrSessionPaused
	}
	return s.advance(reason)
}

func (s *Session) advance(reason string) ([]Event, error) {
	if s.phase != domain.PhaseInProgress || s.node == NodeLocked {
		return nil, ErrSessionNotRunning
	}
	if s.node == NodeTransitioning {
		if s.cfg.TransitionPolicy == config.PolicyQueue && s.queued == "" {
			s.queued = reason
			s.log.Info().Str(log.FieldReason, reason).Msg("advance queued behind in-flight transition")
			return nil, nil
		}
		s.log.Info().Str(log.FieldReason, reason).Msg("advance dropped; transition in flight")
		return nil, ErrTransitionInFlight
	}

	now := s.now()
	outgoing := s.CurrentTeam()
	begun := TransitionBegunPayload{Reason: reason}
	if outgoing != nil {
		begun.TeamID = outgoing.ID
	}
	events := []Event{{Kind: EventTransitionBegun, Payload: begun}}

	if outgoing != nil {
		// A move that was never acknowledged still lands; its tile is not resolved.
		if s.pending != nil && s.pending.TeamID == outgoing.ID {
			outgoing.Position = s.pending.To
		}
		outgoing.Moving = false
		s.games.Discard(outgoing.ID)
		domain.CompleteRun(outgoing, s.maxRuns)
		events = append(events, Event{Kind: EventTurnEnded, Payload: TurnEndedPayload{
			TeamID:        outgoing.ID,
			RunsCompleted: outgoing.RunsCompleted,
			Round:         s.round,
			Reason:        reason,
		}})
	}
	s.pending = nil
	s.resolving = false
	s.cardAdvanceAt = time.Time{}
	s.turnDeadline = time.Time{}
	s.metrics.TurnAdvanced(reason)

	if len(s.turnOrder) == 0 {
		return append(events, s.end(EndNoTeams)...), nil
	}
	if domain.AllRunsCompleted(s.orderTeams(), s.maxRuns) {
		return append(events, s.end(EndRunsCompleted)...), nil
	}

	next, wrapped := s.nextIndex()
	if next < 0 {
		return append(events, s.end(EndRunsCompleted)...), nil
	}
	if wrapped {
		s.round++
	}
	s.turnIndex = next
	s.orphaned = false
	domain.RotateCaptain(s.CurrentTeam())
	s.armCountdown(now)
	s.node = NodeTransitioning
	s.settleAt = now.Add(s.cfg.SettleDelay())

	s.log.Debug().
		Str(log.FieldReason, reason).
		Str(log.FieldTeam, s.turnOrder[next]).
		Int(log.FieldRound, s.round).
		Msg("turn advanced")
	return events, nil
}

// nextIndex picks the next team round-robin, skipping teams already at the
// run cap. wrapped reports whether the pick passed the end of the order.
func (s *Session) nextIndex() (int, bool) {
	n := len(s.turnOrder)
	start := s.turnIndex + 1
	if s.orphaned {
		start = s.turnIndex
	}
	for k := 0; k < n; k++ {
		j := start + k
		wrapped := j >= n
		if wrapped {
			j -= n
		}
		t := s.roster.Team(s.turnOrder[j])
		if t != nil && t.RunsCompleted < s.maxRuns {
			return j, wrapped
		}
	}
	return -1, false
}

// settle closes the transition window and announces the new captain.
func (s *Session) settle() []Event {
	s.node = NodeIdle
	s.settleAt = time.Time{}

	if s.orphaned {
		events, _ := s.advance(ReasonOrphanedTurn)
		return events
	}

	var events []Event
	if team := s.CurrentTeam(); team != nil {
		events = append(events, Event{Kind: EventCaptainChanged, Payload: CaptainChangedPayload{
			TeamID:    team.ID,
			CaptainID: team.CaptainID,
			Round:     s.round,
		}})
	}
	if s.queued != "" {
		reason := s.queued
		s.queued = ""
		more, _ := s.advance(reason)
		events = append(events, more...)
	}
	return events
}

func (s *Session) armCountdown(now time.Time) {
	s.turnDeadline = now.Add(s.turnLimit)
	s.lastRemaining = secondsUntil(now, s.turnDeadline)
}

// End terminates the session. Only the host may end a session early.
func (s *Session) End(actorUserID, reason string) ([]Event, error) {
	if !s.IsHost(actorUserID) {
		return nil, ErrNotHost
	}
	if s.phase != domain.PhaseInProgress {
		return nil, ErrSessionNotRunning
	}
	return s.end(reason), nil
}

func (s *Session) end(reason string) []Event {
	s.clearTimers()
	s.games.Reset()
	for _, t := range s.roster.Teams {
		t.Moving = false
	}
	s.phase = domain.PhaseEnded
	s.node = NodeLocked
	s.queued = ""
	s.paused = false
	s.endReason = reason

	teams := s.orderTeams()
	if len(teams) == 0 {
		teams = s.roster.Teams
	}
	s.winnerID = ""
	if w := domain.Leader(teams); w != nil {
		s.winnerID = w.ID
	}
	s.metrics.SessionEnded(reason)
	s.log.Info().Str(log.FieldReason, reason).Str("winner", s.winnerID).Msg("session ended")

	return []Event{{Kind: EventSessionEnded, Payload: SessionEndedPayload{
		Reason:    reason,
		WinnerID:  s.winnerID,
		Standings: s.standings(),
	}}}
}

// Reset discards all state and rebuilds the lobby from configuration.
// Players are dropped and must join again.
func (s *Session) Reset(actorUserID string) ([]Event, error) {
	if !s.IsHost(actorUserID) {
		return nil, ErrNotHost
	}
	s.rebuild()
	s.log.Info().Msg("session reset")
	return []Event{{Kind: EventSessionReset, Payload: SessionResetPayload{BoardLength: s.board.Len()}}}, nil
}

// checkWin ends the session when every turn-order team has hit the run cap.
func (s *Session) checkWin() []Event {
	if s.phase != domain.PhaseInProgress {
		return nil
	}
	if len(s.turnOrder) == 0 {
		return s.end(EndNoTeams)
	}
	if domain.AllRunsCompleted(s.orderTeams(), s.maxRuns) {
		return s.end(EndRunsCompleted)
	}
	return nil
}

// Tick evaluates every deadline against the clock. The match loop calls it
// once per iteration.
func (s *Session) Tick() []Event {
	if s.phase != domain.PhaseInProgress || s.paused {
		return nil
	}
	now := s.now()
	var events []Event

	if !s.fallbackAt.IsZero() && !now.Before(s.fallbackAt) {
		return s.end(EndSessionTimeout)
	}

	if s.node == NodeTransitioning && !now.Before(s.settleAt) {
		events = append(events, s.settle()...)
	}
	if s.phase != domain.PhaseInProgress {
		return events
	}

	if s.node == NodeIdle && !s.cardAdvanceAt.IsZero() && !now.Before(s.cardAdvanceAt) {
		s.cardAdvanceAt = time.Time{}
		more, _ := s.advance(ReasonCardResolved)
		events = append(events, more...)
	}

	if s.node == NodeIdle && s.pending != nil && !now.Before(s.pending.AckDeadline) {
		team := s.roster.Team(s.pending.TeamID)
		s.log.Warn().Str(log.FieldTeam, s.pending.TeamID).Msg("movement not acknowledged; auto-committing")
		if team != nil {
			events = append(events, s.commitMove(team, true)...)
		} else {
			s.pending = nil
		}
	}

	for _, inst := range s.games.SweepExpired(now) {
		events = append(events, s.expireMiniGame(inst)...)
	}

	if s.phase == domain.PhaseInProgress && s.node == NodeIdle && !s.turnDeadline.IsZero() {
		remaining := secondsUntil(now, s.turnDeadline)
		switch {
		case remaining == 0:
			more, _ := s.advance(ReasonTurnTimeout)
			events = append(events, more...)
		case remaining != s.lastRemaining:
			s.lastRemaining = remaining
			if team := s.CurrentTeam(); team != nil {
				events = append(events, Event{Kind: EventTurnTimer, Payload: TurnTimerPayload{
					TeamID:           team.ID,
					SecondsRemaining: remaining,
				}})
			}
		}
	}
	return events
}

// expireMiniGame ends the turn of a team whose instance was swept.
func (s *Session) expireMiniGame(inst *minigame.Instance) []Event {
	team := s.CurrentTeam()
	if team == nil || team.ID != inst.TeamID || s.node != NodeIdle {
		s.log.Debug().Str(log.FieldTeam, inst.TeamID).Msg("stale mini-game swept")
		return nil
	}
	s.metrics.MiniGameGraded(string(inst.Kind), "expired")
	events := []Event{{Kind: EventMiniGameGraded, Payload: MiniGameGradedPayload{
		TeamID:     team.ID,
		InstanceID: inst.ID,
		Kind:       inst.Kind,
		Outcome:    "expired",
		Score:      team.Score,
		Feedback:   "Time is up.",
	}}}
	more, _ := s.advance(ReasonMiniGameExpired)
	return append(events, more...)
}
