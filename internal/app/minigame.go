package app

import (
	"time"

	"partyboard/internal/domain"
	"partyboard/internal/log"
	"partyboard/internal/minigame"
)

// MiniGameReady arms the team's mini-game clock once the puzzle is on screen.
func (s *Session) MiniGameReady(actorID, teamID string) ([]Event, error) {
	if err := s.requireRunning(); err != nil {
		return nil, err
	}
	team := s.roster.Team(teamID)
	if team == nil {
		return nil, domain.ErrTeamNotFound
	}
	if !team.HasMember(actorID) {
		return nil, domain.ErrNotTeamMember
	}
	inst, armed, err := s.games.Arm(teamID, s.now())
	if err != nil {
		return nil, err
	}
	if !armed {
		return nil, nil
	}
	return []Event{{Kind: EventMiniGameTimerArmed, Payload: MiniGameTimerArmedPayload{
		TeamID:           teamID,
		InstanceID:       inst.ID,
		TimeLimitSeconds: int(inst.TimeLimit / time.Second),
		DeadlineUnixMS:   inst.Deadline().UnixMilli(),
	}}}, nil
}

// SubmitMiniGame grades the captain's answer, applies the score and ends the
// turn. Validation happens before the instance is touched. A submission that
// cannot be graded still ends the turn so the session never stalls.
func (s *Session) SubmitMiniGame(actorID, teamID string, sub minigame.Submission) ([]Event, error) {
	if err := s.requireRunning(); err != nil {
		return nil, err
	}
	if s.node != NodeIdle {
		return nil, ErrTransitionInFlight
	}
	team := s.roster.Team(teamID)
	if team == nil {
		return nil, domain.ErrTeamNotFound
	}
	if current := s.CurrentTeam(); current == nil || current.ID != teamID {
		return nil, ErrNotYourTurn
	}
	if team.CaptainID != actorID {
		return nil, ErrNotCaptain
	}
	if s.games.Live(teamID) == nil {
		return nil, minigame.ErrNoLiveInstance
	}

	res, err := s.games.Grade(teamID, sub, s.now())
	if err != nil {
		s.log.Error().Err(err).Str(log.FieldTeam, teamID).Str(log.FieldCode, string(domain.CodeOf(err))).Msg("grading failed; ending turn")
		events, _ := s.advance(ReasonGradingFailed)
		return events, err
	}
	s.metrics.MiniGameGraded(string(res.Kind), string(res.Outcome))

	applied := domain.AdjustScore(team, res.Score, 0)
	events := []Event{{Kind: EventMiniGameGraded, Payload: MiniGameGradedPayload{
		TeamID:     teamID,
		InstanceID: res.InstanceID,
		Kind:       res.Kind,
		Outcome:    string(res.Outcome),
		Accuracy:   res.Accuracy,
		ScoreDelta: applied,
		Score:      team.Score,
		Feedback:   res.Feedback,
	}}}
	if applied != 0 {
		events = append(events, Event{Kind: EventScoreChanged, Payload: ScoreChangedPayload{
			TeamID: teamID,
			Delta:  applied,
			Score:  team.Score,
			Reason: "minigame:" + string(res.Outcome),
		}})
	}
	more, _ := s.advance(ReasonMiniGameGraded)
	return append(events, more...), nil
}
