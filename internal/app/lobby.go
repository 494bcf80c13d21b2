package app

import (
	"strings"

	"partyboard/internal/domain"
	"partyboard/internal/log"

	"github.com/google/uuid"
)

// JoinSession registers a player. New players may only join in the lobby;
// a known player joining again just updates their name and group.
func (s *Session) JoinSession(playerID, userID, name, group string) ([]Event, error) {
	if s.roster.Player(playerID) == nil {
		switch s.phase {
		case domain.PhaseEnded:
			return nil, ErrSessionEnded
		case domain.PhaseInProgress:
			return nil, ErrSessionInProgress
		}
	}
	pl, err := s.roster.AddPlayer(domain.Player{ID: playerID, UserID: userID, Name: name, Group: group})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str(log.FieldPlayer, pl.ID).Msg("player joined")
	if s.hostUserID == "" && userID != "" {
		s.hostUserID = userID
		s.hostImplicit = true
	}
	return []Event{{Kind: EventPlayerJoined, Payload: PlayerJoinedPayload{
		PlayerID: pl.ID,
		Name:     pl.Name,
		Group:    pl.Group,
		Host:     s.IsHost(pl.UserID),
	}}}, nil
}

// JoinTeam moves a player onto a team. Once the session is running only
// teams already in the turn order accept players.
func (s *Session) JoinTeam(playerID, teamID string) ([]Event, error) {
	switch s.phase {
	case domain.PhaseEnded:
		return nil, ErrSessionEnded
	case domain.PhaseInProgress:
		if s.roster.Team(teamID) != nil && s.inTurnOrder(teamID) < 0 {
			return nil, ErrSessionInProgress
		}
	}
	pl := s.roster.Player(playerID)
	if pl == nil {
		return nil, domain.ErrPlayerNotFound
	}
	from := pl.TeamID
	wasCaptain := s.isCaptain(from, playerID)

	dep, err := s.roster.AssignTeam(playerID, teamID)
	if err != nil {
		return nil, err
	}
	if from == teamID {
		return nil, nil
	}
	events := []Event{{Kind: EventTeamChanged, Payload: TeamChangedPayload{
		PlayerID:   playerID,
		TeamID:     teamID,
		FromTeamID: from,
	}}}
	if dep != nil {
		events = append(events, s.handleDeparture(*dep, wasCaptain)...)
	}
	return events, nil
}

// CreateTeam adds an ad-hoc team in the lobby and puts its creator on it.
func (s *Session) CreateTeam(playerID, name string) ([]Event, error) {
	if s.phase != domain.PhaseLobby {
		return nil, ErrSessionInProgress
	}
	if s.roster.Player(playerID) == nil {
		return nil, domain.ErrPlayerNotFound
	}
	name = strings.TrimSpace(name)
	color := adHocColors[len(s.roster.Teams)%len(adHocColors)]
	team, err := s.roster.AddTeam(uuid.NewString(), name, color, "flag")
	if err != nil {
		return nil, err
	}
	events := []Event{{Kind: EventTeamCreated, Payload: TeamCreatedPayload{
		TeamID: team.ID,
		Name:   team.Name,
		Color:  team.Color,
		Emblem: team.Emblem,
	}}}
	joined, err := s.JoinTeam(playerID, team.ID)
	if err != nil {
		return events, err
	}
	return append(events, joined...), nil
}

// Leave removes a disconnected player and cleans up after their team.
func (s *Session) Leave(playerID string) ([]Event, error) {
	pl := s.roster.Player(playerID)
	if pl == nil {
		return nil, domain.ErrPlayerNotFound
	}
	userID := pl.UserID
	teamID := pl.TeamID
	wasCaptain := s.isCaptain(teamID, playerID)

	dep, err := s.roster.RemovePlayer(playerID)
	if err != nil {
		return nil, err
	}
	events := []Event{{Kind: EventPlayerLeft, Payload: PlayerLeftPayload{PlayerID: playerID, TeamID: teamID}}}

	if s.hostImplicit && userID == s.hostUserID && !s.userPresent(userID) {
		s.hostUserID = ""
		for _, p := range s.roster.Players {
			if p.UserID != "" {
				s.hostUserID = p.UserID
				break
			}
		}
		s.log.Info().Str(log.FieldPlayer, playerID).Str("host", s.hostUserID).Msg("host reassigned")
	}

	if dep != nil {
		events = append(events, s.handleDeparture(*dep, wasCaptain)...)
	}
	return events, nil
}

func (s *Session) userPresent(userID string) bool {
	for _, p := range s.roster.Players {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (s *Session) isCaptain(teamID, playerID string) bool {
	if teamID == "" {
		return false
	}
	t := s.roster.Team(teamID)
	return t != nil && t.CaptainID == playerID
}

// handleDeparture keeps the turn order consistent after a player left a team
// mid-session.
func (s *Session) handleDeparture(dep domain.Departure, wasCaptain bool) []Event {
	if s.phase != domain.PhaseInProgress {
		return nil
	}
	idx := s.inTurnOrder(dep.TeamID)
	if idx < 0 {
		return nil
	}
	current := idx == s.turnIndex && !s.orphaned

	if !dep.Emptied {
		if !current || !wasCaptain {
			return nil
		}
		team := s.roster.Team(dep.TeamID)
		captain := domain.RotateCaptain(team)
		return []Event{{Kind: EventCaptainChanged, Payload: CaptainChangedPayload{
			TeamID:    team.ID,
			CaptainID: captain,
			Round:     s.round,
		}}}
	}

	s.log.Info().Str(log.FieldTeam, dep.TeamID).Bool("current", current).Msg("team emptied mid-session")
	s.turnOrder = append(s.turnOrder[:idx], s.turnOrder[idx+1:]...)
	s.games.Discard(dep.TeamID)
	if idx < s.turnIndex {
		s.turnIndex--
	}
	if !current {
		return s.checkWin()
	}

	if s.pending != nil && s.pending.TeamID == dep.TeamID {
		s.pending = nil
	}
	s.orphaned = true
	if len(s.turnOrder) == 0 {
		return s.end(EndNoTeams)
	}
	if s.node == NodeTransitioning {
		// settle picks the orphaned turn up.
		return nil
	}
	events, _ := s.advance(ReasonOrphanedTurn)
	return events
}
