package app

import (
	"time"

	"partyboard/internal/cards"
	"partyboard/internal/domain"
	"partyboard/internal/log"
)

// RollDice proposes a move for the team holding the turn. The position is
// not written until the move is committed.
func (s *Session) RollDice(actorID, teamID string) ([]Event, error) {
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
	current := s.CurrentTeam()
	if current == nil || current.ID != teamID {
		return nil, ErrNotYourTurn
	}
	if team.CaptainID != actorID {
		return nil, ErrNotCaptain
	}
	if team.Moving {
		return nil, ErrAlreadyMoving
	}
	if s.resolving {
		return nil, ErrTurnResolving
	}

	d1, d2 := s.dice.Roll()
	now := s.now()
	move := &PendingMove{
		TeamID:      teamID,
		From:        team.Position,
		To:          s.board.Advance(team.Position, d1+d2),
		Dice:        [2]int{d1, d2},
		AckDeadline: now.Add(s.cfg.MoveAckTimeout()),
	}
	s.pending = move
	s.resolving = true
	team.Moving = true
	// Movement, mini-games and cards run on their own timers.
	s.turnDeadline = time.Time{}
	s.metrics.DiceRolled()

	return []Event{{Kind: EventDiceResult, Payload: DiceResultPayload{
		TeamID: teamID,
		Dice:   move.Dice,
		Total:  d1 + d2,
		From:   move.From,
		To:     move.To,
	}}}, nil
}

// CompleteMovement commits the pending move once the client has finished
// animating it, then resolves the landing tile.
func (s *Session) CompleteMovement(actorID, teamID string, position int) ([]Event, error) {
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
	if s.pending == nil || s.pending.TeamID != teamID {
		return nil, ErrNotMoving
	}
	if position != s.pending.To {
		return nil, ErrPositionMismatch
	}
	return s.commitMove(team, false), nil
}

func (s *Session) commitMove(team *domain.Team, auto bool) []Event {
	team.Position = s.pending.To
	team.Moving = false
	s.pending = nil

	tile := s.board.TileAt(team.Position)
	events := []Event{{Kind: EventTileLanded, Payload: TileLandedPayload{
		TeamID:        team.ID,
		Position:      team.Position,
		Tile:          tile,
		AutoCommitted: auto,
	}}}
	return append(events, s.resolveTile(team, tile)...)
}

// resolveTile is the single place tile semantics are interpreted.
func (s *Session) resolveTile(team *domain.Team, tile domain.Tile) []Event {
	now := s.now()
	switch tile.Type {
	case domain.TileEvent:
		inst := s.games.Start(team.ID, tile.Kind, now)
		return []Event{{Kind: EventMiniGameStarted, Payload: MiniGameStartedPayload{
			TeamID:           team.ID,
			InstanceID:       inst.ID,
			Kind:             inst.Kind,
			TimeLimitSeconds: int(inst.TimeLimit / time.Second),
			Puzzle:           inst.Puzzle.View(),
		}}}

	case domain.TileChance, domain.TileDestiny:
		table, _ := cards.TableForTile(tile.Type)
		card, err := s.cards.Draw(table)
		if err != nil {
			s.log.Error().Err(err).Str(log.FieldTeam, team.ID).Msg("card draw failed")
			events, _ := s.advance(ReasonTileResolved)
			return events
		}
		out := cards.Apply(team, table, card)
		events := []Event{{Kind: EventCardDrawn, Payload: CardDrawnPayload{
			TeamID:  team.ID,
			Variant: table,
			Card:    card,
			From:    out.FromPosition,
			To:      out.ToPosition,
		}}}
		if out.ScoreDelta != 0 {
			events = append(events, Event{Kind: EventScoreChanged, Payload: ScoreChangedPayload{
				TeamID: team.ID,
				Delta:  out.ScoreDelta,
				Score:  out.Score,
				Reason: "card:" + card.ID,
			}})
		}
		s.cardAdvanceAt = now.Add(s.cfg.CardRevealDelay())
		return events

	default:
		events, _ := s.advance(ReasonTileResolved)
		return events
	}
}
