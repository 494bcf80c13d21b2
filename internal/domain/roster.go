package domain

import "strings"

// TeamPreset is a predefined team identity that survives resets.
type TeamPreset struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Emblem string `json:"emblem"`
}

// RosterLimits bounds roster growth.
type RosterLimits struct {
	MaxPlayers    int
	MaxTeamSize   int
	StartingScore int
}

// Departure describes what happened to a team when a member left it.
type Departure struct {
	TeamID  string
	Emptied bool // team has no members left
	Deleted bool // ad-hoc team was removed from the roster
}

// Roster owns players and teams. Teams keep table order, which breaks ties.
type Roster struct {
	limits  RosterLimits
	Players map[string]*Player
	Teams   []*Team
}

// NewRoster seeds a roster with the predefined teams.
func NewRoster(presets []TeamPreset, limits RosterLimits) *Roster {
	r := &Roster{
		limits:  limits,
		Players: make(map[string]*Player),
		Teams:   make([]*Team, 0, len(presets)),
	}
	for _, p := range presets {
		t := &Team{ID: p.ID, Name: p.Name, Color: p.Color, Emblem: p.Emblem, Predefined: true}
		r.ResetTeam(t)
		r.Teams = append(r.Teams, t)
	}
	return r
}

// Team returns the team with the given id, or nil.
func (r *Roster) Team(id string) *Team {
	for _, t := range r.Teams {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Player returns the player with the given id, or nil.
func (r *Roster) Player(id string) *Player {
	return r.Players[id]
}

// AddPlayer registers a new player.
func (r *Roster) AddPlayer(p Player) (*Player, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, ErrInvalidName
	}
	if existing, ok := r.Players[p.ID]; ok {
		existing.Name = p.Name
		existing.Group = strings.TrimSpace(p.Group)
		return existing, nil
	}
	if r.limits.MaxPlayers > 0 && len(r.Players) >= r.limits.MaxPlayers {
		return nil, ErrSessionFull
	}
	p.Group = strings.TrimSpace(p.Group)
	p.TeamID = ""
	pl := &p
	r.Players[p.ID] = pl
	return pl, nil
}

// AddTeam appends an ad-hoc team with the given identity.
func (r *Roster) AddTeam(id, name, color, emblem string) (*Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	t := &Team{ID: id, Name: name, Color: color, Emblem: emblem}
	r.ResetTeam(t)
	r.Teams = append(r.Teams, t)
	return t, nil
}

// AssignTeam moves a player onto a team. If the player leaves another team
// on the way, the returned departure describes that team's fate.
func (r *Roster) AssignTeam(playerID, teamID string) (*Departure, error) {
	pl := r.Players[playerID]
	if pl == nil {
		return nil, ErrPlayerNotFound
	}
	team := r.Team(teamID)
	if team == nil {
		return nil, ErrTeamNotFound
	}
	if pl.TeamID == teamID {
		return nil, nil
	}
	if r.limits.MaxTeamSize > 0 && len(team.Members) >= r.limits.MaxTeamSize {
		return nil, ErrTeamFull
	}

	var dep *Departure
	if pl.TeamID != "" {
		d := r.leaveTeam(pl)
		dep = &d
	}
	team.Members = append(team.Members, playerID)
	pl.TeamID = teamID
	return dep, nil
}

// RemovePlayer deletes a player and cascades to team cleanup.
func (r *Roster) RemovePlayer(playerID string) (*Departure, error) {
	pl := r.Players[playerID]
	if pl == nil {
		return nil, ErrPlayerNotFound
	}
	var dep *Departure
	if pl.TeamID != "" {
		d := r.leaveTeam(pl)
		dep = &d
	}
	delete(r.Players, playerID)
	return dep, nil
}

func (r *Roster) leaveTeam(pl *Player) Departure {
	dep := Departure{TeamID: pl.TeamID}
	team := r.Team(pl.TeamID)
	pl.TeamID = ""
	if team == nil {
		return dep
	}

	if i := indexOf(team.Members, pl.ID); i >= 0 {
		team.Members = append(team.Members[:i], team.Members[i+1:]...)
		if i < team.CaptainCursor {
			team.CaptainCursor--
		}
	}
	if team.IsEmpty() {
		dep.Emptied = true
		if team.Predefined {
			r.ResetTeam(team)
		} else {
			r.deleteTeam(team.ID)
			dep.Deleted = true
		}
	}
	return dep
}

func (r *Roster) deleteTeam(id string) {
	for i, t := range r.Teams {
		if t.ID == id {
			r.Teams = append(r.Teams[:i], r.Teams[i+1:]...)
			return
		}
	}
}

// ResetTeam restores a team's game state to defaults. Membership is kept.
func (r *Roster) ResetTeam(t *Team) {
	t.Score = r.limits.StartingScore
	t.Position = 0
	t.RunsCompleted = 0
	t.Moving = false
	t.CaptainID = ""
	t.CaptainCursor = 0
}

// PopulatedTeams returns teams with at least one member, in table order.
func (r *Roster) PopulatedTeams() []*Team {
	out := make([]*Team, 0, len(r.Teams))
	for _, t := range r.Teams {
		if !t.IsEmpty() {
			out = append(out, t)
		}
	}
	return out
}
