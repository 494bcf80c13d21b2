package domain

// Phase represents the lifecycle stage of a session.
type Phase string

const (
	// PhaseLobby is the pre-game state where players can join and pick teams.
	PhaseLobby Phase = "lobby"
	// PhaseInProgress is the active state where teams take turns.
	PhaseInProgress Phase = "in_progress"
	// PhaseEnded is the terminal state after a session concludes.
	PhaseEnded Phase = "ended"
)

// TileType tags what happens when a team lands on a tile.
type TileType string

const (
	TileStart   TileType = "start"
	TileSafe    TileType = "safe"
	TileEvent   TileType = "event"
	TileChance  TileType = "chance"
	TileDestiny TileType = "destiny"
)

// EventKind identifies a mini-game family.
type EventKind string

const (
	EventQuiz          EventKind = "quiz"           // multiple-choice
	EventWorkflow      EventKind = "workflow"       // ordering
	EventMatching      EventKind = "matching"       // pair-matching
	EventTrueFalse     EventKind = "true_false"     // true/false
	EventTeamChallenge EventKind = "team_challenge" // generic participation
)

// EventKinds lists every mini-game kind in board assignment order.
var EventKinds = []EventKind{EventQuiz, EventWorkflow, EventMatching, EventTrueFalse, EventTeamChallenge}

// Player is a connected participant. ID is the per-connection ephemeral id.
type Player struct {
	ID     string
	UserID string
	Name   string
	Group  string
	TeamID string // empty when not on a team
}

// Team is a group of players sharing one token, one score and one turn.
type Team struct {
	ID         string
	Name       string
	Color      string
	Emblem     string
	Predefined bool

	Members       []string // player ids in join order
	CaptainID     string
	CaptainCursor int

	Score         int
	Position      int
	RunsCompleted int
	Moving        bool
}

// HasMember reports whether playerID is on the team.
func (t *Team) HasMember(playerID string) bool {
	return indexOf(t.Members, playerID) >= 0
}

// IsEmpty reports whether the team has no members.
func (t *Team) IsEmpty() bool {
	return len(t.Members) == 0
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
