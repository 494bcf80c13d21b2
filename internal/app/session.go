package app

import (
	"fmt"
	"math/rand"
	"time"

	"partyboard/internal/cards"
	"partyboard/internal/config"
	"partyboard/internal/domain"
	"partyboard/internal/log"
	"partyboard/internal/minigame"
	"partyboard/internal/ports"

	"github.com/rs/zerolog"
)

// Node is the state of the turn transition guard.
type Node string

const (
	NodeIdle          Node = "idle"
	NodeTransitioning Node = "transitioning"
	NodeLocked        Node = "locked"
)

// DiceRoller produces the two dice of a roll.
type DiceRoller interface {
	Roll() (int, int)
}

type randDice struct{ rng *rand.Rand }

func (d randDice) Roll() (int, int) {
	return d.rng.Intn(DiceFaces) + 1, d.rng.Intn(DiceFaces) + 1
}

// PendingMove is a dice roll that has been broadcast but not yet committed.
type PendingMove struct {
	TeamID      string
	From        int
	To          int
	Dice        [2]int
	AckDeadline time.Time
}

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	ID      string
	Config  *config.GameConfig
	Rng     *rand.Rand
	Dice    DiceRoller
	Deck    *cards.Deck
	Content *minigame.Content
	Metrics ports.MetricsPort
	Logger  *zerolog.Logger
	Now     func() time.Time
}

// Session is one live game: roster, board, turn scheduler and the
// mini-game and card engines it drives. It is not safe for concurrent use;
// the match loop serializes every call.
type Session struct {
	id      string
	cfg     *config.GameConfig
	rng     *rand.Rand
	dice    DiceRoller
	cards   *cards.Engine
	games   *minigame.Manager
	metrics ports.MetricsPort
	log     zerolog.Logger
	now     func() time.Time

	phase  domain.Phase
	roster *domain.Roster
	board  *domain.Board

	hostUserID   string
	hostImplicit bool

	turnOrder []string
	turnIndex int
	orphaned  bool
	round     int
	maxRuns   int
	turnLimit time.Duration

	node     Node
	settleAt time.Time
	queued   string

	pending       *PendingMove
	resolving     bool
	turnDeadline  time.Time
	lastRemaining int
	cardAdvanceAt time.Time
	fallbackAt    time.Time

	paused   bool
	pausedAt time.Time

	endReason string
	winnerID  string
}

// NewSession builds a lobby-phase session.
func NewSession(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid game config: %w", err)
	}
	rng := opts.Rng
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	deck := opts.Deck
	if deck == nil {
		d, err := cards.DefaultDeck()
		if err != nil {
			return nil, err
		}
		deck = d
	}
	content := opts.Content
	if content == nil {
		c, err := minigame.DefaultContent()
		if err != nil {
			return nil, err
		}
		content = c
	}

	s := &Session{
		id:      opts.ID,
		cfg:     cfg,
		rng:     rng,
		dice:    opts.Dice,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if s.dice == nil {
		s.dice = randDice{rng: rng}
	}
	if s.metrics == nil {
		s.metrics = ports.NoopMetrics{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.Logger != nil {
		s.log = opts.Logger.With().Str(log.FieldSession, opts.ID).Logger()
	} else {
		base := log.WithComponent("session")
		s.log = base.With().Str(log.FieldSession, opts.ID).Logger()
	}

	s.cards = cards.NewEngine(deck, rng)
	s.games = minigame.NewManager(content, minigame.Options{
		TimeLimits:   cfg.MiniGameLimits(),
		DefaultLimit: cfg.DefaultMiniGameLimit(),
		Grace:        cfg.MiniGameGrace(),
		Scoring: minigame.Scoring{
			Success:        cfg.SuccessScore,
			Partial:        cfg.PartialScore,
			Failure:        cfg.FailureScore,
			TimeoutPenalty: cfg.TimeoutPenalty,
		},
	}, rng)
	s.rebuild()
	return s, nil
}

// rebuild restores the lobby state from configuration.
func (s *Session) rebuild() {
	s.phase = domain.PhaseLobby
	s.roster = domain.NewRoster(s.cfg.PredefinedTeams, domain.RosterLimits{
		MaxPlayers:    s.cfg.MaxPlayers,
		MaxTeamSize:   s.cfg.MaxTeamSize,
		StartingScore: s.cfg.StartingScore,
	})
	s.board = domain.NewBoard(s.cfg.BoardLength, s.rng)
	s.games.Reset()

	s.turnOrder = nil
	s.turnIndex = 0
	s.orphaned = false
	s.round = 0
	s.maxRuns = s.cfg.MaxRuns
	s.turnLimit = s.cfg.TurnDuration()
	s.node = NodeIdle
	s.queued = ""
	s.paused = false
	s.endReason = ""
	s.winnerID = ""
	s.clearTimers()
}

func (s *Session) clearTimers() {
	s.pending = nil
	s.resolving = false
	s.settleAt = time.Time{}
	s.turnDeadline = time.Time{}
	s.lastRemaining = 0
	s.cardAdvanceAt = time.Time{}
	s.fallbackAt = time.Time{}
}

func (s *Session) ID() string             { return s.id }
func (s *Session) Phase() domain.Phase    { return s.phase }
func (s *Session) Node() Node             { return s.node }
func (s *Session) Round() int             { return s.round }
func (s *Session) Paused() bool           { return s.paused }
func (s *Session) Board() *domain.Board   { return s.board }
func (s *Session) Roster() *domain.Roster { return s.roster }
func (s *Session) HostUserID() string     { return s.hostUserID }
func (s *Session) MaxRuns() int           { return s.maxRuns }
func (s *Session) Pending() *PendingMove  { return s.pending }

// TurnOrder returns the ids of teams taking part in the running session.
func (s *Session) TurnOrder() []string {
	return append([]string(nil), s.turnOrder...)
}

// SetHost records the user allowed to run host controls.
func (s *Session) SetHost(userID string) {
	s.hostUserID = userID
	s.hostImplicit = false
}

// IsHost reports whether userID may run host controls.
func (s *Session) IsHost(userID string) bool {
	return userID != "" && userID == s.hostUserID
}

// CurrentTeam returns the team holding the turn, or nil.
func (s *Session) CurrentTeam() *domain.Team {
	if s.phase != domain.PhaseInProgress || s.orphaned {
		return nil
	}
	if s.turnIndex < 0 || s.turnIndex >= len(s.turnOrder) {
		return nil
	}
	return s.roster.Team(s.turnOrder[s.turnIndex])
}

func (s *Session) orderTeams() []*domain.Team {
	teams := make([]*domain.Team, 0, len(s.turnOrder))
	for _, id := range s.turnOrder {
		if t := s.roster.Team(id); t != nil {
			teams = append(teams, t)
		}
	}
	return teams
}

func (s *Session) inTurnOrder(teamID string) int {
	for i, id := range s.turnOrder {
		if id == teamID {
			return i
		}
	}
	return -1
}

// SecondsRemaining returns the whole seconds left on the turn countdown, or 0
// while the countdown is suspended.
func (s *Session) SecondsRemaining() int {
	if s.turnDeadline.IsZero() {
		return 0
	}
	ref := s.now()
	if s.paused {
		ref = s.pausedAt
	}
	return secondsUntil(ref, s.turnDeadline)
}

func secondsUntil(now, deadline time.Time) int {
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

func (s *Session) requireRunning() error {
	switch s.phase {
	case domain.PhaseInProgress:
	case domain.PhaseEnded:
		return ErrSessionEnded
	default:
		return ErrSessionNotRunning
	}
	if s.paused {
		return ErrSessionPaused
	}
	return nil
}

func (s *Session) standings() []Standing {
	teams := s.orderTeams()
	if len(teams) == 0 {
		teams = s.roster.Teams
	}
	out := make([]Standing, 0, len(teams))
	for _, t := range teams {
		out = append(out, Standing{TeamID: t.ID, Name: t.Name, Score: t.Score, RunsCompleted: t.RunsCompleted})
	}
	return out
}
