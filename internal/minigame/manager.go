// Package minigame generates, tracks and grades per-team mini-game instances.
package minigame

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"partyboard/internal/domain"

	"github.com/google/uuid"
)

const (
	fullThreshold    = 0.8
	partialThreshold = 0.5
)

// Outcome classifies a graded submission.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePartial Outcome = "partial"
	OutcomeFailure Outcome = "failure"
	OutcomeTimeout Outcome = "timeout"
)

// Scoring holds the score delta for each outcome.
type Scoring struct {
	Success        int
	Partial        int
	Failure        int
	TimeoutPenalty int
}

// Options configures a Manager.
type Options struct {
	TimeLimits   map[domain.EventKind]time.Duration
	DefaultLimit time.Duration
	Grace        time.Duration
	Scoring      Scoring
}

// Instance is the single live mini-game of a team.
type Instance struct {
	ID        string
	TeamID    string
	Kind      domain.EventKind
	TimeLimit time.Duration
	Puzzle    Puzzle
	StartedAt time.Time
	Armed     bool
}

// Deadline returns when the instance's time limit runs out.
func (i *Instance) Deadline() time.Time {
	return i.StartedAt.Add(i.TimeLimit)
}

// Submission is a captain's answer. Answer's shape depends on the kind.
type Submission struct {
	Answer   json.RawMessage `json:"answer"`
	TimedOut bool            `json:"timed_out"`
}

// Result is the graded outcome of a submission.
type Result struct {
	InstanceID string
	TeamID     string
	Kind       domain.EventKind
	Outcome    Outcome
	Score      int
	Accuracy   float64
	Feedback   string
	Elapsed    time.Duration
}

var (
	ErrNoLiveInstance      = domain.NewError(domain.KindValidation, domain.CodeNoLiveMiniGame, "no live mini-game for team")
	ErrMalformedSubmission = domain.NewError(domain.KindValidation, domain.CodeMalformedSubmission, "malformed mini-game submission")
)

// Manager owns the live instances of one session, keyed by team.
type Manager struct {
	content *Content
	opts    Options
	rng     *rand.Rand
	live    map[string]*Instance
}

// NewManager constructs a Manager over content.
func NewManager(content *Content, opts Options, rng *rand.Rand) *Manager {
	return &Manager{
		content: content,
		opts:    opts,
		rng:     rng,
		live:    make(map[string]*Instance),
	}
}

func (m *Manager) limitFor(kind domain.EventKind) time.Duration {
	if d, ok := m.opts.TimeLimits[kind]; ok && d > 0 {
		return d
	}
	return m.opts.DefaultLimit
}

// Start generates a puzzle for the team, replacing any prior live instance.
func (m *Manager) Start(teamID string, kind domain.EventKind, now time.Time) *Instance {
	puzzle := generate(m.content, kind, m.rng)
	inst := &Instance{
		ID:        uuid.NewString(),
		TeamID:    teamID,
		Kind:      puzzle.Kind(),
		TimeLimit: m.limitFor(puzzle.Kind()),
		Puzzle:    puzzle,
		StartedAt: now,
	}
	m.live[teamID] = inst
	return inst
}

// Arm restarts the instance clock once the client has rendered the puzzle.
// Arming twice is a no-op.
func (m *Manager) Arm(teamID string, now time.Time) (*Instance, bool, error) {
	inst := m.live[teamID]
	if inst == nil {
		return nil, false, ErrNoLiveInstance
	}
	if inst.Armed {
		return inst, false, nil
	}
	inst.Armed = true
	inst.StartedAt = now
	return inst, true, nil
}

// Live returns the team's live instance, or nil.
func (m *Manager) Live(teamID string) *Instance {
	return m.live[teamID]
}

// Discard drops the team's live instance, reporting whether one existed.
func (m *Manager) Discard(teamID string) bool {
	_, ok := m.live[teamID]
	delete(m.live, teamID)
	return ok
}

// Count returns the number of live instances.
func (m *Manager) Count() int {
	return len(m.live)
}

// Grade scores a submission and deletes the instance, win or lose.
func (m *Manager) Grade(teamID string, sub Submission, now time.Time) (Result, error) {
	inst := m.live[teamID]
	if inst == nil {
		return Result{}, ErrNoLiveInstance
	}
	delete(m.live, teamID)

	res := Result{
		InstanceID: inst.ID,
		TeamID:     teamID,
		Kind:       inst.Kind,
		Elapsed:    now.Sub(inst.StartedAt),
	}
	s := m.opts.Scoring

	if sub.TimedOut {
		res.Outcome, res.Score, res.Feedback = OutcomeFailure, s.Failure, "Time is up."
		return res, nil
	}
	if res.Elapsed > inst.TimeLimit {
		res.Outcome, res.Score, res.Feedback = OutcomeTimeout, s.TimeoutPenalty, "timed out"
		return res, nil
	}

	accuracy, err := inst.Puzzle.score(sub.Answer)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrMalformedSubmission, err)
	}
	res.Accuracy = accuracy

	switch {
	case accuracy >= fullThreshold:
		res.Outcome, res.Score, res.Feedback = OutcomeSuccess, s.Success, "Correct!"
	case accuracy >= partialThreshold:
		res.Outcome, res.Score, res.Feedback = OutcomePartial, s.Partial, "Partly right."
	default:
		res.Outcome, res.Score, res.Feedback = OutcomeFailure, s.Failure, "Not quite."
	}
	return res, nil
}

// SweepExpired deletes instances older than their time limit plus the grace
// period and returns them.
func (m *Manager) SweepExpired(now time.Time) []*Instance {
	var expired []*Instance
	for teamID, inst := range m.live {
		if now.After(inst.Deadline().Add(m.opts.Grace)) {
			expired = append(expired, inst)
			delete(m.live, teamID)
		}
	}
	return expired
}

// Shift moves every instance clock forward by d, used when a session resumes from pause.
func (m *Manager) Shift(d time.Duration) {
	for _, inst := range m.live {
		inst.StartedAt = inst.StartedAt.Add(d)
	}
}

// Reset discards every live instance.
func (m *Manager) Reset() {
	m.live = make(map[string]*Instance)
}
