package minigame

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"

	"partyboard/internal/domain"
)

const testContentYAML = `
quiz:
  - question: Pick the second option.
    options: [first, second, third]
    answer: 1
workflow:
  - title: Count
    steps: [one, two, three, four, five]
matching:
  - title: Pairs
    pairs:
      - {left: a, right: "1"}
      - {left: b, right: "2"}
true_false:
  - statement: Water is wet.
    answer: true
team_challenge:
  - title: Cheer
    prompt: Shout your team name.
`

var testScoring = Scoring{Success: 20, Partial: 10, Failure: 0, TimeoutPenalty: -10}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	c, err := ParseContent([]byte(testContentYAML))
	if err != nil {
		t.Fatalf("ParseContent() error = %v", err)
	}
	return NewManager(c, Options{
		TimeLimits:   map[domain.EventKind]time.Duration{domain.EventQuiz: 30 * time.Second},
		DefaultLimit: 60 * time.Second,
		Grace:        5 * time.Second,
		Scoring:      testScoring,
	}, rand.New(rand.NewSource(1)))
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return b
}

func TestGrade_QuizOnTimeAndLate(t *testing.T) {
	start := time.Unix(1000, 0)

	tests := []struct {
		name      string
		after     time.Duration
		wantOut   Outcome
		wantScore int
	}{
		{"before time limit", 10 * time.Second, OutcomeSuccess, 20},
		{"after time limit", 31 * time.Second, OutcomeTimeout, -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			inst := m.Start("team-a", domain.EventQuiz, start)
			if inst.TimeLimit != 30*time.Second {
				t.Fatalf("TimeLimit = %v, want 30s", inst.TimeLimit)
			}
			res, err := m.Grade("team-a", Submission{Answer: raw(t, 1)}, start.Add(tt.after))
			if err != nil {
				t.Fatalf("Grade() error = %v", err)
			}
			if res.Outcome != tt.wantOut || res.Score != tt.wantScore {
				t.Fatalf("Grade() = %s/%d, want %s/%d", res.Outcome, res.Score, tt.wantOut, tt.wantScore)
			}
			if m.Live("team-a") != nil {
				t.Fatalf("instance still live after grading")
			}
		})
	}
}

func TestGrade_Thresholds(t *testing.T) {
	start := time.Unix(1000, 0)

	tests := []struct {
		name    string
		kind    domain.EventKind
		answer  any
		wantOut Outcome
	}{
		{"quiz wrong", domain.EventQuiz, 0, OutcomeFailure},
		{"workflow all", domain.EventWorkflow, []string{"one", "two", "three", "four", "five"}, OutcomeSuccess},
		{"workflow four of five", domain.EventWorkflow, []string{"one", "two", "three", "four", "x"}, OutcomeSuccess},
		{"workflow three of five", domain.EventWorkflow, []string{"one", "two", "three", "x", "y"}, OutcomePartial},
		{"workflow two of five", domain.EventWorkflow, []string{"one", "two", "x", "y", "z"}, OutcomeFailure},
		{"matching half", domain.EventMatching, map[string]string{"a": "1", "b": "1"}, OutcomePartial},
		{"matching all", domain.EventMatching, map[string]string{"a": "1", "b": "2"}, OutcomeSuccess},
		{"true false right", domain.EventTrueFalse, true, OutcomeSuccess},
		{"true false wrong", domain.EventTrueFalse, false, OutcomeFailure},
		{"challenge answered", domain.EventTeamChallenge, "GO TEAM", OutcomePartial},
		{"challenge blank", domain.EventTeamChallenge, "  ", OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			m.Start("team-a", tt.kind, start)
			res, err := m.Grade("team-a", Submission{Answer: raw(t, tt.answer)}, start.Add(time.Second))
			if err != nil {
				t.Fatalf("Grade() error = %v", err)
			}
			if res.Outcome != tt.wantOut {
				t.Fatalf("Grade() outcome = %s (accuracy %.2f), want %s", res.Outcome, res.Accuracy, tt.wantOut)
			}
		})
	}
}

func TestGrade_FlaggedTimeout(t *testing.T) {
	m := newTestManager(t)
	start := time.Unix(1000, 0)
	m.Start("team-a", domain.EventQuiz, start)

	res, err := m.Grade("team-a", Submission{TimedOut: true}, start.Add(time.Second))
	if err != nil {
		t.Fatalf("Grade() error = %v", err)
	}
	if res.Outcome != OutcomeFailure || res.Score != testScoring.Failure {
		t.Fatalf("Grade() = %s/%d, want failure/%d", res.Outcome, res.Score, testScoring.Failure)
	}
}

func TestGrade_Malformed(t *testing.T) {
	m := newTestManager(t)
	start := time.Unix(1000, 0)
	m.Start("team-a", domain.EventQuiz, start)

	_, err := m.Grade("team-a", Submission{Answer: json.RawMessage(`"second"`)}, start.Add(time.Second))
	if !errors.Is(err, ErrMalformedSubmission) {
		t.Fatalf("Grade() error = %v, want ErrMalformedSubmission", err)
	}
	if domain.CodeOf(err) != domain.CodeMalformedSubmission {
		t.Fatalf("CodeOf() = %s, want %s", domain.CodeOf(err), domain.CodeMalformedSubmission)
	}
	if m.Count() != 0 {
		t.Fatalf("Count() = %d, want 0 after malformed grade", m.Count())
	}
}

func TestGrade_NoLiveInstance(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Grade("team-a", Submission{}, time.Now()); !errors.Is(err, ErrNoLiveInstance) {
		t.Fatalf("Grade() error = %v, want ErrNoLiveInstance", err)
	}
}

func TestStart_OneInstancePerTeam(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1000, 0)

	first := m.Start("team-a", domain.EventQuiz, now)
	second := m.Start("team-a", domain.EventTrueFalse, now)
	m.Start("team-b", domain.EventQuiz, now)

	if m.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", m.Count())
	}
	if got := m.Live("team-a"); got != second || got.ID == first.ID {
		t.Fatalf("Live(team-a) did not replace the earlier instance")
	}
	if !m.Discard("team-a") || m.Discard("team-a") {
		t.Fatalf("Discard() should report true once then false")
	}
}

func TestArm_RestartsClockOnce(t *testing.T) {
	m := newTestManager(t)
	start := time.Unix(1000, 0)
	m.Start("team-a", domain.EventQuiz, start)

	inst, armed, err := m.Arm("team-a", start.Add(20*time.Second))
	if err != nil || !armed {
		t.Fatalf("Arm() = %v, %v, want armed", armed, err)
	}
	if !inst.StartedAt.Equal(start.Add(20 * time.Second)) {
		t.Fatalf("StartedAt = %v, want clock restarted", inst.StartedAt)
	}
	if _, armed, _ := m.Arm("team-a", start.Add(25*time.Second)); armed {
		t.Fatalf("second Arm() re-armed the instance")
	}

	res, err := m.Grade("team-a", Submission{Answer: raw(t, 1)}, start.Add(45*time.Second))
	if err != nil {
		t.Fatalf("Grade() error = %v", err)
	}
	if res.Outcome != OutcomeSuccess {
		t.Fatalf("Grade() outcome = %s, want success within armed window", res.Outcome)
	}

	if _, _, err := m.Arm("team-b", start); !errors.Is(err, ErrNoLiveInstance) {
		t.Fatalf("Arm(team-b) error = %v, want ErrNoLiveInstance", err)
	}
}

func TestSweepExpired(t *testing.T) {
	m := newTestManager(t)
	start := time.Unix(1000, 0)
	m.Start("team-a", domain.EventQuiz, start)      // 30s limit
	m.Start("team-b", domain.EventWorkflow, start)  // 60s default

	if got := m.SweepExpired(start.Add(35 * time.Second)); len(got) != 0 {
		t.Fatalf("SweepExpired() inside grace = %d instances, want 0", len(got))
	}
	got := m.SweepExpired(start.Add(36 * time.Second))
	if len(got) != 1 || got[0].TeamID != "team-a" {
		t.Fatalf("SweepExpired() = %v, want team-a only", got)
	}
	if m.Live("team-b") == nil {
		t.Fatalf("team-b swept early")
	}
}

func TestShift(t *testing.T) {
	m := newTestManager(t)
	start := time.Unix(1000, 0)
	m.Start("team-a", domain.EventQuiz, start)
	m.Shift(time.Minute)

	if got := m.SweepExpired(start.Add(40 * time.Second)); len(got) != 0 {
		t.Fatalf("SweepExpired() after Shift = %d, want 0", len(got))
	}
	m.Reset()
	if m.Count() != 0 {
		t.Fatalf("Count() after Reset = %d, want 0", m.Count())
	}
}

func TestDefaultContent(t *testing.T) {
	c, err := DefaultContent()
	if err != nil {
		t.Fatalf("DefaultContent() error = %v", err)
	}
	rng := rand.New(rand.NewSource(7))
	for _, kind := range domain.EventKinds {
		p := generate(c, kind, rng)
		if p.Kind() != kind {
			t.Fatalf("generate(%s) kind = %s", kind, p.Kind())
		}
		if _, err := json.Marshal(p.View()); err != nil {
			t.Fatalf("View() for %s not encodable: %v", kind, err)
		}
	}
}

func TestParseContent_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no fallback", "quiz: []\n"},
		{"answer out of range", "team_challenge: [{title: t, prompt: p}]\nquiz: [{question: q, options: [a, b], answer: 2}]\n"},
		{"duplicate steps", "team_challenge: [{title: t, prompt: p}]\nworkflow: [{title: w, steps: [a, a]}]\n"},
		{"single pair", "team_challenge: [{title: t, prompt: p}]\nmatching: [{title: m, pairs: [{left: a, right: b}]}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseContent([]byte(tt.yaml)); err == nil {
				t.Fatalf("ParseContent() error = nil, want validation error")
			}
		})
	}
}
