package minigame

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"partyboard/internal/domain"
)

// Puzzle is one generated mini-game. Each variant carries exactly the fields
// its grading needs; View returns what clients may see.
type Puzzle interface {
	Kind() domain.EventKind
	View() any
	// score returns the fraction of the answer that is correct, in [0,1].
	score(answer json.RawMessage) (float64, error)
}

// QuizPuzzle is a multiple-choice question.
type QuizPuzzle struct {
	Question string
	Options  []string
	Correct  int
}

// QuizView is the public shape of a QuizPuzzle.
type QuizView struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

func (p *QuizPuzzle) Kind() domain.EventKind { return domain.EventQuiz }
func (p *QuizPuzzle) View() any              { return QuizView{Question: p.Question, Options: p.Options} }

func (p *QuizPuzzle) score(answer json.RawMessage) (float64, error) {
	var idx int
	if err := json.Unmarshal(answer, &idx); err != nil {
		return 0, fmt.Errorf("quiz answer must be an option index: %w", err)
	}
	if idx == p.Correct {
		return 1, nil
	}
	return 0, nil
}

// WorkflowPuzzle asks for steps to be put back into order.
type WorkflowPuzzle struct {
	Title    string
	Shuffled []string
	Order    []string
}

// WorkflowView is the public shape of a WorkflowPuzzle.
type WorkflowView struct {
	Title string   `json:"title"`
	Steps []string `json:"steps"`
}

func (p *WorkflowPuzzle) Kind() domain.EventKind { return domain.EventWorkflow }
func (p *WorkflowPuzzle) View() any              { return WorkflowView{Title: p.Title, Steps: p.Shuffled} }

func (p *WorkflowPuzzle) score(answer json.RawMessage) (float64, error) {
	var order []string
	if err := json.Unmarshal(answer, &order); err != nil {
		return 0, fmt.Errorf("workflow answer must be a list of steps: %w", err)
	}
	correct := 0
	for i, step := range p.Order {
		if i < len(order) && order[i] == step {
			correct++
		}
	}
	return float64(correct) / float64(len(p.Order)), nil
}

// MatchingPuzzle asks for left items to be paired with right items.
type MatchingPuzzle struct {
	Title string
	Left  []string
	Right []string // shuffled
	Key   map[string]string
}

// MatchingView is the public shape of a MatchingPuzzle.
type MatchingView struct {
	Title string   `json:"title"`
	Left  []string `json:"left"`
	Right []string `json:"right"`
}

func (p *MatchingPuzzle) Kind() domain.EventKind { return domain.EventMatching }
func (p *MatchingPuzzle) View() any {
	return MatchingView{Title: p.Title, Left: p.Left, Right: p.Right}
}

func (p *MatchingPuzzle) score(answer json.RawMessage) (float64, error) {
	var pairs map[string]string
	if err := json.Unmarshal(answer, &pairs); err != nil {
		return 0, fmt.Errorf("matching answer must map left to right: %w", err)
	}
	correct := 0
	for left, right := range p.Key {
		if pairs[left] == right {
			correct++
		}
	}
	return float64(correct) / float64(len(p.Key)), nil
}

// TrueFalsePuzzle is a single statement to judge.
type TrueFalsePuzzle struct {
	Statement string
	Truth     bool
}

// TrueFalseView is the public shape of a TrueFalsePuzzle.
type TrueFalseView struct {
	Statement string `json:"statement"`
}

func (p *TrueFalsePuzzle) Kind() domain.EventKind { return domain.EventTrueFalse }
func (p *TrueFalsePuzzle) View() any              { return TrueFalseView{Statement: p.Statement} }

func (p *TrueFalsePuzzle) score(answer json.RawMessage) (float64, error) {
	var v bool
	if err := json.Unmarshal(answer, &v); err != nil {
		return 0, fmt.Errorf("true/false answer must be a boolean: %w", err)
	}
	if v == p.Truth {
		return 1, nil
	}
	return 0, nil
}

// ChallengePuzzle is an open prompt graded on participation.
type ChallengePuzzle struct {
	Title  string
	Prompt string
}

// ChallengeView is the public shape of a ChallengePuzzle.
type ChallengeView struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

func (p *ChallengePuzzle) Kind() domain.EventKind { return domain.EventTeamChallenge }
func (p *ChallengePuzzle) View() any              { return ChallengeView{Title: p.Title, Prompt: p.Prompt} }

// Any non-empty response earns the partial score.
func (p *ChallengePuzzle) score(answer json.RawMessage) (float64, error) {
	if isBlank(answer) {
		return 0, nil
	}
	return partialThreshold, nil
}

func isBlank(answer json.RawMessage) bool {
	s := strings.TrimSpace(string(answer))
	switch s {
	case "", "null", `""`, "[]", "{}":
		return true
	}
	var str string
	if json.Unmarshal(answer, &str) == nil {
		return strings.TrimSpace(str) == ""
	}
	return false
}

// generate samples a puzzle for kind from content. Unknown or empty kinds
// fall back to a team challenge.
func generate(c *Content, kind domain.EventKind, rng *rand.Rand) Puzzle {
	switch kind {
	case domain.EventQuiz:
		if len(c.Quiz) > 0 {
			q := c.Quiz[rng.Intn(len(c.Quiz))]
			return &QuizPuzzle{Question: q.Question, Options: q.Options, Correct: q.Answer}
		}
	case domain.EventWorkflow:
		if len(c.Workflow) > 0 {
			w := c.Workflow[rng.Intn(len(c.Workflow))]
			shuffled := append([]string{}, w.Steps...)
			rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			return &WorkflowPuzzle{Title: w.Title, Shuffled: shuffled, Order: append([]string{}, w.Steps...)}
		}
	case domain.EventMatching:
		if len(c.Matching) > 0 {
			m := c.Matching[rng.Intn(len(c.Matching))]
			p := &MatchingPuzzle{Title: m.Title, Key: make(map[string]string, len(m.Pairs))}
			for _, pair := range m.Pairs {
				p.Left = append(p.Left, pair.Left)
				p.Right = append(p.Right, pair.Right)
				p.Key[pair.Left] = pair.Right
			}
			rng.Shuffle(len(p.Right), func(i, j int) { p.Right[i], p.Right[j] = p.Right[j], p.Right[i] })
			return p
		}
	case domain.EventTrueFalse:
		if len(c.TrueFalse) > 0 {
			s := c.TrueFalse[rng.Intn(len(c.TrueFalse))]
			return &TrueFalsePuzzle{Statement: s.Statement, Truth: s.Answer}
		}
	}
	ch := c.TeamChallenge[rng.Intn(len(c.TeamChallenge))]
	return &ChallengePuzzle{Title: ch.Title, Prompt: ch.Prompt}
}
