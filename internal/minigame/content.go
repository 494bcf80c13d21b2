package minigame

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// QuizItem is a multiple-choice question.
type QuizItem struct {
	Question string   `yaml:"question"`
	Options  []string `yaml:"options"`
	Answer   int      `yaml:"answer"`
}

// WorkflowItem lists steps in canonical order.
type WorkflowItem struct {
	Title string   `yaml:"title"`
	Steps []string `yaml:"steps"`
}

// Pair is one left/right association.
type Pair struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// MatchingItem is a set of pairs to re-associate.
type MatchingItem struct {
	Title string `yaml:"title"`
	Pairs []Pair `yaml:"pairs"`
}

// TrueFalseItem is a statement with its truth value.
type TrueFalseItem struct {
	Statement string `yaml:"statement"`
	Answer    bool   `yaml:"answer"`
}

// ChallengeItem is an open participation prompt.
type ChallengeItem struct {
	Title  string `yaml:"title"`
	Prompt string `yaml:"prompt"`
}

// Content holds the fixed content tables for every kind.
type Content struct {
	Quiz          []QuizItem      `yaml:"quiz"`
	Workflow      []WorkflowItem  `yaml:"workflow"`
	Matching      []MatchingItem  `yaml:"matching"`
	TrueFalse     []TrueFalseItem `yaml:"true_false"`
	TeamChallenge []ChallengeItem `yaml:"team_challenge"`
}

//go:embed content.yaml
var defaultContentYAML []byte

// DefaultContent parses the embedded content tables.
func DefaultContent() (*Content, error) {
	return ParseContent(defaultContentYAML)
}

// ParseContent decodes and validates YAML content tables.
func ParseContent(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mini-game content: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Content) validate() error {
	var errs []error
	if len(c.TeamChallenge) == 0 {
		errs = append(errs, errors.New("team_challenge: at least one fallback prompt is required"))
	}
	for i, q := range c.Quiz {
		if len(q.Options) < 2 || q.Answer < 0 || q.Answer >= len(q.Options) {
			errs = append(errs, fmt.Errorf("quiz[%d]: answer %d out of range for %d options", i, q.Answer, len(q.Options)))
		}
	}
	for i, w := range c.Workflow {
		if len(w.Steps) < 2 || hasDuplicates(w.Steps) {
			errs = append(errs, fmt.Errorf("workflow[%d]: needs at least two distinct steps", i))
		}
	}
	for i, m := range c.Matching {
		lefts := make([]string, 0, len(m.Pairs))
		rights := make([]string, 0, len(m.Pairs))
		for _, p := range m.Pairs {
			lefts = append(lefts, p.Left)
			rights = append(rights, p.Right)
		}
		if len(m.Pairs) < 2 || hasDuplicates(lefts) || hasDuplicates(rights) {
			errs = append(errs, fmt.Errorf("matching[%d]: needs at least two pairs with distinct sides", i))
		}
	}
	return errors.Join(errs...)
}

func hasDuplicates(values []string) bool {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if seen[v] {
			return true
		}
		seen[v] = true
	}
	return false
}
