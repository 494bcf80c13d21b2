package ports

// MetricsPort records session counters. Implementations must be cheap; they
// are called from inside the match loop.
type MetricsPort interface {
	// TurnAdvanced counts a completed turn transition by the reason it happened.
	TurnAdvanced(reason string)

	// DiceRolled counts accepted dice rolls.
	DiceRolled()

	// MiniGameGraded counts graded mini-games by kind and outcome.
	MiniGameGraded(kind, outcome string)

	// SessionEnded counts finished sessions by end reason.
	SessionEnded(reason string)

	// RequestRejected counts requests refused with a domain error code.
	RequestRejected(code string)
}

// NoopMetrics discards every counter.
type NoopMetrics struct{}

func (NoopMetrics) TurnAdvanced(string)           {}
func (NoopMetrics) DiceRolled()                   {}
func (NoopMetrics) MiniGameGraded(string, string) {}
func (NoopMetrics) SessionEnded(string)           {}
func (NoopMetrics) RequestRejected(string)        {}
