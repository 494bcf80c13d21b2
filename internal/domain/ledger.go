package domain

// AdjustScore applies a bounded score change and returns the delta actually applied.
// Scores never drop below floor; floor is 0 except for card effects that keep a team alive.
func AdjustScore(t *Team, delta, floor int) int {
	if floor < 0 {
		floor = 0
	}
	before := t.Score
	t.Score += delta
	if t.Score < floor {
		t.Score = floor
	}
	return t.Score - before
}

// CompleteRun increments a team's lap counter without exceeding maxRuns.
func CompleteRun(t *Team, maxRuns int) {
	if t.RunsCompleted < maxRuns {
		t.RunsCompleted++
	}
}

// AllRunsCompleted reports whether every team has reached maxRuns.
// An empty team list never satisfies the condition.
func AllRunsCompleted(teams []*Team, maxRuns int) bool {
	if len(teams) == 0 {
		return false
	}
	for _, t := range teams {
		if t.RunsCompleted < maxRuns {
			return false
		}
	}
	return true
}

// Leader returns the highest-scoring team; ties go to the earliest team in table order.
func Leader(teams []*Team) *Team {
	var best *Team
	for _, t := range teams {
		if best == nil || t.Score > best.Score {
			best = t
		}
	}
	return best
}
