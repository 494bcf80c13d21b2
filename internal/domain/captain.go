package domain

// RotateCaptain picks the acting member for a team's new turn and returns it.
// The cursor is re-validated on every call so membership churn between turns
// can never index out of bounds. An empty team gets no captain.
func RotateCaptain(t *Team) string {
	if t.IsEmpty() {
		t.CaptainID = ""
		t.CaptainCursor = 0
		return ""
	}

	if t.CaptainID != "" && !t.HasMember(t.CaptainID) {
		t.CaptainCursor = 0
	}
	if t.CaptainCursor < 0 || t.CaptainCursor >= len(t.Members) {
		t.CaptainCursor = 0
	}

	t.CaptainID = t.Members[t.CaptainCursor]
	t.CaptainCursor = (t.CaptainCursor + 1) % len(t.Members)
	return t.CaptainID
}
