package domain

import "testing"

func TestRotateCaptain_VisitsEveryMemberOncePerCycle(t *testing.T) {
	team := &Team{ID: "t1", Members: []string{"a", "b", "c"}}

	seen := make(map[string]int)
	for i := 0; i < len(team.Members); i++ {
		seen[RotateCaptain(team)]++
	}

	for _, id := range team.Members {
		if seen[id] != 1 {
			t.Fatalf("member %s captained %d times in one cycle, want 1", id, seen[id])
		}
	}

	// Second cycle starts over at the first member.
	if got := RotateCaptain(team); got != "a" {
		t.Fatalf("RotateCaptain() after full cycle = %s, want a", got)
	}
}

func TestRotateCaptain_CaptainLeftResetsCursor(t *testing.T) {
	team := &Team{ID: "t1", Members: []string{"a", "b", "c"}}
	RotateCaptain(team) // a
	RotateCaptain(team) // b

	team.Members = []string{"a", "c"} // b left
	if got := RotateCaptain(team); got != "a" {
		t.Fatalf("RotateCaptain() = %s, want a after captain left", got)
	}
}

func TestRotateCaptain_NeverSelectsDepartedMember(t *testing.T) {
	tests := []struct {
		name    string
		members []string
		cursor  int
		captain string
	}{
		{name: "cursor beyond shrunk list", members: []string{"a"}, cursor: 3, captain: "a"},
		{name: "negative cursor", members: []string{"a", "b"}, cursor: -1, captain: "a"},
		{name: "captain still present", members: []string{"x", "y"}, cursor: 1, captain: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			team := &Team{Members: tt.members, CaptainCursor: tt.cursor, CaptainID: tt.captain}
			got := RotateCaptain(team)
			if !team.HasMember(got) {
				t.Fatalf("RotateCaptain() = %s, not a current member of %v", got, tt.members)
			}
			if team.CaptainCursor < 0 || team.CaptainCursor >= len(tt.members) {
				t.Fatalf("cursor %d out of range after rotation", team.CaptainCursor)
			}
		})
	}
}

func TestRotateCaptain_EmptyTeam(t *testing.T) {
	team := &Team{CaptainID: "gone", CaptainCursor: 2}
	if got := RotateCaptain(team); got != "" {
		t.Fatalf("RotateCaptain() on empty team = %q, want empty", got)
	}
	if team.CaptainCursor != 0 {
		t.Fatalf("cursor = %d, want 0", team.CaptainCursor)
	}
}

func TestRotateCaptain_ChurnKeepsOrder(t *testing.T) {
	r := NewRoster([]TeamPreset{{ID: "red", Name: "Red"}}, RosterLimits{StartingScore: 100})
	for _, id := range []string{"a", "b", "c"} {
		if _, err := r.AddPlayer(Player{ID: id, Name: id}); err != nil {
			t.Fatalf("AddPlayer(%s): %v", id, err)
		}
		if _, err := r.AssignTeam(id, "red"); err != nil {
			t.Fatalf("AssignTeam(%s): %v", id, err)
		}
	}
	team := r.Team("red")

	RotateCaptain(team) // a, cursor -> b
	if _, err := r.RemovePlayer("a"); err != nil {
		t.Fatalf("RemovePlayer: %v", err)
	}

	// a was the captain and left, rotation restarts at the front.
	if got := RotateCaptain(team); got != "b" {
		t.Fatalf("RotateCaptain() = %s, want b", got)
	}
	if got := RotateCaptain(team); got != "c" {
		t.Fatalf("RotateCaptain() = %s, want c", got)
	}
}
