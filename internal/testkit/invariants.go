package testkit

import (
	"fmt"

	"wayfarer/internal/entity"
)

// Violation names one invariant breach found by CheckInvariants.
type Violation struct {
	Invariant int
	Detail    string
}

func (v Violation) Error() string {
	return fmt.Sprintf("invariant %d: %s", v.Invariant, v.Detail)
}

// CheckInvariants verifies the quantified invariants that must hold at
// every frame boundary: invariants 1-5. frame and gameTime monotonicity
// (invariant 6) and replay completeness (invariant 8) require history
// across calls and are not checked here; RunFrames does not check them
// either.
func CheckInvariants(w *entity.World) []Violation {
	var out []Violation
	out = append(out, checkPresence(w)...)
	out = append(out, checkParentChild(w)...)
	out = append(out, checkQuestState(w)...)
	out = append(out, checkGuidance(w)...)
	out = append(out, checkResourceBounds(w)...)
	return out
}

// checkPresence verifies invariant 1: every character's currentLocation
// appears in exactly one location's presence set.
func checkPresence(w *entity.World) []Violation {
	var out []Violation
	for id, c := range w.Characters {
		if c.IsDead() {
			continue
		}
		loc, ok := w.Locations[c.CurrentLocation]
		if !ok {
			out = append(out, Violation{1, fmt.Sprintf("character %s has unknown currentLocation %q", id, c.CurrentLocation)})
			continue
		}
		if !loc.Presence[id] {
			out = append(out, Violation{1, fmt.Sprintf("character %s not present in its own currentLocation %q", id, loc.ID)})
		}
		count := 0
		for _, other := range w.Locations {
			if other.Presence[id] {
				count++
			}
		}
		if count != 1 {
			out = append(out, Violation{1, fmt.Sprintf("character %s present in %d locations, want 1", id, count)})
		}
	}
	return out
}

// checkParentChild verifies invariant 2: parent/child links are mutual.
func checkParentChild(w *entity.World) []Violation {
	var out []Violation
	for id, loc := range w.Locations {
		if loc.ParentID == "" {
			continue
		}
		parent, ok := w.Locations[loc.ParentID]
		if !ok {
			out = append(out, Violation{2, fmt.Sprintf("location %s parent %q does not exist", id, loc.ParentID)})
			continue
		}
		found := false
		for _, childID := range parent.ChildIDs {
			if childID == id {
				found = true
				break
			}
		}
		if !found {
			out = append(out, Violation{2, fmt.Sprintf("location %s parent %s does not list it as a child", id, parent.ID)})
		}
	}
	return out
}

// checkQuestState verifies invariant 3: state=completed iff every
// objective is completed.
func checkQuestState(w *entity.World) []Violation {
	var out []Violation
	check := func(q *entity.Quest) {
		allComplete := q.AllComplete()
		isCompleted := q.State == entity.QuestCompleted
		if allComplete != isCompleted && q.State != entity.QuestFailed {
			out = append(out, Violation{3, fmt.Sprintf("quest %s: allComplete=%v state=%s", q.ID, allComplete, q.State)})
		}
	}
	for _, q := range w.ActiveQuests {
		check(q)
	}
	for _, q := range w.CompletedQuests {
		check(q)
	}
	return out
}

// checkGuidance verifies invariant 4: guidance.currentStep is the index of
// the first incomplete objective, or the objective count if none.
func checkGuidance(w *entity.World) []Violation {
	var out []Violation
	for _, q := range w.ActiveQuests {
		want := q.FirstIncomplete()
		if q.Guidance.CurrentStep != want {
			out = append(out, Violation{4, fmt.Sprintf("quest %s: guidance.currentStep=%d want %d", q.ID, q.Guidance.CurrentStep, want)})
		}
	}
	return out
}

// checkResourceBounds verifies invariant 5: HP/stamina/magic/gold in
// [0,max]; inventory weight <= capacity.
func checkResourceBounds(w *entity.World) []Violation {
	var out []Violation
	for id, c := range w.Characters {
		s := c.Stats
		if s.HP < 0 || s.HP > s.MaxHP {
			out = append(out, Violation{5, fmt.Sprintf("character %s hp=%d out of [0,%d]", id, s.HP, s.MaxHP)})
		}
		if s.Stamina < 0 || s.Stamina > s.MaxStamina {
			out = append(out, Violation{5, fmt.Sprintf("character %s stamina=%d out of [0,%d]", id, s.Stamina, s.MaxStamina)})
		}
		if s.Magic < 0 || s.Magic > s.MaxMagic {
			out = append(out, Violation{5, fmt.Sprintf("character %s magic=%d out of [0,%d]", id, s.Magic, s.MaxMagic)})
		}
		if c.Inventory.Gold < 0 {
			out = append(out, Violation{5, fmt.Sprintf("character %s gold=%d < 0", id, c.Inventory.Gold)})
		}
		if c.Inventory.Capacity > 0 && c.Inventory.Weight() > float64(c.Inventory.Capacity) {
			out = append(out, Violation{5, fmt.Sprintf("character %s inventory weight %.1f exceeds capacity %d", id, c.Inventory.Weight(), c.Inventory.Capacity)})
		}
	}
	return out
}
