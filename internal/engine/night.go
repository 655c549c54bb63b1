package engine

import (
	"fmt"
	"sort"

	"github.com/contagio-game/server/internal/domain/participant"
)

// elimination records one death produced by night resolution.
type elimination struct {
	ID    string
	Cause string // "police", "terror" or "virus"
}

// nightOutcome is the elimination delta of one night. Liveness is NOT written
// here; the controller applies it once the full pass completes, so every rule
// this night sees the roster as it was when the night began.
type nightOutcome struct {
	Eliminated []elimination
	LogLines   []string
	ShotUsed   bool
}

// feedbackMsg is a private message for one acting participant.
type feedbackMsg struct {
	ActorID string
	Text    string
}

// resolveNightActions runs the eliminating rules in their fixed order:
// the police shot first, then the terrorists' one-shot kill (if still
// available), then the contagion. A per-night set guards against any rule
// re-eliminating an identity an earlier rule already claimed.
func resolveNightActions(roster map[string]*participant.Participant, seatCount int, actions map[string]NightAction, shotUsed bool) nightOutcome {
	out := nightOutcome{ShotUsed: shotUsed}
	dead := make(map[string]bool)

	eliminate := func(id, cause, line string) {
		dead[id] = true
		out.Eliminated = append(out.Eliminated, elimination{ID: id, Cause: cause})
		out.LogLines = append(out.LogLines, line)
	}

	ordered := actionsBySeat(roster, actions)

	// 1. Eliminating shots.
	for _, a := range ordered {
		if a.Kind != ActionPoliceShot {
			continue
		}
		t := roster[a.TargetID]
		if t == nil || !t.Alive || dead[t.ID] {
			continue
		}
		eliminate(t.ID, "police", t.Name+" was shot during the night.")
	}
	for _, a := range ordered {
		if a.Kind != ActionTerrorShot || out.ShotUsed {
			continue
		}
		t := roster[a.TargetID]
		if t == nil || !t.Alive || dead[t.ID] {
			continue
		}
		out.ShotUsed = true
		eliminate(t.ID, "terror", t.Name+" was gunned down during the night.")
	}

	// 2. Contagion. An immune target survives and nothing spreads; otherwise
	// the target falls and the virus reaches the two seat neighbors, wrapping
	// around the circle.
	for _, a := range ordered {
		if a.Kind != ActionInfect {
			continue
		}
		t := roster[a.TargetID]
		if t == nil || !t.Alive || dead[t.ID] {
			continue
		}
		if t.Immune {
			out.LogLines = append(out.LogLines, t.Name+" was attacked by the virus but survived.")
			continue
		}
		eliminate(t.ID, "virus", t.Name+" succumbed to the virus.")

		for _, seat := range []int{wrapSeat(t.Seat-1, seatCount), wrapSeat(t.Seat+1, seatCount)} {
			n := occupant(roster, seat)
			if n == nil || !n.Alive || dead[n.ID] {
				continue
			}
			if n.Immune {
				out.LogLines = append(out.LogLines, n.Name+" was exposed to the virus but is immune.")
				continue
			}
			eliminate(n.ID, "virus", n.Name+" caught the virus from a neighbor.")
		}
	}

	return out
}

// resolveNightFeedback runs the investigative actions. These never eliminate
// anyone and only execute if the match did not end on the eliminations.
// cure is the progress before this night; the returned gain is already capped.
func resolveNightFeedback(roster map[string]*participant.Participant, actions map[string]NightAction, cure int) ([]feedbackMsg, int) {
	var fbs []feedbackMsg
	gain := 0

	for _, a := range actionsBySeat(roster, actions) {
		t := roster[a.TargetID]
		if t == nil {
			continue
		}
		switch a.Kind {
		case ActionInvestigate:
			fbs = append(fbs, feedbackMsg{
				ActorID: a.ActorID,
				Text:    fmt.Sprintf("Investigation result: %s is the %s.", t.Name, t.Role),
			})
		case ActionAnalyze:
			if t.Immune {
				if cure+gain < cureTarget {
					gain++
				}
				fbs = append(fbs, feedbackMsg{
					ActorID: a.ActorID,
					Text:    fmt.Sprintf("Breakthrough! %s carries the immunity. The cure advances.", t.Name),
				})
			} else {
				fbs = append(fbs, feedbackMsg{
					ActorID: a.ActorID,
					Text:    fmt.Sprintf("Analysis of %s produced no results.", t.Name),
				})
			}
		}
	}
	return fbs, gain
}

// actionsBySeat returns the submitted actions ordered by the actor's seat,
// so resolution is deterministic regardless of map iteration order.
func actionsBySeat(roster map[string]*participant.Participant, actions map[string]NightAction) []NightAction {
	ordered := make([]NightAction, 0, len(actions))
	for _, a := range actions {
		ordered = append(ordered, a)
	}
	sort.Slice(ordered, func(i, j int) bool {
		pi, pj := roster[ordered[i].ActorID], roster[ordered[j].ActorID]
		if pi == nil || pj == nil {
			return ordered[i].ActorID < ordered[j].ActorID
		}
		return pi.Seat < pj.Seat
	})
	return ordered
}

// wrapSeat maps a seat index onto the 1..n circle: seat 1's left neighbor is
// seat n, seat n's right neighbor is seat 1.
func wrapSeat(seat, n int) int {
	if seat < 1 {
		return n
	}
	if seat > n {
		return 1
	}
	return seat
}

// occupant finds the participant holding a seat. Departed players keep their
// seat; indices never shift mid-match.
func occupant(roster map[string]*participant.Participant, seat int) *participant.Participant {
	for _, p := range roster {
		if p.Seat == seat {
			return p
		}
	}
	return nil
}
