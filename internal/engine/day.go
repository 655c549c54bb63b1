package engine

import (
	"github.com/contagio-game/server/internal/domain/participant"
)

// dayOutcome is the delta of one day-vote tally.
type dayOutcome struct {
	EliminatedID string // empty when nobody is eliminated
	LogLines     []string
}

// tallyVotes counts the submitted votes and finds the strict maximum.
// Every living participant starts at zero. Votes already cast toward a
// participant who died mid-day (connection loss) still count as submitted;
// the tally never retroactively invalidates them. A zero maximum or a tie at
// the maximum eliminates no one.
func tallyVotes(roster map[string]*participant.Participant, votes map[string]string) dayOutcome {
	counts := make(map[string]int)
	for _, p := range roster {
		if p.Alive {
			counts[p.ID] = 0
		}
	}
	for _, targetID := range votes {
		counts[targetID]++
	}

	max := 0
	var holders []string
	for id, c := range counts {
		if c > max {
			max = c
			holders = []string{id}
		} else if c == max && max > 0 {
			holders = append(holders, id)
		}
	}

	if max == 0 || len(holders) != 1 {
		return dayOutcome{LogLines: []string{"The vote was inconclusive. No one was eliminated."}}
	}

	chosen := roster[holders[0]]
	if chosen == nil || !chosen.Alive {
		// The plurality landed on someone who dropped mid-day.
		return dayOutcome{LogLines: []string{"The vote was inconclusive. No one was eliminated."}}
	}

	return dayOutcome{
		EliminatedID: chosen.ID,
		LogLines:     []string{chosen.Name + " was eliminated by majority vote."},
	}
}
