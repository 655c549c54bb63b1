package engine

import (
	"sort"

	"github.com/contagio-game/server/internal/domain/participant"
)

// cureTarget is the research progress at which the citizen faction wins.
const cureTarget = 3

// Winner labels recorded in the win record and shown on the end screen.
const (
	WinnerFanatic    = "Fanatic"
	WinnerCitizens   = "Citizens"
	WinnerTerrorists = "Terrorists"
)

// RoleReveal is one entry of the full unredacted assignment published at END.
type RoleReveal struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// WinRecord is produced once, frozen, when a win condition fires.
type WinRecord struct {
	Winner    string       `json:"winner"`
	Reason    string       `json:"reason"`
	FullRoles []RoleReveal `json:"fullRoles"`
}

// EvaluateWin checks the win conditions in their fixed priority order and
// returns nil while the match should continue:
//  1. the fanatic is dead (beats everything, including a simultaneous cure),
//  2. the citizen faction completed the cure or eliminated both terrorists,
//  3. living terrorists match or outnumber the living citizen-aligned players.
func EvaluateWin(roster map[string]*participant.Participant, cure int) *WinRecord {
	var fanatic *participant.Participant
	livingTerrorists := 0
	livingCitizens := 0

	for _, p := range roster {
		switch {
		case p.Role == participant.RoleFanatic:
			fanatic = p
		case p.Role == participant.RoleTerrorist:
			if p.Alive {
				livingTerrorists++
			}
		case p.Role.CitizenAligned():
			if p.Alive {
				livingCitizens++
			}
		}
	}

	if fanatic != nil && !fanatic.Alive {
		return newWinRecord(roster, WinnerFanatic,
			fanatic.Name+" was the Fanatic and wanted to be eliminated. The Fanatic wins alone.")
	}
	if cure >= cureTarget {
		return newWinRecord(roster, WinnerCitizens,
			"The research is complete: the cure has been synthesized.")
	}
	if livingTerrorists == 0 {
		return newWinRecord(roster, WinnerCitizens,
			"Both terrorists have been eliminated.")
	}
	if livingTerrorists >= livingCitizens {
		return newWinRecord(roster, WinnerTerrorists,
			"The terrorists now match the surviving citizens. Nothing can stop them.")
	}
	return nil
}

func newWinRecord(roster map[string]*participant.Participant, winner, reason string) *WinRecord {
	rec := &WinRecord{Winner: winner, Reason: reason}
	for _, p := range roster {
		rec.FullRoles = append(rec.FullRoles, RoleReveal{ID: p.ID, Name: p.Name, Role: string(p.Role)})
	}
	sort.Slice(rec.FullRoles, func(i, j int) bool {
		return roster[rec.FullRoles[i].ID].Seat < roster[rec.FullRoles[j].ID].Seat
	})
	return rec
}
