// Package participant defines the core domain entities for match participants.
// This package is PURE and must NOT import any infrastructure packages (network, events, platform).
package participant

// Role represents the hidden role assigned to a participant at match start.
type Role string

const (
	RoleCitizen    Role = "Citizen"
	RoleResearcher Role = "Researcher" // Analyzes a player per night; finding the immune one advances the cure
	RoleJournalist Role = "Journalist" // Investigates a player per night and learns their exact role
	RolePolice     Role = "Police Officer"
	RoleTerrorist  Role = "Terrorist" // Pair; recurring infection plus a single shared one-shot kill
	RoleFanatic    Role = "Fanatic"   // Wins by getting eliminated
)

// Phase identifies the current stage of a match. Exactly one is active at a time.
type Phase string

const (
	PhaseLobby Phase = "LOBBY"
	PhaseNight Phase = "NIGHT"
	PhaseDay   Phase = "DAY"
	PhaseEnd   Phase = "END"
)

// Participant represents one joined player. The identity is stable for the
// connection's lifetime; role, seat and immunity are populated exactly once
// at match start and never change afterwards.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"` // empty until the match starts
	Alive  bool   `json:"is_alive"`
	Seat   int    `json:"seat"` // 1..N circular position, 0 before start
	Immune bool   `json:"immune"`

	// PartnerID links the two terrorists for the partner reveal.
	// Empty for every other role.
	PartnerID string `json:"partner_id,omitempty"`
}

// New creates a fresh participant waiting in the lobby.
func New(id, name string) *Participant {
	return &Participant{
		ID:    id,
		Name:  name,
		Alive: true,
	}
}

// CitizenAligned reports whether the role counts toward the citizen faction
// for the terrorist win threshold. The fanatic belongs to neither side.
func (r Role) CitizenAligned() bool {
	switch r {
	case RoleCitizen, RoleResearcher, RoleJournalist, RolePolice:
		return true
	}
	return false
}

// ActsAtNight reports whether the role holds a night action.
func (r Role) ActsAtNight() bool {
	switch r {
	case RoleResearcher, RoleJournalist, RolePolice, RoleTerrorist:
		return true
	}
	return false
}
