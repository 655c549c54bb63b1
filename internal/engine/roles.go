package engine

import (
	"fmt"
	"math/rand"

	"github.com/contagio-game/server/internal/domain/participant"
)

// Assignment is the result of dealing roles at match start.
type Assignment struct {
	Roles    map[string]participant.Role
	Partners [2]string // the linked terrorist pair
	ImmuneID string    // hidden, never a terrorist
}

// baseRoles is the fixed special-role set dealt before padding with citizens.
var baseRoles = []participant.Role{
	participant.RoleJournalist,
	participant.RolePolice,
	participant.RoleFanatic,
	participant.RoleResearcher,
	participant.RoleTerrorist,
	participant.RoleTerrorist,
}

// AssignRoles deals exactly one role per participant: the base special set
// padded with citizens, then uniformly shuffled. One non-terrorist is then
// drawn uniformly as the hidden immune participant - the draw is independent
// of role, so it can land on the journalist, police officer, fanatic,
// researcher or a plain citizen.
func AssignRoles(ids []string, rnd *rand.Rand) (Assignment, error) {
	if len(ids) < len(baseRoles) {
		return Assignment{}, fmt.Errorf("%w: have %d, need at least %d", ErrNotEnoughPlayers, len(ids), len(baseRoles))
	}

	deck := make([]participant.Role, 0, len(ids))
	deck = append(deck, baseRoles...)
	for len(deck) < len(ids) {
		deck = append(deck, participant.RoleCitizen)
	}
	rnd.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	asg := Assignment{Roles: make(map[string]participant.Role, len(ids))}
	var terrorists []string
	var nonTerrorists []string
	for i, id := range ids {
		asg.Roles[id] = deck[i]
		if deck[i] == participant.RoleTerrorist {
			terrorists = append(terrorists, id)
		} else {
			nonTerrorists = append(nonTerrorists, id)
		}
	}

	asg.Partners = [2]string{terrorists[0], terrorists[1]}
	asg.ImmuneID = nonTerrorists[rnd.Intn(len(nonTerrorists))]
	return asg, nil
}
