package engine

import (
	"math/rand"
	"testing"

	"github.com/contagio-game/server/internal/domain/participant"
)

func idList(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = string(rune('A' + i))
	}
	return ids
}

func TestAssignRolesDealsFullSpecialSet(t *testing.T) {
	ids := idList(8)
	asg, err := AssignRoles(ids, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("AssignRoles failed: %v", err)
	}

	counts := make(map[participant.Role]int)
	for _, id := range ids {
		counts[asg.Roles[id]]++
	}

	if counts[participant.RoleTerrorist] != 2 {
		t.Errorf("Expected exactly 2 terrorists, got %d", counts[participant.RoleTerrorist])
	}
	for _, r := range []participant.Role{participant.RoleJournalist, participant.RolePolice, participant.RoleFanatic, participant.RoleResearcher} {
		if counts[r] != 1 {
			t.Errorf("Expected exactly 1 %s, got %d", r, counts[r])
		}
	}
	if counts[participant.RoleCitizen] != 2 {
		t.Errorf("Expected 2 citizens padding an 8-player deal, got %d", counts[participant.RoleCitizen])
	}
}

func TestAssignRolesLinksPartners(t *testing.T) {
	asg, err := AssignRoles(idList(10), rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("AssignRoles failed: %v", err)
	}

	if asg.Partners[0] == asg.Partners[1] {
		t.Fatal("Partners must be two distinct participants")
	}
	for _, id := range asg.Partners {
		if asg.Roles[id] != participant.RoleTerrorist {
			t.Errorf("Partner %s has role %s, want Terrorist", id, asg.Roles[id])
		}
	}
}

func TestAssignRolesImmuneIsNeverTerrorist(t *testing.T) {
	// The immune draw is random; sweep seeds to cover many deals.
	for seed := int64(0); seed < 50; seed++ {
		asg, err := AssignRoles(idList(8), rand.New(rand.NewSource(seed)))
		if err != nil {
			t.Fatalf("AssignRoles failed: %v", err)
		}
		if asg.ImmuneID == "" {
			t.Fatal("No immune participant assigned")
		}
		if asg.Roles[asg.ImmuneID] == participant.RoleTerrorist {
			t.Fatalf("seed %d: immunity landed on a terrorist", seed)
		}
	}
}

func TestAssignRolesRejectsTooFewPlayers(t *testing.T) {
	_, err := AssignRoles(idList(5), rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatal("Expected error for 5 players, got nil")
	}
}
