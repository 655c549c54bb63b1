package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/contagio-game/server/internal/domain/participant"
)

// makeRoster seats n living citizens as p1..pn on the circle.
func makeRoster(n int) map[string]*participant.Participant {
	roster := make(map[string]*participant.Participant, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("p%d", i)
		p := participant.New(id, "Player"+fmt.Sprint(i))
		p.Seat = i
		p.Role = participant.RoleCitizen
		roster[id] = p
	}
	return roster
}

func TestContagionSpreadsToBothNeighbors(t *testing.T) {
	roster := makeRoster(8)
	roster["p1"].Role = participant.RoleTerrorist

	actions := map[string]NightAction{
		"p1": {ActorID: "p1", Kind: ActionInfect, TargetID: "p3"},
	}
	out := resolveNightActions(roster, 8, actions, false)

	want := map[string]bool{"p2": true, "p3": true, "p4": true}
	if len(out.Eliminated) != 3 {
		t.Fatalf("Expected 3 eliminations, got %d: %+v", len(out.Eliminated), out.Eliminated)
	}
	for _, e := range out.Eliminated {
		if !want[e.ID] {
			t.Errorf("Unexpected elimination of %s", e.ID)
		}
		if e.Cause != "virus" {
			t.Errorf("Elimination of %s has cause %q, want virus", e.ID, e.Cause)
		}
	}
}

func TestContagionWrapsAroundTheCircle(t *testing.T) {
	roster := makeRoster(8)
	roster["p2"].Role = participant.RoleTerrorist

	actions := map[string]NightAction{
		"p2": {ActorID: "p2", Kind: ActionInfect, TargetID: "p1"},
	}
	out := resolveNightActions(roster, 8, actions, false)

	// Seat 1's left neighbor is seat 8.
	want := map[string]bool{"p8": true, "p1": true, "p2": true}
	for _, e := range out.Eliminated {
		if !want[e.ID] {
			t.Errorf("Unexpected elimination of %s", e.ID)
		}
	}
	if len(out.Eliminated) != 3 {
		t.Fatalf("Expected 3 eliminations, got %d", len(out.Eliminated))
	}
}

func TestImmuneTargetStopsTheSpread(t *testing.T) {
	roster := makeRoster(8)
	roster["p1"].Role = participant.RoleTerrorist
	roster["p3"].Immune = true

	actions := map[string]NightAction{
		"p1": {ActorID: "p1", Kind: ActionInfect, TargetID: "p3"},
	}
	out := resolveNightActions(roster, 8, actions, false)

	if len(out.Eliminated) != 0 {
		t.Fatalf("Immune target must stop the spread entirely, got %+v", out.Eliminated)
	}
	found := false
	for _, line := range out.LogLines {
		if strings.Contains(line, "survived") {
			found = true
		}
	}
	if !found {
		t.Error("Expected a survival log line for the immune target")
	}
}

func TestImmuneNeighborSurvivesTheSpread(t *testing.T) {
	roster := makeRoster(8)
	roster["p1"].Role = participant.RoleTerrorist
	roster["p4"].Immune = true

	actions := map[string]NightAction{
		"p1": {ActorID: "p1", Kind: ActionInfect, TargetID: "p3"},
	}
	out := resolveNightActions(roster, 8, actions, false)

	for _, e := range out.Eliminated {
		if e.ID == "p4" {
			t.Fatal("Immune neighbor must not be eliminated")
		}
	}
	if len(out.Eliminated) != 2 {
		t.Fatalf("Expected 2 eliminations (target + one neighbor), got %d", len(out.Eliminated))
	}
}

func TestNoDoubleEliminationSameNight(t *testing.T) {
	roster := makeRoster(8)
	roster["p1"].Role = participant.RoleTerrorist
	roster["p5"].Role = participant.RolePolice

	// Police shoot p3, the virus also lands on p3. p3 dies once, to the
	// shot, and the contagion never triggers from an already-dead target.
	actions := map[string]NightAction{
		"p5": {ActorID: "p5", Kind: ActionPoliceShot, TargetID: "p3"},
		"p1": {ActorID: "p1", Kind: ActionInfect, TargetID: "p3"},
	}
	out := resolveNightActions(roster, 8, actions, false)

	if len(out.Eliminated) != 1 {
		t.Fatalf("Expected exactly 1 elimination, got %d: %+v", len(out.Eliminated), out.Eliminated)
	}
	if out.Eliminated[0].ID != "p3" || out.Eliminated[0].Cause != "police" {
		t.Errorf("Expected p3 shot by police, got %+v", out.Eliminated[0])
	}
}

func TestTerrorShotIsSingleUse(t *testing.T) {
	roster := makeRoster(8)
	roster["p1"].Role = participant.RoleTerrorist

	actions := map[string]NightAction{
		"p1": {ActorID: "p1", Kind: ActionTerrorShot, TargetID: "p5"},
	}
	out := resolveNightActions(roster, 8, actions, false)
	if !out.ShotUsed {
		t.Fatal("Shot should be consumed on a successful kill")
	}
	if len(out.Eliminated) != 1 || out.Eliminated[0].ID != "p5" {
		t.Fatalf("Expected p5 gunned down, got %+v", out.Eliminated)
	}

	// A second attempt on a later night is a no-op.
	roster["p5"].Alive = false
	actions = map[string]NightAction{
		"p1": {ActorID: "p1", Kind: ActionTerrorShot, TargetID: "p6"},
	}
	out = resolveNightActions(roster, 8, actions, true)
	if len(out.Eliminated) != 0 {
		t.Fatalf("Consumed shot must not eliminate, got %+v", out.Eliminated)
	}
}

func TestTerrorShotNotConsumedOnDeadTarget(t *testing.T) {
	roster := makeRoster(8)
	roster["p1"].Role = participant.RoleTerrorist
	roster["p5"].Alive = false

	actions := map[string]NightAction{
		"p1": {ActorID: "p1", Kind: ActionTerrorShot, TargetID: "p5"},
	}
	out := resolveNightActions(roster, 8, actions, false)
	if out.ShotUsed {
		t.Fatal("Shot must only be consumed when it actually applies")
	}
}

func TestAnalyzeImmuneAdvancesCure(t *testing.T) {
	roster := makeRoster(8)
	roster["p2"].Role = participant.RoleResearcher
	roster["p6"].Immune = true

	actions := map[string]NightAction{
		"p2": {ActorID: "p2", Kind: ActionAnalyze, TargetID: "p6"},
	}
	fbs, gain := resolveNightFeedback(roster, actions, 0)
	if gain != 1 {
		t.Fatalf("Expected cure gain 1, got %d", gain)
	}
	if len(fbs) != 1 || !strings.Contains(fbs[0].Text, "Breakthrough") {
		t.Errorf("Expected a breakthrough message, got %+v", fbs)
	}
}

func TestAnalyzeGainCappedAtTarget(t *testing.T) {
	roster := makeRoster(8)
	roster["p2"].Role = participant.RoleResearcher
	roster["p6"].Immune = true

	actions := map[string]NightAction{
		"p2": {ActorID: "p2", Kind: ActionAnalyze, TargetID: "p6"},
	}
	_, gain := resolveNightFeedback(roster, actions, cureTarget)
	if gain != 0 {
		t.Fatalf("Cure must not advance past the target, got gain %d", gain)
	}
}

func TestInvestigateRevealsRole(t *testing.T) {
	roster := makeRoster(8)
	roster["p3"].Role = participant.RoleJournalist
	roster["p7"].Role = participant.RoleTerrorist

	actions := map[string]NightAction{
		"p3": {ActorID: "p3", Kind: ActionInvestigate, TargetID: "p7"},
	}
	fbs, _ := resolveNightFeedback(roster, actions, 0)
	if len(fbs) != 1 {
		t.Fatalf("Expected 1 feedback message, got %d", len(fbs))
	}
	if fbs[0].ActorID != "p3" || !strings.Contains(fbs[0].Text, "Terrorist") {
		t.Errorf("Expected the journalist to learn the terrorist role, got %+v", fbs[0])
	}
}

func TestWrapSeat(t *testing.T) {
	if got := wrapSeat(0, 8); got != 8 {
		t.Errorf("wrapSeat(0, 8) = %d, want 8", got)
	}
	if got := wrapSeat(9, 8); got != 1 {
		t.Errorf("wrapSeat(9, 8) = %d, want 1", got)
	}
	if got := wrapSeat(4, 8); got != 4 {
		t.Errorf("wrapSeat(4, 8) = %d, want 4", got)
	}
}
