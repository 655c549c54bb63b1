package engine

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/contagio-game/server/internal/domain/participant"
	"github.com/contagio-game/server/internal/events"
	"github.com/contagio-game/server/internal/platform/logger"
)

// captureSink records every outbound message for assertions.
type captureSink struct {
	direct    map[string][]string
	broadcast []string
}

func newCaptureSink() *captureSink {
	return &captureSink{direct: make(map[string][]string)}
}

func (s *captureSink) SendTo(participantID string, message []byte) {
	s.direct[participantID] = append(s.direct[participantID], string(message))
}

func (s *captureSink) Broadcast(message []byte) {
	s.broadcast = append(s.broadcast, string(message))
}

func (s *captureSink) lastTo(participantID string) string {
	msgs := s.direct[participantID]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

func (s *captureSink) anyTo(participantID, substr string) bool {
	for _, msg := range s.direct[participantID] {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// chanArchiver hands the archived result to the test goroutine.
type chanArchiver struct {
	ch chan WinRecord
}

func (a *chanArchiver) SaveResult(matchID string, win WinRecord, rounds int, gameLog []string) error {
	a.ch <- win
	return nil
}

func testSettings() Settings {
	return Settings{MinPlayers: 8, NightDuration: time.Hour, DayDuration: time.Hour}
}

// newRunningMatch builds an 8-player match already in its first night with a
// fixed, known assignment: p1 journalist, p2 police, p3 fanatic,
// p4 researcher, p5+p6 terrorists, p7+p8 citizens, p8 immune.
// Tests drive the unexported handlers directly; the command loop is not run.
func newRunningMatch(arch Archiver) (*Match, *captureSink) {
	sink := newCaptureSink()
	m := NewMatch("M_TEST", testSettings(), sink, events.NewEventLog(nil), logger.NewLogger(), arch, nil)

	roles := []participant.Role{
		participant.RoleJournalist,
		participant.RolePolice,
		participant.RoleFanatic,
		participant.RoleResearcher,
		participant.RoleTerrorist,
		participant.RoleTerrorist,
		participant.RoleCitizen,
		participant.RoleCitizen,
	}
	for i, role := range roles {
		id := fmt.Sprintf("p%d", i+1)
		p := participant.New(id, "Player"+fmt.Sprint(i+1))
		p.Seat = i + 1
		p.Role = role
		m.roster[id] = p
		m.joinOrder = append(m.joinOrder, id)
		m.present++
	}
	m.roster["p8"].Immune = true
	m.roster["p5"].PartnerID = "p6"
	m.roster["p6"].PartnerID = "p5"
	m.seatCount = 8

	m.enterNight()
	return m, sink
}

func TestLobbyJoinAndStart(t *testing.T) {
	sink := newCaptureSink()
	m := NewMatch("M_LOBBY", testSettings(), sink, events.NewEventLog(nil), logger.NewLogger(), nil, nil)

	var ids []string
	for i := 0; i < 8; i++ {
		id, err := m.join(fmt.Sprintf("Player%d", i+1))
		if err != nil {
			t.Fatalf("join failed: %v", err)
		}
		ids = append(ids, id)
	}

	if err := m.start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if m.phase != participant.PhaseNight {
		t.Fatalf("Expected NIGHT after start, got %s", m.phase)
	}
	if m.round != 1 {
		t.Errorf("Expected round 1, got %d", m.round)
	}
	for i, id := range ids {
		p := m.roster[id]
		if p.Seat != i+1 {
			t.Errorf("Seat of %s = %d, want join order %d", id, p.Seat, i+1)
		}
		if p.Role == "" {
			t.Errorf("Participant %s has no role after start", id)
		}
	}

	if _, err := m.join("Latecomer"); !errors.Is(err, ErrMatchInProgress) {
		t.Errorf("Joining after start: got %v, want ErrMatchInProgress", err)
	}
	if err := m.start(); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("Starting twice: got %v, want ErrWrongPhase", err)
	}
}

func TestStartRejectsTooFewPlayers(t *testing.T) {
	sink := newCaptureSink()
	m := NewMatch("M_SMALL", testSettings(), sink, events.NewEventLog(nil), logger.NewLogger(), nil, nil)
	for i := 0; i < 3; i++ {
		if _, err := m.join(fmt.Sprintf("Player%d", i+1)); err != nil {
			t.Fatalf("join failed: %v", err)
		}
	}
	if err := m.start(); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Fatalf("Expected ErrNotEnoughPlayers, got %v", err)
	}
	if m.phase != participant.PhaseLobby {
		t.Errorf("A failed start must stay in the lobby, got %s", m.phase)
	}
}

func TestNightActionValidation(t *testing.T) {
	m, _ := newRunningMatch(nil)

	if err := m.submitNightAction("ghost", ActionInfect, "p1"); !errors.Is(err, ErrUnknownActor) {
		t.Errorf("Unknown actor: got %v", err)
	}
	if err := m.submitNightAction("p7", ActionInfect, "p1"); !errors.Is(err, ErrNotYourRole) {
		t.Errorf("Citizen infecting: got %v", err)
	}
	if err := m.submitNightAction("p5", ActionPoliceShot, "p1"); !errors.Is(err, ErrNotYourRole) {
		t.Errorf("Terrorist using the police shot: got %v", err)
	}
	if err := m.submitNightAction("p5", ActionInfect, "ghost"); !errors.Is(err, ErrInvalidTarget) {
		t.Errorf("Unknown target: got %v", err)
	}

	m.roster["p2"].Alive = false
	if err := m.submitNightAction("p2", ActionPoliceShot, "p1"); !errors.Is(err, ErrDeadActor) {
		t.Errorf("Dead actor: got %v", err)
	}
}

func TestVoteRejectedOutsideDay(t *testing.T) {
	m, _ := newRunningMatch(nil)
	if err := m.submitVote("p1", "p2"); !errors.Is(err, ErrWrongPhase) {
		t.Fatalf("Voting at night: got %v, want ErrWrongPhase", err)
	}
}

// submitAllNightActions drives the five night actors through a benign night:
// the police shoot p7, both terrorists hit the immune p8, the journalist
// investigates p5 and the researcher analyzes the given target.
func submitAllNightActions(t *testing.T, m *Match, analyzeTarget string) {
	t.Helper()
	steps := []struct {
		actor  string
		kind   ActionKind
		target string
	}{
		{"p1", ActionInvestigate, "p5"},
		{"p2", ActionPoliceShot, "p7"},
		{"p4", ActionAnalyze, analyzeTarget},
		{"p5", ActionInfect, "p8"},
		{"p6", ActionInfect, "p8"},
	}
	for _, s := range steps {
		if err := m.submitNightAction(s.actor, s.kind, s.target); err != nil {
			t.Fatalf("submitNightAction(%s): %v", s.actor, err)
		}
	}
}

func TestNightResolvesEarlyWhenAllActed(t *testing.T) {
	m, sink := newRunningMatch(nil)
	submitAllNightActions(t, m, "p8")

	if m.phase != participant.PhaseDay {
		t.Fatalf("Expected early transition to DAY, got %s", m.phase)
	}
	if m.roster["p7"].Alive {
		t.Error("p7 should have been shot by the police")
	}
	if !m.roster["p8"].Alive {
		t.Error("The immune p8 must survive the infection")
	}
	if m.cure != 1 {
		t.Errorf("Analyzing the immune must advance the cure to 1, got %d", m.cure)
	}

	if !sink.anyTo("p1", "Terrorist") {
		t.Error("The journalist should have received the investigation result")
	}
	if !sink.anyTo("p4", "Breakthrough") {
		t.Error("The researcher should have received the breakthrough feedback")
	}
}

func TestStaleResolveIsNoOp(t *testing.T) {
	m, _ := newRunningMatch(nil)
	nightSeq := m.phaseSeq
	submitAllNightActions(t, m, "p1")

	if m.phase != participant.PhaseDay {
		t.Fatalf("Expected DAY, got %s", m.phase)
	}
	round, logLen := m.round, len(m.gameLog)

	// The night timeout fires late with the stale sequence number.
	m.resolveNight(nightSeq)
	if m.phase != participant.PhaseDay || m.round != round || len(m.gameLog) != logLen {
		t.Fatal("A stale night resolve must change nothing")
	}

	// Same guard on the day side: stale seq after an early day resolve.
	daySeq := m.phaseSeq
	for _, id := range []string{"p1", "p2", "p3", "p4", "p8"} {
		if err := m.submitVote(id, "p5"); err != nil {
			t.Fatalf("submitVote(%s): %v", id, err)
		}
	}
	if err := m.submitVote("p5", "p1"); err != nil {
		t.Fatalf("submitVote(p5): %v", err)
	}
	if err := m.submitVote("p6", "p1"); err != nil {
		t.Fatalf("submitVote(p6): %v", err)
	}
	if m.phase != participant.PhaseNight {
		t.Fatalf("Expected NIGHT after all voted, got %s", m.phase)
	}
	round, logLen = m.round, len(m.gameLog)
	m.resolveDay(daySeq)
	if m.phase != participant.PhaseNight || m.round != round || len(m.gameLog) != logLen {
		t.Fatal("A stale day resolve must change nothing")
	}
}

func TestNightActionResubmissionOverwrites(t *testing.T) {
	m, _ := newRunningMatch(nil)

	// The police officer aims at p7, then changes their mind.
	if err := m.submitNightAction("p2", ActionPoliceShot, "p7"); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	if err := m.submitNightAction("p2", ActionPoliceShot, "p8"); err != nil {
		t.Fatalf("re-submission: %v", err)
	}
	if m.phase != participant.PhaseNight {
		t.Fatal("A re-submission must not complete the all-acted set")
	}
	if got := m.actions["p2"].TargetID; got != "p8" {
		t.Fatalf("Re-submission must overwrite the target, got %q", got)
	}

	steps := []struct {
		actor  string
		kind   ActionKind
		target string
	}{
		{"p1", ActionInvestigate, "p5"},
		{"p4", ActionAnalyze, "p1"},
		{"p5", ActionInfect, "p8"},
		{"p6", ActionInfect, "p8"},
	}
	for _, s := range steps {
		if err := m.submitNightAction(s.actor, s.kind, s.target); err != nil {
			t.Fatalf("submitNightAction(%s): %v", s.actor, err)
		}
	}

	// Only the second submission resolves: p8 is shot, p7 untouched.
	if m.roster["p7"].Alive != true {
		t.Error("The overwritten target must not be eliminated")
	}
	if m.roster["p8"].Alive {
		t.Error("The final target should have been shot")
	}
	if m.phase != participant.PhaseDay {
		t.Fatalf("Expected DAY after all actors acted once each, got %s", m.phase)
	}
}

func TestVoteResubmissionOverwrites(t *testing.T) {
	m, _ := newRunningMatch(nil)
	submitAllNightActions(t, m, "p1") // p7 dies, 7 voters remain

	if err := m.submitVote("p1", "p8"); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if err := m.submitVote("p1", "p5"); err != nil {
		t.Fatalf("re-vote: %v", err)
	}
	if m.phase != participant.PhaseDay {
		t.Fatal("A re-vote must not complete the all-voted set")
	}
	if len(m.votes) != 1 || m.votes["p1"] != "p5" {
		t.Fatalf("Re-vote must overwrite the prior vote, got %v", m.votes)
	}

	for _, v := range []struct{ voter, target string }{
		{"p2", "p5"}, {"p3", "p5"}, {"p4", "p5"}, {"p8", "p5"},
		{"p5", "p1"}, {"p6", "p1"},
	} {
		if err := m.submitVote(v.voter, v.target); err != nil {
			t.Fatalf("submitVote(%s): %v", v.voter, err)
		}
	}

	// Had p1's first vote counted, p8 would hold one; only p5 falls.
	if m.roster["p5"].Alive {
		t.Error("p5 should have been eliminated by the final tally")
	}
	if !m.roster["p8"].Alive {
		t.Error("The overwritten vote target must be unaffected")
	}
	if m.phase != participant.PhaseNight || m.round != 2 {
		t.Fatalf("Expected round 2 NIGHT after the vote, got %s round %d", m.phase, m.round)
	}
}

func TestDayVoteEliminatesAndReturnsToNight(t *testing.T) {
	m, _ := newRunningMatch(nil)
	submitAllNightActions(t, m, "p1") // p7 dies, 7 remain

	if err := m.submitVote("p1", "p7"); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("Voting for an eliminated participant: got %v", err)
	}

	// Everyone piles on the citizen p8.
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5", "p6"} {
		if err := m.submitVote(id, "p8"); err != nil {
			t.Fatalf("submitVote(%s): %v", id, err)
		}
	}
	if err := m.submitVote("p8", "p5"); err != nil {
		t.Fatalf("submitVote(p8): %v", err)
	}

	if m.roster["p8"].Alive {
		t.Error("p8 should have been eliminated by majority vote")
	}
	if m.phase != participant.PhaseNight {
		t.Fatalf("Expected the next NIGHT after the vote, got %s", m.phase)
	}
	if m.round != 2 {
		t.Errorf("Expected round 2, got %d", m.round)
	}
}

func TestFanaticEliminationEndsMatch(t *testing.T) {
	arch := &chanArchiver{ch: make(chan WinRecord, 1)}
	m, _ := newRunningMatch(arch)
	submitAllNightActions(t, m, "p1")

	for _, id := range []string{"p1", "p2", "p4", "p5", "p6", "p8"} {
		if err := m.submitVote(id, "p3"); err != nil {
			t.Fatalf("submitVote(%s): %v", id, err)
		}
	}
	if err := m.submitVote("p3", "p1"); err != nil {
		t.Fatalf("submitVote(p3): %v", err)
	}

	if m.phase != participant.PhaseEnd {
		t.Fatalf("Expected END after the fanatic died, got %s", m.phase)
	}
	if m.win == nil || m.win.Winner != WinnerFanatic {
		t.Fatalf("Expected a fanatic win record, got %+v", m.win)
	}
	if err := m.submitVote("p1", "p2"); !errors.Is(err, ErrWrongPhase) {
		t.Errorf("Voting after END: got %v, want ErrWrongPhase", err)
	}

	select {
	case win := <-arch.ch:
		if win.Winner != WinnerFanatic {
			t.Errorf("Archived winner %q, want %q", win.Winner, WinnerFanatic)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("The finished match was never archived")
	}
}

func TestCureCompletionEndsMatchDuringNight(t *testing.T) {
	m, _ := newRunningMatch(nil)
	m.cure = cureTarget - 1

	submitAllNightActions(t, m, "p8") // analyze hits the immune carrier

	if m.phase != participant.PhaseEnd {
		t.Fatalf("Expected END when the cure completed, got %s", m.phase)
	}
	if m.win == nil || m.win.Winner != WinnerCitizens {
		t.Fatalf("Expected a citizen win record, got %+v", m.win)
	}
}

func TestTerroristChatStaysPrivate(t *testing.T) {
	m, sink := newRunningMatch(nil)

	if err := m.chat("p7", "hello?"); !errors.Is(err, ErrNotYourRole) {
		t.Fatalf("Citizen chat: got %v, want ErrNotYourRole", err)
	}
	if err := m.chat("p5", "target the journalist"); err != nil {
		t.Fatalf("Terrorist chat failed: %v", err)
	}

	for _, id := range []string{"p5", "p6"} {
		if !strings.Contains(sink.lastTo(id), MsgTerroristChatMessage) {
			t.Errorf("Partner %s did not receive the chat message", id)
		}
	}
	for _, id := range []string{"p1", "p2", "p3", "p4", "p7", "p8"} {
		for _, msg := range sink.direct[id] {
			if strings.Contains(msg, MsgTerroristChatMessage) {
				t.Errorf("Non-terrorist %s received a terrorist chat message", id)
			}
		}
	}
}

func TestLeaveInLobbyRemovesParticipant(t *testing.T) {
	removed := make(chan string, 1)
	sink := newCaptureSink()
	m := NewMatch("M_LEAVE", testSettings(), sink, events.NewEventLog(nil), logger.NewLogger(), nil, func(id string) {
		removed <- id
	})

	a, _ := m.join("Ana")
	b, _ := m.join("Bruno")

	m.leave(a)
	if _, ok := m.roster[a]; ok {
		t.Fatal("Lobby leave must remove the participant outright")
	}
	if len(m.joinOrder) != 1 || m.joinOrder[0] != b {
		t.Fatalf("joinOrder not compacted: %v", m.joinOrder)
	}

	m.leave(b)
	select {
	case id := <-removed:
		if id != "M_LEAVE" {
			t.Errorf("onEmpty got %q, want M_LEAVE", id)
		}
	default:
		t.Fatal("The empty match was never discarded")
	}
	if m.win != nil {
		t.Error("A discarded match must not produce a win record")
	}
}

func TestLeaveMidMatchKeepsSeat(t *testing.T) {
	m, _ := newRunningMatch(nil)
	m.leave("p7")

	p := m.roster["p7"]
	if p == nil {
		t.Fatal("Mid-match leave must keep the seat occupied")
	}
	if p.Alive {
		t.Error("A departed participant must not be alive")
	}
	if p.Seat != 7 {
		t.Errorf("Seat must not shift on leave, got %d", p.Seat)
	}
}

func TestLeaveCompletesTheNight(t *testing.T) {
	m, _ := newRunningMatch(nil)
	steps := []struct {
		actor  string
		kind   ActionKind
		target string
	}{
		{"p1", ActionInvestigate, "p5"},
		{"p2", ActionPoliceShot, "p7"},
		{"p4", ActionAnalyze, "p1"},
		{"p5", ActionInfect, "p8"},
	}
	for _, s := range steps {
		if err := m.submitNightAction(s.actor, s.kind, s.target); err != nil {
			t.Fatalf("submitNightAction(%s): %v", s.actor, err)
		}
	}
	if m.phase != participant.PhaseNight {
		t.Fatal("fixture: night should still be waiting on p6")
	}

	// The last pending actor disconnects; the night no longer waits on them.
	m.leave("p6")
	if m.phase != participant.PhaseDay {
		t.Fatalf("Expected the night to resolve after the last actor left, got %s", m.phase)
	}
}

func TestStateViewRedaction(t *testing.T) {
	m, _ := newRunningMatch(nil)

	shared := m.sharedState()
	if shared.You != nil {
		t.Fatal("The spectator view must not carry a You block")
	}
	if len(shared.Players) != 8 {
		t.Fatalf("Expected 8 players in the shared view, got %d", len(shared.Players))
	}

	mine := m.stateFor(m.roster["p5"])
	if mine.You == nil || mine.You.Role != string(participant.RoleTerrorist) {
		t.Fatalf("Personalized view missing the own role: %+v", mine.You)
	}
	if mine.You.Partner != m.roster["p6"].Name {
		t.Errorf("Terrorist view must name the partner, got %q", mine.You.Partner)
	}

	immune := m.stateFor(m.roster["p8"])
	if immune.You == nil || !immune.You.Immune {
		t.Error("The immune participant must see their own immunity")
	}
}
