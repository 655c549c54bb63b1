package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contagio-game/server/internal/domain/participant"
	"github.com/contagio-game/server/internal/events"
	"github.com/contagio-game/server/internal/platform/logger"
	"github.com/contagio-game/server/internal/platform/metrics"
)

// Settings are the tunable parameters of one match.
type Settings struct {
	MinPlayers    int
	NightDuration time.Duration
	DayDuration   time.Duration
}

// Sink delivers outbound messages. SendTo targets one bound participant;
// Broadcast reaches connections not bound to any participant (spectators,
// clients still on the join screen).
type Sink interface {
	SendTo(participantID string, message []byte)
	Broadcast(message []byte)
}

// Archiver stores the result of a finished match.
type Archiver interface {
	SaveResult(matchID string, win WinRecord, rounds int, gameLog []string) error
}

// Match owns the full state of one game session. A single goroutine (Run)
// consumes the command queue; nothing else mutates state, so the engine
// needs no internal locks.
type Match struct {
	ID string

	cfg      Settings
	logger   *logger.Logger
	eventLog *events.EventLog
	sink     Sink
	arch     Archiver
	rnd      *rand.Rand
	onEmpty  func(matchID string)

	phase     participant.Phase
	round     int
	cure      int
	shotUsed  bool // the terrorists' one-shot kill has been consumed
	roster    map[string]*participant.Participant
	joinOrder []string
	seatCount int
	present   int // participants with a live connection
	gameLog   []string
	votes     map[string]string
	actions   map[string]NightAction
	win       *WinRecord

	// phaseSeq increments on every phase entry. Resolve commands carry the
	// value they were armed with; a mismatch means a stale timer or a
	// duplicate trigger and the command is dropped.
	phaseSeq   uint64
	phaseTimer *time.Timer

	commands chan command
	done     chan struct{}
	stopOnce sync.Once
}

// NewMatch creates a match waiting in the lobby. onEmpty is invoked (from the
// match goroutine) when the last participant disconnects and state is
// discarded; it may be nil.
func NewMatch(id string, cfg Settings, sink Sink, eventLog *events.EventLog, log *logger.Logger, arch Archiver, onEmpty func(string)) *Match {
	return &Match{
		ID:       id,
		cfg:      cfg,
		logger:   log,
		eventLog: eventLog,
		sink:     sink,
		arch:     arch,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		onEmpty:  onEmpty,
		phase:    participant.PhaseLobby,
		roster:   make(map[string]*participant.Participant),
		votes:    make(map[string]string),
		actions:  make(map[string]NightAction),
		commands: make(chan command, 256),
		done:     make(chan struct{}),
	}
}

// Run consumes the command queue until the context is canceled or the match
// is torn down. Call in a goroutine.
func (m *Match) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.Stop()
			return
		case <-m.done:
			return
		case cmd := <-m.commands:
			m.handle(cmd)
		}
	}
}

// Stop tears the match down. Idempotent.
func (m *Match) Stop() {
	m.stopOnce.Do(func() {
		if m.phaseTimer != nil {
			m.phaseTimer.Stop()
		}
		m.eventLog.Close()
		close(m.done)
	})
}

// --- Public API (thread-safe: every call is serialized through the queue) ---

// Join adds a participant while the match is in the lobby and returns the
// assigned identity.
func (m *Match) Join(name string) (string, error) {
	r := m.roundTrip(command{kind: cmdJoin, name: name})
	return r.participantID, r.err
}

// Start deals roles and seats and enters the first night.
func (m *Match) Start() error {
	return m.roundTrip(command{kind: cmdStart}).err
}

// SubmitNightAction records (or overwrites) the actor's action for this night.
func (m *Match) SubmitNightAction(actorID string, kind ActionKind, targetID string) error {
	return m.roundTrip(command{kind: cmdNightAction, actorID: actorID, action: kind, targetID: targetID}).err
}

// SubmitVote records (or overwrites) the voter's vote for this day.
func (m *Match) SubmitVote(voterID, targetID string) error {
	return m.roundTrip(command{kind: cmdVote, actorID: voterID, targetID: targetID}).err
}

// Chat relays a message between the terrorist partners.
func (m *Match) Chat(actorID, message string) error {
	return m.roundTrip(command{kind: cmdChat, actorID: actorID, message: message}).err
}

// Sync re-sends the current state to every participant. The transport calls
// this once a connection is bound, since the join itself pushed state before
// the binding existed.
func (m *Match) Sync() {
	m.roundTrip(command{kind: cmdSync})
}

// Leave handles a disconnect: in the lobby the participant is removed
// outright; later the seat stays and the participant is marked not alive.
func (m *Match) Leave(participantID string) {
	select {
	case m.commands <- command{kind: cmdLeave, actorID: participantID}:
	case <-m.done:
	}
}

func (m *Match) roundTrip(cmd command) reply {
	cmd.reply = make(chan reply, 1)
	select {
	case m.commands <- cmd:
	case <-m.done:
		return reply{err: ErrMatchClosed}
	}
	select {
	case r := <-cmd.reply:
		return r
	case <-m.done:
		return reply{err: ErrMatchClosed}
	}
}

// --- Command loop ---

func (m *Match) handle(cmd command) {
	var r reply
	switch cmd.kind {
	case cmdJoin:
		r.participantID, r.err = m.join(cmd.name)
	case cmdStart:
		r.err = m.start()
	case cmdNightAction:
		r.err = m.submitNightAction(cmd.actorID, cmd.action, cmd.targetID)
	case cmdVote:
		r.err = m.submitVote(cmd.actorID, cmd.targetID)
	case cmdChat:
		r.err = m.chat(cmd.actorID, cmd.message)
	case cmdSync:
		m.pushState()
	case cmdLeave:
		m.leave(cmd.actorID)
	case cmdResolveNight:
		m.resolveNight(cmd.seq)
	case cmdResolveDay:
		m.resolveDay(cmd.seq)
	}
	if cmd.reply != nil {
		cmd.reply <- r
	}
}

func (m *Match) join(name string) (string, error) {
	if m.phase != participant.PhaseLobby {
		return "", ErrMatchInProgress
	}
	p := participant.New(uuid.NewString(), name)
	m.roster[p.ID] = p
	m.joinOrder = append(m.joinOrder, p.ID)
	m.present++

	m.appendLog(name + " joined the lobby.")
	m.record(events.EventTypePlayerJoined, p.ID, "", nil)
	m.logger.Event("PLAYER_JOINED", p.ID, name+" joined match "+m.ID)
	m.pushState()
	return p.ID, nil
}

func (m *Match) start() error {
	if m.phase != participant.PhaseLobby {
		return ErrWrongPhase
	}
	if len(m.roster) < m.cfg.MinPlayers {
		return fmt.Errorf("%w: have %d, need %d", ErrNotEnoughPlayers, len(m.roster), m.cfg.MinPlayers)
	}

	asg, err := AssignRoles(m.joinOrder, m.rnd)
	if err != nil {
		return err
	}
	for i, id := range m.joinOrder {
		p := m.roster[id]
		p.Seat = i + 1 // seat = join order, fixed for the whole match
		p.Role = asg.Roles[id]
	}
	m.roster[asg.ImmuneID].Immune = true
	m.roster[asg.Partners[0]].PartnerID = asg.Partners[1]
	m.roster[asg.Partners[1]].PartnerID = asg.Partners[0]
	m.seatCount = len(m.joinOrder)

	m.appendLog("The match has started. Roles have been assigned.")
	m.record(events.EventTypeMatchStarted, "", "", map[string]int{"participants": m.seatCount})
	m.logger.Event("MATCH_STARTED", m.ID, fmt.Sprintf("%d participants seated", m.seatCount))
	metrics.Get().RecordMatchStart()

	m.enterNight()
	return nil
}

func (m *Match) submitNightAction(actorID string, kind ActionKind, targetID string) error {
	if m.phase != participant.PhaseNight {
		return ErrWrongPhase
	}
	actor, ok := m.roster[actorID]
	if !ok {
		return ErrUnknownActor
	}
	if !actor.Alive {
		return ErrDeadActor
	}
	if !roleAllows(actor.Role, kind) {
		return ErrNotYourRole
	}
	if _, ok := m.roster[targetID]; !ok {
		return ErrInvalidTarget
	}

	// Last write wins; there is no lock against re-submission.
	m.actions[actorID] = NightAction{ActorID: actorID, Kind: kind, TargetID: targetID}
	m.record(events.EventTypeNightAction, actorID, targetID, string(kind))

	if m.allNightActed() {
		m.resolveNight(m.phaseSeq)
	}
	return nil
}

func (m *Match) submitVote(voterID, targetID string) error {
	if m.phase != participant.PhaseDay {
		return ErrWrongPhase
	}
	voter, ok := m.roster[voterID]
	if !ok {
		return ErrUnknownActor
	}
	if !voter.Alive {
		return ErrDeadActor
	}
	target, ok := m.roster[targetID]
	if !ok || !target.Alive {
		return ErrInvalidTarget
	}

	m.votes[voterID] = targetID
	m.record(events.EventTypeVoteCast, voterID, targetID, nil)
	m.pushState()

	if m.allVoted() {
		m.resolveDay(m.phaseSeq)
	}
	return nil
}

func (m *Match) chat(actorID, message string) error {
	actor, ok := m.roster[actorID]
	if !ok {
		return ErrUnknownActor
	}
	if actor.Role != participant.RoleTerrorist {
		return ErrNotYourRole
	}

	payload := map[string]string{"sender": actor.Name, "message": message}
	msg := marshalMessage(MsgTerroristChatMessage, payload)
	for _, p := range m.roster {
		if p.Role == participant.RoleTerrorist {
			m.sink.SendTo(p.ID, msg)
		}
	}
	return nil
}

func (m *Match) leave(participantID string) {
	p, ok := m.roster[participantID]
	if !ok {
		return
	}

	if m.phase == participant.PhaseLobby {
		delete(m.roster, participantID)
		for i, id := range m.joinOrder {
			if id == participantID {
				m.joinOrder = append(m.joinOrder[:i], m.joinOrder[i+1:]...)
				break
			}
		}
		m.present--
		m.appendLog(p.Name + " left the lobby.")
		if m.present <= 0 {
			m.discard()
			return
		}
		m.pushState()
		return
	}

	// Mid-match: the seat stays, the participant does not.
	m.present--
	wasAlive := p.Alive
	p.Alive = false
	m.appendLog(p.Name + " left the match.")
	m.record(events.EventTypePlayerLeft, participantID, "", nil)

	if m.present <= 0 {
		m.discard()
		return
	}

	if wasAlive && m.phase != participant.PhaseEnd {
		if m.checkWin() {
			m.pushState()
			return
		}
		// The departure may have completed the all-acted set.
		switch m.phase {
		case participant.PhaseNight:
			if m.allNightActed() {
				m.resolveNight(m.phaseSeq)
				return
			}
		case participant.PhaseDay:
			if m.allVoted() {
				m.resolveDay(m.phaseSeq)
				return
			}
		}
	}
	m.pushState()
}

// --- Phase transitions ---

func (m *Match) enterNight() {
	m.phase = participant.PhaseNight
	m.round++
	m.actions = make(map[string]NightAction)
	m.phaseSeq++
	m.appendLog(fmt.Sprintf("Night %d falls.", m.round))
	m.armPhaseTimer(m.cfg.NightDuration, cmdResolveNight)
	m.pushState()
}

func (m *Match) enterDay() {
	m.phase = participant.PhaseDay
	m.votes = make(map[string]string)
	m.phaseSeq++
	m.appendLog(fmt.Sprintf("Day %d breaks. Discuss and vote.", m.round))
	m.armPhaseTimer(m.cfg.DayDuration, cmdResolveDay)
	m.pushState()
}

func (m *Match) armPhaseTimer(d time.Duration, kind commandKind) {
	if m.phaseTimer != nil {
		m.phaseTimer.Stop()
	}
	seq := m.phaseSeq
	m.phaseTimer = time.AfterFunc(d, func() {
		select {
		case m.commands <- command{kind: kind, seq: seq}:
		case <-m.done:
		}
	})
}

// resolveNight runs the fixed resolution order for the current night.
// Invoking it twice for the same phase instance (early resolution followed by
// the stale timeout, or a duplicate timer fire) is a no-op the second time.
func (m *Match) resolveNight(seq uint64) {
	if m.phase != participant.PhaseNight || seq != m.phaseSeq {
		return
	}
	if m.phaseTimer != nil {
		m.phaseTimer.Stop()
	}
	started := time.Now()

	out := resolveNightActions(m.roster, m.seatCount, m.actions, m.shotUsed)
	m.shotUsed = out.ShotUsed
	for _, line := range out.LogLines {
		m.appendLog(line)
	}
	// Liveness is written only now, after every rule evaluated.
	for _, e := range out.Eliminated {
		m.roster[e.ID].Alive = false
		m.record(events.EventTypeElimination, "", e.ID, e.Cause)
	}
	m.record(events.EventTypeNightResolved, "", "", map[string]int{"eliminated": len(out.Eliminated)})
	metrics.Get().RecordResolution(true, time.Since(started))

	if m.checkWin() {
		m.pushState()
		return
	}

	fbs, gain := resolveNightFeedback(m.roster, m.actions, m.cure)
	if gain > 0 {
		m.cure += gain
		m.record(events.EventTypeCureProgress, "", "", m.cure)
	}
	for _, fb := range fbs {
		m.sink.SendTo(fb.ActorID, marshalMessage(MsgPrivateFeedback, fb.Text))
	}

	// The cure may have just been completed by the researchers.
	if m.checkWin() {
		m.pushState()
		return
	}

	m.enterDay()
}

// resolveDay tallies the votes; same idempotence guard as resolveNight.
func (m *Match) resolveDay(seq uint64) {
	if m.phase != participant.PhaseDay || seq != m.phaseSeq {
		return
	}
	if m.phaseTimer != nil {
		m.phaseTimer.Stop()
	}
	started := time.Now()

	out := tallyVotes(m.roster, m.votes)
	for _, line := range out.LogLines {
		m.appendLog(line)
	}
	if out.EliminatedID != "" {
		m.roster[out.EliminatedID].Alive = false
		m.record(events.EventTypeElimination, "", out.EliminatedID, "vote")
	}
	m.record(events.EventTypeDayResolved, "", "", nil)
	metrics.Get().RecordResolution(false, time.Since(started))

	if m.checkWin() {
		m.pushState()
		return
	}

	m.enterNight()
}

// checkWin evaluates the win conditions and freezes the match on a hit.
func (m *Match) checkWin() bool {
	rec := EvaluateWin(m.roster, m.cure)
	if rec == nil {
		return false
	}

	m.win = rec
	m.phase = participant.PhaseEnd
	if m.phaseTimer != nil {
		m.phaseTimer.Stop()
	}
	m.appendLog(rec.Reason)
	m.record(events.EventTypeMatchEnded, "", "", rec.Winner)
	m.logger.Event("MATCH_ENDED", m.ID, rec.Winner+" win: "+rec.Reason)
	metrics.Get().RecordMatchEnd()

	if m.arch != nil {
		// Archive off the match goroutine; the result is already frozen.
		rounds, gameLog := m.round, append([]string(nil), m.gameLog...)
		win := *rec
		go func() {
			if err := m.arch.SaveResult(m.ID, win, rounds, gameLog); err != nil {
				m.logger.Error("Failed to archive match " + m.ID + ": " + err.Error())
			}
		}()
	}
	return true
}

// discard drops the match with no win record. Distinct from a normal END.
func (m *Match) discard() {
	m.logger.Warn("Match " + m.ID + " has no participants left. Discarding state.")
	if m.onEmpty != nil {
		m.onEmpty(m.ID)
	}
	m.Stop()
}

// --- Helpers ---

func (m *Match) allNightActed() bool {
	for _, p := range m.roster {
		if p.Alive && p.Role.ActsAtNight() {
			if _, ok := m.actions[p.ID]; !ok {
				return false
			}
		}
	}
	return true
}

func (m *Match) allVoted() bool {
	for _, p := range m.roster {
		if p.Alive {
			if _, ok := m.votes[p.ID]; !ok {
				return false
			}
		}
	}
	return true
}

func roleAllows(role participant.Role, kind ActionKind) bool {
	switch kind {
	case ActionAnalyze:
		return role == participant.RoleResearcher
	case ActionInvestigate:
		return role == participant.RoleJournalist
	case ActionPoliceShot:
		return role == participant.RolePolice
	case ActionInfect, ActionTerrorShot:
		return role == participant.RoleTerrorist
	}
	return false
}

func (m *Match) appendLog(line string) {
	m.gameLog = append(m.gameLog, line)
}

func (m *Match) record(t events.EventType, actorID, targetID string, payload interface{}) {
	m.eventLog.Append(events.MatchEvent{
		MatchID:  m.ID,
		Type:     t,
		ActorID:  actorID,
		TargetID: targetID,
		Payload:  payload,
		Round:    m.round,
	})
}

// pushState sends the personalized state to every participant and the
// spectator view to unbound connections.
func (m *Match) pushState() {
	for _, p := range m.roster {
		sv := m.stateFor(p)
		m.sink.SendTo(p.ID, marshalMessage(MsgGameStateUpdate, sv))
	}
	m.sink.Broadcast(marshalMessage(MsgGameStateUpdate, m.sharedState()))
}
