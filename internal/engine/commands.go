package engine

import "errors"

// ActionKind identifies a night action. The set is closed; resolution order
// depends on it being exhaustive.
type ActionKind string

const (
	ActionAnalyze     ActionKind = "ANALYZE"
	ActionInvestigate ActionKind = "INVESTIGATE"
	ActionPoliceShot  ActionKind = "SHOOT_POLICE"
	ActionTerrorShot  ActionKind = "SHOOT_TERROR" // one per match for the terrorist pair
	ActionInfect      ActionKind = "INFECT"
)

// NightAction is one participant's submission for the current night.
// Re-submission by the same actor overwrites the previous one.
type NightAction struct {
	ActorID  string
	Kind     ActionKind
	TargetID string
}

// Recoverable rejections surfaced to the originating participant only.
// None of these terminate a match.
var (
	ErrMatchInProgress  = errors.New("engine: match already in progress")
	ErrWrongPhase       = errors.New("engine: operation not valid in the current phase")
	ErrNotEnoughPlayers = errors.New("engine: not enough participants to start")
	ErrUnknownActor     = errors.New("engine: unknown participant")
	ErrDeadActor        = errors.New("engine: participant is not alive")
	ErrInvalidTarget    = errors.New("engine: invalid target")
	ErrNotYourRole      = errors.New("engine: role does not allow this action")
	ErrMatchClosed      = errors.New("engine: match is no longer running")
)

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdStart
	cmdNightAction
	cmdVote
	cmdLeave
	cmdChat
	cmdSync
	cmdResolveNight
	cmdResolveDay
)

// command is one entry in the serialized queue feeding the match loop.
// Timer callbacks enqueue resolve commands stamped with the phase sequence
// number they were armed for; stale ones are dropped by the handler.
type command struct {
	kind     commandKind
	name     string
	actorID  string
	action   ActionKind
	targetID string
	message  string
	seq      uint64
	reply    chan reply
}

type reply struct {
	participantID string
	err           error
}
