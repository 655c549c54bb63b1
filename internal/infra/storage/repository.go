// Package storage persists match history behind small repository interfaces
// so the engine never touches database/sql directly.
package storage

import (
	"context"
	"time"
)

// EventRecord is the persisted form of a match event.
type EventRecord struct {
	ID        string
	MatchID   string
	Timestamp time.Time
	Type      string
	ActorID   string
	TargetID  string
	Payload   string // JSON-encoded
	Round     int
}

// MatchRecord is the archived summary of a finished match.
type MatchRecord struct {
	ID         string
	Winner     string
	Reason     string
	Rounds     int
	GameLog    string // JSON-encoded []string
	FinishedAt time.Time
}

// MysteryRecord is a stored mystery word with its clue sets.
type MysteryRecord struct {
	ID        string
	Word      string
	GoodClues string // JSON-encoded []string
	BadClues  string // JSON-encoded []string
	CreatedAt time.Time
}

// EventRepository provides write-through storage for the event log.
type EventRepository interface {
	Save(ctx context.Context, rec EventRecord) error
	GetByMatchID(ctx context.Context, matchID string) ([]EventRecord, error)
	GetByRound(ctx context.Context, matchID string, round int) ([]EventRecord, error)
}

// MatchRepository archives finished matches.
type MatchRepository interface {
	Save(ctx context.Context, rec MatchRecord) error
	GetByID(ctx context.Context, id string) (*MatchRecord, error)
	GetRecent(ctx context.Context, limit int) ([]MatchRecord, error)
}

// MysteryRepository stores user-submitted mystery content.
type MysteryRepository interface {
	Save(ctx context.Context, rec MysteryRecord) error
	GetAll(ctx context.Context) ([]MysteryRecord, error)
}
