package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Save(ctx context.Context, rec EventRecord) error {
	query := `
		INSERT INTO events (id, match_id, timestamp, event_type, actor_id, target_id, payload, round)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.MatchID, rec.Timestamp, rec.Type, rec.ActorID,
		rec.TargetID, rec.Payload, rec.Round,
	)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]EventRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var e EventRecord
		err := rows.Scan(
			&e.ID, &e.MatchID, &e.Timestamp, &e.Type, &e.ActorID,
			&e.TargetID, &e.Payload, &e.Round,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetByMatchID(ctx context.Context, matchID string) ([]EventRecord, error) {
	query := `SELECT id, match_id, timestamp, event_type, actor_id, target_id, payload, round FROM events WHERE match_id = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, matchID)
}

func (r *SQLiteEventRepository) GetByRound(ctx context.Context, matchID string, round int) ([]EventRecord, error) {
	query := `SELECT id, match_id, timestamp, event_type, actor_id, target_id, payload, round FROM events WHERE match_id = ? AND round = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, matchID, round)
}

// ---------------------------------------------------------
// SQLiteMatchRepository
// ---------------------------------------------------------

// SQLiteMatchRepository implements MatchRepository for SQLite.
type SQLiteMatchRepository struct {
	db *sql.DB
}

func NewSQLiteMatchRepository(db *sql.DB) *SQLiteMatchRepository {
	return &SQLiteMatchRepository{db: db}
}

func (r *SQLiteMatchRepository) Save(ctx context.Context, rec MatchRecord) error {
	query := `
		INSERT INTO matches (id, winner, reason, rounds, game_log, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			winner=excluded.winner,
			reason=excluded.reason,
			rounds=excluded.rounds,
			game_log=excluded.game_log,
			finished_at=excluded.finished_at
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Winner, rec.Reason, rec.Rounds, rec.GameLog, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to archive match: %w", err)
	}
	return nil
}

func (r *SQLiteMatchRepository) GetByID(ctx context.Context, id string) (*MatchRecord, error) {
	query := `SELECT id, winner, reason, rounds, game_log, finished_at FROM matches WHERE id = ?`
	var m MatchRecord
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID, &m.Winner, &m.Reason, &m.Rounds, &m.GameLog, &m.FinishedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *SQLiteMatchRepository) GetRecent(ctx context.Context, limit int) ([]MatchRecord, error) {
	query := `SELECT id, winner, reason, rounds, game_log, finished_at FROM matches ORDER BY finished_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []MatchRecord
	for rows.Next() {
		var m MatchRecord
		if err := rows.Scan(&m.ID, &m.Winner, &m.Reason, &m.Rounds, &m.GameLog, &m.FinishedAt); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ---------------------------------------------------------
// SQLiteMysteryRepository
// ---------------------------------------------------------

// SQLiteMysteryRepository implements MysteryRepository for SQLite.
type SQLiteMysteryRepository struct {
	db *sql.DB
}

func NewSQLiteMysteryRepository(db *sql.DB) *SQLiteMysteryRepository {
	return &SQLiteMysteryRepository{db: db}
}

func (r *SQLiteMysteryRepository) Save(ctx context.Context, rec MysteryRecord) error {
	query := `
		INSERT INTO mysteries (id, word, good_clues, bad_clues, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Word, rec.GoodClues, rec.BadClues, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save mystery: %w", err)
	}
	return nil
}

func (r *SQLiteMysteryRepository) GetAll(ctx context.Context) ([]MysteryRecord, error) {
	query := `SELECT id, word, good_clues, bad_clues, created_at FROM mysteries ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mysteries []MysteryRecord
	for rows.Next() {
		var m MysteryRecord
		if err := rows.Scan(&m.ID, &m.Word, &m.GoodClues, &m.BadClues, &m.CreatedAt); err != nil {
			return nil, err
		}
		mysteries = append(mysteries, m)
	}
	return mysteries, rows.Err()
}
