package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ErrNoSessions is returned when the sessions table holds no rows yet.
// Callers use it to distinguish an empty table from a failed read.
var ErrNoSessions = errors.New("no session records stored")

// SessionRecord is one day of session counts from the analytics API.
// Records are append-only and never updated or deleted.
type SessionRecord struct {
	Sessions   int64 // Session count for the day
	StartEpoch int64 // Inclusive day start, UTC seconds
	EndEpoch   int64 // Inclusive day end, UTC seconds (next day start minus one)
}

// InsertSessionRecord appends one daily session record
func (db *DB) InsertSessionRecord(ctx context.Context, rec *SessionRecord) error {
	query := `
		INSERT INTO sessions_from_analytics (sessions, start_epoch, end_epoch)
		VALUES ($1, $2, $3)
	`

	result, err := db.client.ExecContext(ctx, query, rec.Sessions, rec.StartEpoch, rec.EndEpoch)
	if err != nil {
		log.Error().Err(err).Int64("start_epoch", rec.StartEpoch).Msg("Failed to insert session record")
		return fmt.Errorf("failed to insert session record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("session record insert affected no rows for start_epoch %d", rec.StartEpoch)
	}

	return nil
}

// LastSessionEndEpoch returns the most recent end_epoch in the sessions
// table, or ErrNoSessions when the table is empty.
func (db *DB) LastSessionEndEpoch(ctx context.Context) (int64, error) {
	query := `
		SELECT end_epoch
		FROM sessions_from_analytics
		ORDER BY end_epoch DESC
		LIMIT 1
	`

	var endEpoch int64
	err := db.client.QueryRowContext(ctx, query).Scan(&endEpoch)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNoSessions
		}
		log.Error().Err(err).Msg("Failed to read last stored end_epoch")
		return 0, fmt.Errorf("failed to read last stored end_epoch: %w", err)
	}

	return endEpoch, nil
}
