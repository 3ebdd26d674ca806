package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/foldkeep/foldsync/internal/apperr"
	"github.com/foldkeep/foldsync/internal/model"
)

const (
	sqlInsertHistory = `INSERT INTO sync_history
		(profile_id, started_at, status, files_synced, files_failed)
		VALUES (?, ?, ?, 0, 0)`

	sqlCompleteHistory = `UPDATE sync_history
		SET completed_at = ?, status = ?, files_synced = ?, files_failed = ?, error_message = ?
		WHERE id = ?`

	sqlHistoryColumns = `id, profile_id, started_at, completed_at, status,
		files_synced, files_failed, error_message`

	sqlListHistory = `SELECT ` + sqlHistoryColumns + `
		FROM sync_history WHERE profile_id = ? ORDER BY started_at DESC, id DESC LIMIT ?`
)

// StartHistory records the start of a sync run and returns its row ID, to
// be passed to CompleteHistory once the run finishes.
func (s *Store) StartHistory(ctx context.Context, profileID int64) (int64, error) {
	var id int64

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, sqlInsertHistory, profileID, time.Now().UTC().Format(time.RFC3339), model.SyncStatusRunning)
		if err != nil {
			return fmt.Errorf("%w: start history for profile %d: %w", apperr.ErrDatabase, profileID, err)
		}

		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: read history id: %w", apperr.ErrDatabase, err)
		}

		return nil
	})

	return id, err
}

// CompleteHistory closes out a sync run with its final status and counts.
// syncErr, if non-nil, is recorded as the run's error message.
func (s *Store) CompleteHistory(ctx context.Context, historyID int64, status string, filesSynced, filesFailed int, syncErr error) error {
	var errMsg any
	if syncErr != nil {
		errMsg = syncErr.Error()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlCompleteHistory,
			time.Now().UTC().Format(time.RFC3339), status, filesSynced, filesFailed, errMsg, historyID)
		if err != nil {
			return fmt.Errorf("%w: complete history %d: %w", apperr.ErrDatabase, historyID, err)
		}

		return nil
	})
}

// ListHistory returns the most recent sync runs for a profile, newest first.
func (s *Store) ListHistory(ctx context.Context, profileID int64, limit int) ([]model.SyncHistory, error) {
	var out []model.SyncHistory

	err := s.withConn(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, sqlListHistory, profileID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				h           model.SyncHistory
				startedAt   string
				completedAt sql.NullString
				status      string
				errMsg      sql.NullString
			)

			if err := rows.Scan(&h.ID, &h.ProfileID, &startedAt, &completedAt, &status, &h.FilesSynced, &h.FilesFailed, &errMsg); err != nil {
				return err
			}

			started, err := time.Parse(time.RFC3339, startedAt)
			if err != nil {
				return fmt.Errorf("parsing started_at: %w", err)
			}

			h.StartedAt = started
			h.Status = status
			h.ErrorMessage = errMsg.String

			if completedAt.Valid {
				completed, err := time.Parse(time.RFC3339, completedAt.String)
				if err != nil {
					return fmt.Errorf("parsing completed_at: %w", err)
				}

				h.CompletedAt = &completed
			}

			out = append(out, h)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list history for profile %d: %w", apperr.ErrDatabase, profileID, err)
	}

	return out, nil
}
