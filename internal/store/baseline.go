package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/foldkeep/foldsync/internal/apperr"
	"github.com/foldkeep/foldsync/internal/model"
)

const (
	sqlUpsertFileState = `INSERT INTO file_states
		(profile_id, file_path, location, content_hash, size_bytes, modified_at, synced_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile_id, file_path, location) DO UPDATE SET
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			modified_at = excluded.modified_at,
			synced_at = excluded.synced_at,
			status = excluded.status`

	sqlSelectFileStateColumns = `profile_id, file_path, location, content_hash,
		size_bytes, modified_at, synced_at, status`

	sqlLoadBaseline = `SELECT ` + sqlSelectFileStateColumns + `
		FROM file_states WHERE profile_id = ?`

	sqlGetFileState = `SELECT ` + sqlSelectFileStateColumns + `
		FROM file_states WHERE profile_id = ? AND file_path = ? AND location = ?`

	sqlListRecentFiles = `SELECT ` + sqlSelectFileStateColumns + `
		FROM file_states WHERE profile_id = ? AND location = ?
		ORDER BY modified_at DESC LIMIT ?`
)

// LoadBaseline returns every FileState row recorded for profileID — the
// last known synced state of every file across every location. The
// engine diffs current scans against this set to decide what changed.
func (s *Store) LoadBaseline(ctx context.Context, profileID int64) ([]model.FileState, error) {
	var out []model.FileState

	err := s.withConn(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, sqlLoadBaseline, profileID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var fs model.FileState
			if err := scanFileState(rows, &fs); err != nil {
				return err
			}

			out = append(out, fs)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: load baseline for profile %d: %w", apperr.ErrDatabase, profileID, err)
	}

	return out, nil
}

// GetFileState returns (nil, nil) if no baseline row exists for the given
// path and location.
func (s *Store) GetFileState(ctx context.Context, profileID int64, path string, loc model.Location) (*model.FileState, error) {
	var fs model.FileState

	err := s.withConn(func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, sqlGetFileState, profileID, path, loc.String())
		return scanFileState(row, &fs)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrDatabase, err)
	}

	return &fs, nil
}

// ListRecentFiles returns up to limit FileState rows for loc, most recently
// modified first — the data behind sync.files (spec.md §6 names Local and
// the 50-row limit; limit is a parameter here so tests aren't pinned to it).
func (s *Store) ListRecentFiles(ctx context.Context, profileID int64, loc model.Location, limit int) ([]model.FileInfo, error) {
	var out []model.FileInfo

	err := s.withConn(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, sqlListRecentFiles, profileID, loc.String(), limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var fs model.FileState
			if err := scanFileState(rows, &fs); err != nil {
				return err
			}

			out = append(out, model.FileInfo{Path: fs.Path, Size: fs.Size, Modified: fs.Modified, Status: fs.Status})
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list recent files for profile %d: %w", apperr.ErrDatabase, profileID, err)
	}

	return out, nil
}

// UpsertFileState commits the outcome of a sync operation to the
// baseline. Per spec, the commit phase never deletes rows even when a
// file state moves to Deleted — the row becomes a tombstone that still
// participates in the next cycle's three-way classification.
func (s *Store) UpsertFileState(ctx context.Context, fs model.FileState) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlUpsertFileState,
			fs.ProfileID, fs.Path, fs.Location.String(), fs.Hash, fs.Size,
			formatNullableTime(fs.Modified), formatNullableTime(fs.SyncedAt), string(fs.Status))
		if err != nil {
			return fmt.Errorf("%w: upsert file state %s@%s: %w", apperr.ErrDatabase, fs.Path, fs.Location, err)
		}

		return nil
	})
}

// UpsertFileStates commits a batch of outcomes in a single transaction.
func (s *Store) UpsertFileStates(ctx context.Context, states []model.FileState) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, fs := range states {
			_, err := tx.ExecContext(ctx, sqlUpsertFileState,
				fs.ProfileID, fs.Path, fs.Location.String(), fs.Hash, fs.Size,
				formatNullableTime(fs.Modified), formatNullableTime(fs.SyncedAt), string(fs.Status))
			if err != nil {
				return fmt.Errorf("%w: upsert file state %s@%s: %w", apperr.ErrDatabase, fs.Path, fs.Location, err)
			}
		}

		return nil
	})
}

func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return t.UTC().Format(time.RFC3339)
}

func scanFileState(row rowScanner, fs *model.FileState) error {
	var (
		location   string
		status     string
		modifiedAt sql.NullString
		syncedAt   sql.NullString
	)

	if err := row.Scan(&fs.ProfileID, &fs.Path, &location, &fs.Hash, &fs.Size, &modifiedAt, &syncedAt, &status); err != nil {
		return err
	}

	fs.Location = model.Location(location)
	fs.Status = model.FileStatus(status)

	if modifiedAt.Valid {
		t, err := time.Parse(time.RFC3339, modifiedAt.String)
		if err != nil {
			return fmt.Errorf("parsing modified_at: %w", err)
		}

		fs.Modified = t
	}

	if syncedAt.Valid {
		t, err := time.Parse(time.RFC3339, syncedAt.String)
		if err != nil {
			return fmt.Errorf("parsing synced_at: %w", err)
		}

		fs.SyncedAt = t
	}

	return nil
}
