package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foldkeep/foldsync/internal/apperr"
	"github.com/foldkeep/foldsync/internal/model"
)

const (
	sqlInsertConflict = `INSERT INTO conflicts
		(id, profile_id, file_path, detected_at, resolved, resolution,
		 local_hash, cloud_hash, share_hash, local_modified, cloud_modified, share_modified,
		 local_size, cloud_size, share_size)
		VALUES (?, ?, ?, ?, 0, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlConflictColumns = `id, profile_id, file_path, detected_at, resolved, resolution,
		local_hash, cloud_hash, share_hash, local_modified, cloud_modified, share_modified,
		local_size, cloud_size, share_size`

	sqlListUnresolvedConflicts = `SELECT ` + sqlConflictColumns + `
		FROM conflicts WHERE profile_id = ? AND resolved = 0 ORDER BY detected_at`

	sqlGetConflict = `SELECT ` + sqlConflictColumns + ` FROM conflicts WHERE id = ?`

	sqlResolveConflict = `UPDATE conflicts SET resolved = 1, resolution = ? WHERE id = ? AND resolved = 0`
)

// RecordConflict inserts a newly detected conflict and assigns it a UUID.
func (s *Store) RecordConflict(ctx context.Context, c model.Conflict) (model.Conflict, error) {
	c.ID = uuid.NewString()
	c.DetectedAt = time.Now().UTC()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlInsertConflict,
			c.ID, c.ProfileID, c.Path, c.DetectedAt.Format(time.RFC3339),
			nullableString(c.LocalHash), nullableString(c.CloudHash), nullableString(c.ShareHash),
			nullableTimePtr(c.LocalMod), nullableTimePtr(c.CloudMod), nullableTimePtr(c.ShareMod),
			c.LocalSize, c.CloudSize, c.ShareSize)
		if err != nil {
			return fmt.Errorf("%w: record conflict for %s: %w", apperr.ErrDatabase, c.Path, err)
		}

		return nil
	})

	return c, err
}

// ListUnresolvedConflicts returns every open conflict for a profile,
// oldest first.
func (s *Store) ListUnresolvedConflicts(ctx context.Context, profileID int64) ([]model.Conflict, error) {
	var out []model.Conflict

	err := s.withConn(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, sqlListUnresolvedConflicts, profileID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c model.Conflict
			if err := scanConflict(rows, &c); err != nil {
				return err
			}

			out = append(out, c)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list conflicts for profile %d: %w", apperr.ErrDatabase, profileID, err)
	}

	return out, nil
}

// GetConflict returns (nil, nil) if no conflict with that ID exists.
func (s *Store) GetConflict(ctx context.Context, id string) (*model.Conflict, error) {
	var c model.Conflict

	err := s.withConn(func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, sqlGetConflict, id)
		return scanConflict(row, &c)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrDatabase, err)
	}

	return &c, nil
}

// ResolveConflict marks a conflict resolved with the chosen resolution.
// Returns apperr.ErrConflictDetected wrapped with "already resolved" if
// the conflict was already closed — resolving twice is a caller bug, not
// a no-op.
func (s *Store) ResolveConflict(ctx context.Context, id string, resolution model.ConflictResolution) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, sqlResolveConflict, string(resolution), id)
		if err != nil {
			return fmt.Errorf("%w: resolve conflict %s: %w", apperr.ErrDatabase, id, err)
		}

		return requireRowsAffected(res, fmt.Errorf("%w: conflict %s not found or already resolved", apperr.ErrConflictDetected, id))
	})
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func nullableTimePtr(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return t.UTC().Format(time.RFC3339)
}

func scanConflict(row rowScanner, c *model.Conflict) error {
	var (
		detectedAt    string
		resolved      int
		resolution    sql.NullString
		localHash     sql.NullString
		cloudHash     sql.NullString
		shareHash     sql.NullString
		localModified sql.NullString
		cloudModified sql.NullString
		shareModified sql.NullString
		localSize     sql.NullInt64
		cloudSize     sql.NullInt64
		shareSize     sql.NullInt64
	)

	if err := row.Scan(&c.ID, &c.ProfileID, &c.Path, &detectedAt, &resolved, &resolution,
		&localHash, &cloudHash, &shareHash,
		&localModified, &cloudModified, &shareModified,
		&localSize, &cloudSize, &shareSize); err != nil {
		return err
	}

	t, err := time.Parse(time.RFC3339, detectedAt)
	if err != nil {
		return fmt.Errorf("parsing detected_at: %w", err)
	}

	c.DetectedAt = t
	c.Resolved = resolved != 0

	if resolution.Valid {
		c.Resolution = model.ConflictResolution(resolution.String)
	}

	c.LocalHash = localHash.String
	c.CloudHash = cloudHash.String
	c.ShareHash = shareHash.String
	c.LocalSize = localSize.Int64
	c.CloudSize = cloudSize.Int64
	c.ShareSize = shareSize.Int64

	if localModified.Valid {
		parsed, err := time.Parse(time.RFC3339, localModified.String)
		if err != nil {
			return fmt.Errorf("parsing local_modified: %w", err)
		}

		c.LocalMod = parsed
	}

	if cloudModified.Valid {
		parsed, err := time.Parse(time.RFC3339, cloudModified.String)
		if err != nil {
			return fmt.Errorf("parsing cloud_modified: %w", err)
		}

		c.CloudMod = parsed
	}

	if shareModified.Valid {
		parsed, err := time.Parse(time.RFC3339, shareModified.String)
		if err != nil {
			return fmt.Errorf("parsing share_modified: %w", err)
		}

		c.ShareMod = parsed
	}

	return nil
}
