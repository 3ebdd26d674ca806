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
	sqlInsertProfile = `INSERT INTO sync_profiles
		(name, local_root, cloud_folder_id, share_path, created_at)
		VALUES (?, ?, ?, ?, ?)`

	sqlSelectProfileColumns = `id, name, local_root, cloud_folder_id, share_path, created_at, last_sync_at`

	sqlGetProfileByName = `SELECT ` + sqlSelectProfileColumns + ` FROM sync_profiles WHERE name = ?`
	sqlGetProfileByID   = `SELECT ` + sqlSelectProfileColumns + ` FROM sync_profiles WHERE id = ?`
	sqlListProfiles     = `SELECT ` + sqlSelectProfileColumns + ` FROM sync_profiles ORDER BY name`

	sqlUpdateProfile = `UPDATE sync_profiles
		SET local_root = ?, cloud_folder_id = ?, share_path = ?
		WHERE id = ?`

	sqlTouchLastSync = `UPDATE sync_profiles SET last_sync_at = ? WHERE id = ?`
)

// CreateProfile inserts a new sync profile and returns it with its
// assigned ID.
func (s *Store) CreateProfile(ctx context.Context, p model.Profile) (model.Profile, error) {
	var out model.Profile

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()

		res, err := tx.ExecContext(ctx, sqlInsertProfile, p.Name, p.LocalRoot, p.CloudFolderID, p.SharePath, now.Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("%w: insert profile %s: %w", apperr.ErrDatabase, p.Name, err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: read inserted profile id: %w", apperr.ErrDatabase, err)
		}

		out = p
		out.ID = id
		out.CreatedAt = now

		return nil
	})

	return out, err
}

// GetProfileByName returns (nil, nil) if no profile with that name exists.
func (s *Store) GetProfileByName(ctx context.Context, name string) (*model.Profile, error) {
	return s.scanOneProfile(ctx, sqlGetProfileByName, name)
}

// GetProfile returns (nil, nil) if no profile with that ID exists.
func (s *Store) GetProfile(ctx context.Context, id int64) (*model.Profile, error) {
	return s.scanOneProfile(ctx, sqlGetProfileByID, id)
}

func (s *Store) scanOneProfile(ctx context.Context, query string, arg any) (*model.Profile, error) {
	var p model.Profile

	err := s.withConn(func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, query, arg)
		return scanProfile(row, &p)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // sentinel for "no such profile"
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrDatabase, err)
	}

	return &p, nil
}

// ListProfiles returns every configured profile, ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	var out []model.Profile

	err := s.withConn(func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, sqlListProfiles)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p model.Profile
			if err := scanProfile(rows, &p); err != nil {
				return err
			}

			out = append(out, p)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list profiles: %w", apperr.ErrDatabase, err)
	}

	return out, nil
}

// UpdateProfile overwrites the location configuration for an existing profile.
func (s *Store) UpdateProfile(ctx context.Context, p model.Profile) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, sqlUpdateProfile, p.LocalRoot, p.CloudFolderID, p.SharePath, p.ID)
		if err != nil {
			return fmt.Errorf("%w: update profile %d: %w", apperr.ErrDatabase, p.ID, err)
		}

		return requireRowsAffected(res, apperr.ErrInvalidConfig)
	})
}

// TouchLastSync records that profileID completed a sync cycle at `when`.
func (s *Store) TouchLastSync(ctx context.Context, profileID int64, when time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlTouchLastSync, when.UTC().Format(time.RFC3339), profileID)
		if err != nil {
			return fmt.Errorf("%w: touch last_sync_at for profile %d: %w", apperr.ErrDatabase, profileID, err)
		}

		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner, p *model.Profile) error {
	var (
		createdAt  string
		lastSyncAt sql.NullString
	)

	if err := row.Scan(&p.ID, &p.Name, &p.LocalRoot, &p.CloudFolderID, &p.SharePath, &createdAt, &lastSyncAt); err != nil {
		return err
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return fmt.Errorf("parsing created_at: %w", err)
	}

	p.CreatedAt = t

	if lastSyncAt.Valid {
		parsed, err := time.Parse(time.RFC3339, lastSyncAt.String)
		if err != nil {
			return fmt.Errorf("parsing last_sync_at: %w", err)
		}

		p.LastSyncAt = &parsed
	}

	return nil
}

func requireRowsAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return notFound
	}

	return nil
}
