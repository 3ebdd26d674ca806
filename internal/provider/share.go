package provider

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/foldkeep/foldsync/internal/apperr"
	"github.com/foldkeep/foldsync/internal/model"
)

// Share treats a mounted network share as a local tree. Its only extra
// logic over Local is a mount-health precheck: every operation fails with
// apperr.ErrSmbNotAccessible unless the most recent precheck (run by
// Initialize or TestConnection) passed (spec.md §4.1).
type Share struct {
	local   *Local
	mounted bool
}

// NewShare creates a Share provider rooted at the given mount path.
func NewShare(mountPath string, logger *slog.Logger) *Share {
	return &Share{local: NewLocal(mountPath, logger)}
}

func (s *Share) Name() string             { return "smb" }
func (s *Share) Location() model.Location { return model.LocationShare }

// checkMount verifies the share is reachable: the root exists, is a
// directory, resolves through a live mount (statfsAccessible), and a
// scratch file can actually be written and removed. A share that was
// unmounted mid-session will fail the write probe even though os.Stat on
// a stale mountpoint sometimes still succeeds.
func (s *Share) checkMount() bool {
	info, err := os.Stat(s.local.Root)
	if err != nil || !info.IsDir() {
		return false
	}

	if !statfsAccessible(s.local.Root) {
		return false
	}

	probe := filepath.Join(s.local.Root, ".foldsync-mount-probe")
	if err := os.WriteFile(probe, []byte("probe"), 0o600); err != nil {
		return false
	}

	_ = os.Remove(probe)

	return true
}

func (s *Share) guard() error {
	if !s.mounted {
		return apperr.NewProviderError(s.Name(), "guard", "",
			fmt.Errorf("%w: share not mounted at %s", apperr.ErrSmbNotAccessible, s.local.Root))
	}

	return nil
}

func (s *Share) ListFiles(ctx context.Context, subPath string) ([]model.FileMetadata, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	files, err := s.local.ListFiles(ctx, subPath)
	if err != nil {
		return nil, apperr.NewProviderError(s.Name(), "list_files", subPath, err)
	}

	return files, nil
}

func (s *Share) GetMetadata(ctx context.Context, relPath string) (*model.FileMetadata, error) {
	if err := s.guard(); err != nil {
		return nil, err
	}

	return s.local.GetMetadata(ctx, relPath)
}

func (s *Share) Exists(ctx context.Context, relPath string) (bool, error) {
	if err := s.guard(); err != nil {
		return false, err
	}

	return s.local.Exists(ctx, relPath)
}

func (s *Share) Download(ctx context.Context, relPath, localDest string) error {
	if err := s.guard(); err != nil {
		return err
	}

	return s.local.Download(ctx, relPath, localDest)
}

func (s *Share) Upload(ctx context.Context, localSrc, relDest string) error {
	if err := s.guard(); err != nil {
		return err
	}

	return s.local.Upload(ctx, localSrc, relDest)
}

func (s *Share) Delete(ctx context.Context, relPath string) error {
	if err := s.guard(); err != nil {
		return err
	}

	return s.local.Delete(ctx, relPath)
}

// Initialize runs the mount-health precheck. A share that is not mounted
// fails every subsequent operation with apperr.ErrSmbNotAccessible, per
// spec.md §4.1.
func (s *Share) Initialize(_ context.Context) error {
	s.mounted = s.checkMount()
	if !s.mounted {
		return apperr.NewProviderError(s.Name(), "initialize", "",
			fmt.Errorf("%w: %s", apperr.ErrSmbNotAccessible, s.local.Root))
	}

	return nil
}

// TestConnection is the non-throwing probe behind config.test_share.
func (s *Share) TestConnection(_ context.Context) bool {
	s.mounted = s.checkMount()
	return s.mounted
}
