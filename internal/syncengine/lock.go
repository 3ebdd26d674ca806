package syncengine

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/foldkeep/foldsync/internal/apperr"
)

// lockDirPermissions and lockFilePermissions match the standard directory
// and file permissions used elsewhere in this repository.
const (
	lockDirPermissions  = 0o755
	lockFilePermissions = 0o644
)

// Lock is a per-profile flock enforcing spec.md §4.5's "exactly one
// Engine run allowed per profile at a time" invariant (testable property
// 5). Unlike the teacher's single daemon-wide pidfile, one Lock exists
// per profile ID so independent profiles never contend with each other.
type Lock struct {
	path string
	file *os.File
}

// AcquireLock takes a non-blocking exclusive flock on
// <dataDir>/locks/<profileID>.lock. A second concurrent call for the same
// profile fails immediately with apperr.ErrAlreadyInProgress rather than
// waiting.
func AcquireLock(dataDir string, profileID int64) (*Lock, error) {
	dir := filepath.Join(dataDir, "locks")
	if err := os.MkdirAll(dir, lockDirPermissions); err != nil {
		return nil, fmt.Errorf("syncengine: creating lock directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%d.lock", profileID))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("syncengine: opening lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		return nil, fmt.Errorf("%w: profile %d (lock held at %s)", apperr.ErrAlreadyInProgress, profileID, path)
	}

	return &Lock{path: path, file: f}, nil
}

// Release drops the flock and closes the underlying file descriptor. The
// lock file itself is left on disk so the next AcquireLock can reuse it.
// Safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.file.Close()

		return fmt.Errorf("syncengine: releasing lock %s: %w", l.path, err)
	}

	return l.file.Close()
}
