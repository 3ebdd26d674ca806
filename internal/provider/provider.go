// Package provider implements the uniform async storage interface
// described in spec.md §4.1, and its three concrete backends: Local,
// Cloud, and Share. Dynamic dispatch is the one place this repository
// embraces interface polymorphism (spec.md §9): the Engine holds a small
// fixed-size set of Providers, one per configured Location.
package provider

import (
	"context"

	"github.com/foldkeep/foldsync/internal/model"
)

// Provider is the uniform interface the Sync Engine drives for one
// physical storage location. Every operation is safe to call concurrently
// on disjoint paths; no global mutable state is shared between Providers.
type Provider interface {
	// Name returns a stable identifier for logging and dispatch.
	Name() string

	// Location returns which of the three roles this Provider fills.
	Location() model.Location

	// ListFiles returns a full recursive listing under subPath (relative
	// to the provider's own root; "" lists everything). Paths in the
	// result are relative, forward-slash, and contain no ".." components.
	// Directories themselves are not included.
	ListFiles(ctx context.Context, subPath string) ([]model.FileMetadata, error)

	// GetMetadata returns metadata for one relative path, or nil if absent.
	GetMetadata(ctx context.Context, relPath string) (*model.FileMetadata, error)

	// Exists reports whether relPath is present.
	Exists(ctx context.Context, relPath string) (bool, error)

	// Download writes relPath to localDest. After writing, the Provider
	// verifies localDest against its own advertised hash, if any, and
	// returns an error satisfying errors.Is(err, apperr.ErrHashMismatch)
	// on mismatch.
	Download(ctx context.Context, relPath, localDest string) error

	// Upload copies localSrc to relDest, creating intermediate directories
	// as needed. If the destination exists it is updated in place.
	Upload(ctx context.Context, localSrc, relDest string) error

	// Delete removes relPath. Deleting a path that does not exist is an
	// error, not a no-op.
	Delete(ctx context.Context, relPath string) error

	// Initialize validates that the Provider can be used (auth present,
	// share mounted, etc.) before the engine starts a run.
	Initialize(ctx context.Context) error

	// TestConnection is a non-throwing probe, used by config.test_share
	// and similar read-only health checks.
	TestConnection(ctx context.Context) bool
}
