package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/foldkeep/foldsync/internal/apperr"
	"github.com/foldkeep/foldsync/internal/model"
)

// ResolveConflict implements sync.resolve (spec.md §6). For keep_local/
// keep_cloud/keep_share it propagates the winning location's current
// content to its configured peers, exactly like a single-path Phase 5
// upload. For keep_both it transfers nothing: it accepts each location's
// current content as the new baseline, so the divergence stops being
// reported as a pending conflict but the three copies are left exactly as
// they are — spec.md's Non-goals exclude merging file contents, and this
// is the only resolution that doesn't imply a winner.
func (e *Engine) ResolveConflict(ctx context.Context, profile model.Profile, path string, resolution model.ConflictResolution) error {
	lock, err := AcquireLock(e.DataDir, profile.ID)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := lock.Release(); relErr != nil {
			e.logger().Warn("syncengine: releasing lock failed", "error", relErr)
		}
	}()

	conflicts, err := e.Store.ListUnresolvedConflicts(ctx, profile.ID)
	if err != nil {
		return fmt.Errorf("syncengine: listing conflicts: %w", err)
	}

	var target *model.Conflict

	for i := range conflicts {
		if conflicts[i].Path == path {
			target = &conflicts[i]
			break
		}
	}

	if target == nil {
		return fmt.Errorf("%w: no unresolved conflict for %q", apperr.ErrConflictDetected, path)
	}

	var states []model.FileState

	switch resolution {
	case model.ResolutionKeepBoth:
		states, err = e.acceptCurrentState(ctx, profile, path)
	case model.ResolutionKeepLocal, model.ResolutionKeepCloud, model.ResolutionKeepShare:
		states, err = e.propagateWinner(ctx, profile, path, resolutionLocation(resolution))
	default:
		err = fmt.Errorf("%w: unknown resolution %q", apperr.ErrInvalidConfig, resolution)
	}

	if err != nil {
		return err
	}

	if len(states) > 0 {
		if upsertErr := e.Store.UpsertFileStates(ctx, states); upsertErr != nil {
			return fmt.Errorf("syncengine: committing resolution for %q: %w", path, upsertErr)
		}
	}

	return e.Store.ResolveConflict(ctx, target.ID, resolution)
}

// acceptCurrentState reads every configured location's present content at
// path and records it as the new baseline, without transferring anything.
func (e *Engine) acceptCurrentState(ctx context.Context, profile model.Profile, path string) ([]model.FileState, error) {
	now := time.Now().UTC()

	var states []model.FileState

	for _, loc := range model.AllLocations {
		if !profile.Configured(loc) {
			continue
		}

		p, ok := e.Providers[loc]
		if !ok {
			continue
		}

		meta, err := p.GetMetadata(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("syncengine: reading %s@%s: %w", path, loc, err)
		}

		if meta == nil {
			continue
		}

		states = append(states, model.FileState{
			ProfileID: profile.ID, Path: path, Location: loc, Hash: meta.Hash, Size: meta.Size,
			Modified: meta.Modified, SyncedAt: now, Status: model.StatusSynced,
		})
	}

	return states, nil
}

// propagateWinner uploads winner's current content at path to every other
// configured location, reusing the executor's staging-file transfer.
func (e *Engine) propagateWinner(ctx context.Context, profile model.Profile, path string, winner model.Location) ([]model.FileState, error) {
	if winner == "" || !profile.Configured(winner) {
		return nil, fmt.Errorf("%w: winning location is not configured for this profile", apperr.ErrInvalidConfig)
	}

	source, ok := e.Providers[winner]
	if !ok {
		return nil, fmt.Errorf("%w: no provider wired for %s", apperr.ErrInvalidConfig, winner)
	}

	winnerMeta, err := source.GetMetadata(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("syncengine: reading %s@%s: %w", path, winner, err)
	}

	if winnerMeta == nil {
		return nil, fmt.Errorf("%w: %s has no content at %q", apperr.ErrFileNotFound, winner, path)
	}

	var targets []model.Location

	for _, loc := range model.AllLocations {
		if loc != winner && profile.Configured(loc) {
			targets = append(targets, loc)
		}
	}

	op := Operation{
		Path: path, Kind: OpUpload, Source: winner, Targets: targets,
		Hash: winnerMeta.Hash, Size: winnerMeta.Size, Modified: winnerMeta.Modified,
	}

	executor := &Executor{Providers: e.Providers, Bus: e.Bus}
	outcomes := executor.Execute(ctx, &Plan{Operations: []Operation{op}, TotalPaths: 1})
	outcome := outcomes[0]

	if outcome.Err != nil {
		return nil, fmt.Errorf("syncengine: resolving %q: %w", path, outcome.Err)
	}

	now := time.Now().UTC()
	states := []model.FileState{
		{ProfileID: profile.ID, Path: path, Location: winner, Hash: winnerMeta.Hash, Size: winnerMeta.Size,
			Modified: winnerMeta.Modified, SyncedAt: now, Status: model.StatusSynced},
	}

	for _, t := range outcome.SucceededTargets {
		states = append(states, model.FileState{
			ProfileID: profile.ID, Path: path, Location: t, Hash: winnerMeta.Hash, Size: winnerMeta.Size,
			Modified: winnerMeta.Modified, SyncedAt: now, Status: model.StatusSynced,
		})
	}

	return states, nil
}

func resolutionLocation(r model.ConflictResolution) model.Location {
	switch r {
	case model.ResolutionKeepLocal:
		return model.LocationLocal
	case model.ResolutionKeepCloud:
		return model.LocationCloud
	case model.ResolutionKeepShare:
		return model.LocationShare
	default:
		return ""
	}
}
