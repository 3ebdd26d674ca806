package syncengine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/foldkeep/foldsync/internal/conflict"
	"github.com/foldkeep/foldsync/internal/model"
	"github.com/foldkeep/foldsync/internal/provider"
	"github.com/foldkeep/foldsync/internal/store"
)

// Engine ties the phases together for one profile: Scan, Baseline load,
// Classify, CheckSafety, Execute, Commit — spec.md §4.5's state machine.
type Engine struct {
	Store     *store.Store
	Providers map[model.Location]provider.Provider
	Bus       *Bus
	Logger    *slog.Logger
	DataDir   string // root for per-profile lock files; see lock.go
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}

	return slog.Default()
}

// RunOnce executes one sync cycle for profile, enforcing the single-run-
// per-profile mutual exclusion invariant (testable property 5) via
// AcquireLock. Re-entry while a run is already in progress fails fast
// with apperr.ErrAlreadyInProgress rather than queuing or blocking.
func (e *Engine) RunOnce(ctx context.Context, profile model.Profile) (*Result, error) {
	lock, err := AcquireLock(e.DataDir, profile.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := lock.Release(); relErr != nil {
			e.logger().Warn("syncengine: releasing lock failed", "error", relErr)
		}
	}()

	historyID, err := e.Store.StartHistory(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("syncengine: starting history: %w", err)
	}

	result, runErr := e.runPhases(ctx, profile)

	e.recordHistory(ctx, historyID, result, runErr)

	return result, runErr
}

func (e *Engine) recordHistory(ctx context.Context, historyID int64, result *Result, runErr error) {
	status := model.SyncStatusCompleted
	filesSynced, filesFailed := 0, 0

	if result != nil {
		filesSynced = result.FilesSynced
		filesFailed = len(result.Errors)
	}

	if runErr != nil {
		status = model.SyncStatusAborted
	} else if filesFailed > 0 {
		status = model.SyncStatusFailed
	}

	if err := e.Store.CompleteHistory(ctx, historyID, status, filesSynced, filesFailed, runErr); err != nil {
		e.logger().Error("syncengine: recording sync history failed", "error", err)
	}
}

// runPhases runs Scan through Commit. A non-nil error means the run
// aborted before or during execution; the baseline is left exactly as it
// was for any phase that did not complete (spec.md §7's propagation
// policy: phase-level failures abort the whole run and surface to the
// caller).
func (e *Engine) runPhases(ctx context.Context, profile model.Profile) (*Result, error) {
	for _, p := range e.Providers {
		if err := p.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("syncengine: initializing %s: %w", p.Name(), err)
		}
	}

	current, err := Scan(ctx, e.Providers)
	if err != nil {
		return nil, fmt.Errorf("syncengine: scan: %w", err)
	}

	states, err := e.Store.LoadBaseline(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("syncengine: loading baseline: %w", err)
	}

	baseline := baselineToLastKnown(states)

	plan := Classify(current, baseline)

	if err := CheckSafety(plan); err != nil {
		return nil, err
	}

	executor := &Executor{Providers: e.Providers, Bus: e.Bus}
	outcomes := executor.Execute(ctx, plan)

	result := &Result{}

	for _, outcome := range outcomes {
		switch outcome.Kind {
		case OpUpload, OpDelete:
			if outcome.Err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("%s: %w", outcome.Path, outcome.Err))
				continue
			}

			result.FilesSynced++
		}
	}

	conflicts, err := e.persistConflicts(ctx, profile.ID, plan)
	if err != nil {
		result.Errors = append(result.Errors, err)
	}

	result.Conflicts = conflicts

	toCommit := commitStates(profile.ID, current, plan.Operations, outcomes)
	if len(toCommit) > 0 {
		if err := e.Store.UpsertFileStates(ctx, toCommit); err != nil {
			return result, fmt.Errorf("syncengine: committing baseline: %w", err)
		}
	}

	return result, nil
}

func (e *Engine) persistConflicts(ctx context.Context, profileID int64, plan *Plan) ([]model.Conflict, error) {
	var (
		conflicts []model.Conflict
		errs      error
	)

	for _, op := range plan.Operations {
		if op.Kind != OpConflict {
			continue
		}

		c := conflict.BuildConflict(profileID, op.Path, op.Local, op.Cloud, op.Share)

		saved, err := e.Store.RecordConflict(ctx, c)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("recording conflict %s: %w", op.Path, err))
			continue
		}

		conflicts = append(conflicts, saved)
	}

	return conflicts, errs
}

// commitStates implements Phase 6: upsert a FileState for every location
// whose content is confirmed correct after this run — either because it
// was observed directly in this scan with no propagation failure, or
// because an upload/delete against it just succeeded. Rows are never
// removed: a path present in the baseline but absent from every current
// scan keeps its existing rows unchanged. A successful delete writes a
// tombstone row (empty hash, Deleted status) for its source and for each
// target it removed, so a future reappearance is recognized as new rather
// than restored.
//
// ops and outcomes are index-aligned: Execute produces exactly one
// OpOutcome per Operation, in order.
func commitStates(profileID int64, current map[model.Location]map[string]model.FileMetadata, ops []Operation, outcomes []OpOutcome) []model.FileState {
	now := time.Now().UTC()

	var out []model.FileState

	for i, outcome := range outcomes {
		op := ops[i]

		switch outcome.Kind {
		case OpNoAction:
			out = append(out, observedStatesForPath(profileID, outcome.Path, current, now)...)

		case OpConflict:
			for _, fs := range observedStatesForPath(profileID, outcome.Path, current, now) {
				fs.Status = model.StatusConflict
				out = append(out, fs)
			}

		case OpUpload:
			out = append(out, model.FileState{
				ProfileID: profileID, Path: outcome.Path, Location: outcome.Source,
				Hash: outcome.SourceHash, Size: outcome.SourceSize, Modified: outcome.SourceModified,
				SyncedAt: now, Status: model.StatusSynced,
			})

			for _, target := range outcome.SucceededTargets {
				out = append(out, model.FileState{
					ProfileID: profileID, Path: outcome.Path, Location: target,
					Hash: outcome.SourceHash, Size: outcome.SourceSize, Modified: outcome.SourceModified,
					SyncedAt: now, Status: model.StatusSynced,
				})
			}

			// Locations Classify never targeted (they already agreed with
			// Source, so sync_to_missing skipped them) still need a
			// baseline row — they were observed directly in this scan and
			// received no transfer, so record them as-is rather than
			// leaving them without a baseline entry.
			for _, fs := range observedStatesForPath(profileID, outcome.Path, current, now) {
				if fs.Location == outcome.Source || locationsContain(op.Targets, fs.Location) {
					continue
				}

				out = append(out, fs)
			}

		case OpDelete:
			out = append(out, model.FileState{
				ProfileID: profileID, Path: outcome.Path, Location: outcome.Source,
				Hash: "", SyncedAt: now, Status: model.StatusDeleted,
			})

			for _, target := range outcome.SucceededTargets {
				out = append(out, model.FileState{
					ProfileID: profileID, Path: outcome.Path, Location: target,
					Hash: "", SyncedAt: now, Status: model.StatusDeleted,
				})
			}
		}
	}

	return out
}

func locationsContain(locs []model.Location, loc model.Location) bool {
	for _, l := range locs {
		if l == loc {
			return true
		}
	}

	return false
}

// observedStatesForPath returns one FileState per location that actually
// observed path in this scan, reflecting the current observation as-is.
func observedStatesForPath(profileID int64, path string, current map[model.Location]map[string]model.FileMetadata, now time.Time) []model.FileState {
	var out []model.FileState

	for loc, byPath := range current {
		meta, ok := byPath[path]
		if !ok {
			continue
		}

		out = append(out, model.FileState{
			ProfileID: profileID, Path: path, Location: loc, Hash: meta.Hash, Size: meta.Size,
			Modified: meta.Modified, SyncedAt: now, Status: model.StatusSynced,
		})
	}

	return out
}
