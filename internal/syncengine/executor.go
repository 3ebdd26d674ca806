package syncengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/foldkeep/foldsync/internal/hasher"
	"github.com/foldkeep/foldsync/internal/model"
	"github.com/foldkeep/foldsync/internal/provider"
)

// Executor runs a Plan's operations serially against the configured
// Providers. spec.md §5 explicitly keeps Phase 5 transfers serial, one
// operation at a time, to bound memory and keep per-file progress simple;
// this repository follows that choice rather than a bounded worker pool.
type Executor struct {
	Providers map[model.Location]provider.Provider
	Bus       *Bus
}

// Execute iterates plan.Operations in order. OpNoAction and OpConflict
// entries need no transfer — conflicts are persisted separately by the
// engine, from the Operation's Local/Cloud/Share triple. Failure of one
// operation (or one target within it) is recorded, not fatal: the run
// continues to the next operation, per spec.md §7's propagation policy.
func (e *Executor) Execute(ctx context.Context, plan *Plan) []OpOutcome {
	outcomes := make([]OpOutcome, 0, len(plan.Operations))
	total := plan.TotalPaths

	for i, op := range plan.Operations {
		processed := i + 1
		e.publish(processed, total, op.Path, "processing")

		switch op.Kind {
		case OpNoAction, OpConflict:
			outcomes = append(outcomes, OpOutcome{Path: op.Path, Kind: op.Kind, Source: op.Source})
		case OpUpload:
			outcomes = append(outcomes, e.runUpload(ctx, processed, total, op))
		case OpDelete:
			outcomes = append(outcomes, e.runDelete(ctx, processed, total, op))
		}
	}

	return outcomes
}

func (e *Executor) runUpload(ctx context.Context, processed, total int, op Operation) OpOutcome {
	e.publish(processed, total, op.Path, "syncing")

	outcome := OpOutcome{
		Path: op.Path, Kind: OpUpload, Source: op.Source,
		SourceHash: op.Hash, SourceSize: op.Size, SourceModified: op.Modified,
	}

	source, ok := e.Providers[op.Source]
	if !ok {
		outcome.Err = fmt.Errorf("syncengine: no provider configured for source %s", op.Source)
		return outcome
	}

	staging, err := stagingPath(op.Path)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	defer os.Remove(staging) // best-effort; a leaked staging file is tolerable

	if err := source.Download(ctx, op.Path, staging); err != nil {
		outcome.Err = fmt.Errorf("staging download from %s: %w", op.Source, err)
		return outcome
	}

	if _, err := hasher.SHA256File(staging); err != nil {
		outcome.Err = fmt.Errorf("hashing staged file: %w", err)
		return outcome
	}

	var errs error

	for _, target := range op.Targets {
		dest, ok := e.Providers[target]
		if !ok {
			continue
		}

		if err := dest.Upload(ctx, staging, op.Path); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("uploading to %s: %w", target, err))
			continue
		}

		outcome.SucceededTargets = append(outcome.SucceededTargets, target)
	}

	outcome.Err = errs

	return outcome
}

func (e *Executor) runDelete(ctx context.Context, processed, total int, op Operation) OpOutcome {
	e.publish(processed, total, op.Path, "syncing")

	outcome := OpOutcome{Path: op.Path, Kind: OpDelete, Source: op.Source}

	var errs error

	for _, target := range op.Targets {
		dest, ok := e.Providers[target]
		if !ok {
			continue
		}

		if err := dest.Delete(ctx, op.Path); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("deleting from %s: %w", target, err))
			continue
		}

		outcome.SucceededTargets = append(outcome.SucceededTargets, target)
	}

	outcome.Err = errs

	return outcome
}

func (e *Executor) publish(processed, total int, path, operation string) {
	if e.Bus == nil {
		return
	}

	e.Bus.Publish(ProgressEvent{Processed: processed, Total: total, Filename: path, Operation: operation})
}

// stagingPath builds a temp staging file path named with the source
// filename and a timestamp, per spec.md §4.5 Phase 5.
func stagingPath(relPath string) (string, error) {
	name := filepath.Base(relPath)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("syncengine: cannot stage empty path %q", relPath)
	}

	return filepath.Join(os.TempDir(), fmt.Sprintf("foldsync-%d-%s", time.Now().UnixNano(), name)), nil
}
