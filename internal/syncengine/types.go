// Package syncengine implements spec.md §4.5: the six-phase algorithm that
// scans every configured Provider, classifies each path against the
// persisted baseline, enforces the deletion-safety interlock, executes the
// resulting transfers, and commits the new observations back to the
// baseline store.
package syncengine

import (
	"time"

	"github.com/foldkeep/foldsync/internal/model"
)

// OperationKind is what the executor must do for one path.
type OperationKind string

const (
	// OpNoAction means the path is unchanged since the baseline on every
	// configured location. Still reported for progress accounting.
	OpNoAction OperationKind = "no_action"

	// OpUpload propagates Source's current content to every Target.
	// Covers both "update peer with new content" and "create on a peer
	// that never had this path" — Provider.Upload handles both.
	OpUpload OperationKind = "upload"

	// OpDelete removes the path from every Target because Source lost it.
	OpDelete OperationKind = "delete"

	// OpConflict marks a divergence the executor must skip; the engine
	// persists it as a model.Conflict instead of transferring anything.
	OpConflict OperationKind = "conflict"
)

// Operation is one planned unit of work for one path, the output of
// Classify (Phase 3) and the input to CheckSafety (Phase 4) and Execute
// (Phase 5).
type Operation struct {
	Path    string
	Kind    OperationKind
	Source  model.Location   // authoritative content location (OpUpload/OpDelete only)
	Targets []model.Location // locations to act on (OpUpload/OpDelete only)

	Hash     string // Source's current hash; after an upload, the baseline hash for Source and each succeeded target
	Size     int64
	Modified time.Time

	// Local, Cloud, Share hold each location's current observation,
	// populated only for OpConflict — the triple conflict.BuildConflict
	// needs to persist the divergence.
	Local, Cloud, Share model.FileMetadata
}

// Plan is the full set of operations for one sync run.
type Plan struct {
	Operations []Operation
	TotalPaths int
}

// DeleteCount returns the total number of per-location deletions the plan
// would perform — one per (path, target) pair across every OpDelete.
func (p *Plan) DeleteCount() int {
	n := 0

	for _, op := range p.Operations {
		if op.Kind == OpDelete {
			n += len(op.Targets)
		}
	}

	return n
}

// OpOutcome records what actually happened when the executor ran one
// Operation.
type OpOutcome struct {
	Path   string
	Kind   OperationKind
	Source model.Location

	SourceHash     string
	SourceSize     int64
	SourceModified time.Time

	// SucceededTargets lists the targets that were successfully uploaded
	// to or deleted from; a target present in Operation.Targets but
	// absent here failed and its baseline row is left untouched so the
	// next run retries it.
	SucceededTargets []model.Location

	Err error
}

// ProgressEvent is published on the Bus during Execute, matching spec.md
// §4.5's progress contract: "processing" once per path before
// classification-derived work, "syncing" once per path at the start of a
// transfer.
type ProgressEvent struct {
	Processed int
	Total     int
	Filename  string
	Operation string
}

// Result summarizes one RunOnce call.
type Result struct {
	FilesSynced int
	Conflicts   []model.Conflict
	Errors      []error
}
