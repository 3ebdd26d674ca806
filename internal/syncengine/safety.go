package syncengine

import (
	"fmt"

	"github.com/foldkeep/foldsync/internal/apperr"
	"github.com/foldkeep/foldsync/internal/model"
)

// maxAbsoluteDeletions and maxRelativeDeletions are spec.md §4.5 Phase 4's
// two safety thresholds. A remote that unmounts, or an emptied cloud
// folder, must never be mistaken for a user-initiated mass delete.
const (
	maxAbsoluteDeletions = 50
	maxRelativeDeletions = 0.30
)

// CheckSafety implements Phase 4: refuse to proceed if the plan's
// deletions exceed either threshold. Returns nil if the plan is safe to
// execute.
func CheckSafety(plan *Plan) error {
	total := plan.DeleteCount()
	if total == 0 {
		return nil
	}

	perLocation := make(map[model.Location]int)

	for _, op := range plan.Operations {
		if op.Kind != OpDelete {
			continue
		}

		for _, loc := range op.Targets {
			perLocation[loc]++
		}
	}

	exceedsAbsolute := total > maxAbsoluteDeletions
	exceedsRelative := plan.TotalPaths > 0 && float64(total)/float64(plan.TotalPaths) > maxRelativeDeletions

	if !exceedsAbsolute && !exceedsRelative {
		return nil
	}

	return apperr.NewSyncFailed(fmt.Sprintf(
		"%d deletions (%v) exceed safety thresholds: limit is %d absolute or %.0f%% of %d total paths",
		total, perLocation, maxAbsoluteDeletions, maxRelativeDeletions*100, plan.TotalPaths,
	))
}
