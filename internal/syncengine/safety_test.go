package syncengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldkeep/foldsync/internal/apperr"
	"github.com/foldkeep/foldsync/internal/model"
)

func deletePlan(totalPaths, deletes int) *Plan {
	plan := &Plan{TotalPaths: totalPaths}

	for i := 0; i < deletes; i++ {
		plan.Operations = append(plan.Operations, Operation{
			Path: "d", Kind: OpDelete, Targets: []model.Location{model.LocationCloud},
		})
	}

	return plan
}

func TestCheckSafetyAllowsUnderBothThresholds(t *testing.T) {
	plan := deletePlan(1000, 10)
	assert.NoError(t, CheckSafety(plan))
}

func TestCheckSafetyBlocksAbsoluteThreshold(t *testing.T) {
	plan := deletePlan(1000, 51)

	err := CheckSafety(plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrSyncFailed)
}

func TestCheckSafetyBlocksRelativeThreshold(t *testing.T) {
	// 13 deletions out of 40 total paths: under the absolute limit of 50,
	// but 32.5% is past the 30% relative limit, so only the percentage trips.
	plan := deletePlan(40, 13)

	err := CheckSafety(plan)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrSyncFailed)
}

func TestCheckSafetyScenario3SixtyOfSixty(t *testing.T) {
	plan := deletePlan(60, 60)

	err := CheckSafety(plan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "60")
}

func TestCheckSafetyNoDeletionsNeverBlocks(t *testing.T) {
	plan := deletePlan(1000, 0)
	assert.NoError(t, CheckSafety(plan))
}
