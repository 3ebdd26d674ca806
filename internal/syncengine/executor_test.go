package syncengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldkeep/foldsync/internal/model"
	"github.com/foldkeep/foldsync/internal/provider"
)

func TestExecuteUploadPropagatesToTarget(t *testing.T) {
	local := newFakeProvider(model.LocationLocal)
	local.put("a.txt", []byte("hello"))
	cloud := newFakeProvider(model.LocationCloud)

	plan := &Plan{
		TotalPaths: 1,
		Operations: []Operation{
			{Path: "a.txt", Kind: OpUpload, Source: model.LocationLocal, Targets: []model.Location{model.LocationCloud}},
		},
	}

	e := &Executor{Providers: map[model.Location]provider.Provider{
		model.LocationLocal: local,
		model.LocationCloud: cloud,
	}}

	outcomes := e.Execute(context.Background(), plan)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, []model.Location{model.LocationCloud}, outcomes[0].SucceededTargets)

	got, err := cloud.GetMetadata(context.Background(), "a.txt")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestExecuteDeleteRemovesFromTarget(t *testing.T) {
	local := newFakeProvider(model.LocationLocal)
	cloud := newFakeProvider(model.LocationCloud)
	cloud.put("a.txt", []byte("hello"))

	plan := &Plan{
		TotalPaths: 1,
		Operations: []Operation{
			{Path: "a.txt", Kind: OpDelete, Source: model.LocationLocal, Targets: []model.Location{model.LocationCloud}},
		},
	}

	e := &Executor{Providers: map[model.Location]provider.Provider{
		model.LocationLocal: local,
		model.LocationCloud: cloud,
	}}

	outcomes := e.Execute(context.Background(), plan)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)

	ok, err := cloud.Exists(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExecuteRecordsPerTargetFailureWithoutAbortingOthers(t *testing.T) {
	local := newFakeProvider(model.LocationLocal)
	local.put("a.txt", []byte("hello"))
	cloud := newFakeProvider(model.LocationCloud)
	cloud.failOp = "upload"
	share := newFakeProvider(model.LocationShare)

	plan := &Plan{
		TotalPaths: 1,
		Operations: []Operation{
			{Path: "a.txt", Kind: OpUpload, Source: model.LocationLocal, Targets: []model.Location{model.LocationCloud, model.LocationShare}},
		},
	}

	e := &Executor{Providers: map[model.Location]provider.Provider{
		model.LocationLocal: local,
		model.LocationCloud: cloud,
		model.LocationShare: share,
	}}

	outcomes := e.Execute(context.Background(), plan)
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err)
	assert.Equal(t, []model.Location{model.LocationShare}, outcomes[0].SucceededTargets)
}

func TestExecuteSkipsNoActionAndConflict(t *testing.T) {
	plan := &Plan{
		TotalPaths: 2,
		Operations: []Operation{
			{Path: "a.txt", Kind: OpNoAction},
			{Path: "b.txt", Kind: OpConflict},
		},
	}

	e := &Executor{Providers: map[model.Location]provider.Provider{}}

	outcomes := e.Execute(context.Background(), plan)
	require.Len(t, outcomes, 2)
	assert.NoError(t, outcomes[0].Err)
	assert.NoError(t, outcomes[1].Err)
}
