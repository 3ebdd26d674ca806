package syncengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldkeep/foldsync/internal/model"
	"github.com/foldkeep/foldsync/internal/provider"
)

func TestScanJoinsEveryConfiguredProvider(t *testing.T) {
	local := newFakeProvider(model.LocationLocal)
	local.put("a.txt", []byte("hello"))
	cloud := newFakeProvider(model.LocationCloud)
	cloud.put("b.txt", []byte("world"))

	current, err := Scan(context.Background(), map[model.Location]provider.Provider{
		model.LocationLocal: local,
		model.LocationCloud: cloud,
	})
	require.NoError(t, err)

	require.Contains(t, current, model.LocationLocal)
	require.Contains(t, current, model.LocationCloud)
	assert.NotContains(t, current, model.LocationShare)
	assert.Contains(t, current[model.LocationLocal], "a.txt")
	assert.Contains(t, current[model.LocationCloud], "b.txt")
}

func TestScanReturnsEmptyMapForProviderWithNoFiles(t *testing.T) {
	local := newFakeProvider(model.LocationLocal)

	current, err := Scan(context.Background(), map[model.Location]provider.Provider{model.LocationLocal: local})
	require.NoError(t, err)

	assert.Empty(t, current[model.LocationLocal])
}

func TestScanPropagatesProviderError(t *testing.T) {
	bad := newFakeProvider(model.LocationCloud)
	bad.failOp = "list"

	_, err := Scan(context.Background(), map[model.Location]provider.Provider{model.LocationCloud: bad})
	assert.Error(t, err)
}
