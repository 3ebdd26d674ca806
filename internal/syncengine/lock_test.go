package syncengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldkeep/foldsync/internal/apperr"
)

func TestAcquireLockBlocksSecondCallForSameProfile(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireLock(dir, 1)
	require.NoError(t, err)
	defer first.Release()

	_, err = AcquireLock(dir, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAlreadyInProgress)
}

func TestAcquireLockAllowsDifferentProfilesConcurrently(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireLock(dir, 1)
	require.NoError(t, err)
	defer first.Release()

	second, err := AcquireLock(dir, 2)
	require.NoError(t, err)
	defer second.Release()
}

func TestAcquireLockReusableAfterRelease(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireLock(dir, 1)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := AcquireLock(dir, 1)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}
