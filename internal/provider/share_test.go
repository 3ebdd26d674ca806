package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareOperationsFailBeforeInitialize(t *testing.T) {
	root := t.TempDir()
	s := NewShare(root, nil)

	ctx := context.Background()

	_, err := s.ListFiles(ctx, "")
	assert.Error(t, err)

	_, err = s.Exists(ctx, "a.txt")
	assert.Error(t, err)

	err = s.Upload(ctx, filepath.Join(root, "x"), "y")
	assert.Error(t, err)
}

func TestShareInitializeSucceedsOnRealDir(t *testing.T) {
	root := t.TempDir()
	s := NewShare(root, nil)

	require.NoError(t, s.Initialize(context.Background()))

	exists, err := s.Exists(context.Background(), "nope.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestShareInitializeFailsOnMissingMount(t *testing.T) {
	s := NewShare(filepath.Join(t.TempDir(), "not-mounted"), nil)

	err := s.Initialize(context.Background())
	assert.Error(t, err)
}

func TestShareUploadDownloadRoundtripAfterMount(t *testing.T) {
	root := t.TempDir()
	s := NewShare(root, nil)
	require.NoError(t, s.Initialize(context.Background()))

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "source.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o600))

	ctx := context.Background()
	require.NoError(t, s.Upload(ctx, src, "nested/dest.txt"))

	dlDest := filepath.Join(srcDir, "downloaded.txt")
	require.NoError(t, s.Download(ctx, "nested/dest.txt", dlDest))

	data, err := os.ReadFile(dlDest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestShareTestConnectionReflectsMountState(t *testing.T) {
	root := t.TempDir()
	s := NewShare(root, nil)
	assert.True(t, s.TestConnection(context.Background()))

	missing := NewShare(filepath.Join(t.TempDir(), "gone"), nil)
	assert.False(t, missing.TestConnection(context.Background()))
}
