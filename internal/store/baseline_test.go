package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldkeep/foldsync/internal/model"
)

func TestUpsertAndGetFileState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	profile, err := s.CreateProfile(ctx, model.Profile{Name: "work", LocalRoot: "/home/work"})
	require.NoError(t, err)

	fs := model.FileState{
		ProfileID: profile.ID,
		Path:      "doc.txt",
		Location:  model.LocationLocal,
		Hash:      "abc123",
		Size:      42,
		Modified:  time.Now().UTC().Truncate(time.Second),
		SyncedAt:  time.Now().UTC().Truncate(time.Second),
		Status:    model.StatusSynced,
	}

	require.NoError(t, s.UpsertFileState(ctx, fs))

	loaded, err := s.GetFileState(ctx, profile.ID, "doc.txt", model.LocationLocal)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "abc123", loaded.Hash)
	assert.Equal(t, int64(42), loaded.Size)
}

func TestUpsertFileStateOverwritesOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	profile, err := s.CreateProfile(ctx, model.Profile{Name: "work"})
	require.NoError(t, err)

	base := model.FileState{ProfileID: profile.ID, Path: "a.txt", Location: model.LocationLocal, Hash: "v1", Status: model.StatusSynced}
	require.NoError(t, s.UpsertFileState(ctx, base))

	base.Hash = "v2"
	require.NoError(t, s.UpsertFileState(ctx, base))

	baseline, err := s.LoadBaseline(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, baseline, 1, "upsert on the same (profile, path, location) must update, not duplicate")
	assert.Equal(t, "v2", baseline[0].Hash)
}

func TestGetFileStateMissing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	profile, err := s.CreateProfile(ctx, model.Profile{Name: "work"})
	require.NoError(t, err)

	fs, err := s.GetFileState(ctx, profile.ID, "nope.txt", model.LocationLocal)
	require.NoError(t, err)
	assert.Nil(t, fs)
}

func TestDeletedStatusIsNotPruned(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	profile, err := s.CreateProfile(ctx, model.Profile{Name: "work"})
	require.NoError(t, err)

	fs := model.FileState{ProfileID: profile.ID, Path: "gone.txt", Location: model.LocationLocal, Status: model.StatusDeleted}
	require.NoError(t, s.UpsertFileState(ctx, fs))

	loaded, err := s.GetFileState(ctx, profile.ID, "gone.txt", model.LocationLocal)
	require.NoError(t, err)
	require.NotNil(t, loaded, "a deleted file state remains a tombstone row, not removed")
	assert.Equal(t, model.StatusDeleted, loaded.Status)
}

func TestListRecentFilesOrdersByModifiedDescAndFiltersByLocation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	profile, err := s.CreateProfile(ctx, model.Profile{Name: "work"})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	states := []model.FileState{
		{ProfileID: profile.ID, Path: "old.txt", Location: model.LocationLocal, Modified: now.Add(-time.Hour), Status: model.StatusSynced},
		{ProfileID: profile.ID, Path: "new.txt", Location: model.LocationLocal, Modified: now, Status: model.StatusSynced},
		{ProfileID: profile.ID, Path: "cloud.txt", Location: model.LocationCloud, Modified: now, Status: model.StatusSynced},
	}
	require.NoError(t, s.UpsertFileStates(ctx, states))

	files, err := s.ListRecentFiles(ctx, profile.ID, model.LocationLocal, 50)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "new.txt", files[0].Path)
	assert.Equal(t, "old.txt", files[1].Path)
}

func TestListRecentFilesRespectsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	profile, err := s.CreateProfile(ctx, model.Profile{Name: "work"})
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)

	var states []model.FileState
	for i := 0; i < 5; i++ {
		states = append(states, model.FileState{
			ProfileID: profile.ID, Path: fmt.Sprintf("f%d.txt", i), Location: model.LocationLocal,
			Modified: now.Add(time.Duration(i) * time.Minute), Status: model.StatusSynced,
		})
	}
	require.NoError(t, s.UpsertFileStates(ctx, states))

	files, err := s.ListRecentFiles(ctx, profile.ID, model.LocationLocal, 2)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "f4.txt", files[0].Path)
}

func TestUpsertFileStatesBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	profile, err := s.CreateProfile(ctx, model.Profile{Name: "work"})
	require.NoError(t, err)

	states := []model.FileState{
		{ProfileID: profile.ID, Path: "a.txt", Location: model.LocationLocal, Status: model.StatusSynced},
		{ProfileID: profile.ID, Path: "b.txt", Location: model.LocationCloud, Status: model.StatusSynced},
	}

	require.NoError(t, s.UpsertFileStates(ctx, states))

	baseline, err := s.LoadBaseline(ctx, profile.ID)
	require.NoError(t, err)
	assert.Len(t, baseline, 2)
}
