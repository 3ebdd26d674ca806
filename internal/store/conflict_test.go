package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldkeep/foldsync/internal/model"
)

func TestRecordAndListUnresolvedConflicts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	profile, err := s.CreateProfile(ctx, model.Profile{Name: "work"})
	require.NoError(t, err)

	c, err := s.RecordConflict(ctx, model.Conflict{
		ProfileID: profile.ID,
		Path:      "doc.txt",
		LocalHash: "h1",
		CloudHash: "h2",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)

	unresolved, err := s.ListUnresolvedConflicts(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "doc.txt", unresolved[0].Path)
	assert.False(t, unresolved[0].Resolved)
}

func TestResolveConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	profile, err := s.CreateProfile(ctx, model.Profile{Name: "work"})
	require.NoError(t, err)

	c, err := s.RecordConflict(ctx, model.Conflict{ProfileID: profile.ID, Path: "doc.txt"})
	require.NoError(t, err)

	require.NoError(t, s.ResolveConflict(ctx, c.ID, model.ResolutionKeepLocal))

	reloaded, err := s.GetConflict(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.True(t, reloaded.Resolved)
	assert.Equal(t, model.ResolutionKeepLocal, reloaded.Resolution)

	unresolved, err := s.ListUnresolvedConflicts(ctx, profile.ID)
	require.NoError(t, err)
	assert.Empty(t, unresolved)
}

func TestResolveConflictTwiceIsError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	profile, err := s.CreateProfile(ctx, model.Profile{Name: "work"})
	require.NoError(t, err)

	c, err := s.RecordConflict(ctx, model.Conflict{ProfileID: profile.ID, Path: "doc.txt"})
	require.NoError(t, err)

	require.NoError(t, s.ResolveConflict(ctx, c.ID, model.ResolutionKeepLocal))
	assert.Error(t, s.ResolveConflict(ctx, c.ID, model.ResolutionKeepCloud))
}

func TestGetConflictMissing(t *testing.T) {
	s := openTestStore(t)

	c, err := s.GetConflict(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, c)
}
