package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldkeep/foldsync/internal/model"
)

func TestCreateAndGetProfile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.CreateProfile(ctx, model.Profile{Name: "work", LocalRoot: "/home/user/work"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := s.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "work", byID.Name)

	byName, err := s.GetProfileByName(ctx, "work")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, created.ID, byName.ID)
}

func TestGetProfileMissing(t *testing.T) {
	s := openTestStore(t)

	p, err := s.GetProfileByName(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestListProfilesOrderedByName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateProfile(ctx, model.Profile{Name: "zeta", LocalRoot: "/z"})
	require.NoError(t, err)
	_, err = s.CreateProfile(ctx, model.Profile{Name: "alpha", LocalRoot: "/a"})
	require.NoError(t, err)

	profiles, err := s.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "alpha", profiles[0].Name)
	assert.Equal(t, "zeta", profiles[1].Name)
}

func TestUpdateProfile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	created, err := s.CreateProfile(ctx, model.Profile{Name: "work", LocalRoot: "/old"})
	require.NoError(t, err)

	created.LocalRoot = "/new"
	created.CloudFolderID = "folder-123"
	require.NoError(t, s.UpdateProfile(ctx, created))

	reloaded, err := s.GetProfile(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "/new", reloaded.LocalRoot)
	assert.Equal(t, "folder-123", reloaded.CloudFolderID)
}

func TestUpdateProfileMissingIsError(t *testing.T) {
	s := openTestStore(t)

	err := s.UpdateProfile(context.Background(), model.Profile{ID: 999, LocalRoot: "/x"})
	assert.Error(t, err)
}
