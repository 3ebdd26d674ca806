package oauth

import (
	"testing"
	"time"

	"github.com/zalando/go-keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldkeep/foldsync/internal/model"
)

func TestTokenStoreRoundTrip(t *testing.T) {
	keyring.MockInit()

	store := NewTokenStore("work")

	missing, err := store.LoadTokens()
	require.NoError(t, err)
	assert.Nil(t, missing)

	expiry := time.Now().Add(time.Hour)
	tokens := model.OAuthTokens{AccessToken: "at", RefreshToken: "rt", ExpiresAt: &expiry}

	require.NoError(t, store.SaveTokens(tokens))

	loaded, err := store.LoadTokens()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "at", loaded.AccessToken)
	assert.Equal(t, "rt", loaded.RefreshToken)

	require.NoError(t, store.DeleteTokens())

	afterDelete, err := store.LoadTokens()
	require.NoError(t, err)
	assert.Nil(t, afterDelete)
}

func TestTokenStoreDeleteMissingIsNotError(t *testing.T) {
	keyring.MockInit()

	store := NewTokenStore("fresh-profile")
	assert.NoError(t, store.DeleteTokens())
}

func TestTokenStoreCredentialsRoundTrip(t *testing.T) {
	keyring.MockInit()

	store := NewTokenStore("work")

	missing, err := store.LoadCredentials()
	require.NoError(t, err)
	assert.Nil(t, missing)

	creds := model.OAuthClientCredentials{ClientID: "id", ClientSecret: "secret"}
	require.NoError(t, store.SaveCredentials(creds))

	loaded, err := store.LoadCredentials()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "id", loaded.ClientID)
	assert.Equal(t, "secret", loaded.ClientSecret)
}

func TestTokenStoreScopedPerProfile(t *testing.T) {
	keyring.MockInit()

	a := NewTokenStore("profile-a")
	b := NewTokenStore("profile-b")

	require.NoError(t, a.SaveTokens(model.OAuthTokens{AccessToken: "a-token"}))

	bTokens, err := b.LoadTokens()
	require.NoError(t, err)
	assert.Nil(t, bTokens, "profile-b must not see profile-a's tokens")
}
