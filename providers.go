package main

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/foldkeep/foldsync/internal/apperr"
	"github.com/foldkeep/foldsync/internal/model"
	"github.com/foldkeep/foldsync/internal/oauth"
	"github.com/foldkeep/foldsync/internal/provider"
)

// buildProviders wires one provider.Provider per location the profile has
// configured. A location with no root set (e.g. Share left empty) is
// simply absent from the map, matching how Profile.Configured is used
// throughout internal/syncengine.
func buildProviders(ctx context.Context, profile model.Profile, logger *slog.Logger) (map[model.Location]provider.Provider, error) {
	providers := make(map[model.Location]provider.Provider)

	if profile.Configured(model.LocationLocal) {
		providers[model.LocationLocal] = provider.NewLocal(profile.LocalRoot, logger)
	}

	if profile.Configured(model.LocationCloud) {
		cloud, err := buildCloudProvider(ctx, profile, logger)
		if err != nil {
			return nil, err
		}

		providers[model.LocationCloud] = cloud
	}

	if profile.Configured(model.LocationShare) {
		providers[model.LocationShare] = provider.NewShare(profile.SharePath, logger)
	}

	return providers, nil
}

// buildCloudProvider resolves stored OAuth credentials and tokens for the
// profile, refreshes the access token if it's expiring soon, and wires an
// oauth2.Config-derived http.Client into provider.NewCloud — exactly what
// NewCloud's doc comment requires.
func buildCloudProvider(ctx context.Context, profile model.Profile, logger *slog.Logger) (provider.Provider, error) {
	tokenStore := oauth.NewTokenStore(profile.Name)

	creds, err := tokenStore.LoadCredentials()
	if err != nil {
		return nil, err
	}

	if creds == nil {
		if cloudClientID == "" {
			return nil, fmt.Errorf("%w: profile %q is not authenticated; run 'foldsync auth start'", apperr.ErrOAuth, profile.Name)
		}

		creds = &model.OAuthClientCredentials{ClientID: cloudClientID, ClientSecret: cloudClientSecret}
	}

	tokens, err := tokenStore.LoadTokens()
	if err != nil {
		return nil, err
	}

	if tokens == nil {
		return nil, fmt.Errorf("%w: profile %q is not authenticated; run 'foldsync auth start'", apperr.ErrOAuth, profile.Name)
	}

	flow := oauth.NewFlow(profile.Name, logger)

	fresh, err := flow.EnsureFresh(ctx, *creds, *tokens)
	if err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret, Endpoint: google.Endpoint}

	tok := &oauth2.Token{AccessToken: fresh.AccessToken, RefreshToken: fresh.RefreshToken}
	if fresh.ExpiresAt != nil {
		tok.Expiry = *fresh.ExpiresAt
	}

	// No client-side timeout: transfers can be large and slow, and every
	// call the engine makes is already bounded by ctx.
	client := oauthCfg.Client(ctx, tok)

	return provider.NewCloud(profile.CloudFolderID, client, logger), nil
}
