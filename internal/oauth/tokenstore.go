// Package oauth implements the browser-based PKCE authorization flow and
// OS-keychain-backed persistence for the Cloud provider's credentials.
package oauth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/foldkeep/foldsync/internal/apperr"
	"github.com/foldkeep/foldsync/internal/model"
)

// serviceName is the keychain service under which every profile's tokens
// and client credentials are stored, one entry per profile name.
const serviceName = "com.foldkeep.foldsync"

// TokenStore persists OAuthTokens in the OS keychain (Keychain on macOS,
// Secret Service on Linux, Credential Manager on Windows), never on disk.
type TokenStore struct {
	profile string
}

// NewTokenStore scopes a TokenStore to a single sync profile so multiple
// profiles can hold independent Cloud credentials.
func NewTokenStore(profile string) *TokenStore {
	return &TokenStore{profile: profile}
}

func (s *TokenStore) tokenKey() string { return s.profile + ":tokens" }
func (s *TokenStore) credsKey() string { return s.profile + ":credentials" }

// SaveTokens writes tokens to the keychain, overwriting any prior value.
func (s *TokenStore) SaveTokens(tokens model.OAuthTokens) error {
	data, err := json.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("%w: marshal tokens: %w", apperr.ErrSerialization, err)
	}

	if err := keyring.Set(serviceName, s.tokenKey(), string(data)); err != nil {
		return fmt.Errorf("%w: keychain set: %w", apperr.ErrOAuth, err)
	}

	return nil
}

// LoadTokens reads tokens from the keychain. It returns (nil, nil) — not
// an error — when the profile has never authenticated, matching how
// model.Profile.Configured reports an unset location.
func (s *TokenStore) LoadTokens() (*model.OAuthTokens, error) {
	raw, err := keyring.Get(serviceName, s.tokenKey())
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil //nolint:nilnil // sentinel for "never authenticated"
	}

	if err != nil {
		return nil, fmt.Errorf("%w: keychain get: %w", apperr.ErrOAuth, err)
	}

	var tokens model.OAuthTokens
	if err := json.Unmarshal([]byte(raw), &tokens); err != nil {
		return nil, fmt.Errorf("%w: unmarshal tokens: %w", apperr.ErrSerialization, err)
	}

	return &tokens, nil
}

// DeleteTokens removes the stored tokens. A missing entry is not an error,
// since logout is idempotent.
func (s *TokenStore) DeleteTokens() error {
	err := keyring.Delete(serviceName, s.tokenKey())
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: keychain delete: %w", apperr.ErrOAuth, err)
	}

	return nil
}

// SaveCredentials persists the OAuth client ID/secret pair used to start
// the PKCE flow, so a profile's auth.start never has to ask for them twice.
func (s *TokenStore) SaveCredentials(creds model.OAuthClientCredentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("%w: marshal credentials: %w", apperr.ErrSerialization, err)
	}

	if err := keyring.Set(serviceName, s.credsKey(), string(data)); err != nil {
		return fmt.Errorf("%w: keychain set: %w", apperr.ErrOAuth, err)
	}

	return nil
}

// LoadCredentials returns (nil, nil) if no credentials have been saved yet.
func (s *TokenStore) LoadCredentials() (*model.OAuthClientCredentials, error) {
	raw, err := keyring.Get(serviceName, s.credsKey())
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil //nolint:nilnil
	}

	if err != nil {
		return nil, fmt.Errorf("%w: keychain get: %w", apperr.ErrOAuth, err)
	}

	var creds model.OAuthClientCredentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("%w: unmarshal credentials: %w", apperr.ErrSerialization, err)
	}

	return &creds, nil
}
