package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/foldkeep/foldsync/internal/apperr"
	"github.com/foldkeep/foldsync/internal/model"
)

// defaultScopes requests read/write access scoped to files the app creates,
// avoiding a broader grant over the user's whole drive.
var defaultScopes = []string{"https://www.googleapis.com/auth/drive.file"}

const (
	stateTokenBytes  = 16
	callbackPath     = "/"
	shutdownTimeout  = 5 * time.Second
	callbackTimeout  = 300 * time.Second
	tokenExpiryGuard = 5 * time.Minute
)

// callbackResult carries the authorization code or error from the loopback handler.
type callbackResult struct {
	code string
	err  error
}

// Flow drives the authorization-code + PKCE login for a single profile and
// persists the resulting tokens to its TokenStore.
type Flow struct {
	Store  *TokenStore
	Logger *slog.Logger

	// OpenBrowser is called with the authorization URL; swapped out in
	// tests to avoid actually launching a browser.
	OpenBrowser func(string) error
}

// NewFlow builds a Flow for profile, backed by the OS keychain and a
// best-effort "open the default browser" launcher.
func NewFlow(profile string, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}

	return &Flow{
		Store:       NewTokenStore(profile),
		Logger:      logger,
		OpenBrowser: openBrowser,
	}
}

// Start runs the full browser PKCE flow: bind a loopback receiver, open the
// browser, wait up to 300s for the callback, exchange the code, and save
// the resulting tokens.
func (f *Flow) Start(ctx context.Context, creds model.OAuthClientCredentials) (model.OAuthTokens, error) {
	ctx, cancel := context.WithTimeout(ctx, callbackTimeout)
	defer cancel()

	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()

	srv, port, err := startCallbackServer(ctx, mux, resultCh, f.Logger)
	if err != nil {
		return model.OAuthTokens{}, err
	}

	defer shutdownCallbackServer(srv, f.Logger)

	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Scopes:       defaultScopes,
		Endpoint:     google.Endpoint,
		RedirectURL:  fmt.Sprintf("http://127.0.0.1:%d", port),
	}

	verifier := oauth2.GenerateVerifier()

	state, err := generateState()
	if err != nil {
		return model.OAuthTokens{}, fmt.Errorf("%w: generating state token: %w", apperr.ErrOAuth, err)
	}

	registerCallbackHandler(mux, state, resultCh)

	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.S256ChallengeOption(verifier),
	)

	f.Logger.Info("opening browser for authorization")

	if openErr := f.OpenBrowser(authURL); openErr != nil {
		f.Logger.Warn("failed to open browser automatically", "error", openErr, "url", authURL)
	}

	code, err := waitForCallback(ctx, resultCh)
	if err != nil {
		return model.OAuthTokens{}, err
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return model.OAuthTokens{}, fmt.Errorf("%w: token exchange failed: %w", apperr.ErrOAuth, err)
	}

	tokens := tokensFromOAuth2(tok)

	if err := f.Store.SaveCredentials(creds); err != nil {
		return model.OAuthTokens{}, err
	}

	if err := f.Store.SaveTokens(tokens); err != nil {
		return model.OAuthTokens{}, err
	}

	f.Logger.Info("authentication successful", "expires_at", tokens.ExpiresAt)

	return tokens, nil
}

// EnsureFresh returns a valid access token, transparently refreshing
// against the token endpoint when the stored token expires within five
// minutes. The refreshed token is persisted back to the keychain before
// being returned, so the next call sees the new expiry.
func (f *Flow) EnsureFresh(ctx context.Context, creds model.OAuthClientCredentials, tokens model.OAuthTokens) (model.OAuthTokens, error) {
	if !tokens.ExpiringSoon(tokenExpiryGuard, time.Now()) {
		return tokens, nil
	}

	if tokens.RefreshToken == "" {
		return model.OAuthTokens{}, fmt.Errorf("%w: access token expired and no refresh token on file", apperr.ErrOAuth)
	}

	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
	}

	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: tokens.RefreshToken})

	refreshed, err := src.Token()
	if err != nil {
		return model.OAuthTokens{}, fmt.Errorf("%w: refreshing token: %w", apperr.ErrOAuth, err)
	}

	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = tokens.RefreshToken
	}

	next := tokensFromOAuth2(refreshed)

	if err := f.Store.SaveTokens(next); err != nil {
		return model.OAuthTokens{}, err
	}

	f.Logger.Info("access token refreshed", "expires_at", next.ExpiresAt)

	return next, nil
}

func tokensFromOAuth2(tok *oauth2.Token) model.OAuthTokens {
	expiry := tok.Expiry
	return model.OAuthTokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    &expiry,
	}
}

func startCallbackServer(
	ctx context.Context,
	mux *http.ServeMux,
	resultCh chan<- callbackResult,
	logger *slog.Logger,
) (*http.Server, int, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, fmt.Errorf("%w: binding loopback listener: %w", apperr.ErrOAuth, err)
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()
		return nil, 0, fmt.Errorf("%w: listener address is not TCP", apperr.ErrOAuth)
	}

	port := tcpAddr.Port
	logger.Info("oauth callback server listening", "port", port)

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: shutdownTimeout}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			resultCh <- callbackResult{err: fmt.Errorf("%w: callback server error: %w", apperr.ErrOAuth, serveErr)}
		}
	}()

	return srv, port, nil
}

func registerCallbackHandler(mux *http.ServeMux, state string, resultCh chan<- callbackResult) {
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "invalid state parameter", http.StatusBadRequest)
			resultCh <- callbackResult{err: fmt.Errorf("%w: state mismatch (possible CSRF)", apperr.ErrOAuth)}

			return
		}

		if errParam := r.URL.Query().Get("error"); errParam != "" {
			http.Error(w, "authorization failed: "+errParam, http.StatusBadRequest)
			resultCh <- callbackResult{err: fmt.Errorf("%w: authorization denied: %s", apperr.ErrOAuth, errParam)}

			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			resultCh <- callbackResult{err: fmt.Errorf("%w: callback missing authorization code", apperr.ErrOAuth)}

			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1>"+
			"<p>You can close this window and return to the terminal.</p></body></html>")
		resultCh <- callbackResult{code: code}
	})
}

func shutdownCallbackServer(srv *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("callback server shutdown error", "error", err)
	}
}

func waitForCallback(ctx context.Context, resultCh <-chan callbackResult) (string, error) {
	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.code, nil
	case <-ctx.Done():
		return "", fmt.Errorf("%w: browser auth timed out or was canceled: %w", apperr.ErrOAuth, ctx.Err())
	}
}

func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
