package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/marcossilqueira/spotify-widget-go/internal/errors"
	"github.com/marcossilqueira/spotify-widget-go/internal/kvstore"
)

type fakeLauncher struct {
	mu   sync.Mutex
	urls []string
}

func (l *fakeLauncher) OpenURL(u string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.urls = append(l.urls, u)
	return nil
}

func (l *fakeLauncher) last(t *testing.T) string {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.NotEmpty(t, l.urls, "launcher should have been handed a URL")
	return l.urls[len(l.urls)-1]
}

// tokenServer is a fake token endpoint recording exchange requests.
type tokenServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []url.Values
	status   int
	body     string
}

func newTokenServer() *tokenServer {
	ts := &tokenServer{
		status: http.StatusOK,
		body:   `{"access_token":"token-abc123","expires_in":3600,"token_type":"Bearer"}`,
	}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		ts.mu.Lock()
		ts.requests = append(ts.requests, r.PostForm)
		status, body := ts.status, ts.body
		ts.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	return ts
}

func (ts *tokenServer) count() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.requests)
}

func (ts *tokenServer) lastRequest(t *testing.T) url.Values {
	t.Helper()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.NotEmpty(t, ts.requests, "token endpoint should have been called")
	return ts.requests[len(ts.requests)-1]
}

func newTestFlow(t *testing.T, clientID string, ts *tokenServer) (*Flow, *TokenStore, *fakeLauncher) {
	t.Helper()

	config := Config{
		ClientID:    clientID,
		RedirectURI: "widgetprovider://callback",
		AuthURL:     "https://accounts.spotify.com/authorize",
	}
	if ts != nil {
		config.TokenURL = ts.URL
	}

	tokens := NewTokenStore(kvstore.NewMemoryStore(), testLogger())
	launcher := &fakeLauncher{}
	return NewFlow(config, tokens, launcher, testLogger()), tokens, launcher
}

func TestAuthenticateWithoutClientID(t *testing.T) {
	ts := newTokenServer()
	defer ts.Close()

	flow, _, launcher := newTestFlow(t, "", ts)

	err := flow.Authenticate(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ConfigurationError))

	state := flow.State()
	require.Equal(t, StatusError, state.Status)
	require.Equal(t, "client not configured", state.Err)

	require.Zero(t, ts.count(), "no network call may be made")
	require.Empty(t, launcher.urls, "browser must not be opened")
}

func TestAuthenticateBuildsAuthorizationURL(t *testing.T) {
	flow, _, launcher := newTestFlow(t, "client-1", nil)

	require.NoError(t, flow.Authenticate(context.Background()))
	require.Equal(t, StatusAuthenticating, flow.State().Status)

	authURL, err := url.Parse(launcher.last(t))
	require.NoError(t, err)
	require.Equal(t, "accounts.spotify.com", authURL.Host)

	q := authURL.Query()
	require.Equal(t, "client-1", q.Get("client_id"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "widgetprovider://callback", q.Get("redirect_uri"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.Equal(t, "false", q.Get("show_dialog"))
	require.Len(t, q.Get("code_challenge"), 43)
	require.Equal(t, strings.Join(DefaultScopes, " "), q.Get("scope"))
}

func TestHandleRedirectAccessDenied(t *testing.T) {
	ts := newTokenServer()
	defer ts.Close()

	flow, tokens, _ := newTestFlow(t, "client-1", ts)
	require.NoError(t, flow.Authenticate(context.Background()))

	err := flow.HandleRedirect(context.Background(), "widgetprovider://callback?error=access_denied")
	require.Error(t, err)

	state := flow.State()
	require.Equal(t, StatusError, state.Status)
	require.Contains(t, state.Err, "access_denied")

	require.Nil(t, tokens.Load(), "token store must be unchanged")
	require.Zero(t, ts.count())
}

func TestHandleRedirectNoData(t *testing.T) {
	flow, _, _ := newTestFlow(t, "client-1", nil)
	require.NoError(t, flow.Authenticate(context.Background()))

	err := flow.HandleRedirect(context.Background(), "widgetprovider://callback")
	require.Error(t, err)
	require.Equal(t, StatusError, flow.State().Status)
}

func TestHandleRedirectExchangeSuccess(t *testing.T) {
	ts := newTokenServer()
	defer ts.Close()

	flow, tokens, launcher := newTestFlow(t, "client-1", ts)
	require.NoError(t, flow.Authenticate(context.Background()))

	before := time.Now()
	require.NoError(t, flow.HandleRedirect(context.Background(), "widgetprovider://callback?code=abc123"))

	state := flow.State()
	require.Equal(t, StatusAuthenticated, state.Status)
	require.NotNil(t, state.Credential)
	require.Equal(t, "token-abc123", state.Credential.AccessToken)

	// The exchange must carry the code and the verifier matching this
	// attempt's challenge.
	form := ts.lastRequest(t)
	require.Equal(t, "authorization_code", form.Get("grant_type"))
	require.Equal(t, "abc123", form.Get("code"))
	require.Equal(t, "client-1", form.Get("client_id"))
	require.Equal(t, "widgetprovider://callback", form.Get("redirect_uri"))

	authURL, _ := url.Parse(launcher.last(t))
	challenge := authURL.Query().Get("code_challenge")
	require.Equal(t, challenge, ComputeCodeChallenge(form.Get("code_verifier")))

	// Credential persisted with expiresAt = issuedAt + 3600s.
	saved := tokens.Load()
	require.NotNil(t, saved)
	require.Equal(t, 3600, saved.ExpiresInSeconds)
	require.WithinDuration(t, before.Add(time.Hour), saved.ExpiresAt(), 5*time.Second)
}

func TestHandleRedirectExchangeFailure(t *testing.T) {
	ts := newTokenServer()
	defer ts.Close()
	ts.status = http.StatusBadRequest
	ts.body = `{"error":"invalid_grant"}`

	flow, tokens, _ := newTestFlow(t, "client-1", ts)
	require.NoError(t, flow.Authenticate(context.Background()))

	err := flow.HandleRedirect(context.Background(), "widgetprovider://callback?code=abc123")
	require.Error(t, err)
	require.True(t, apperrors.IsType(err, apperrors.ExchangeError))
	require.Equal(t, StatusError, flow.State().Status)
	require.Nil(t, tokens.Load())
}

func TestHandleRedirectDeliveredTwice(t *testing.T) {
	ts := newTokenServer()
	defer ts.Close()

	flow, _, _ := newTestFlow(t, "client-1", ts)
	require.NoError(t, flow.Authenticate(context.Background()))

	uri := "widgetprovider://callback?code=abc123"
	require.NoError(t, flow.HandleRedirect(context.Background(), uri))

	// A second delivery of the same redirect is discarded; the first valid
	// one already consumed the attempt.
	err := flow.HandleRedirect(context.Background(), uri)
	require.Error(t, err)
	require.Equal(t, StatusAuthenticated, flow.State().Status)
	require.Equal(t, 1, ts.count())
}

func TestSecondAuthenticateInvalidatesFirst(t *testing.T) {
	ts := newTokenServer()
	defer ts.Close()

	flow, _, launcher := newTestFlow(t, "client-1", ts)

	require.NoError(t, flow.Authenticate(context.Background()))
	firstURL, _ := url.Parse(launcher.last(t))
	firstChallenge := firstURL.Query().Get("code_challenge")

	require.NoError(t, flow.Authenticate(context.Background()))
	secondURL, _ := url.Parse(launcher.last(t))
	secondChallenge := secondURL.Query().Get("code_challenge")
	require.NotEqual(t, firstChallenge, secondChallenge, "PKCE pair must never be reused")

	require.NoError(t, flow.HandleRedirect(context.Background(), "widgetprovider://callback?code=xyz789"))

	// The exchange must have used the second attempt's verifier.
	form := ts.lastRequest(t)
	require.Equal(t, secondChallenge, ComputeCodeChallenge(form.Get("code_verifier")))
}

func TestCheckAuthStatus(t *testing.T) {
	flow, tokens, _ := newTestFlow(t, "client-1", nil)

	require.Equal(t, StatusNotAuthenticated, flow.CheckAuthStatus().Status)

	require.NoError(t, tokens.Save(Credential{
		AccessToken:      "stored-token",
		IssuedAt:         time.Now(),
		ExpiresInSeconds: 3600,
	}))
	state := flow.CheckAuthStatus()
	require.Equal(t, StatusAuthenticated, state.Status)
	require.Equal(t, "stored-token", state.Credential.AccessToken)
}

func TestCheckAuthStatusExpiredCredential(t *testing.T) {
	flow, tokens, _ := newTestFlow(t, "client-1", nil)

	require.NoError(t, tokens.Save(Credential{
		AccessToken:      "stale-token",
		IssuedAt:         time.Now().Add(-2 * time.Hour),
		ExpiresInSeconds: 3600,
	}))
	require.Equal(t, StatusNotAuthenticated, flow.CheckAuthStatus().Status)
}

func TestCheckAuthStatusDoesNotOverrideError(t *testing.T) {
	flow, tokens, _ := newTestFlow(t, "", nil)

	_ = flow.Authenticate(context.Background())
	require.Equal(t, StatusError, flow.State().Status)

	// Even with a valid stored credential, an Error from a more recent user
	// action stays in place.
	require.NoError(t, tokens.Save(Credential{
		AccessToken:      "token",
		IssuedAt:         time.Now(),
		ExpiresInSeconds: 3600,
	}))
	require.Equal(t, StatusError, flow.CheckAuthStatus().Status)
}

func TestLogout(t *testing.T) {
	ts := newTokenServer()
	defer ts.Close()

	flow, tokens, _ := newTestFlow(t, "client-1", ts)
	require.NoError(t, flow.Authenticate(context.Background()))
	require.NoError(t, flow.HandleRedirect(context.Background(), "widgetprovider://callback?code=abc123"))
	require.NotNil(t, tokens.Load())

	flow.Logout()
	require.Equal(t, StatusNotAuthenticated, flow.State().Status)
	require.Nil(t, tokens.Load())
}

func TestSubscribeReplayOne(t *testing.T) {
	flow, _, _ := newTestFlow(t, "client-1", nil)

	// A new subscriber immediately sees the current state.
	ch, cancel := flow.Subscribe()
	defer cancel()

	select {
	case state := <-ch:
		require.Equal(t, StatusNotAuthenticated, state.Status)
	case <-time.After(time.Second):
		t.Fatal("subscriber should receive the current state immediately")
	}

	require.NoError(t, flow.Authenticate(context.Background()))
	select {
	case state := <-ch:
		require.Equal(t, StatusAuthenticating, state.Status)
	case <-time.After(time.Second):
		t.Fatal("subscriber should receive the state change")
	}
}

func TestSubscribeConflatesToLatest(t *testing.T) {
	ts := newTokenServer()
	defer ts.Close()

	flow, _, _ := newTestFlow(t, "client-1", ts)

	ch, cancel := flow.Subscribe()
	defer cancel()

	// Do not read while several transitions happen; the slow reader should
	// observe only the latest value.
	require.NoError(t, flow.Authenticate(context.Background()))
	require.NoError(t, flow.HandleRedirect(context.Background(), "widgetprovider://callback?code=abc123"))

	var last State
	for done := false; !done; {
		select {
		case s := <-ch:
			last = s
		default:
			done = true
		}
	}
	require.Equal(t, StatusAuthenticated, last.Status)
}
