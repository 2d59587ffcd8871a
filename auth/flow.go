package auth

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	apperrors "github.com/marcossilqueira/spotify-widget-go/internal/errors"
	"github.com/marcossilqueira/spotify-widget-go/internal/httpclient"
)

// Status names the phase of the authorization flow.
type Status string

const (
	// StatusNotAuthenticated means no valid credential exists.
	StatusNotAuthenticated Status = "not_authenticated"
	// StatusAuthenticating means an authorization attempt is in flight.
	StatusAuthenticating Status = "authenticating"
	// StatusAuthenticated means a valid credential is available.
	StatusAuthenticated Status = "authenticated"
	// StatusError means the last attempt failed; retry is user-initiated.
	StatusError Status = "error"
)

// State is the current flow state. Credential is set only when Status is
// StatusAuthenticated; Err only when Status is StatusError.
type State struct {
	Status     Status
	Credential *Credential
	Err        string
}

// authAttempt is one in-flight authorization request. Its PKCE pair is
// consumed by exactly one code exchange; a newer attempt supersedes it and
// any redirect for the old attempt is rejected as stale.
type authAttempt struct {
	id   uuid.UUID
	pkce PKCEParams
}

// tokenResponse is the token endpoint's exchange payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Flow drives the OAuth2 authorization-code flow with PKCE. It is the single
// writer of the auth state; subscribers observe state changes with the last
// value always immediately available.
type Flow struct {
	config   Config
	tokens   *TokenStore
	launcher Launcher
	client   *httpclient.Client
	logger   *log.Logger

	mu          sync.Mutex
	state       State
	attempt     *authAttempt
	subscribers map[int]chan State
	nextSubID   int
}

// NewFlow creates a flow in the NotAuthenticated state.
func NewFlow(config Config, tokens *TokenStore, launcher Launcher, logger *log.Logger) *Flow {
	return &Flow{
		config:      config,
		tokens:      tokens,
		launcher:    launcher,
		client:      httpclient.New(nil),
		logger:      logger,
		state:       State{Status: StatusNotAuthenticated},
		subscribers: make(map[int]chan State),
	}
}

// State returns the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Subscribe registers an observer. The returned channel immediately carries
// the current state and then every subsequent state, conflated so a slow
// reader always sees the latest value. The cancel function unregisters the
// observer and closes the channel.
func (f *Flow) Subscribe() (<-chan State, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan State, 1)
	ch <- f.state

	id := f.nextSubID
	f.nextSubID++
	f.subscribers[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if c, ok := f.subscribers[id]; ok {
			delete(f.subscribers, id)
			close(c)
		}
	}
	return ch, cancel
}

// Authenticate starts a new authorization attempt: generates a fresh PKCE
// pair, transitions to Authenticating, and hands the authorization URL to
// the browser launcher. It never blocks waiting for the browser. A second
// call before a pending redirect resolves invalidates the first attempt.
func (f *Flow) Authenticate(ctx context.Context) error {
	if f.config.ClientID == "" {
		f.setState(State{Status: StatusError, Err: "client not configured"})
		return apperrors.NewConfigurationError("client not configured")
	}

	pkce, err := GeneratePKCEParams()
	if err != nil {
		f.setState(State{Status: StatusError, Err: "failed to generate PKCE parameters"})
		return apperrors.Wrap(err, apperrors.ConfigurationError, "failed to generate PKCE parameters")
	}

	f.mu.Lock()
	f.attempt = &authAttempt{id: uuid.New(), pkce: pkce}
	f.setStateLocked(State{Status: StatusAuthenticating})
	f.mu.Unlock()

	authURL := f.buildAuthorizationURL(pkce.Challenge)
	f.logger.Info("opening authorization URL in browser")
	if err := f.launcher.OpenURL(authURL); err != nil {
		// Not fatal to the attempt: the user can still open the URL manually
		// and the redirect will arrive the same way.
		f.logger.Warn("could not open browser automatically", "url", authURL, "error", err)
	}
	return nil
}

// HandleRedirect consumes the authorization callback. It may be invoked
// zero, one, or several times per attempt; the first valid delivery wins and
// later ones are rejected as stale. All failures fold into the Error state.
func (f *Flow) HandleRedirect(ctx context.Context, rawURI string) error {
	u, parseErr := url.Parse(rawURI)
	if rawURI == "" || parseErr != nil {
		f.setState(State{Status: StatusError, Err: "empty or malformed callback"})
		return apperrors.NewAuthorizationError("empty or malformed callback")
	}

	query := u.Query()
	if len(query) == 0 {
		f.setState(State{Status: StatusError, Err: "callback carried no data"})
		return apperrors.NewAuthorizationError("callback carried no data")
	}

	if errParam := query.Get("error"); errParam != "" {
		reason := "authorization failed: " + errParam
		f.mu.Lock()
		f.attempt = nil
		f.setStateLocked(State{Status: StatusError, Err: reason})
		f.mu.Unlock()
		return apperrors.NewAuthorizationError(reason)
	}

	code := query.Get("code")
	if code == "" {
		f.setState(State{Status: StatusError, Err: "authorization code not found"})
		return apperrors.NewAuthorizationError("authorization code not found")
	}

	f.mu.Lock()
	if f.attempt == nil {
		f.mu.Unlock()
		f.logger.Warn("ignoring redirect: no authorization attempt in flight")
		return apperrors.NewAuthorizationError("no authorization attempt in flight")
	}
	attemptID := f.attempt.id
	verifier := f.attempt.pkce.Verifier
	f.mu.Unlock()

	tokens, exchangeErr := f.exchangeCode(ctx, code, verifier)

	f.mu.Lock()
	if f.attempt == nil || f.attempt.id != attemptID {
		f.mu.Unlock()
		f.logger.Warn("discarding redirect for superseded authorization attempt")
		return apperrors.NewAuthorizationError("stale authorization redirect")
	}
	// The verifier is consumed exactly once, whether or not the exchange
	// succeeded.
	f.attempt = nil

	if exchangeErr != nil {
		f.setStateLocked(State{Status: StatusError, Err: exchangeErr.Error()})
		f.mu.Unlock()
		return exchangeErr
	}

	credential := Credential{
		AccessToken:      tokens.AccessToken,
		IssuedAt:         time.Now(),
		ExpiresInSeconds: tokens.ExpiresIn,
	}
	f.setStateLocked(State{Status: StatusAuthenticated, Credential: &credential})
	f.mu.Unlock()

	if err := f.tokens.Save(credential); err != nil {
		f.logger.Warn("failed to persist credential", "error", err)
	}
	return nil
}

// CheckAuthStatus reads the token store and transitions to Authenticated or
// NotAuthenticated accordingly. It never overrides an Authenticating or
// Error state, so it is safe to call during (re-)initialization only.
func (f *Flow) CheckAuthStatus() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Status == StatusAuthenticating || f.state.Status == StatusError {
		return f.state
	}

	if credential := f.tokens.Load(); credential != nil {
		f.setStateLocked(State{Status: StatusAuthenticated, Credential: credential})
	} else {
		f.setStateLocked(State{Status: StatusNotAuthenticated})
	}
	return f.state
}

// Logout clears the stored credential and returns to NotAuthenticated
// regardless of the prior state.
func (f *Flow) Logout() {
	if err := f.tokens.Clear(); err != nil {
		f.logger.Warn("failed to clear credential", "error", err)
	}

	f.mu.Lock()
	f.attempt = nil
	f.setStateLocked(State{Status: StatusNotAuthenticated})
	f.mu.Unlock()
}

// exchangeCode trades the authorization code plus verifier for a credential
// at the token endpoint.
func (f *Flow) exchangeCode(ctx context.Context, code, verifier string) (*tokenResponse, error) {
	formData := map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"redirect_uri":  f.config.RedirectURI,
		"client_id":     f.config.ClientID,
		"code_verifier": verifier,
	}

	resp, err := f.client.PostForm(ctx, f.config.TokenURL, formData, nil)
	if err != nil {
		appErr := apperrors.Wrap(err, apperrors.ExchangeError, "token exchange failed")
		if resp != nil {
			appErr = appErr.WithStatusCode(resp.StatusCode)
			_ = resp.SafeClose()
		}
		return nil, appErr
	}
	defer func() { _ = resp.SafeClose() }()

	var tokens tokenResponse
	if err := resp.JSON(&tokens); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ExchangeError, "failed to parse token response")
	}
	if tokens.AccessToken == "" {
		return nil, apperrors.NewExchangeError("token response carried no access token")
	}
	return &tokens, nil
}

// buildAuthorizationURL builds the GET-style authorization redirect.
func (f *Flow) buildAuthorizationURL(challenge string) string {
	params := url.Values{}
	params.Set("client_id", f.config.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", f.config.RedirectURI)
	params.Set("scope", strings.Join(f.config.ScopeList(), " "))
	params.Set("code_challenge_method", "S256")
	params.Set("code_challenge", challenge)
	params.Set("show_dialog", "false")

	base, err := url.Parse(f.config.AuthURL)
	if err != nil {
		// Config default is a constant URL; a broken override still produces
		// a best-effort string.
		return f.config.AuthURL + "?" + params.Encode()
	}
	base.RawQuery = params.Encode()
	return base.String()
}

// setState publishes a new state to all subscribers.
func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.setStateLocked(s)
	f.mu.Unlock()
}

// setStateLocked publishes a new state; the caller holds f.mu. Subscriber
// channels are conflated: an unread older value is dropped in favor of the
// newest.
func (f *Flow) setStateLocked(s State) {
	f.state = s
	for _, ch := range f.subscribers {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}
