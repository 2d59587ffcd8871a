package auth

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"

	apperrors "github.com/marcossilqueira/spotify-widget-go/internal/errors"
	"github.com/marcossilqueira/spotify-widget-go/internal/kvstore"
)

// credentialKey is the store record holding the current credential.
const credentialKey = "auth:credential"

// Credential is an access token together with its validity window.
type Credential struct {
	AccessToken      string    `json:"access_token"`
	IssuedAt         time.Time `json:"issued_at"`
	ExpiresInSeconds int       `json:"expires_in_seconds"`
}

// ExpiresAt returns the instant the credential stops being valid.
func (c Credential) ExpiresAt() time.Time {
	return c.IssuedAt.Add(time.Duration(c.ExpiresInSeconds) * time.Second)
}

// Valid reports whether the credential is usable at the given instant.
func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt())
}

// TokenStore persists the current credential. The auth flow is the only
// writer; readers tolerate a concurrent save because the backing store
// reads and writes whole records atomically.
type TokenStore struct {
	store  kvstore.Store
	logger *log.Logger
}

// NewTokenStore creates a token store over the given record store.
func NewTokenStore(store kvstore.Store, logger *log.Logger) *TokenStore {
	return &TokenStore{
		store:  store,
		logger: logger,
	}
}

// Save overwrites the stored credential.
func (s *TokenStore) Save(credential Credential) error {
	if err := s.store.Set(credentialKey, credential); err != nil {
		return apperrors.Wrap(err, apperrors.PersistenceError, "failed to save credential")
	}
	return nil
}

// Load returns the stored credential, or nil when none exists or the stored
// one has expired. Expiry is enforced here, not in the caller. Storage
// failures are treated as an absent credential.
func (s *TokenStore) Load() *Credential {
	var credential Credential
	if err := s.store.Get(credentialKey, &credential); err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			s.logger.Warn("failed to load credential, treating as absent", "error", err)
		}
		return nil
	}

	if !credential.Valid(time.Now()) {
		return nil
	}
	return &credential
}

// Clear removes the stored credential. Safe to call when nothing was saved.
func (s *TokenStore) Clear() error {
	if err := s.store.Delete(credentialKey); err != nil {
		return apperrors.Wrap(err, apperrors.PersistenceError, "failed to clear credential")
	}
	return nil
}
