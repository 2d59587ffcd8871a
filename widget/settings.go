package widget

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	apperrors "github.com/marcossilqueira/spotify-widget-go/internal/errors"
	"github.com/marcossilqueira/spotify-widget-go/internal/kvstore"
)

// Identity is the opaque integer the host assigns to a live widget instance.
// The host reuses identifiers after removal, so per-instance state must be
// cleared when an instance is removed.
type Identity int

// Size selects the widget layout family.
type Size string

const (
	SizeSmall  Size = "SMALL"
	SizeMedium Size = "MEDIUM"
	SizeLarge  Size = "LARGE"
)

// Style selects the widget's visual style.
type Style string

const (
	StyleModern   Style = "MODERN"
	StyleMinimal  Style = "MINIMAL"
	StyleColorful Style = "COLORFUL"
)

// Settings is one widget configuration record. Transparency is in [0.0, 1.0].
type Settings struct {
	Size         Size    `json:"size"`
	Style        Style   `json:"style"`
	Transparency float64 `json:"transparency"`
}

// DefaultSettings is the hard-coded fallback used when neither a
// per-instance nor a global record exists.
func DefaultSettings() Settings {
	return Settings{
		Size:         SizeSmall,
		Style:        StyleModern,
		Transparency: 1.0,
	}
}

// globalSettingsKey holds the process-wide default record.
const globalSettingsKey = "widget:global"

func instanceSettingsKey(id Identity) string {
	return fmt.Sprintf("widget:%d", id)
}

// Resolver resolves effective widget settings by scope precedence:
// per-instance record, else global record, else DefaultSettings. Records are
// resolved as a whole per scope, never field by field: an existing
// per-instance record is authoritative for all fields.
type Resolver struct {
	store  kvstore.Store
	logger *log.Logger
}

// NewResolver creates a resolver over the given record store.
func NewResolver(store kvstore.Store, logger *log.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
	}
}

// Resolve returns the effective settings for the instance. It is total:
// store failures are treated as absent records and the fallback applies.
func (r *Resolver) Resolve(id Identity) Settings {
	var settings Settings

	if r.load(instanceSettingsKey(id), &settings) {
		return settings
	}
	if r.load(globalSettingsKey, &settings) {
		return settings
	}
	return DefaultSettings()
}

// Save writes the per-instance record. The global scope is untouched.
func (r *Resolver) Save(id Identity, settings Settings) error {
	if err := r.store.Set(instanceSettingsKey(id), settings); err != nil {
		return apperrors.Wrap(err, apperrors.PersistenceError, "failed to save widget settings")
	}
	return nil
}

// SaveGlobal writes the global record. Per-instance scopes are untouched.
func (r *Resolver) SaveGlobal(settings Settings) error {
	if err := r.store.Set(globalSettingsKey, settings); err != nil {
		return apperrors.Wrap(err, apperrors.PersistenceError, "failed to save global widget settings")
	}
	return nil
}

// Delete removes the per-instance record so a future instance reusing the
// identifier starts from the global defaults.
func (r *Resolver) Delete(id Identity) error {
	if err := r.store.Delete(instanceSettingsKey(id)); err != nil {
		return apperrors.Wrap(err, apperrors.PersistenceError, "failed to delete widget settings")
	}
	return nil
}

func (r *Resolver) load(key string, settings *Settings) bool {
	err := r.store.Get(key, settings)
	if err == nil {
		return true
	}
	if !errors.Is(err, kvstore.ErrNotFound) {
		r.logger.Warn("failed to load widget settings, treating as absent", "key", key, "error", err)
	}
	return false
}
