package auth

import (
	"time"
)

// Config holds the OAuth client configuration. Values are loaded from the
// environment in cmd; defaults match the Spotify accounts service.
type Config struct {
	ClientID     string   `env:"SPOTIFY_CLIENT_ID"`
	RedirectURI  string   `env:"SPOTIFY_REDIRECT_URI" envDefault:"widgetprovider://callback"`
	AuthURL      string   `env:"SPOTIFY_AUTH_URL" envDefault:"https://accounts.spotify.com/authorize"`
	TokenURL     string   `env:"SPOTIFY_TOKEN_URL" envDefault:"https://accounts.spotify.com/api/token"`
	APIBaseURL   string   `env:"SPOTIFY_API_BASE_URL" envDefault:"https://api.spotify.com/v1"`
	Scopes       []string `env:"SPOTIFY_SCOPES" envSeparator:" "`
	CallbackPort int      `env:"CALLBACK_PORT" envDefault:"3334"`

	RefreshInterval time.Duration `env:"WIDGET_REFRESH_INTERVAL" envDefault:"30s"`
	StateDir        string        `env:"WIDGET_STATE_DIR"`
}

// DefaultScopes are the playback and library scopes the widget needs.
var DefaultScopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"playlist-read-private",
	"playlist-read-collaborative",
	"user-library-read",
	"user-read-email",
	"user-read-private",
	"streaming",
}

// ScopeList returns the configured scopes, falling back to DefaultScopes.
func (c Config) ScopeList() []string {
	if len(c.Scopes) > 0 {
		return c.Scopes
	}
	return DefaultScopes
}
