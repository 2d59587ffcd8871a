// Package spotify is a typed facade over the Spotify Web API. Every
// operation attaches the access token as a bearer credential and converts
// transport and status failures into typed application errors.
package spotify

import (
	"context"
	"fmt"
	"net/http"

	apperrors "github.com/marcossilqueira/spotify-widget-go/internal/errors"
	"github.com/marcossilqueira/spotify-widget-go/internal/httpclient"
)

// DefaultBaseURL is the Spotify Web API root.
const DefaultBaseURL = "https://api.spotify.com/v1"

// defaultPlaylistLimit bounds the playlist listing when the caller passes no
// limit.
const defaultPlaylistLimit = 20

// Client calls the Spotify Web API with a single access token. It is
// stateless beyond the token and never retries; retry policy belongs to the
// caller.
type Client struct {
	baseURL string
	http    *httpclient.Client
}

// NewClient creates a client for the given access token. baseURL falls back
// to DefaultBaseURL when empty.
func NewClient(accessToken, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	config := httpclient.DefaultConfig()
	config.DefaultHeaders["Authorization"] = "Bearer " + accessToken

	return &Client{
		baseURL: baseURL,
		http:    httpclient.New(config),
	}
}

// CurrentUser fetches the current user's profile.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	resp, err := c.http.Get(ctx, c.baseURL+"/me", nil)
	if err != nil {
		return nil, apiError("failed to fetch user profile", resp, err)
	}
	defer func() { _ = resp.SafeClose() }()

	var user User
	if err := resp.JSON(&user); err != nil {
		return nil, apperrors.Wrap(err, apperrors.APIError, "failed to parse user profile")
	}
	return &user, nil
}

// CurrentPlaybackState fetches the player state. A 204 response means no
// active playback and yields a nil state without error.
func (c *Client) CurrentPlaybackState(ctx context.Context) (*PlaybackState, error) {
	resp, err := c.http.Get(ctx, c.baseURL+"/me/player", nil)
	if err != nil {
		return nil, apiError("failed to fetch playback state", resp, err)
	}
	defer func() { _ = resp.SafeClose() }()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var state PlaybackState
	if err := resp.JSON(&state); err != nil {
		return nil, apperrors.Wrap(err, apperrors.APIError, "failed to parse playback state")
	}
	return &state, nil
}

// Play resumes playback on the active device.
func (c *Client) Play(ctx context.Context) error {
	return c.command(ctx, http.MethodPut, "/me/player/play", "failed to start playback")
}

// Pause pauses playback on the active device.
func (c *Client) Pause(ctx context.Context) error {
	return c.command(ctx, http.MethodPut, "/me/player/pause", "failed to pause playback")
}

// NextTrack skips to the next track.
func (c *Client) NextTrack(ctx context.Context) error {
	return c.command(ctx, http.MethodPost, "/me/player/next", "failed to skip to next track")
}

// PreviousTrack skips to the previous track.
func (c *Client) PreviousTrack(ctx context.Context) error {
	return c.command(ctx, http.MethodPost, "/me/player/previous", "failed to skip to previous track")
}

// SetVolume sets the playback volume. The percent range is validated
// upstream by the caller.
func (c *Client) SetVolume(ctx context.Context, percent int) error {
	path := fmt.Sprintf("/me/player/volume?volume_percent=%d", percent)
	return c.command(ctx, http.MethodPut, path, "failed to set volume")
}

// Playlists lists the user's playlists, bounded by limit (default 20).
func (c *Client) Playlists(ctx context.Context, limit int) ([]Playlist, error) {
	if limit <= 0 {
		limit = defaultPlaylistLimit
	}

	url := fmt.Sprintf("%s/me/playlists?limit=%d", c.baseURL, limit)
	resp, err := c.http.Get(ctx, url, nil)
	if err != nil {
		return nil, apiError("failed to fetch playlists", resp, err)
	}
	defer func() { _ = resp.SafeClose() }()

	var page playlistsResponse
	if err := resp.JSON(&page); err != nil {
		return nil, apperrors.Wrap(err, apperrors.APIError, "failed to parse playlists")
	}
	return page.Items, nil
}

// command issues a bodyless transport-control request.
func (c *Client) command(ctx context.Context, method, path, failMessage string) error {
	resp, err := c.http.Do(ctx, &httpclient.Request{
		Method: method,
		URL:    c.baseURL + path,
	})
	if err != nil {
		return apiError(failMessage, resp, err)
	}
	_ = resp.SafeClose()
	return nil
}

// apiError converts a failed request into a typed error. When a status was
// obtained it is carried on the error; transport failures carry none.
func apiError(message string, resp *httpclient.Response, err error) *apperrors.AppError {
	if resp != nil {
		_ = resp.SafeClose()
		detail := fmt.Sprintf("%s: %d %s", message, resp.StatusCode, http.StatusText(resp.StatusCode))
		return apperrors.NewAPIError(detail, resp.StatusCode)
	}
	return apperrors.Wrap(err, apperrors.APIError, message)
}
