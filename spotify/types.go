package spotify

// User is the current user's profile.
type User struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Images      []Image `json:"images,omitempty"`
}

// Image is an artwork reference.
type Image struct {
	URL    string `json:"url"`
	Height *int   `json:"height,omitempty"`
	Width  *int   `json:"width,omitempty"`
}

// Artist identifies a track artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album identifies a track's album.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images,omitempty"`
}

// Track is a playable item.
type Track struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Artists      []Artist          `json:"artists"`
	Album        Album             `json:"album"`
	DurationMs   int64             `json:"duration_ms"`
	ExternalURLs map[string]string `json:"external_urls,omitempty"`
}

// Device is the playback device, when one is active.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	VolumePercent *int   `json:"volume_percent,omitempty"`
}

// PlaybackState is the player's state. Item is nil when nothing is loaded.
type PlaybackState struct {
	IsPlaying  bool    `json:"is_playing"`
	Item       *Track  `json:"item,omitempty"`
	ProgressMs *int64  `json:"progress_ms,omitempty"`
	Device     *Device `json:"device,omitempty"`
}

// Playlist summarizes one of the user's playlists.
type Playlist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Images      []Image        `json:"images,omitempty"`
	Tracks      PlaylistTracks `json:"tracks"`
}

// PlaylistTracks carries the playlist's track count.
type PlaylistTracks struct {
	Total int `json:"total"`
}

// playlistsResponse is the paged wrapper around the playlist listing.
type playlistsResponse struct {
	Items []Playlist `json:"items"`
}
