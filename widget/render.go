package widget

import (
	"math"
	"strings"

	"github.com/marcossilqueira/spotify-widget-go/spotify"
)

// Layout names the view variant a size maps to.
type Layout string

const (
	// LayoutCompact shows title and artist only.
	LayoutCompact Layout = "compact"
	// LayoutStandard adds a progress indicator.
	LayoutStandard Layout = "standard"
	// LayoutExpanded adds playlist context.
	LayoutExpanded Layout = "expanded"
)

// Command is a user action dispatched from a widget's interactive regions.
type Command string

const (
	CommandTogglePlayback Command = "toggle_playback"
	CommandNext           Command = "next"
	CommandPrevious       Command = "previous"
)

// Snapshot is the latest known playback state, projected for rendering. It
// has no lifecycle of its own and is recomputed on every refresh.
type Snapshot struct {
	IsPlaying  bool
	TrackTitle string
	ArtistName string
	ProgressMs *int64
	DurationMs *int64
}

// Placeholder text shown when no playback snapshot is available.
const (
	placeholderTitle  = "Nothing playing"
	placeholderArtist = "Spotify"
)

// PlaceholderSnapshot is the defined render state used when no snapshot is
// available; fields are never left blank.
func PlaceholderSnapshot() Snapshot {
	return Snapshot{
		IsPlaying:  false,
		TrackTitle: placeholderTitle,
		ArtistName: placeholderArtist,
	}
}

// SnapshotFromPlayback projects an API playback state onto a Snapshot. A nil
// state or a state with no loaded track yields the placeholder.
func SnapshotFromPlayback(state *spotify.PlaybackState) Snapshot {
	if state == nil || state.Item == nil {
		return PlaceholderSnapshot()
	}

	names := make([]string, 0, len(state.Item.Artists))
	for _, artist := range state.Item.Artists {
		names = append(names, artist.Name)
	}
	artist := strings.Join(names, ", ")
	if artist == "" {
		artist = placeholderArtist
	}

	duration := state.Item.DurationMs
	return Snapshot{
		IsPlaying:  state.IsPlaying,
		TrackTitle: state.Item.Name,
		ArtistName: artist,
		ProgressMs: state.ProgressMs,
		DurationMs: &duration,
	}
}

// ARGB is a packed 32-bit color, alpha in the top byte.
type ARGB uint32

// Alpha returns the color's alpha channel.
func (c ARGB) Alpha() uint8 {
	return uint8(c >> 24)
}

// styleBaseColor is the opaque RGB for each style.
func styleBaseColor(style Style) uint32 {
	switch style {
	case StyleMinimal:
		return 0x191414
	case StyleColorful:
		return 0xE91429
	default:
		return 0x1DB954
	}
}

// backgroundColor blends the style color with the transparency setting. The
// alpha channel is round(transparency * 255) clamped to [0, 255]; rounding
// is half-away-from-zero, so 0.5 yields 128.
func backgroundColor(style Style, transparency float64) ARGB {
	alpha := math.Round(transparency * 255)
	if alpha < 0 {
		alpha = 0
	} else if alpha > 255 {
		alpha = 255
	}
	return ARGB(uint32(alpha)<<24 | styleBaseColor(style))
}

// CommandTarget binds an interactive region to a command, carrying the
// identity so the dispatcher routes the event back to this instance.
type CommandTarget struct {
	Region   string
	Command  Command
	Identity Identity
}

// ViewDescription is the renderable output delivered to the widget host.
type ViewDescription struct {
	Layout     Layout
	Background ARGB

	TrackTitle string
	ArtistName string
	IsPlaying  bool

	ShowProgress    bool
	ProgressPercent int

	ShowPlaylists bool
	Playlists     []string

	Commands []CommandTarget
}

// layoutFor maps a widget size to its layout variant.
func layoutFor(size Size) Layout {
	switch size {
	case SizeMedium:
		return LayoutStandard
	case SizeLarge:
		return LayoutExpanded
	default:
		return LayoutCompact
	}
}

// Render produces the view for the given settings and snapshot. It is pure:
// identical inputs always yield an identical view.
func Render(settings Settings, snapshot Snapshot) ViewDescription {
	layout := layoutFor(settings.Size)

	view := ViewDescription{
		Layout:     layout,
		Background: backgroundColor(settings.Style, settings.Transparency),
		TrackTitle: snapshot.TrackTitle,
		ArtistName: snapshot.ArtistName,
		IsPlaying:  snapshot.IsPlaying,
	}

	if layout == LayoutStandard || layout == LayoutExpanded {
		view.ShowProgress, view.ProgressPercent = progressPercent(snapshot)
	}
	if layout == LayoutExpanded {
		view.ShowPlaylists = true
	}
	return view
}

// WithPlaylists returns a copy of the view carrying playlist context names.
func WithPlaylists(view ViewDescription, names []string) ViewDescription {
	view.Playlists = names
	return view
}

// BindCommands returns a copy of the view with the three command targets
// attached to its interactive regions, each carrying the identity.
func BindCommands(view ViewDescription, id Identity) ViewDescription {
	view.Commands = []CommandTarget{
		{Region: "btn_play_pause", Command: CommandTogglePlayback, Identity: id},
		{Region: "btn_next", Command: CommandNext, Identity: id},
		{Region: "btn_previous", Command: CommandPrevious, Identity: id},
	}
	return view
}

// progressPercent computes the progress indicator value, when the snapshot
// carries enough to compute one.
func progressPercent(snapshot Snapshot) (bool, int) {
	if snapshot.ProgressMs == nil || snapshot.DurationMs == nil || *snapshot.DurationMs <= 0 {
		return false, 0
	}

	percent := int(*snapshot.ProgressMs * 100 / *snapshot.DurationMs)
	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}
	return true, percent
}
