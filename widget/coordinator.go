package widget

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/marcossilqueira/spotify-widget-go/auth"
	apperrors "github.com/marcossilqueira/spotify-widget-go/internal/errors"
	"github.com/marcossilqueira/spotify-widget-go/spotify"
)

// playlistContextLimit bounds the playlist names fetched for the expanded
// layout.
const playlistContextLimit = 5

// Host delivers rendered views to the external widget surface.
type Host interface {
	Deliver(id Identity, view ViewDescription)
}

// PlaybackAPI is the slice of the remote API the coordinator drives.
// *spotify.Client implements it.
type PlaybackAPI interface {
	CurrentPlaybackState(ctx context.Context) (*spotify.PlaybackState, error)
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	NextTrack(ctx context.Context) error
	PreviousTrack(ctx context.Context) error
	Playlists(ctx context.Context, limit int) ([]spotify.Playlist, error)
}

// ClientFactory builds an API client for an access token. Injected so tests
// can substitute a fake.
type ClientFactory func(accessToken string) PlaybackAPI

// instance is the coordinator's state for one live widget. Its mutex
// serializes all operations targeting the identity, so a refresh cannot be
// overwritten by a stale concurrent result.
type instance struct {
	mu           sync.Mutex
	sizeHint     *Size
	lastView     ViewDescription
	hasView      bool
	lastSnapshot Snapshot
}

// Coordinator schedules renders for all live widget instances and routes
// inbound commands to the playback API. Different identities refresh
// concurrently; operations on one identity are serialized.
type Coordinator struct {
	resolver *Resolver
	tokens   *auth.TokenStore
	host     Host
	factory  ClientFactory
	interval time.Duration
	logger   *log.Logger

	mu        sync.Mutex
	instances map[Identity]*instance
}

// NewCoordinator creates a coordinator. A nil factory uses the real Spotify
// client.
func NewCoordinator(resolver *Resolver, tokens *auth.TokenStore, host Host, factory ClientFactory, interval time.Duration, logger *log.Logger) *Coordinator {
	if factory == nil {
		factory = func(accessToken string) PlaybackAPI {
			return spotify.NewClient(accessToken, "")
		}
	}
	return &Coordinator{
		resolver:  resolver,
		tokens:    tokens,
		host:      host,
		factory:   factory,
		interval:  interval,
		logger:    logger,
		instances: make(map[Identity]*instance),
	}
}

// OnCreate registers a new live instance and performs its first refresh.
func (c *Coordinator) OnCreate(ctx context.Context, id Identity) {
	inst := c.ensure(id)
	inst.mu.Lock()
	defer inst.mu.Unlock()
	c.refreshLocked(ctx, id, inst)
}

// OnResize re-renders with the host-reported size picking the layout.
// Persisted settings are not altered.
func (c *Coordinator) OnResize(ctx context.Context, id Identity, size Size) {
	inst := c.ensure(id)
	inst.mu.Lock()
	defer inst.mu.Unlock()
	inst.sizeHint = &size
	c.refreshLocked(ctx, id, inst)
}

// OnCommand dispatches a user command for one instance. On success the
// instance is immediately re-fetched and re-rendered; on failure the prior
// render is re-delivered unchanged so the user sees no spurious change.
func (c *Coordinator) OnCommand(ctx context.Context, id Identity, command Command) {
	inst := c.ensure(id)
	inst.mu.Lock()
	defer inst.mu.Unlock()

	api := c.client()
	if api == nil {
		c.logger.Warn("command ignored: not authenticated", "identity", id, "command", command)
		c.redeliverLocked(id, inst)
		return
	}

	if err := c.dispatch(ctx, api, inst, command); err != nil {
		// Fail quiet: no error surface on a frequently-polled widget.
		c.logger.Warn("command failed, keeping prior render", "identity", id, "command", command, "error", err)
		c.redeliverLocked(id, inst)
		return
	}

	c.refreshLocked(ctx, id, inst)
}

// OnRemove clears the instance's persisted settings so a future instance
// reusing the identifier does not inherit them, and forgets the instance.
func (c *Coordinator) OnRemove(id Identity) {
	if err := c.resolver.Delete(id); err != nil {
		c.logger.Warn("failed to clear settings for removed widget", "identity", id, "error", err)
	}

	c.mu.Lock()
	delete(c.instances, id)
	c.mu.Unlock()
}

// Identities returns the currently-known live identities, sorted.
func (c *Coordinator) Identities() []Identity {
	c.mu.Lock()
	ids := make([]Identity, 0, len(c.instances))
	for id := range c.instances {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RefreshAll refreshes every live instance. Instances refresh concurrently
// and one instance's failure never aborts the others.
func (c *Coordinator) RefreshAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, id := range c.Identities() {
		wg.Add(1)
		go func(id Identity) {
			defer wg.Done()
			inst := c.ensure(id)
			inst.mu.Lock()
			defer inst.mu.Unlock()
			c.refreshLocked(ctx, id, inst)
		}(id)
	}
	wg.Wait()
}

// Run drives the periodic refresh until the context is done.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("refresh loop stopped")
			return
		case <-ticker.C:
			c.RefreshAll(ctx)
		}
	}
}

// ensure returns the instance record for id, creating it if unknown.
func (c *Coordinator) ensure(id Identity) *instance {
	c.mu.Lock()
	defer c.mu.Unlock()

	inst, ok := c.instances[id]
	if !ok {
		inst = &instance{}
		c.instances[id] = inst
	}
	return inst
}

// client builds an API client from the stored credential, or nil when not
// authenticated.
func (c *Coordinator) client() PlaybackAPI {
	credential := c.tokens.Load()
	if credential == nil {
		return nil
	}
	return c.factory(credential.AccessToken)
}

// refreshLocked runs the resolve/fetch/render/deliver sequence for one
// instance. The caller holds inst.mu. Fetch failures degrade to the
// placeholder snapshot rather than failing the refresh.
func (c *Coordinator) refreshLocked(ctx context.Context, id Identity, inst *instance) {
	settings := c.resolver.Resolve(id)
	if inst.sizeHint != nil {
		// The host-reported size picks the layout only; the persisted
		// record is untouched.
		settings.Size = *inst.sizeHint
	}

	api := c.client()
	snapshot := c.fetchSnapshot(ctx, api)

	view := Render(settings, snapshot)
	if view.ShowPlaylists && api != nil {
		if names, err := c.fetchPlaylistNames(ctx, api); err == nil {
			view = WithPlaylists(view, names)
		} else {
			c.logger.Debug("playlist context unavailable", "identity", id, "error", err)
		}
	}
	view = BindCommands(view, id)

	inst.lastView = view
	inst.hasView = true
	inst.lastSnapshot = snapshot
	c.host.Deliver(id, view)
}

// redeliverLocked re-delivers the prior render unchanged. The caller holds
// inst.mu.
func (c *Coordinator) redeliverLocked(id Identity, inst *instance) {
	if inst.hasView {
		c.host.Deliver(id, inst.lastView)
	}
}

// fetchSnapshot fetches the playback state best-effort; any failure yields
// the placeholder.
func (c *Coordinator) fetchSnapshot(ctx context.Context, api PlaybackAPI) Snapshot {
	if api == nil {
		return PlaceholderSnapshot()
	}

	state, err := api.CurrentPlaybackState(ctx)
	if err != nil {
		if apperrors.StatusCode(err) == 401 {
			c.logger.Warn("access token rejected, re-authentication required")
		} else {
			c.logger.Debug("failed to fetch playback state", "error", err)
		}
		return PlaceholderSnapshot()
	}
	return SnapshotFromPlayback(state)
}

// fetchPlaylistNames fetches playlist context for the expanded layout.
func (c *Coordinator) fetchPlaylistNames(ctx context.Context, api PlaybackAPI) ([]string, error) {
	playlists, err := api.Playlists(ctx, playlistContextLimit)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(playlists))
	for _, playlist := range playlists {
		names = append(names, playlist.Name)
	}
	return names, nil
}

// dispatch routes a command to the API. Toggle resolves against the last
// known snapshot for the instance.
func (c *Coordinator) dispatch(ctx context.Context, api PlaybackAPI, inst *instance, command Command) error {
	switch command {
	case CommandTogglePlayback:
		if inst.lastSnapshot.IsPlaying {
			return api.Pause(ctx)
		}
		return api.Play(ctx)
	case CommandNext:
		return api.NextTrack(ctx)
	case CommandPrevious:
		return api.PreviousTrack(ctx)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
