package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/marcossilqueira/spotify-widget-go/auth"
	"github.com/marcossilqueira/spotify-widget-go/internal/kvstore"
	"github.com/marcossilqueira/spotify-widget-go/widget"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "spotify-widget",
	})

	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	var config auth.Config
	if err := env.Parse(&config); err != nil {
		logger.Fatal("failed to parse configuration", "error", err)
	}

	var clientID string
	var stateDir string
	var callbackPort int
	var interval time.Duration
	var widgetCount int

	flag.StringVar(&clientID, "client-id", "", "Spotify application client ID (overrides SPOTIFY_CLIENT_ID)")
	flag.StringVar(&stateDir, "state-dir", "", "Directory for persisted credentials and settings")
	flag.IntVar(&callbackPort, "port", 0, "Callback port for the OAuth redirect (overrides CALLBACK_PORT)")
	flag.DurationVar(&interval, "interval", 0, "Periodic refresh interval (overrides WIDGET_REFRESH_INTERVAL)")
	flag.IntVar(&widgetCount, "widgets", 1, "Number of widget instances to register at startup")
	flag.Parse()

	if clientID != "" {
		config.ClientID = clientID
	}
	if stateDir != "" {
		config.StateDir = stateDir
	}
	if callbackPort != 0 {
		config.CallbackPort = callbackPort
	}
	if interval != 0 {
		config.RefreshInterval = interval
	}
	if config.StateDir == "" {
		config.StateDir = defaultStateDir()
	}

	store, err := kvstore.NewFileStore(config.StateDir)
	if err != nil {
		logger.Fatal("failed to open state directory", "dir", config.StateDir, "error", err)
	}

	tokens := auth.NewTokenStore(store, logger)
	launcher := auth.NewBrowserLauncher(logger)
	flow := auth.NewFlow(config, tokens, launcher, logger)

	callbackServer := auth.NewCallbackServer(config.CallbackPort, config.RedirectURI, flow, logger)
	if err := callbackServer.Start(); err != nil {
		logger.Fatal("failed to start callback server", "error", err)
	}

	resolver := widget.NewResolver(store, logger)
	host := &logHost{logger: logger}
	coordinator := widget.NewCoordinator(resolver, tokens, host, nil, config.RefreshInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-signals
		logger.Info("shutting down", "signal", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := callbackServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("callback server shutdown error", "error", err)
		}
		cancel()
	}()

	// Re-render everything whenever the auth state changes.
	states, unsubscribe := flow.Subscribe()
	defer unsubscribe()
	go func() {
		for state := range states {
			logger.Info("auth state changed", "status", state.Status)
			if state.Status == auth.StatusAuthenticated || state.Status == auth.StatusNotAuthenticated {
				coordinator.RefreshAll(ctx)
			}
		}
	}()

	if state := flow.CheckAuthStatus(); state.Status != auth.StatusAuthenticated {
		if err := flow.Authenticate(ctx); err != nil {
			logger.Error("authentication could not be started", "error", err)
		}
	}

	for i := 1; i <= widgetCount; i++ {
		coordinator.OnCreate(ctx, widget.Identity(i))
	}

	logger.Info("refresh loop running", "interval", config.RefreshInterval, "widgets", widgetCount)
	coordinator.Run(ctx)
}

// defaultStateDir places state under the user's home directory, falling back
// to the working directory.
func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".spotify-widget"
	}
	return filepath.Join(home, ".spotify-widget")
}

// logHost stands in for the OS widget surface: delivered views are logged
// instead of drawn.
type logHost struct {
	logger *log.Logger
}

func (h *logHost) Deliver(id widget.Identity, view widget.ViewDescription) {
	h.logger.Info("widget render",
		"identity", id,
		"layout", view.Layout,
		"track", view.TrackTitle,
		"artist", view.ArtistName,
		"playing", view.IsPlaying,
	)
}
