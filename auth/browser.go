package auth

import (
	"github.com/charmbracelet/log"
	"github.com/pkg/browser"
)

// Launcher opens the authorization URL out of process. The flow never waits
// on it; the redirect comes back through HandleRedirect whenever the user
// finishes.
type Launcher interface {
	OpenURL(url string) error
}

// BrowserLauncher opens URLs in the system browser.
type BrowserLauncher struct {
	logger *log.Logger
}

// NewBrowserLauncher creates a launcher using the default system browser.
func NewBrowserLauncher(logger *log.Logger) *BrowserLauncher {
	return &BrowserLauncher{logger: logger}
}

// OpenURL opens the URL in the system browser. On failure the URL is logged
// so the user can open it manually.
func (l *BrowserLauncher) OpenURL(url string) error {
	l.logger.Info("please authorize this client by visiting", "url", url)
	if err := browser.OpenURL(url); err != nil {
		l.logger.Warn("could not open browser automatically, copy the URL above into your browser")
		return err
	}
	return nil
}
