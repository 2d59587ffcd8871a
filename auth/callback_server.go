package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
)

// RedirectHandler receives the authorization callback URI. Flow implements
// it; the server does not interpret the query beyond forwarding it.
type RedirectHandler interface {
	HandleRedirect(ctx context.Context, uri string) error
}

// CallbackServer is the local HTTP endpoint the authorization server
// redirects back to. Every delivery, however late, is forwarded to the
// handler; the flow decides whether it is still relevant.
type CallbackServer struct {
	redirectURI string
	basePort    int
	handler     RedirectHandler
	logger      *log.Logger

	server *http.Server
	port   int
}

// NewCallbackServer creates a callback server. redirectURI is the app-scheme
// URI the forwarded callback is rewritten onto.
func NewCallbackServer(basePort int, redirectURI string, handler RedirectHandler, logger *log.Logger) *CallbackServer {
	return &CallbackServer{
		redirectURI: redirectURI,
		basePort:    basePort,
		handler:     handler,
		logger:      logger,
	}
}

// Port returns the port the server bound to, valid after Start.
func (s *CallbackServer) Port() int {
	return s.port
}

// Start binds a loopback listener, probing upward from the base port, and
// serves the callback endpoint in the background.
func (s *CallbackServer) Start() error {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/callback", s.handleCallback)

	var listener net.Listener
	var err error
	for i := 0; i < 100; i++ {
		addr := fmt.Sprintf("127.0.0.1:%d", s.basePort+i)
		listener, err = net.Listen("tcp", addr)
		if err == nil {
			break
		}
		if s.basePort == 0 {
			// Port 0 already asks the OS for any free port; probing is
			// pointless.
			break
		}
	}
	if listener == nil {
		return fmt.Errorf("could not find an available port for callback server after 100 attempts: %w", err)
	}
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.logger.Info("callback server listening", "addr", listener.Addr().String())

	s.server = &http.Server{Handler: engine}
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("callback server error", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the server.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *CallbackServer) handleCallback(c *gin.Context) {
	// Rewrite onto the app-scheme redirect URI so the flow sees the same
	// shape the host OS would deliver.
	uri := s.redirectURI
	if raw := c.Request.URL.RawQuery; raw != "" {
		uri += "?" + raw
	}

	err := s.handler.HandleRedirect(c.Request.Context(), uri)
	if err != nil {
		s.logger.Warn("authorization callback rejected", "error", err)
		c.Data(http.StatusBadRequest, "text/html; charset=utf-8", []byte(deniedPage))
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(successPage))
}

const successPage = `<!DOCTYPE html>
<html>
<head>
	<title>Authorization Successful</title>
	<style>
		body { font-family: Arial, sans-serif; text-align: center; padding: 50px; }
		.success { color: #1DB954; }
		.container { max-width: 600px; margin: 0 auto; }
	</style>
</head>
<body>
	<div class="container">
		<h1 class="success">Authorization Successful!</h1>
		<p>Your widgets are now connected to Spotify.</p>
		<p>You can close this window and return to the application.</p>
	</div>
</body>
</html>
`

const deniedPage = `<!DOCTYPE html>
<html>
<head>
	<title>Authorization Failed</title>
	<style>
		body { font-family: Arial, sans-serif; text-align: center; padding: 50px; }
		.error { color: #E91429; }
		.container { max-width: 600px; margin: 0 auto; }
	</style>
</head>
<body>
	<div class="container">
		<h1 class="error">Authorization Failed</h1>
		<p>The authorization was denied or could not be completed.</p>
		<p>You can close this window and retry from the application.</p>
	</div>
</body>
</html>
`
