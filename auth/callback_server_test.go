package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu   sync.Mutex
	uris []string
	err  error
}

func (h *recordingHandler) HandleRedirect(ctx context.Context, uri string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uris = append(h.uris, uri)
	return h.err
}

func TestCallbackServerForwardsCode(t *testing.T) {
	handler := &recordingHandler{}
	server := NewCallbackServer(0, "widgetprovider://callback", handler, testLogger())
	require.NoError(t, server.Start())
	defer func() { _ = server.Shutdown(context.Background()) }()

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback?code=abc123", server.Port()))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.uris, 1)
	require.Equal(t, "widgetprovider://callback?code=abc123", handler.uris[0])
}

func TestCallbackServerRejectedRedirect(t *testing.T) {
	handler := &recordingHandler{err: fmt.Errorf("stale authorization redirect")}
	server := NewCallbackServer(0, "widgetprovider://callback", handler, testLogger())
	require.NoError(t, server.Start())
	defer func() { _ = server.Shutdown(context.Background()) }()

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback?error=access_denied", server.Port()))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.uris, 1)
	require.Equal(t, "widgetprovider://callback?error=access_denied", handler.uris[0])
}
