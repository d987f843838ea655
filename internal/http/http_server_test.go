package http

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gitlab.com/icecc-go.net/internal/adapter/logging"
	"gitlab.com/icecc-go.net/internal/daemon"
)

func TestServer_StartServeStop(t *testing.T) {
	// --- Arrange ---
	s := NewServer(0, "iceccd", daemon.StaticLocator{}, logging.NewNopLogger())
	require.NoError(t, s.Init())
	require.NoError(t, s.Start(context.Background()))

	// --- Act ---
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + s.listener.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	// --- Assert ---
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	_, err = client.Get("http://" + s.listener.Addr().String() + "/healthz")
	require.Error(t, err)
}

func TestServer_StopBeforeStart(t *testing.T) {
	s := NewServer(0, "iceccd", daemon.StaticLocator{}, logging.NewNopLogger())
	require.NoError(t, s.Stop(context.Background()))
}
