package debugserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	logx "github.com/elsieclark/superqueue/pkg/logx"
)

func start(t *testing.T, cfg Config, eps map[string]Endpoint) (*Service, string) {
	t.Helper()
	s := New(cfg, logx.Nop(), eps)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		s.Stop(context.Background())
		cancel()
	})
	s.Start(ctx)
	require.Eventually(t, func() bool { return s.Addr() != "" }, 5*time.Second, 10*time.Millisecond)
	return s, "http://" + s.Addr()
}

func get(t *testing.T, url, token string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestServesEndpoints(t *testing.T) {
	t.Parallel()
	_, base := start(t, Config{Enabled: true, Addr: "127.0.0.1:0"}, map[string]Endpoint{
		"/queue":  func(context.Context) (any, error) { return map[string]int{"pending": 3}, nil },
		"/broken": func(context.Context) (any, error) { return nil, errors.New("store offline") },
	})

	code, body := get(t, base+"/healthz", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body)

	code, body = get(t, base+"/queue", "")
	require.Equal(t, http.StatusOK, code)
	var got map[string]int
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Equal(t, 3, got["pending"])

	code, body = get(t, base+"/broken", "")
	require.Equal(t, http.StatusInternalServerError, code)
	require.Contains(t, body, "store offline")

	code, _ = get(t, base+"/debug/pprof/", "")
	require.Equal(t, http.StatusNotFound, code)
}

func TestTokenRequired(t *testing.T) {
	t.Parallel()
	_, base := start(t, Config{Enabled: true, Addr: "127.0.0.1:0", Token: "s3cret", Pprof: true}, nil)

	code, _ := get(t, base+"/healthz", "")
	require.Equal(t, http.StatusUnauthorized, code)
	code, _ = get(t, base+"/healthz", "wrong")
	require.Equal(t, http.StatusUnauthorized, code)
	code, _ = get(t, base+"/healthz", "s3cret")
	require.Equal(t, http.StatusOK, code)
	code, _ = get(t, base+"/healthz?token=s3cret", "")
	require.Equal(t, http.StatusOK, code)
	code, _ = get(t, base+"/debug/pprof/cmdline", "s3cret")
	require.Equal(t, http.StatusOK, code)
}

func TestReconfigureStops(t *testing.T) {
	t.Parallel()
	s, _ := start(t, Config{Enabled: true, Addr: "127.0.0.1:0"}, nil)
	s.Reconfigure(context.Background(), Config{Enabled: false})
	require.False(t, s.Enabled())
	require.Eventually(t, func() bool { return s.Addr() == "" }, 5*time.Second, 10*time.Millisecond)
}

func TestIsLoopbackAddr(t *testing.T) {
	t.Parallel()
	require.True(t, isLoopbackAddr("127.0.0.1:6060"))
	require.True(t, isLoopbackAddr("localhost:6060"))
	require.True(t, isLoopbackAddr("[::1]:6060"))
	require.False(t, isLoopbackAddr(":6060"))
	require.False(t, isLoopbackAddr("0.0.0.0:6060"))
}
