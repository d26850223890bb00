package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/topicnav/internal/bounds"
	"github.com/ethpandaops/topicnav/internal/config"
	"github.com/ethpandaops/topicnav/internal/handlers"
	"github.com/ethpandaops/topicnav/internal/navigator"
	"github.com/ethpandaops/topicnav/internal/playback"
	"github.com/ethpandaops/topicnav/internal/ratelimit"
	"github.com/ethpandaops/topicnav/internal/redis"
	"github.com/ethpandaops/topicnav/internal/session"
	"github.com/ethpandaops/topicnav/internal/testutil"
)

func newTestDeps(t *testing.T) Dependencies {
	t.Helper()

	log := testutil.NewTestLogger()
	events := testutil.Messages("/camera", testutil.Sec(1), testutil.Sec(2), testutil.Sec(3))

	manager := session.NewManager(
		log,
		session.Config{},
		navigator.DefaultConfig(),
		events,
		playback.Options{TopicStats: true},
		func(string) bounds.Cache { return bounds.NewMemoryCache() },
	)
	t.Cleanup(func() { _ = manager.Stop() })

	return Dependencies{
		Catalog:  playback.NewPlayer(log, events, playback.Options{TopicStats: true}),
		Sessions: manager,
	}
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	req.RemoteAddr = "203.0.113.9:40000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestNewHandler_Routes(t *testing.T) {
	deps := newTestDeps(t)
	h := NewHandler(testutil.NewTestLogger(), testutil.NewTestConfig(), deps)

	rec := serve(h, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var health handlers.HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)

	rec = serve(h, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "topicnav_sessions_active")

	rec = serve(h, http.MethodGet, "/api/v1/topics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(h, http.MethodPost, "/api/v1/sessions")
	require.Equal(t, http.StatusCreated, rec.Code)

	var info session.Info
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))

	rec = serve(h, http.MethodPost, "/api/v1/sessions/"+info.ID+"/next/%2Fcamera")
	require.Equal(t, http.StatusOK, rec.Code)

	var state navigator.State
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&state))
	assert.Equal(t, testutil.Sec(2).Ptr(), state.CurrentTime)

	rec = serve(h, http.MethodOptions, "/api/v1/sessions/"+info.ID)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(h, http.MethodGet, "/nowhere")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, http.MethodPatch, "/api/v1/sessions/"+info.ID)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNewHandler_RateLimiting(t *testing.T) {
	mr := miniredis.RunT(t)
	log := testutil.NewTestLogger()

	client := redis.NewClient(log, redis.Config{Address: mr.Addr(), DialTimeout: time.Second, PoolSize: 2})
	require.NoError(t, client.Start(context.Background()))
	t.Cleanup(func() { _ = client.Stop() })

	cfg := testutil.NewTestConfig()
	cfg.RateLimiting = config.RateLimitingConfig{
		Enabled:     true,
		FailureMode: config.FailOpen,
		Rules: []config.RateLimitRule{{
			Name:        "create_session",
			Method:      http.MethodPost,
			PathPattern: "^/api/v1/sessions$",
			Limit:       2,
			Window:      time.Minute,
		}},
	}

	deps := newTestDeps(t)
	deps.Limiter = ratelimit.NewService(log, client, cfg.RateLimiting.FailureMode)

	h := NewHandler(log, cfg, deps)

	for i := 0; i < 2; i++ {
		rec := serve(h, http.MethodPost, "/api/v1/sessions")
		require.Equal(t, http.StatusCreated, rec.Code, "request %d", i+1)
	}

	rec := serve(h, http.MethodPost, "/api/v1/sessions")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 2, deps.Sessions.Len())

	rec = serve(h, http.MethodGet, "/api/v1/topics")
	assert.Equal(t, http.StatusOK, rec.Code, "routes without a rule are not limited")
}

func TestServer_StartShutdown(t *testing.T) {
	cfg := testutil.NewTestConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0

	srv := New(testutil.NewTestLogger(), cfg, newTestDeps(t))

	errCh := make(chan error, 1)

	go func() { errCh <- srv.Start() }()

	time.Sleep(20 * time.Millisecond)

	ctx := testutil.NewTestContext(t)
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(time.Second):
		t.Fatal("server did not stop")
	}
}
