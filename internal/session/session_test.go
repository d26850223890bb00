package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ethpandaops/topicnav/internal/bounds"
	boundsmocks "github.com/ethpandaops/topicnav/internal/bounds/mocks"
	"github.com/ethpandaops/topicnav/internal/navigator"
	"github.com/ethpandaops/topicnav/internal/playback"
	"github.com/ethpandaops/topicnav/internal/redis"
	"github.com/ethpandaops/topicnav/internal/source"
	"github.com/ethpandaops/topicnav/internal/testutil"
)

func testEvents() []source.MessageEvent {
	return append(
		testutil.Messages("/camera", testutil.Sec(1), testutil.Sec(2), testutil.Sec(4)),
		testutil.Messages("/imu", testutil.Millis(1500))...,
	)
}

type cacheRecorder struct {
	mu     sync.Mutex
	caches map[string]*bounds.MemoryCache
}

func (r *cacheRecorder) factory(namespace string) bounds.Cache {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.caches == nil {
		r.caches = make(map[string]*bounds.MemoryCache)
	}

	c := bounds.NewMemoryCache()
	r.caches[namespace] = c

	return c
}

func (r *cacheRecorder) get(namespace string) *bounds.MemoryCache {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.caches[namespace]
}

func newTestManager(t *testing.T, cfg Config, factory CacheFactory) *manager {
	t.Helper()

	if factory == nil {
		factory = func(string) bounds.Cache { return bounds.NewMemoryCache() }
	}

	m, ok := NewManager(
		testutil.NewTestLogger(),
		cfg,
		navigator.DefaultConfig(),
		testEvents(),
		playback.Options{TopicStats: true},
		factory,
	).(*manager)
	require.True(t, ok)

	return m
}

func TestManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, Config{}, nil)

	s, err := m.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, m.Delete(ctx, s.ID()))
	assert.Equal(t, 0, m.Len())

	_, err = m.Get(s.ID())
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	err = m.Delete(ctx, s.ID())
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	_, err = s.Next(ctx, "/camera")
	assert.True(t, errors.Is(err, ErrSessionClosed))
	assert.True(t, errors.Is(s.Seek(testutil.Sec(2)), ErrSessionClosed))
}

func TestManager_MaxSessions(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, Config{MaxSessions: 2}, nil)

	for i := 0; i < 2; i++ {
		_, err := m.Create(ctx)
		require.NoError(t, err)
	}

	_, err := m.Create(ctx)
	assert.True(t, errors.Is(err, ErrTooManySessions))
}

func TestSession_Navigation(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, Config{}, nil)

	s, err := m.Create(ctx)
	require.NoError(t, err)

	info := s.Info()
	assert.Equal(t, testutil.Sec(1).Ptr(), info.CurrentTime)
	assert.Equal(t, testutil.Sec(1).Ptr(), info.StartTime)
	assert.Equal(t, testutil.Sec(4).Ptr(), info.EndTime)

	state, err := s.Next(ctx, "/camera")
	require.NoError(t, err)
	assert.Equal(t, testutil.Sec(2).Ptr(), state.CurrentTime)
	assert.False(t, state.IsNavigating)
	assert.True(t, state.CanNavigateNext)
	assert.True(t, state.CanNavigatePrevious)
	assert.True(t, s.Info().Paused)

	state, err = s.Next(ctx, "/camera")
	require.NoError(t, err)
	assert.Equal(t, testutil.Sec(4).Ptr(), state.CurrentTime)
	assert.False(t, state.CanNavigateNext)
	assert.Equal(t, testutil.Sec(4).Ptr(), state.Boundaries.Last)

	state, err = s.Previous(ctx, "/imu")
	require.NoError(t, err)
	assert.Equal(t, testutil.Millis(1500).Ptr(), state.CurrentTime)

	state, err = s.State(ctx, "/camera")
	require.NoError(t, err)
	assert.Equal(t, testutil.Millis(1500).Ptr(), state.CurrentTime)
	assert.True(t, state.CanNavigatePrevious)

	_, err = s.Next(ctx, "/missing")
	assert.True(t, errors.Is(err, ErrTopicNotFound))
}

func TestSession_SeekAndIsolation(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, Config{}, nil)

	a, err := m.Create(ctx)
	require.NoError(t, err)

	b, err := m.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, a.Seek(testutil.Sec(3)))

	state, err := a.Previous(ctx, "/camera")
	require.NoError(t, err)
	assert.Equal(t, testutil.Sec(2).Ptr(), state.CurrentTime)

	assert.Equal(t, testutil.Sec(1).Ptr(), b.Info().CurrentTime)

	err = a.Seek(testutil.Sec(100))
	assert.True(t, errors.Is(err, playback.ErrSeekOutOfRange))
}

func TestSession_SelectionDiscoversBoundaries(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, Config{}, nil)

	s, err := m.Create(ctx)
	require.NoError(t, err)

	_, err = s.SetSelection(ctx, "/camera", true, true)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		state, err := s.State(ctx, "/camera")

		return err == nil && state.Boundaries.First != nil && state.Boundaries.Last != nil
	}, time.Second, 5*time.Millisecond)

	state, err := s.State(ctx, "/camera")
	require.NoError(t, err)
	assert.Equal(t, testutil.Sec(1).Ptr(), state.Boundaries.First)
	assert.Equal(t, testutil.Sec(4).Ptr(), state.Boundaries.Last)
}

func TestSession_CloseInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	recorder := &cacheRecorder{}
	m := newTestManager(t, Config{}, recorder.factory)

	s, err := m.Create(ctx)
	require.NoError(t, err)

	_, err = s.Next(ctx, "/imu")
	require.NoError(t, err)
	assert.Equal(t, 1, recorder.get(s.ID()).Len())

	require.NoError(t, m.Delete(ctx, s.ID()))
	assert.Equal(t, 0, recorder.get(s.ID()).Len())

	require.NoError(t, s.Close(ctx), "closing twice is a no-op")
}

func TestSession_CloseReportsCacheFailure(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)

	cache := boundsmocks.NewMockCache(ctrl)
	cache.EXPECT().Invalidate(gomock.Any()).Return(errors.New("redis down")).Times(1)

	m := newTestManager(t, Config{}, func(string) bounds.Cache { return cache })

	s, err := m.Create(ctx)
	require.NoError(t, err)

	err = m.Delete(ctx, s.ID())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalidate session cache")
	assert.Equal(t, 0, m.Len())
}

func TestManager_SweepExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, Config{IdleTimeout: time.Minute}, nil)

	now := time.Unix(1_700_000_000, 0)
	m.now = func() time.Time { return now }

	idle, err := m.Create(ctx)
	require.NoError(t, err)

	active, err := m.Create(ctx)
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	_, err = m.Get(active.ID())
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	m.sweep(ctx)

	_, err = m.Get(idle.ID())
	assert.True(t, errors.Is(err, ErrSessionNotFound))

	_, err = m.Get(active.ID())
	assert.NoError(t, err)

	_, err = idle.State(ctx, "/camera")
	assert.True(t, errors.Is(err, ErrSessionClosed))
}

func TestManager_StartStop(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, Config{IdleTimeout: time.Nanosecond, SweepInterval: 5 * time.Millisecond}, nil)

	require.NoError(t, m.Start(ctx))

	_, err := m.Create(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)

	s, err := m.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, m.Stop())
	assert.Equal(t, 0, m.Len())

	_, err = s.State(ctx, "/camera")
	assert.True(t, errors.Is(err, ErrSessionClosed))
}

func TestSession_RedisBackedCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	client := redis.NewClient(testutil.NewTestLogger(), redis.Config{
		Address:     mr.Addr(),
		DialTimeout: time.Second,
		PoolSize:    4,
	})
	require.NoError(t, client.Start(ctx))
	t.Cleanup(func() { _ = client.Stop() })

	m := newTestManager(t, Config{}, func(namespace string) bounds.Cache {
		return bounds.NewRedisCache(testutil.NewTestLogger(), bounds.Config{TTL: time.Hour}, client, namespace)
	})

	s, err := m.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Seek(testutil.Sec(4)))

	state, err := s.Previous(ctx, "/camera")
	require.NoError(t, err)
	assert.Equal(t, testutil.Sec(2).Ptr(), state.CurrentTime)
	assert.Equal(t, testutil.Sec(1).Ptr(), state.Boundaries.First)
	assert.True(t, mr.Exists("topicnav:bounds:"+s.ID()+":/camera"))

	require.NoError(t, m.Delete(ctx, s.ID()))
	assert.False(t, mr.Exists("topicnav:bounds:"+s.ID()+":/camera"))
}
