package bounds

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/topicnav/internal/source"
	"github.com/ethpandaops/topicnav/internal/source/memory"
	"github.com/ethpandaops/topicnav/internal/testutil"
)

func newRecordingSource(t *testing.T) *memory.Source {
	t.Helper()

	events := append(
		testutil.Messages("/a", testutil.Sec(1), testutil.Sec(2), testutil.Sec(3)),
		testutil.Messages("/b", testutil.Sec(10), testutil.Sec(20))...,
	)

	return memory.New(events, memory.WithStamps())
}

func scanCount(outcome string) float64 {
	return promtestutil.ToFloat64(discoveryScansTotal.WithLabelValues(outcome))
}

func TestDiscoverer_DiscoversBounds(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	before := scanCount(outcomeCompleted)

	d := NewDiscoverer(newTestLogger(), newRecordingSource(t), cache)
	defer d.Stop()

	d.Update(ctx, "/a", true, true)
	d.Wait()

	got, ok := cache.Get(ctx, "/a")
	require.True(t, ok)
	assert.Equal(t, TopicBoundaries{First: ts(1), Last: ts(3)}, got)
	assert.Equal(t, before+1, scanCount(outcomeCompleted))
}

func TestDiscoverer_RequiresSelectionAndSubscription(t *testing.T) {
	tests := []struct {
		name       string
		selected   bool
		subscribed bool
	}{
		{name: "not selected", selected: false, subscribed: true},
		{name: "not subscribed", selected: true, subscribed: false},
		{name: "neither", selected: false, subscribed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cache := NewMemoryCache()
			mem := newRecordingSource(t)
			src := &testutil.FuncSource{Open: mem.GetBatchIterator}

			d := NewDiscoverer(newTestLogger(), src, cache)
			defer d.Stop()

			d.Update(ctx, "/a", tt.selected, tt.subscribed)
			d.Wait()

			assert.Empty(t, src.Ranges())
			assert.Equal(t, 0, cache.Len())
		})
	}
}

func TestDiscoverer_SkipsCachedTopic(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	require.NoError(t, cache.Merge(ctx, "/a", TopicBoundaries{First: ts(1)}))

	mem := newRecordingSource(t)
	src := &testutil.FuncSource{Open: mem.GetBatchIterator}

	d := NewDiscoverer(newTestLogger(), src, cache)
	defer d.Stop()

	d.Update(ctx, "/a", true, true)
	d.Wait()

	assert.Empty(t, src.Ranges())
}

func TestDiscoverer_RepeatedUpdateDoesNotRescan(t *testing.T) {
	ctx := context.Background()
	mem := newRecordingSource(t)
	src := &testutil.FuncSource{Open: mem.GetBatchIterator}

	d := NewDiscoverer(newTestLogger(), src, NewMemoryCache())
	defer d.Stop()

	d.Update(ctx, "/a", true, true)
	d.Update(ctx, "/a", true, true)
	d.Wait()

	require.Len(t, src.Ranges(), 1)
	assert.Equal(t, source.Range{}, src.Ranges()[0])
}

func TestDiscoverer_CancelledScanWritesNothing(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	mem := newRecordingSource(t)
	before := scanCount(outcomeCancelled)

	inner, ok := mem.GetBatchIterator("/a", source.Range{})
	require.True(t, ok)

	blocking := testutil.NewBlockingIterator(inner)
	src := &testutil.FuncSource{Open: func(string, source.Range) (source.Iterator, bool) {
		return blocking, true
	}}

	d := NewDiscoverer(newTestLogger(), src, cache)
	defer d.Stop()

	d.Update(ctx, "/a", true, true)
	testutil.WaitClosed(t, blocking.Waiting, time.Second)

	d.Update(ctx, "/a", true, false)
	d.Wait()

	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, before+1, scanCount(outcomeCancelled))
}

func TestDiscoverer_TopicChangeCancelsScan(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	mem := newRecordingSource(t)

	inner, ok := mem.GetBatchIterator("/a", source.Range{})
	require.True(t, ok)

	blocking := testutil.NewBlockingIterator(inner)
	src := &testutil.FuncSource{Open: func(topic string, r source.Range) (source.Iterator, bool) {
		if topic == "/a" {
			return blocking, true
		}

		return mem.GetBatchIterator(topic, r)
	}}

	d := NewDiscoverer(newTestLogger(), src, cache)
	defer d.Stop()

	d.Update(ctx, "/a", true, true)
	testutil.WaitClosed(t, blocking.Waiting, time.Second)

	d.Update(ctx, "/b", true, true)
	d.Wait()

	_, ok = cache.Get(ctx, "/a")
	assert.False(t, ok)

	got, ok := cache.Get(ctx, "/b")
	require.True(t, ok)
	assert.Equal(t, TopicBoundaries{First: ts(10), Last: ts(20)}, got)
}

func TestDiscoverer_ScanOutlivesCallerContext(t *testing.T) {
	cache := NewMemoryCache()
	mem := newRecordingSource(t)

	inner, ok := mem.GetBatchIterator("/a", source.Range{})
	require.True(t, ok)

	blocking := testutil.NewBlockingIterator(inner)
	src := &testutil.FuncSource{Open: func(string, source.Range) (source.Iterator, bool) {
		return blocking, true
	}}

	d := NewDiscoverer(newTestLogger(), src, cache)
	defer d.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	d.Update(ctx, "/a", true, true)
	testutil.WaitClosed(t, blocking.Waiting, time.Second)

	cancel()
	close(blocking.Release)
	d.Wait()

	got, ok := cache.Get(context.Background(), "/a")
	require.True(t, ok)
	assert.Equal(t, ts(3), got.Last)
}

func TestDiscoverer_Stop(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	mem := newRecordingSource(t)

	inner, ok := mem.GetBatchIterator("/a", source.Range{})
	require.True(t, ok)

	blocking := testutil.NewBlockingIterator(inner)
	src := &testutil.FuncSource{Open: func(string, source.Range) (source.Iterator, bool) {
		return blocking, true
	}}

	d := NewDiscoverer(newTestLogger(), src, cache)

	d.Update(ctx, "/a", true, true)
	testutil.WaitClosed(t, blocking.Waiting, time.Second)

	d.Stop()

	d.Update(ctx, "/b", true, true)
	d.Wait()

	assert.Len(t, src.Ranges(), 1)
	assert.Equal(t, 0, cache.Len())
}

func TestDiscoverer_UnavailableSource(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	mem := newRecordingSource(t)
	mem.SetReady(false)
	before := scanCount(outcomeUnavailable)

	d := NewDiscoverer(newTestLogger(), mem, cache)
	defer d.Stop()

	d.Update(ctx, "/a", true, true)
	d.Wait()

	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, before+1, scanCount(outcomeUnavailable))
}

func TestDiscoverer_EmptyTopic(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	before := scanCount(outcomeEmpty)

	d := NewDiscoverer(newTestLogger(), newRecordingSource(t), cache)
	defer d.Stop()

	d.Update(ctx, "/missing", true, true)
	d.Wait()

	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, before+1, scanCount(outcomeEmpty))
}

func TestDiscoverer_IteratorError(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()
	logger, hook := testutil.NewCapturingLogger()
	before := scanCount(outcomeError)

	src := &testutil.FuncSource{Open: func(string, source.Range) (source.Iterator, bool) {
		return &testutil.FailingIterator{
			Results: []source.Result{testutil.MessageResult(testutil.Sec(1))},
			Err:     errors.New("disk gone"),
		}, true
	}}

	d := NewDiscoverer(logger, src, cache)
	defer d.Stop()

	d.Update(ctx, "/a", true, true)
	d.Wait()

	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, before+1, scanCount(outcomeError))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "Boundary discovery scan failed", entry.Message)
	assert.Equal(t, "/a", entry.Data["topic"])
}

func TestDiscoverer_IteratorPanic(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{name: "error value", value: errors.New("decoder exploded")},
		{name: "plain value", value: "plain value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cache := NewMemoryCache()
			logger, hook := testutil.NewCapturingLogger()
			before := scanCount(outcomeError)

			src := &testutil.FuncSource{Open: func(string, source.Range) (source.Iterator, bool) {
				return &testutil.FailingIterator{
					Results: []source.Result{testutil.MessageResult(testutil.Sec(1))},
					Panic:   tt.value,
				}, true
			}}

			d := NewDiscoverer(logger, src, cache)
			defer d.Stop()

			d.Update(ctx, "/a", true, true)
			d.Wait()

			assert.Equal(t, 0, cache.Len())
			assert.Equal(t, before+1, scanCount(outcomeError))

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, logrus.WarnLevel, entry.Level)
			assert.Equal(t, "Boundary discovery scan panicked", entry.Message)
			assert.Equal(t, "/a", entry.Data["topic"])
			assert.Equal(t, fmt.Sprint(tt.value), entry.Data["panic"])
		})
	}
}
