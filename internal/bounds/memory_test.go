package bounds

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/topicnav/internal/timestamp"
)

func ts(sec int64) *timestamp.Time {
	return &timestamp.Time{Sec: sec}
}

func TestTopicBoundaries_MergeInto(t *testing.T) {
	tests := []struct {
		name     string
		existing TopicBoundaries
		partial  TopicBoundaries
		expected TopicBoundaries
	}{
		{
			name:     "fills empty entry",
			partial:  TopicBoundaries{First: ts(1)},
			expected: TopicBoundaries{First: ts(1)},
		},
		{
			name:     "adds missing side",
			existing: TopicBoundaries{First: ts(1)},
			partial:  TopicBoundaries{Last: ts(9)},
			expected: TopicBoundaries{First: ts(1), Last: ts(9)},
		},
		{
			name:     "never overwrites known side",
			existing: TopicBoundaries{First: ts(1)},
			partial:  TopicBoundaries{First: ts(0), Last: ts(5)},
			expected: TopicBoundaries{First: ts(1), Last: ts(5)},
		},
		{
			name:     "empty partial keeps existing",
			existing: TopicBoundaries{First: ts(1), Last: ts(2)},
			expected: TopicBoundaries{First: ts(1), Last: ts(2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.partial.MergeInto(tt.existing))
		})
	}
}

func TestMemoryCache_Merge(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	_, ok := cache.Get(ctx, "/a")
	assert.False(t, ok)

	require.NoError(t, cache.Merge(ctx, "/a", TopicBoundaries{First: ts(1)}))
	require.NoError(t, cache.Merge(ctx, "/a", TopicBoundaries{Last: ts(9)}))
	require.NoError(t, cache.Merge(ctx, "/a", TopicBoundaries{First: ts(3)}))

	got, ok := cache.Get(ctx, "/a")
	require.True(t, ok)
	assert.Equal(t, TopicBoundaries{First: ts(1), Last: ts(9)}, got)

	require.NoError(t, cache.Merge(ctx, "/b", TopicBoundaries{}))

	_, ok = cache.Get(ctx, "/b")
	assert.False(t, ok, "empty merge must not create an entry")
	assert.Equal(t, 1, cache.Len())
}

func TestMemoryCache_MergeDoesNotAlias(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	first := timestamp.Time{Sec: 1}
	require.NoError(t, cache.Merge(ctx, "/a", TopicBoundaries{First: &first}))

	first.Sec = 100

	got, _ := cache.Get(ctx, "/a")
	assert.Equal(t, int64(1), got.First.Sec)
}

func TestMemoryCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	require.NoError(t, cache.Merge(ctx, "/a", TopicBoundaries{First: ts(1)}))
	require.NoError(t, cache.Invalidate(ctx))

	_, ok := cache.Get(ctx, "/a")
	assert.False(t, ok)
}

func TestMemoryCache_ConcurrentMerges(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			topic := fmt.Sprintf("/t%d", i%5)
			if i%2 == 0 {
				_ = cache.Merge(ctx, topic, TopicBoundaries{First: ts(int64(i))})
			} else {
				_ = cache.Merge(ctx, topic, TopicBoundaries{Last: ts(int64(i))})
			}
		}(i)
	}

	wg.Wait()

	for i := 0; i < 5; i++ {
		got, ok := cache.Get(ctx, fmt.Sprintf("/t%d", i))
		require.True(t, ok)
		assert.NotNil(t, got.First)
		assert.NotNil(t, got.Last)
	}
}
