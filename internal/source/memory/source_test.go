package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/topicnav/internal/source"
	"github.com/ethpandaops/topicnav/internal/timestamp"
)

func ev(topic string, sec int64) source.MessageEvent {
	return source.MessageEvent{Topic: topic, ReceiveTime: timestamp.Time{Sec: sec}}
}

func drain(t *testing.T, it source.Iterator) []timestamp.Time {
	t.Helper()

	var out []timestamp.Time

	for {
		res, err := it.Next(context.Background())
		if errors.Is(err, source.ErrNoMoreResults) {
			return out
		}

		require.NoError(t, err)

		if ts, ok := source.ReceiveTime(res); ok {
			out = append(out, ts)
		}
	}
}

func TestSource_GetBatchIterator(t *testing.T) {
	src := New([]source.MessageEvent{
		ev("/b", 3), ev("/a", 4), ev("/a", 1), ev("/a", 2), ev("/a", 3),
	})

	tests := []struct {
		name     string
		topic    string
		r        source.Range
		expected []timestamp.Time
	}{
		{
			name:     "unbounded returns everything ascending",
			topic:    "/a",
			expected: []timestamp.Time{{Sec: 1}, {Sec: 2}, {Sec: 3}, {Sec: 4}},
		},
		{
			name:     "start is inclusive",
			topic:    "/a",
			r:        source.Range{Start: &timestamp.Time{Sec: 2}},
			expected: []timestamp.Time{{Sec: 2}, {Sec: 3}, {Sec: 4}},
		},
		{
			name:     "end is inclusive",
			topic:    "/a",
			r:        source.Range{Start: &timestamp.Time{Sec: 2}, End: &timestamp.Time{Sec: 3}},
			expected: []timestamp.Time{{Sec: 2}, {Sec: 3}},
		},
		{
			name:  "unknown topic is empty",
			topic: "/missing",
		},
		{
			name:     "other topic",
			topic:    "/b",
			expected: []timestamp.Time{{Sec: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, ok := src.GetBatchIterator(tt.topic, tt.r)
			require.True(t, ok)

			defer it.Close()

			assert.Equal(t, tt.expected, drain(t, it))
		})
	}
}

func TestSource_NotReady(t *testing.T) {
	src := New([]source.MessageEvent{ev("/a", 1)})
	src.SetReady(false)

	it, ok := src.GetBatchIterator("/a", source.Range{})
	assert.False(t, ok)
	assert.Nil(t, it)

	src.SetReady(true)

	_, ok = src.GetBatchIterator("/a", source.Range{})
	assert.True(t, ok)
}

func TestSource_WithStamps(t *testing.T) {
	src := New([]source.MessageEvent{ev("/a", 1), ev("/a", 2)}, WithStamps())

	it, ok := src.GetBatchIterator("/a", source.Range{})
	require.True(t, ok)

	var kinds []string

	for {
		res, err := it.Next(context.Background())
		if errors.Is(err, source.ErrNoMoreResults) {
			break
		}

		require.NoError(t, err)

		switch res.(type) {
		case source.MessageEventResult:
			kinds = append(kinds, "message")
		case source.StampResult:
			kinds = append(kinds, "stamp")
		}
	}

	assert.Equal(t, []string{"message", "stamp", "message", "stamp"}, kinds)
}

func TestSource_CancelledContext(t *testing.T) {
	src := New([]source.MessageEvent{ev("/a", 1)})

	it, ok := src.GetBatchIterator("/a", source.Range{})
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := it.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSource_StatsAndBounds(t *testing.T) {
	src := New([]source.MessageEvent{ev("/a", 5), ev("/a", 2), ev("/b", 9)})

	stats := src.Stats()
	require.Contains(t, stats, "/a")
	assert.Equal(t, int64(2), stats["/a"].NumMessages)
	assert.Equal(t, timestamp.Time{Sec: 2}, *stats["/a"].FirstMessageTime)
	assert.Equal(t, timestamp.Time{Sec: 5}, *stats["/a"].LastMessageTime)

	first, last := src.Bounds()
	assert.Equal(t, timestamp.Time{Sec: 2}, *first)
	assert.Equal(t, timestamp.Time{Sec: 9}, *last)

	assert.Equal(t, []string{"/a", "/b"}, src.Topics())
}
