// Package source defines the contract between the navigator and the playback
// pipeline that owns the recording: global playback bounds and position,
// playback controls, per-topic statistics and lazy, time-ordered iteration.
package source

//go:generate mockgen -package mocks -destination mocks/mock_source.go github.com/ethpandaops/topicnav/internal/source Pipeline,Controls

import (
	"context"
	"errors"

	"github.com/ethpandaops/topicnav/internal/timestamp"
)

// ErrNoMoreResults is returned by Iterator.Next once the sequence is exhausted.
var ErrNoMoreResults = errors.New("no more results")

// Range bounds an iteration. Both ends are inclusive; a nil end is unbounded.
type Range struct {
	Start *timestamp.Time
	End   *timestamp.Time
}

// Contains reports whether t falls within r.
func (r Range) Contains(t timestamp.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}

	if r.End != nil && t.After(*r.End) {
		return false
	}

	return true
}

// Iterator is a forward-only, finite sequence of results in ascending receive
// time. Next blocks until an element is available, the sequence ends
// (ErrNoMoreResults) or ctx is done.
type Iterator interface {
	Next(ctx context.Context) (Result, error)
	Close() error
}

// BatchSource opens iterators over a topic.
type BatchSource interface {
	// GetBatchIterator returns false when the source cannot currently service
	// the request. Every call yields a fresh sequence.
	GetBatchIterator(topic string, r Range) (Iterator, bool)
}

// TopicStats are advisory per-topic statistics, typically read from an
// indexed summary rather than from iterating the topic.
type TopicStats struct {
	NumMessages      int64           `json:"num_messages"`
	FirstMessageTime *timestamp.Time `json:"first_message_time,omitempty"`
	LastMessageTime  *timestamp.Time `json:"last_message_time,omitempty"`
}

// Controls pauses and repositions playback.
type Controls interface {
	PausePlayback() error
	SeekPlayback(t timestamp.Time) error
}

// Pipeline is the playback pipeline a navigator runs against. Absent values
// are reported as nil.
type Pipeline interface {
	BatchSource

	CurrentTime() *timestamp.Time
	StartTime() *timestamp.Time
	EndTime() *timestamp.Time
	TopicStats() map[string]TopicStats
	// Controls returns nil while playback cannot be controlled.
	Controls() Controls
}
