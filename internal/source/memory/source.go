// Package memory implements source.BatchSource over events held in memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ethpandaops/topicnav/internal/source"
	"github.com/ethpandaops/topicnav/internal/timestamp"
)

// Compile-time interface compliance checks.
var (
	_ source.BatchSource = (*Source)(nil)
	_ source.Iterator    = (*iterator)(nil)
)

// Source serves range-bounded iterators over per-topic events sorted by
// receive time.
type Source struct {
	mu     sync.RWMutex
	topics map[string][]source.MessageEvent
	ready  bool
	stamps bool
}

// Option configures a Source.
type Option func(*Source)

// WithStamps interleaves a StampResult after every message event, the way
// streaming sources report read progress.
func WithStamps() Option {
	return func(s *Source) {
		s.stamps = true
	}
}

// New builds a Source from events in any order. Events with equal receive
// times keep their input order.
func New(events []source.MessageEvent, opts ...Option) *Source {
	s := &Source{
		topics: make(map[string][]source.MessageEvent),
		ready:  true,
	}

	for _, opt := range opts {
		opt(s)
	}

	for _, ev := range events {
		s.topics[ev.Topic] = append(s.topics[ev.Topic], ev)
	}

	for topic := range s.topics {
		evs := s.topics[topic]
		sort.SliceStable(evs, func(i, j int) bool {
			return evs[i].ReceiveTime.Before(evs[j].ReceiveTime)
		})
	}

	return s
}

// SetReady toggles whether the source can service iterator requests.
func (s *Source) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ready = ready
}

// Topics returns the topic names held by the source.
func (s *Source) Topics() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.topics))
	for name := range s.topics {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Stats computes per-topic statistics from the held events.
func (s *Source) Stats() map[string]source.TopicStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]source.TopicStats, len(s.topics))

	for name, evs := range s.topics {
		st := source.TopicStats{NumMessages: int64(len(evs))}
		if len(evs) > 0 {
			st.FirstMessageTime = evs[0].ReceiveTime.Ptr()
			st.LastMessageTime = evs[len(evs)-1].ReceiveTime.Ptr()
		}

		stats[name] = st
	}

	return stats
}

// Bounds returns the earliest and latest receive time across all topics.
func (s *Source) Bounds() (first, last *timestamp.Time) {
	for _, st := range s.Stats() {
		if st.FirstMessageTime != nil && (first == nil || st.FirstMessageTime.Before(*first)) {
			first = st.FirstMessageTime
		}

		if st.LastMessageTime != nil && (last == nil || st.LastMessageTime.After(*last)) {
			last = st.LastMessageTime
		}
	}

	return first, last
}

// GetBatchIterator returns an iterator over topic restricted to r.
func (s *Source) GetBatchIterator(topic string, r source.Range) (source.Iterator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.ready {
		return nil, false
	}

	evs := s.topics[topic]

	// Seek to the first event at or after the range start.
	pos := 0
	if r.Start != nil {
		start := *r.Start
		pos = sort.Search(len(evs), func(i int) bool {
			return !evs[i].ReceiveTime.Before(start)
		})
	}

	return &iterator{events: evs, pos: pos, rng: r, stamps: s.stamps}, true
}

type iterator struct {
	events      []source.MessageEvent
	pos         int
	rng         source.Range
	stamps      bool
	stampQueued *timestamp.Time
	closed      bool
}

func (it *iterator) Next(ctx context.Context) (source.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if it.stampQueued != nil {
		stamp := *it.stampQueued
		it.stampQueued = nil

		return source.StampResult{Stamp: stamp}, nil
	}

	if it.closed || it.pos >= len(it.events) {
		return nil, source.ErrNoMoreResults
	}

	ev := it.events[it.pos]
	if !it.rng.Contains(ev.ReceiveTime) {
		it.pos = len(it.events)

		return nil, source.ErrNoMoreResults
	}

	it.pos++

	if it.stamps {
		it.stampQueued = ev.ReceiveTime.Ptr()
	}

	return source.MessageEventResult{MsgEvent: ev}, nil
}

func (it *iterator) Close() error {
	it.closed = true
	it.stampQueued = nil

	return nil
}
