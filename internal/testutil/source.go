package testutil

import (
	"context"
	"sync"

	"github.com/ethpandaops/topicnav/internal/source"
	"github.com/ethpandaops/topicnav/internal/timestamp"
)

// Sec returns a whole-second time.
func Sec(sec int64) timestamp.Time {
	return timestamp.Time{Sec: sec}
}

// Millis returns a time expressed in milliseconds.
func Millis(ms int64) timestamp.Time {
	return timestamp.FromNanos(ms * 1_000_000)
}

// Messages builds message events on topic at the given times.
func Messages(topic string, times ...timestamp.Time) []source.MessageEvent {
	events := make([]source.MessageEvent, 0, len(times))
	for _, t := range times {
		events = append(events, source.MessageEvent{Topic: topic, ReceiveTime: t})
	}

	return events
}

// MessageResult wraps a receive time in a message event result.
func MessageResult(t timestamp.Time) source.Result {
	return source.MessageEventResult{MsgEvent: source.MessageEvent{ReceiveTime: t}}
}

// IteratorFunc opens an iterator for a topic and range.
type IteratorFunc func(topic string, r source.Range) (source.Iterator, bool)

// FuncSource is a BatchSource that delegates to a function and records every
// requested range.
type FuncSource struct {
	Open IteratorFunc

	mu     sync.Mutex
	ranges []source.Range
}

// GetBatchIterator records r and delegates to Open.
func (s *FuncSource) GetBatchIterator(topic string, r source.Range) (source.Iterator, bool) {
	s.mu.Lock()
	s.ranges = append(s.ranges, r)
	s.mu.Unlock()

	return s.Open(topic, r)
}

// Ranges returns the ranges requested so far.
func (s *FuncSource) Ranges() []source.Range {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]source.Range(nil), s.ranges...)
}

// FailingIterator yields Results, then fails with Err or, when Panic is set,
// panics with that value.
type FailingIterator struct {
	Results []source.Result
	Err     error
	Panic   any

	pos int
}

// Next yields the next scripted result or the scripted failure.
func (it *FailingIterator) Next(ctx context.Context) (source.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if it.pos < len(it.Results) {
		res := it.Results[it.pos]
		it.pos++

		return res, nil
	}

	if it.Panic != nil {
		panic(it.Panic)
	}

	if it.Err != nil {
		return nil, it.Err
	}

	return nil, source.ErrNoMoreResults
}

// Close is a no-op.
func (it *FailingIterator) Close() error {
	return nil
}

// BlockingIterator blocks its first Next until Release is closed or the
// context is done, then delegates to Inner. Waiting is closed once the first
// Next call is blocked.
type BlockingIterator struct {
	Inner   source.Iterator
	Waiting chan struct{}
	Release chan struct{}

	once sync.Once
}

// NewBlockingIterator wraps inner.
func NewBlockingIterator(inner source.Iterator) *BlockingIterator {
	return &BlockingIterator{
		Inner:   inner,
		Waiting: make(chan struct{}),
		Release: make(chan struct{}),
	}
}

// Next blocks until released, then delegates.
func (it *BlockingIterator) Next(ctx context.Context) (source.Result, error) {
	it.once.Do(func() { close(it.Waiting) })

	select {
	case <-it.Release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return it.Inner.Next(ctx)
}

// Close closes the inner iterator.
func (it *BlockingIterator) Close() error {
	return it.Inner.Close()
}

// BlockFirst wraps src so that the first iterator it opens blocks like a
// BlockingIterator. Later iterators come straight from src.
func BlockFirst(src source.BatchSource) (*FuncSource, *BlockingIterator) {
	blocking := NewBlockingIterator(nil)

	var once sync.Once

	return &FuncSource{Open: func(topic string, r source.Range) (source.Iterator, bool) {
		it, ok := src.GetBatchIterator(topic, r)
		if !ok {
			return nil, false
		}

		first := false
		once.Do(func() { first = true })

		if !first {
			return it, true
		}

		blocking.Inner = it

		return blocking, true
	}}, blocking
}
