// Package navigator moves playback to the next or previous message of a
// topic over sources that only offer forward, range-bounded iteration.
package navigator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/topicnav/internal/bounds"
	"github.com/ethpandaops/topicnav/internal/source"
	"github.com/ethpandaops/topicnav/internal/timestamp"
	"github.com/ethpandaops/topicnav/internal/window"
)

const (
	directionNext     = "next"
	directionPrevious = "previous"
)

// errSuperseded is reported by a task once a newer navigation took over.
var errSuperseded = errors.New("navigation superseded")

// Config tunes navigation.
type Config struct {
	// TargetMessagesInWindow is the number of messages the first backward
	// window aims to contain when density statistics exist.
	TargetMessagesInWindow int
	// WindowCount is the number of backward windows tried.
	WindowCount int
	// ScanTimeout bounds a whole navigation. Zero means no deadline.
	ScanTimeout time.Duration
	// SupersedeInFlight makes a new navigation cancel the running one. When
	// false, navigation requests are ignored while one is running.
	SupersedeInFlight bool
}

// DefaultConfig returns the default navigation settings.
func DefaultConfig() Config {
	return Config{
		TargetMessagesInWindow: window.DefaultTargetMessages,
		WindowCount:            window.DefaultCount,
		SupersedeInFlight:      true,
	}
}

// State is a snapshot of a navigator for one topic.
type State struct {
	Topic               string                 `json:"topic"`
	CurrentTime         *timestamp.Time        `json:"current_time,omitempty"`
	IsNavigating        bool                   `json:"is_navigating"`
	CanNavigateNext     bool                   `json:"can_navigate_next"`
	CanNavigatePrevious bool                   `json:"can_navigate_previous"`
	Boundaries          bounds.TopicBoundaries `json:"boundaries"`
}

// Navigator navigates one topic of a pipeline. At most one navigation is live
// at a time; starting another one cancels it.
type Navigator struct {
	log        logrus.FieldLogger
	cfg        Config
	pipeline   source.Pipeline
	cache      bounds.Cache
	topic      string
	discoverer *bounds.Discoverer

	mu         sync.Mutex
	navigating bool
	generation uint64
	cancel     context.CancelFunc
	closed     bool

	// effectMu serialises cache merges and seeks. It is taken before mu and
	// held across the effect, so mu stays free for state reads and for a
	// superseding navigation to start.
	effectMu sync.Mutex
}

// New creates a navigator for topic. The cache may be shared by navigators of
// the same pipeline.
func New(
	log logrus.FieldLogger,
	cfg Config,
	pipeline source.Pipeline,
	cache bounds.Cache,
	topic string,
) *Navigator {
	log = log.WithFields(logrus.Fields{
		"component": "navigator",
		"topic":     topic,
	})

	return &Navigator{
		log:        log,
		cfg:        cfg,
		pipeline:   pipeline,
		cache:      cache,
		topic:      topic,
		discoverer: bounds.NewDiscoverer(log, pipeline, cache),
	}
}

// Topic returns the navigated topic.
func (n *Navigator) Topic() string {
	return n.topic
}

// IsNavigating reports whether a navigation is running.
func (n *Navigator) IsNavigating() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.navigating
}

// CanNavigateNext reports whether a later message may exist. Per-topic
// statistics take precedence over cached boundaries, which take precedence
// over the playback end.
func (n *Navigator) CanNavigateNext(ctx context.Context) bool {
	current := n.pipeline.CurrentTime()
	if current == nil {
		return false
	}

	end := n.pipeline.EndTime()
	cached, _ := n.cache.Get(ctx, n.topic)

	last := end
	if cached.Last != nil {
		last = cached.Last
	}

	if stats, ok := n.stats(); ok && stats.LastMessageTime != nil {
		last = stats.LastMessageTime
	}

	if last == nil {
		return false
	}

	if end != nil && !current.Before(*end) {
		return false
	}

	return current.Before(*last)
}

// CanNavigatePrevious reports whether an earlier message may exist, resolving
// the first boundary like CanNavigateNext resolves the last one.
func (n *Navigator) CanNavigatePrevious(ctx context.Context) bool {
	current := n.pipeline.CurrentTime()
	if current == nil {
		return false
	}

	start := n.pipeline.StartTime()
	cached, _ := n.cache.Get(ctx, n.topic)

	first := start
	if cached.First != nil {
		first = cached.First
	}

	if stats, ok := n.stats(); ok && stats.FirstMessageTime != nil {
		first = stats.FirstMessageTime
	}

	if first == nil {
		return false
	}

	if start != nil && !current.After(*start) {
		return false
	}

	return current.After(*first)
}

// State returns a snapshot for presentation.
func (n *Navigator) State(ctx context.Context) State {
	cached, _ := n.cache.Get(ctx, n.topic)

	return State{
		Topic:               n.topic,
		CurrentTime:         n.pipeline.CurrentTime(),
		IsNavigating:        n.IsNavigating(),
		CanNavigateNext:     n.CanNavigateNext(ctx),
		CanNavigatePrevious: n.CanNavigatePrevious(ctx),
		Boundaries:          cached,
	}
}

// UpdateSelection reports whether the topic is selected and subscribed, which
// drives background boundary discovery.
func (n *Navigator) UpdateSelection(ctx context.Context, selected, subscribed bool) {
	n.discoverer.Update(ctx, n.topic, selected, subscribed)
}

// WaitDiscovery blocks until no boundary discovery scan is running.
func (n *Navigator) WaitDiscovery() {
	n.discoverer.Wait()
}

// Close cancels the running navigation and discovery. Later navigation
// requests are ignored.
func (n *Navigator) Close() {
	n.mu.Lock()
	n.closed = true
	n.generation++

	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}

	n.navigating = false
	n.mu.Unlock()

	// Wait out an effect that was already running when the navigator closed.
	n.effectMu.Lock()
	n.effectMu.Unlock() //nolint:staticcheck // barrier

	n.discoverer.Stop()
}

// HandleNext seeks playback to the first message of the topic after the
// current time. Failures are logged, never returned.
func (n *Navigator) HandleNext(ctx context.Context) {
	n.handle(ctx, directionNext, n.next)
}

// HandlePrevious seeks playback to the last message of the topic before the
// current time. Failures are logged, never returned.
func (n *Navigator) HandlePrevious(ctx context.Context) {
	n.handle(ctx, directionPrevious, n.previous)
}

// task is one navigation. Its generation identifies it among the navigations
// started by the same navigator.
type task struct {
	ctx       context.Context
	gen       uint64
	direction string
	current   timestamp.Time
	controls  source.Controls
}

func (n *Navigator) handle(ctx context.Context, direction string, run func(*task) (string, error)) {
	current := n.pipeline.CurrentTime()
	controls := n.pipeline.Controls()

	if current == nil || controls == nil {
		navigationsTotal.WithLabelValues(direction, outcomeSkipped).Inc()

		return
	}

	t, ok := n.begin(ctx, direction, *current, controls)
	if !ok {
		navigationsTotal.WithLabelValues(direction, outcomeSkipped).Inc()

		return
	}

	started := time.Now()
	outcome, err := n.run(t, run)

	n.finish(t, outcome, err)
	navigationDuration.WithLabelValues(direction).Observe(time.Since(started).Seconds())
}

// begin starts a task, cancelling the previous one before returning.
func (n *Navigator) begin(
	ctx context.Context,
	direction string,
	current timestamp.Time,
	controls source.Controls,
) (*task, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, false
	}

	if n.navigating && !n.cfg.SupersedeInFlight {
		return nil, false
	}

	if n.cancel != nil {
		n.cancel()
	}

	var (
		taskCtx context.Context
		cancel  context.CancelFunc
	)

	if n.cfg.ScanTimeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, n.cfg.ScanTimeout)
	} else {
		taskCtx, cancel = context.WithCancel(ctx)
	}

	n.generation++
	n.cancel = cancel
	n.navigating = true

	return &task{
		ctx:       taskCtx,
		gen:       n.generation,
		direction: direction,
		current:   current,
		controls:  controls,
	}, true
}

// run executes fn, turning panics into errors.
func (n *Navigator) run(t *task, fn func(*task) (string, error)) (outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", rerr)
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()

	return fn(t)
}

func (n *Navigator) finish(t *task, outcome string, err error) {
	n.mu.Lock()
	superseded := t.gen != n.generation

	if !superseded {
		n.navigating = false

		if n.cancel != nil {
			n.cancel()
			n.cancel = nil
		}
	}
	n.mu.Unlock()

	log := n.log.WithField("direction", t.direction)

	switch {
	case superseded || errors.Is(err, errSuperseded):
		outcome = outcomeSuperseded
	case errors.Is(err, context.Canceled):
		outcome = outcomeCancelled

		log.Debug("Navigation cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		outcome = outcomeTimeout

		log.WithField("timeout", n.cfg.ScanTimeout).Warn("Navigation timed out")
	case err != nil:
		outcome = outcomeError

		log.WithError(err).Warn("Failed to navigate")
	}

	navigationsTotal.WithLabelValues(t.direction, outcome).Inc()
}

// effect runs fn only while t is the live navigation. Effects never overlap,
// so an effect of a superseded task that was already running completes before
// the superseding task's first effect.
func (n *Navigator) effect(t *task, fn func() error) error {
	n.effectMu.Lock()
	defer n.effectMu.Unlock()

	if err := n.live(t); err != nil {
		return err
	}

	return fn()
}

// live reports errSuperseded or the task's context error once t may no
// longer act.
func (n *Navigator) live(t *task) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if t.gen != n.generation || n.closed {
		return errSuperseded
	}

	return t.ctx.Err()
}

// mergeBoundaries records newly learned boundaries. Known boundaries are
// never replaced.
func (n *Navigator) mergeBoundaries(t *task, partial bounds.TopicBoundaries) error {
	return n.effect(t, func() error {
		if err := n.cache.Merge(t.ctx, n.topic, partial); err != nil {
			return fmt.Errorf("merge boundaries: %w", err)
		}

		return nil
	})
}

// seek pauses playback, then moves it to target.
func (n *Navigator) seek(t *task, target timestamp.Time) error {
	return n.effect(t, func() error {
		if err := t.controls.PausePlayback(); err != nil {
			return fmt.Errorf("pause playback: %w", err)
		}

		if err := t.controls.SeekPlayback(target); err != nil {
			return fmt.Errorf("seek playback to %s: %w", target, err)
		}

		n.log.WithFields(logrus.Fields{
			"direction": t.direction,
			"from":      t.current.String(),
			"to":        target.String(),
		}).Debug("Navigated")

		return nil
	})
}

func (n *Navigator) stats() (source.TopicStats, bool) {
	all := n.pipeline.TopicStats()
	if all == nil {
		return source.TopicStats{}, false
	}

	stats, ok := all[n.topic]

	return stats, ok
}
