package bounds

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/topicnav/internal/source"
	"github.com/ethpandaops/topicnav/internal/timestamp"
)

type trigger struct {
	topic      string
	selected   bool
	subscribed bool
}

// Discoverer populates the cache with a topic's first and last message time
// by scanning the whole topic in the background while the topic is selected
// and subscribed.
type Discoverer struct {
	log   logrus.FieldLogger
	src   source.BatchSource
	cache Cache

	mu       sync.Mutex
	state    trigger
	launched bool
	cancel   context.CancelFunc
	stopped  bool
	wg       sync.WaitGroup
}

// NewDiscoverer creates a discoverer writing into cache.
func NewDiscoverer(log logrus.FieldLogger, src source.BatchSource, cache Cache) *Discoverer {
	return &Discoverer{
		log:   log.WithField("component", "bounds_discovery"),
		src:   src,
		cache: cache,
	}
}

// Update re-evaluates whether a scan should run. A scan starts when the
// selection becomes selected and subscribed for a topic that is not cached
// yet. Any change of topic or condition cancels the running scan.
//
// The scan outlives ctx's cancellation (it only inherits its values); it is
// cancelled by later updates or Stop.
func (d *Discoverer) Update(ctx context.Context, topic string, selected, subscribed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	next := trigger{topic: topic, selected: selected, subscribed: subscribed}
	if next == d.state && d.launched {
		return
	}

	d.cancelLocked()
	d.state = next

	if !selected || !subscribed {
		return
	}

	if _, cached := d.cache.Get(ctx, topic); cached {
		return
	}

	scanCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	d.launched = true

	d.wg.Add(1)

	go d.scan(scanCtx, topic)
}

// Wait blocks until no scan is running.
func (d *Discoverer) Wait() {
	d.wg.Wait()
}

// Stop cancels any running scan, waits for it and disables further updates.
func (d *Discoverer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.cancelLocked()
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Discoverer) cancelLocked() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	d.launched = false
}

func (d *Discoverer) scan(ctx context.Context, topic string) {
	defer d.wg.Done()

	log := d.log.WithField("topic", topic)

	// A panicking source fails the scan, not the process. Nothing is cached.
	defer func() {
		if r := recover(); r != nil {
			discoveryScansTotal.WithLabelValues(outcomeError).Inc()
			log.WithField("panic", fmt.Sprint(r)).Warn("Boundary discovery scan panicked")
		}
	}()

	it, ok := d.src.GetBatchIterator(topic, source.Range{})
	if !ok {
		discoveryScansTotal.WithLabelValues(outcomeUnavailable).Inc()

		return
	}

	defer it.Close()

	var first, last *timestamp.Time

	for {
		res, err := it.Next(ctx)
		if errors.Is(err, source.ErrNoMoreResults) {
			break
		}

		if ctx.Err() != nil {
			discoveryScansTotal.WithLabelValues(outcomeCancelled).Inc()

			return
		}

		if err != nil {
			discoveryScansTotal.WithLabelValues(outcomeError).Inc()
			log.WithError(err).Warn("Boundary discovery scan failed")

			return
		}

		ts, ok := source.ReceiveTime(res)
		if !ok {
			continue
		}

		discoveryMessagesScanned.Inc()

		if first == nil {
			first = ts.Ptr()
		}

		last = ts.Ptr()
	}

	if first == nil && last == nil {
		discoveryScansTotal.WithLabelValues(outcomeEmpty).Inc()

		return
	}

	// Hold the lock so a concurrent Update or Stop cannot cancel between the
	// check and the write.
	d.mu.Lock()
	defer d.mu.Unlock()

	if ctx.Err() != nil {
		discoveryScansTotal.WithLabelValues(outcomeCancelled).Inc()

		return
	}

	if err := d.cache.Merge(ctx, topic, TopicBoundaries{First: first, Last: last}); err != nil {
		discoveryScansTotal.WithLabelValues(outcomeError).Inc()
		log.WithError(err).Warn("Failed to store discovered boundaries")

		return
	}

	discoveryScansTotal.WithLabelValues(outcomeCompleted).Inc()

	log.WithFields(logrus.Fields{
		"first": first.String(),
		"last":  last.String(),
	}).Debug("Discovered topic boundaries")
}
