package navigator

import (
	"errors"
	"fmt"

	"github.com/ethpandaops/topicnav/internal/bounds"
	"github.com/ethpandaops/topicnav/internal/source"
	"github.com/ethpandaops/topicnav/internal/timestamp"
)

// next reads forward from the current time. Besides the candidate it reads at
// most one more message, which tells whether the candidate is the topic's last.
func (n *Navigator) next(t *task) (string, error) {
	it, ok := n.pipeline.GetBatchIterator(n.topic, source.Range{Start: t.current.Ptr()})
	if !ok {
		return outcomeUnavailable, nil
	}

	defer it.Close()

	scansTotal.WithLabelValues(scanForward).Inc()

	var (
		candidate *timestamp.Time
		isLast    = true
	)

	for {
		if err := t.ctx.Err(); err != nil {
			return "", err
		}

		res, err := it.Next(t.ctx)
		if errors.Is(err, source.ErrNoMoreResults) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("read forward from %s: %w", t.current, err)
		}

		ts, ok := source.ReceiveTime(res)
		if !ok || !ts.After(t.current) {
			continue
		}

		if candidate != nil {
			isLast = false

			break
		}

		candidate = ts.Ptr()
	}

	if candidate == nil {
		// Nothing after the current time: it is the best known end of the topic.
		if err := n.mergeBoundaries(t, bounds.TopicBoundaries{Last: t.current.Ptr()}); err != nil {
			return "", err
		}

		return outcomeNotFound, nil
	}

	if isLast {
		if err := n.mergeBoundaries(t, bounds.TopicBoundaries{Last: candidate}); err != nil {
			return "", err
		}
	}

	if err := n.seek(t, *candidate); err != nil {
		return "", err
	}

	return outcomeFound, nil
}
