package navigator

import (
	"errors"
	"fmt"

	"github.com/ethpandaops/topicnav/internal/source"
	"github.com/ethpandaops/topicnav/internal/timestamp"
)

// backwardSearch accumulates what backward scans learn.
type backwardSearch struct {
	// target is the latest message seen before the current time.
	target *timestamp.Time
	// first is the earliest message seen before the current time.
	first *timestamp.Time
}

// scanBefore walks [from, current] of the topic, recording messages strictly
// before the current time, and stops at the first one that is not. It reports
// false when the source cannot serve the range.
func (n *Navigator) scanBefore(t *task, from timestamp.Time, kind string, s *backwardSearch) (bool, error) {
	it, ok := n.pipeline.GetBatchIterator(n.topic, source.Range{
		Start: from.Ptr(),
		End:   t.current.Ptr(),
	})
	if !ok {
		return false, nil
	}

	defer it.Close()

	scansTotal.WithLabelValues(kind).Inc()

	for {
		if err := t.ctx.Err(); err != nil {
			return true, err
		}

		res, err := it.Next(t.ctx)
		if errors.Is(err, source.ErrNoMoreResults) {
			return true, nil
		}

		if err != nil {
			return true, fmt.Errorf("read %s scan [%s, %s]: %w", kind, from, t.current, err)
		}

		ts, ok := source.ReceiveTime(res)
		if !ok {
			continue
		}

		if !ts.Before(t.current) {
			return true, nil
		}

		if s.first == nil {
			s.first = ts.Ptr()
		}

		s.target = ts.Ptr()
	}
}
