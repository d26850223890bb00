package navigator

import (
	"github.com/ethpandaops/topicnav/internal/bounds"
	"github.com/ethpandaops/topicnav/internal/timestamp"
	"github.com/ethpandaops/topicnav/internal/window"
)

// previous searches backward through windows of growing size. The first
// window is sized from the topic's message density when statistics exist.
func (n *Navigator) previous(t *task) (string, error) {
	cached, _ := n.cache.Get(t.ctx, n.topic)
	start := n.pipeline.StartTime()

	var search backwardSearch

	for _, windowMs := range window.CreateWindowSizes(n.initialWindowMs(), n.cfg.WindowCount) {
		if window.WouldReachBoundary(t.current, windowMs, cached.First) {
			// The window covers the known first message, so this scan is the
			// last one whether or not it finds a target.
			from := *cached.First
			if start != nil {
				from = timestamp.Max(from, *start)
			}

			if _, err := n.scanBefore(t, from, scanBoundary, &search); err != nil {
				return "", err
			}

			break
		}

		ok, err := n.scanBefore(t, window.SubtractMilliseconds(t.current, windowMs), scanWindow, &search)
		if err != nil {
			return "", err
		}

		if !ok {
			return outcomeUnavailable, nil
		}

		if search.target != nil {
			break
		}
	}

	if search.target == nil && cached.First == nil && start != nil {
		if _, err := n.scanBefore(t, *start, scanFallback, &search); err != nil {
			return "", err
		}
	}

	if search.first != nil {
		if err := n.mergeBoundaries(t, bounds.TopicBoundaries{First: search.first}); err != nil {
			return "", err
		}
	}

	if search.target == nil {
		return outcomeNotFound, nil
	}

	if err := n.seek(t, *search.target); err != nil {
		return "", err
	}

	return outcomeFound, nil
}

func (n *Navigator) initialWindowMs() float64 {
	stats, ok := n.stats()
	if !ok || stats.FirstMessageTime == nil || stats.LastMessageTime == nil {
		return window.DefaultWindowMs
	}

	return window.CalculateOptimalWindowMs(window.OptimalWindowParams{
		NumMessages:            stats.NumMessages,
		FirstMessageTime:       *stats.FirstMessageTime,
		LastMessageTime:        *stats.LastMessageTime,
		TargetMessagesInWindow: n.cfg.TargetMessagesInWindow,
	})
}
