//nolint:tagliatelle // superior snake-case yo.
package bounds

//go:generate mockgen -package mocks -destination mocks/mock_cache.go github.com/ethpandaops/topicnav/internal/bounds Cache

import (
	"context"

	"github.com/ethpandaops/topicnav/internal/timestamp"
)

// TopicBoundaries holds the earliest and latest message time known for a
// topic. Either side may be unknown.
type TopicBoundaries struct {
	First *timestamp.Time `json:"first,omitempty"`
	Last  *timestamp.Time `json:"last,omitempty"`
}

// IsEmpty reports whether neither boundary is known.
func (b TopicBoundaries) IsEmpty() bool {
	return b.First == nil && b.Last == nil
}

// MergeInto fills the fields of existing that are unknown with the ones known
// in b. Known fields of existing are never replaced.
func (b TopicBoundaries) MergeInto(existing TopicBoundaries) TopicBoundaries {
	merged := existing

	if merged.First == nil && b.First != nil {
		merged.First = b.First.Ptr()
	}

	if merged.Last == nil && b.Last != nil {
		merged.Last = b.Last.Ptr()
	}

	return merged
}

// Cache maps topic names to their known boundaries.
type Cache interface {
	// Get returns the boundaries cached for topic, if any.
	Get(ctx context.Context, topic string) (TopicBoundaries, bool)
	// Merge atomically fills the unknown boundaries of topic with those in partial.
	Merge(ctx context.Context, topic string, partial TopicBoundaries) error
	// Invalidate drops every cached topic.
	Invalidate(ctx context.Context) error
}
