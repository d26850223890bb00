package bounds

import (
	"context"
	"sync"
)

// Compile-time interface compliance check.
var _ Cache = (*MemoryCache)(nil)

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu     sync.RWMutex
	topics map[string]TopicBoundaries
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		topics: make(map[string]TopicBoundaries),
	}
}

// Get returns the boundaries cached for topic.
func (c *MemoryCache) Get(_ context.Context, topic string) (TopicBoundaries, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.topics[topic]

	return b, ok
}

// Merge fills unknown boundaries of topic under the write lock.
func (c *MemoryCache) Merge(_ context.Context, topic string, partial TopicBoundaries) error {
	if partial.IsEmpty() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.topics[topic] = partial.MergeInto(c.topics[topic])

	return nil
}

// Invalidate drops every cached topic.
func (c *MemoryCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.topics = make(map[string]TopicBoundaries)

	return nil
}

// Len returns the number of cached topics.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.topics)
}
