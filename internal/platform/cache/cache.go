// Package cache provides the seen-topic cache the diagnostic flow uses to
// remember which topics a learner has already answered. Session state itself
// travels with the client, so a replayed request can carry a stale session
// copy; the cache lets the service reject the duplicate answer anyway.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/lindenlearn/mastery-api/internal/domain"
)

// SeenTopics records which topics a learner has answered during a
// diagnostic. Entries expire after the configured TTL; losing them is safe,
// the session payload remains the source of truth.
type SeenTopics interface {
	// MarkSeen records that the learner has answered the topic.
	MarkSeen(ctx context.Context, learner domain.Learner, topicID string) error

	// Seen reports whether the learner has answered the topic.
	Seen(ctx context.Context, learner domain.Learner, topicID string) (bool, error)

	// Reset clears all seen topics for the learner, typically when a new
	// diagnostic starts.
	Reset(ctx context.Context, learner domain.Learner) error
}

// MemorySeenTopics is an in-process SeenTopics for tests and single-node
// deployments without Redis. Expired entries are purged by a sweep that
// piggybacks on MarkSeen at most once per TTL window, so abandoned
// diagnostics never accumulate past one window.
type MemorySeenTopics struct {
	mu        sync.Mutex
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
	// learner key -> topic -> expiry
	entries map[string]map[string]time.Time
}

var _ SeenTopics = (*MemorySeenTopics)(nil)

// NewMemorySeenTopics creates an in-process seen-topic cache with the given
// entry TTL.
func NewMemorySeenTopics(ttl time.Duration) *MemorySeenTopics {
	return &MemorySeenTopics{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]map[string]time.Time),
	}
}

// WithClock overrides the cache's time source. Test hook.
func (c *MemorySeenTopics) WithClock(now func() time.Time) *MemorySeenTopics {
	c.now = now
	return c
}

// MarkSeen implements SeenTopics.MarkSeen
func (c *MemorySeenTopics) MarkSeen(_ context.Context, learner domain.Learner, topicID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.After(c.nextSweep) {
		c.evictExpired(now)
		c.nextSweep = now.Add(c.ttl)
	}

	key := learner.String()
	topics, ok := c.entries[key]
	if !ok {
		topics = make(map[string]time.Time)
		c.entries[key] = topics
	}
	topics[topicID] = now.Add(c.ttl)
	return nil
}

// Seen implements SeenTopics.Seen
func (c *MemorySeenTopics) Seen(_ context.Context, learner domain.Learner, topicID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := learner.String()
	expiry, ok := c.entries[key][topicID]
	if !ok {
		return false, nil
	}
	if c.now().After(expiry) {
		delete(c.entries[key], topicID)
		if len(c.entries[key]) == 0 {
			delete(c.entries, key)
		}
		return false, nil
	}
	return true, nil
}

// Reset implements SeenTopics.Reset
func (c *MemorySeenTopics) Reset(_ context.Context, learner domain.Learner) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, learner.String())
	return nil
}

// evictExpired removes every expired topic and every emptied learner.
// Caller holds the lock.
func (c *MemorySeenTopics) evictExpired(now time.Time) {
	for key, topics := range c.entries {
		for topicID, expiry := range topics {
			if now.After(expiry) {
				delete(topics, topicID)
			}
		}
		if len(topics) == 0 {
			delete(c.entries, key)
		}
	}
}
