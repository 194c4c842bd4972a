package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lindenlearn/mastery-api/internal/domain"
)

// RedisSeenTopics is a Redis-backed SeenTopics. Each learner gets one set
// keyed by identity; the whole set expires together so abandoned diagnostics
// clean themselves up.
type RedisSeenTopics struct {
	client *redis.Client
	ttl    time.Duration
}

var _ SeenTopics = (*RedisSeenTopics)(nil)

// NewRedisSeenTopics creates a Redis-backed seen-topic cache.
func NewRedisSeenTopics(client *redis.Client, ttl time.Duration) *RedisSeenTopics {
	if client == nil {
		panic("client cannot be nil")
	}
	return &RedisSeenTopics{client: client, ttl: ttl}
}

// NewRedisClient dials Redis from a URL (redis://...) and verifies the
// connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func seenKey(learner domain.Learner) string {
	return "diagnostic:seen:" + learner.String()
}

// MarkSeen implements SeenTopics.MarkSeen
func (c *RedisSeenTopics) MarkSeen(ctx context.Context, learner domain.Learner, topicID string) error {
	key := seenKey(learner)
	pipe := c.client.TxPipeline()
	pipe.SAdd(ctx, key, topicID)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark topic seen: %w", err)
	}
	return nil
}

// Seen implements SeenTopics.Seen
func (c *RedisSeenTopics) Seen(ctx context.Context, learner domain.Learner, topicID string) (bool, error) {
	seen, err := c.client.SIsMember(ctx, seenKey(learner), topicID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check seen topic: %w", err)
	}
	return seen, nil
}

// Reset implements SeenTopics.Reset
func (c *RedisSeenTopics) Reset(ctx context.Context, learner domain.Learner) error {
	if err := c.client.Del(ctx, seenKey(learner)).Err(); err != nil {
		return fmt.Errorf("failed to reset seen topics: %w", err)
	}
	return nil
}
