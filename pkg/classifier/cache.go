package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/talakunchi/chatguard/pkg/interfaces"
	"github.com/talakunchi/chatguard/pkg/logging"
)

// Cached decorates a classifier with a redis score cache. Scanners are
// deterministic functions of their input text, so a score for identical text
// can be reused. Cache faults are soft: the backend is consulted and the
// exchange proceeds.
type Cached struct {
	backend interfaces.Classifier
	client  *redis.Client
	ttl     time.Duration
	logger  logging.Logger
}

// CacheOption represents an option for configuring the cache
type CacheOption func(*Cached)

// WithTTL sets how long cached scores live
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cached) {
		c.ttl = ttl
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger logging.Logger) CacheOption {
	return func(c *Cached) {
		c.logger = logger
	}
}

// NewCached wraps backend with a redis score cache
func NewCached(backend interfaces.Classifier, client *redis.Client, options ...CacheOption) *Cached {
	c := &Cached{
		backend: backend,
		client:  client,
		ttl:     time.Hour,
		logger:  logging.New(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Score implements interfaces.Classifier
func (c *Cached) Score(ctx context.Context, text string) (float64, error) {
	key := c.key(text)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		if score, parseErr := strconv.ParseFloat(cached, 64); parseErr == nil {
			return score, nil
		}
	} else if err != redis.Nil {
		c.logger.Warn(ctx, "Score cache read failed", map[string]interface{}{
			"classifier": c.backend.Name(),
			"error":      err.Error(),
		})
	}

	score, err := c.backend.Score(ctx, text)
	if err != nil {
		return 0, err
	}

	if setErr := c.client.Set(ctx, key, strconv.FormatFloat(score, 'f', -1, 64), c.ttl).Err(); setErr != nil {
		c.logger.Warn(ctx, "Score cache write failed", map[string]interface{}{
			"classifier": c.backend.Name(),
			"error":      setErr.Error(),
		})
	}

	return score, nil
}

// Name implements interfaces.Classifier
func (c *Cached) Name() string {
	return c.backend.Name()
}

// key hashes the text so that raw content never appears in redis
func (c *Cached) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("chatguard:score:%s:%s", c.backend.Name(), hex.EncodeToString(sum[:]))
}
