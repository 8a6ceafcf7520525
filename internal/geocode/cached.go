package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cached decorates a Resolver with a Redis cache. Imported batches resolve the
// same city/state text repeatedly; caching keeps the external collaborator out
// of the hot path. Cache failures degrade to a direct resolve.
type Cached struct {
	next   Resolver
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCached(next Resolver, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{next: next, client: client, ttl: ttl, logger: logger}
}

func cacheKey(addressText string) string {
	return "geocode:" + addressText
}

func (c *Cached) Resolve(ctx context.Context, addressText string) (Result, error) {
	raw, err := c.client.Get(ctx, cacheKey(addressText)).Bytes()
	if err == nil {
		var cached Result
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "geocode cache read failed", "error", err)
	}

	result, err := c.next.Resolve(ctx, addressText)
	if err != nil {
		return Result{}, err
	}

	if raw, jsonErr := json.Marshal(result); jsonErr == nil {
		if setErr := c.client.Set(ctx, cacheKey(addressText), raw, c.ttl).Err(); setErr != nil {
			c.logger.WarnContext(ctx, "geocode cache write failed", "error", setErr)
		}
	}
	return result, nil
}
