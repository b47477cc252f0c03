package directory

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"dcatwiz/internal/logging"
)

// Lister is the subset of Client the cache needs.
type Lister interface {
	List(ctx context.Context) ([]Publisher, error)
}

// Cache keeps the publisher directory in memory with a soft TTL: when the
// cached copy is stale it is refreshed in the foreground, but a failed
// refresh falls back to the stale copy rather than failing the caller.
type Cache struct {
	lister Lister
	ttl    time.Duration
	logger *slog.Logger
	clock  func() time.Time

	mu        sync.Mutex
	entries   []Publisher
	fetchedAt time.Time
}

// NewCache wraps a lister with a TTL cache.
func NewCache(lister Lister, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cache{
		lister: lister,
		ttl:    ttl,
		logger: logger.With(logging.FieldComponent, "directory-cache"),
		clock:  time.Now,
	}
}

// Publishers returns the directory, refreshing it when the cached copy is
// older than the TTL or when forceRefresh is set. A refresh failure returns
// the stale copy when one exists.
func (c *Cache) Publishers(ctx context.Context, forceRefresh bool) ([]Publisher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	fresh := c.entries != nil && now.Sub(c.fetchedAt) < c.ttl
	if fresh && !forceRefresh {
		return clonePublishers(c.entries), nil
	}

	entries, err := c.lister.List(ctx)
	if err != nil {
		if c.entries != nil {
			c.logger.Warn("directory refresh failed, serving stale copy",
				"error", err,
				"age", now.Sub(c.fetchedAt).Round(time.Second).String())
			return clonePublishers(c.entries), nil
		}
		return nil, err
	}

	c.entries = entries
	c.fetchedAt = now
	c.logger.Debug("directory refreshed", "publishers", len(entries))
	return clonePublishers(entries), nil
}

// FindByID looks up a publisher by identifier, case-insensitively.
func (c *Cache) FindByID(ctx context.Context, id string) (Publisher, bool, error) {
	publishers, err := c.Publishers(ctx, false)
	if err != nil {
		return Publisher{}, false, err
	}
	for _, pub := range publishers {
		if strings.EqualFold(pub.ID, id) {
			return pub, true, nil
		}
	}
	return Publisher{}, false, nil
}

func clonePublishers(entries []Publisher) []Publisher {
	out := make([]Publisher, len(entries))
	copy(out, entries)
	return out
}
