package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/sra-metadata-client/pkg/logging"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultTTL is how long a resolution is kept when no TTL is configured.
const DefaultTTL = time.Hour

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager stores link resolutions in Redis.
type Manager struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewManager creates a cache manager. A non-positive ttl selects DefaultTTL.
func NewManager(redisClient *redis.Client, ttl time.Duration) *Manager {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		redis:  redisClient,
		ttl:    ttl,
		logger: logging.NewLogger("cache"),
	}
}

// TTL returns the lifetime given to new entries.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// NewEntry returns an entry for ids that expires after the manager's TTL.
func (m *Manager) NewEntry(ids []string) *CacheEntry {
	now := time.Now()
	return &CacheEntry{
		IDs:      ids,
		Expires:  now.Add(m.ttl),
		CachedAt: now,
	}
}

// Get returns the stored resolution for key. It returns ErrCacheMiss when
// nothing usable is stored, and ErrInvalidEntry (after evicting the entry)
// when the stored value cannot be decoded or lists no uids.
func (m *Manager) Get(ctx context.Context, key CacheKey) (*CacheEntry, error) {
	data, err := m.redis.Get(ctx, key.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			ResolutionMisses.WithLabelValues(key.LinkName(), "absent").Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, m.evict(ctx, key, err.Error())
	}
	if len(entry.IDs) == 0 {
		return nil, m.evict(ctx, key, "no linked uids")
	}

	if entry.IsExpired() {
		_ = m.Delete(ctx, key)
		ResolutionMisses.WithLabelValues(key.LinkName(), "expired").Inc()
		return nil, ErrCacheMiss
	}

	ResolutionHits.WithLabelValues(key.LinkName()).Inc()
	m.logger.Debug().
		Str("link", key.LinkName()).
		Str("from_uid", key.FromUID()).
		Int("ids", len(entry.IDs)).
		Dur("age", time.Since(entry.CachedAt)).
		Msg("Resolution served from cache")

	return &entry, nil
}

// Set stores a resolution until entry.Expires. Already expired entries are
// dropped silently; entries without uids are rejected.
func (m *Manager) Set(ctx context.Context, key CacheKey, entry *CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}
	if len(entry.IDs) == 0 {
		return fmt.Errorf("%w: %s has no linked uids", ErrInvalidEntry, key)
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := m.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	ResolvedIDs.Observe(float64(len(entry.IDs)))
	return nil
}

// Delete removes a cache entry.
func (m *Manager) Delete(ctx context.Context, key CacheKey) error {
	if err := m.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// evict drops an unusable entry so the next lookup resolves remotely.
func (m *Manager) evict(ctx context.Context, key CacheKey, reason string) error {
	ResolutionMisses.WithLabelValues(key.LinkName(), "corrupt").Inc()
	m.logger.Warn().
		Str("link", key.LinkName()).
		Str("from_uid", key.FromUID()).
		Str("reason", reason).
		Msg("Evicting corrupt resolution entry")

	if err := m.Delete(ctx, key); err != nil {
		m.logger.Warn().Err(err).Str("from_uid", key.FromUID()).Msg("Failed to evict resolution entry")
	}
	return fmt.Errorf("%w: %s: %s", ErrInvalidEntry, key, reason)
}
