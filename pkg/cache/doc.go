// Package cache stores E-utilities link resolutions in Redis.
//
// Resolving a BioProject into its SRA uids is a separate elink round trip
// whose answer changes rarely, so the fetcher keeps it for a configurable
// TTL. Experiment packages themselves are never cached: they are streamed
// once and reconciled against the batch that requested them.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient, time.Hour)
//
//	key := cache.LinkKey("bioproject_sra", "12345")
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// resolve with elink, then:
//		_ = manager.Set(ctx, key, manager.NewEntry(ids))
//	}
//
// # Metrics
//
//   - sra_cache_hits_total{link} - Resolutions served from cache
//   - sra_cache_misses_total{link,reason} - Absent, expired or corrupt entries
//   - sra_cache_resolved_ids - Uids per stored resolution
//   - sra_cache_errors_total{operation} - Redis failures
//
// An entry that cannot be decoded, or that holds no uids, is evicted on read.
// Empty resolutions are never stored. A cache failure never fails a fetch;
// callers log it and resolve remotely.
package cache
