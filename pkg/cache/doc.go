// Package cache provides a Redis-backed response cache for the sec-api.io
// client.
//
// Extracted filing sections never change once a filing is published, so the
// extractor responses are cached for a fixed TTL rather than by HTTP cache
// headers. The API token is never part of a cache key.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Endpoint:    "/extractor",
//		QueryParams: req.URL.Query(),
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from sec-api.io, then:
//		entry, _ = cache.ResponseToEntry(resp, 24*time.Hour)
//		_ = manager.Set(ctx, key, entry)
//	}
//
// # Metrics
//
//   - secapi_cache_hits_total
//   - secapi_cache_misses_total
//   - secapi_cache_stored_bytes_total
//   - secapi_cache_errors_total{operation}
package cache
