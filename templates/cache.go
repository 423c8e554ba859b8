package templates

import "time"

// TemplatesCache caches the list of active templates so generation does
// not hit the store on every request.
type TemplatesCache interface {
	// Get retrieves cached templates, returns nil on a miss or expiry
	Get() []*Template

	// Set stores templates in cache
	Set(templates []*Template)

	// Invalidate clears the cache, forcing a refresh on next Get
	Invalidate()

	// IsValid returns true if cache has valid data
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL is the time-to-live for cached entries.
	// Zero means no expiration (manual invalidation only).
	TTL time.Duration
}

// DefaultCacheConfig only invalidates on mutations.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}
