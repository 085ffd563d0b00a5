// Package cache defines the byte cache used for server-side session
// payloads and rate-limit counters, with in-process and Redis backends.
package cache

import "time"

// Cache is a minimal TTL'd byte cache.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}
