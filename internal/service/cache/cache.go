package cache

import "time"

// BytesCache stores serialized response payloads with a TTL. The score
// endpoint uses it to serve repeat quote lookups without re-running the
// forecast pipeline.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
