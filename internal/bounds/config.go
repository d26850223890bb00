package bounds

import "time"

const (
	// BackendMemory keeps boundaries in process memory.
	BackendMemory = "memory"
	// BackendRedis keeps boundaries in Redis.
	BackendRedis = "redis"
)

// Config holds boundary cache configuration.
type Config struct {
	Backend      string
	TTL          time.Duration // Redis TTL per topic entry (0 = no expiration)
	MergeRetries int           // Optimistic transaction attempts per merge
}
