package shared

import "time"

// HTTP Server Configuration
const (
	DefaultRequestTimeout  = 30 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultLoadTimeout     = 2 * time.Minute
	DefaultPort            = "8000"
)

// Cache Configuration
const (
	APIKeyCacheTTL    = 1 * time.Minute
	APIKeyLocalTTL    = 30 * time.Second
	APIKeyLocalSize   = 4096
	APIKeyCachePrefix = "v1:classifier:apikey:"
)

// API Configuration
const (
	APIKeyHeader = "X-API-Key"
	MaxBodySize  = "8M"
)
