package usecase

import "time"

const (
	// DefaultCacheTTL is how long parsed record collections stay cached.
	DefaultCacheTTL = time.Hour

	// DefaultSyncConcurrency bounds parallel upserts to the graph database.
	DefaultSyncConcurrency = 8

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

// IdempotencyPending marks a key whose request is still running.
const IdempotencyPending = "processing"
