package port

import (
	"context"
	"time"
)

// RateLimitWindow is the state of one sliding window after an attempt was evaluated.
type RateLimitWindow struct {
	Allowed bool
	Count   int
	Oldest  time.Time
}

// RateLimitStore records attempts in a sliding window. Consume only records the
// attempt when the window still has room.
type RateLimitStore interface {
	Consume(ctx context.Context, key string, limit int, window time.Duration, at time.Time) (RateLimitWindow, error)
}
