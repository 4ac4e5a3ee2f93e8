package tei

import (
	"math/rand/v2"
	"time"
)

// MaxRetries is the default attempt budget per request.
const MaxRetries = 3

const (
	backoffBase = 250 * time.Millisecond
	backoffCap  = 5 * time.Second
)

// Backoff doubles from 250ms per attempt (0-indexed), capped at 5s, plus up
// to 50% jitter.
func Backoff(attempt int) time.Duration {
	d := backoffBase << uint(attempt)
	if d <= 0 || d > backoffCap {
		d = backoffCap
	}
	return d + time.Duration(rand.Int64N(int64(d)/2))
}
