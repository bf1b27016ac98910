package client

import (
	"context"
	"math/rand"
	"time"
)

// backoffMultiplier grows the delay between consecutive attempts.
const backoffMultiplier = 2.0

// backoffFor returns the delay before the given retry (1-based). The delay
// doubles per retry starting at initial, is capped at max and carries ±20%
// jitter. A zero initial disables the delay.
func backoffFor(retry int, initial, maxBackoff time.Duration, jitter func() float64) time.Duration {
	if initial <= 0 || retry < 1 {
		return 0
	}

	backoff := initial
	for i := 1; i < retry; i++ {
		backoff = time.Duration(float64(backoff) * backoffMultiplier)
		if maxBackoff > 0 && backoff >= maxBackoff {
			break
		}
	}
	if maxBackoff > 0 && backoff > maxBackoff {
		backoff = maxBackoff
	}

	// Add jitter (±20% randomness)
	return time.Duration(float64(backoff) * (0.8 + jitter()*0.4))
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// defaultJitter is the jitter source used outside tests.
func defaultJitter() float64 {
	return rand.Float64()
}
