package utils

import (
	"context"
	"math/rand"
	"time"
)

// Sleep pauses for roughly the requested number of milliseconds, with a
// uniform ±20% jitter so injected input does not arrive on a perfectly
// regular cadence.
func Sleep(milliseconds int) {
	jitter := 0.8 + rand.Float64()*0.4
	time.Sleep(time.Duration(float64(milliseconds)*jitter) * time.Millisecond)
}

// RandomDurationMs returns a random duration between min and max milliseconds.
func RandomDurationMs(min, max int) time.Duration {
	return time.Duration(rand.Intn(max-min)+min) * time.Millisecond
}

// Wait sleeps for d or until ctx is cancelled, whichever comes first.
// It returns false when the wait was cut short by cancellation.
func Wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
