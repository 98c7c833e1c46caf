package fetcher

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Clock abstracts time so retry and politeness sleeps can be observed in
// tests without waiting.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the real wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep waits for d or until ctx is done. Non-positive durations return
// immediately.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Rand is a goroutine-safe random source for jitter and pool selection.
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a Rand seeded with seed. Tests use a fixed seed.
func NewRand(seed uint64) *Rand {
	return &Rand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))} //nolint:gosec // jitter, not security
}

// newTimeSeededRand returns a Rand seeded from the wall clock.
func newTimeSeededRand() *Rand {
	return NewRand(uint64(time.Now().UnixNano())) //nolint:gosec // non-negative
}

// IntN returns a random int in [0, n).
func (r *Rand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.IntN(n)
}

// Between returns a uniformly random duration in [lo, hi].
func (r *Rand) Between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + time.Duration(r.r.Int64N(int64(hi-lo)+1))
}

// Jitter returns d scaled by a random factor in [0.5, 1.5).
func (r *Rand) Jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return d/2 + time.Duration(r.r.Int64N(int64(d)))
}

// Pick returns a random element of items, or "" when items is empty.
func (r *Rand) Pick(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[r.IntN(len(items))]
}
