package app

import (
	"sync"
	"time"

	"github.com/dkeye/quizhub/internal/core"
	"github.com/jonboulle/clockwork"
)

// RateLimiter allows at most limit events per client within a sliding interval.
// A non-positive limit disables it.
type RateLimiter struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	history  map[core.ClientID][]time.Time
	limit    int
	interval time.Duration
}

func NewRateLimiter(limit int, interval time.Duration, clock clockwork.Clock) *RateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RateLimiter{
		clock:    clock,
		history:  make(map[core.ClientID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *RateLimiter) Allow(id core.ClientID) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[id]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[id] = fresh
		return false
	}
	rl.history[id] = append(fresh, now)
	return true
}

// Forget drops the history of a departed client.
func (rl *RateLimiter) Forget(id core.ClientID) {
	rl.mu.Lock()
	delete(rl.history, id)
	rl.mu.Unlock()
}
