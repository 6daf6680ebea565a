// Package cooldown throttles repeated triggers from the same user.
package cooldown

import (
	"context"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Gate remembers the last allowed trigger per user. A denied check never
// touches the stored timestamp, so the original deadline holds.
type Gate struct {
	mu      sync.Mutex
	window  time.Duration
	clock   Clock
	entries map[string]time.Time
}

func New(window time.Duration) *Gate {
	return &Gate{
		window:  window,
		clock:   realClock{},
		entries: make(map[string]time.Time),
	}
}

func (g *Gate) WithClock(clock Clock) {
	g.clock = clock
}

func (g *Gate) Window() time.Duration {
	return g.window
}

// Allow reports whether userID may trigger now, and how long is left otherwise.
func (g *Gate) Allow(userID string) (bool, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.check(userID, g.clock.Now())
}

func (g *Gate) Record(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[userID] = g.clock.Now()
}

// Take checks userID and, when allowed and record is set, stores the trigger
// under the same lock. Concurrent callers for one user get one success per window.
func (g *Gate) Take(userID string, record bool) (bool, time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	ok, remaining := g.check(userID, now)
	if ok && record {
		g.entries[userID] = now
	}
	return ok, remaining
}

func (g *Gate) check(userID string, now time.Time) (bool, time.Duration) {
	last, ok := g.entries[userID]
	if !ok {
		return true, 0
	}
	elapsed := now.Sub(last)
	if elapsed >= g.window {
		return true, 0
	}
	return false, g.window - elapsed
}

// Sweep drops entries whose window has elapsed and returns how many were removed.
func (g *Gate) Sweep() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	removed := 0
	for userID, last := range g.entries {
		if now.Sub(last) >= g.window {
			delete(g.entries, userID)
			removed++
		}
	}
	return removed
}

func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Run sweeps every interval until ctx is done.
func (g *Gate) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Sweep()
		}
	}
}
