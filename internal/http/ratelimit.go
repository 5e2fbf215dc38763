package http

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	// Applies to mutating requests only; see withSecurityHeaders.
	mutationsPerWindow = 60
	rateWindow         = time.Minute
)

// rateLimiter caps mutations per client IP over a fixed window. Counters live
// in memory, which is fine for a single-instance household deployment.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindowState

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

type rateWindowState struct {
	start time.Time
	count int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		windows:     make(map[string]*rateWindowState),
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// allow records a request for the IP and reports whether it fits the window.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w := rl.windows[clientIP]
	if w == nil || now.Sub(w.start) > rateWindow {
		rl.windows[clientIP] = &rateWindowState{start: now, count: 1}
		return true
	}

	w.count++
	if w.count > mutationsPerWindow {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.dropStale()
		case <-rl.stopCleanup:
			return
		}
	}
}

// dropStale forgets IPs whose window expired long ago so the map does not
// grow with every visitor ever seen.
func (rl *rateLimiter) dropStale() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, w := range rl.windows {
		if w.start.Before(cutoff) {
			delete(rl.windows, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}
