package api

import (
	"sync"
	"time"
)

// RateLimiter implements per-account rate limiting of mutating requests
// ARCHITECTURAL DISCOVERY: Per-client state tracking with proper cleanup prevents memory leaks
type RateLimiter struct {
	mu          sync.Mutex
	clients     map[string]*ClientLimit
	limit       int
	window      time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

// ClientLimit tracks rate limiting for a single client
// FUNCTIONAL DISCOVERY: Fixed window reset once per window keeps the limit
// exact without storing individual request times
type ClientLimit struct {
	requestCount int
	windowStart  time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per minute
func NewRateLimiter(limit int) *RateLimiter {
	if limit <= 0 {
		limit = 100
	}
	return &RateLimiter{
		clients: make(map[string]*ClientLimit),
		limit:   limit,
		window:  time.Minute,
		now:     time.Now,
	}
}

// Allow records a request from clientID and reports whether it is within the limit
func (rl *RateLimiter) Allow(clientID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	// TECHNICAL DISCOVERY: Cleanup piggybacks on requests so no extra goroutine is needed
	if now.Sub(rl.lastCleanup) > 5*rl.window {
		rl.cleanup(now)
		rl.lastCleanup = now
	}

	limit, exists := rl.clients[clientID]
	if !exists {
		rl.clients[clientID] = &ClientLimit{
			requestCount: 1,
			windowStart:  now,
		}
		return true
	}

	if now.Sub(limit.windowStart) >= rl.window {
		limit.requestCount = 1
		limit.windowStart = now
		return true
	}

	if limit.requestCount >= rl.limit {
		return false
	}

	limit.requestCount++
	return true
}

// cleanup removes client entries idle for more than five windows
func (rl *RateLimiter) cleanup(now time.Time) {
	for clientID, limit := range rl.clients {
		if now.Sub(limit.windowStart) > 5*rl.window {
			delete(rl.clients, clientID)
		}
	}
}

// Len returns the number of tracked clients
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}
