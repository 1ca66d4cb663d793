package ratelimit

import (
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request
	Wait()
	// Reset resets the rate limiter state
	Reset()
}

// FixedInterval enforces a minimum gap between consecutive requests.
// It is the limiter used between download attempts: after every attempt,
// success or failure, the next one waits out the remaining interval.
type FixedInterval struct {
	interval time.Duration
	last     time.Time
	mu       sync.Mutex
}

// NewFixedInterval creates a limiter with the given gap between requests
func NewFixedInterval(interval time.Duration) *FixedInterval {
	return &FixedInterval{interval: interval}
}

// Allow reports whether the interval since the last request has elapsed,
// consuming the slot when it has
func (fi *FixedInterval) Allow() bool {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	now := time.Now()
	if fi.last.IsZero() || now.Sub(fi.last) >= fi.interval {
		fi.last = now
		return true
	}
	return false
}

// Wait blocks until the interval has elapsed, then consumes the slot
func (fi *FixedInterval) Wait() {
	for {
		fi.mu.Lock()
		now := time.Now()
		if fi.last.IsZero() || now.Sub(fi.last) >= fi.interval {
			fi.last = now
			fi.mu.Unlock()
			return
		}
		remaining := fi.interval - now.Sub(fi.last)
		fi.mu.Unlock()

		time.Sleep(remaining)
	}
}

// Reset clears the last-request timestamp so the next request proceeds
// immediately
func (fi *FixedInterval) Reset() {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	fi.last = time.Time{}
}

// TokenBucket implements a token bucket rate limiter for phases that
// tolerate bursts, such as the scroll/load cycle against the origin
type TokenBucket struct {
	capacity     int
	tokens       int
	refillPeriod time.Duration
	lastRefill   time.Time
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait() {
	for !tb.Allow() {
		tb.mu.Lock()
		timeUntilRefill := tb.refillPeriod - time.Since(tb.lastRefill)
		tb.mu.Unlock()

		if timeUntilRefill > 0 {
			time.Sleep(timeUntilRefill)
		} else {
			// Small sleep to prevent busy waiting
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

// refill adds tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	if elapsed >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}
