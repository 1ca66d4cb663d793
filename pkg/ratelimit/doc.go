// Package ratelimit provides rate limiting for requests against the
// gallery origin and its asset CDN.
//
// Available Implementations:
//
// Fixed Interval:
//   - Enforces a minimum gap between consecutive requests
//   - Used between download attempts (the inter-download delay)
//
// Token Bucket:
//   - Fixed capacity bucket that refills after a specified period
//   - Suitable for burst traffic followed by quiet periods
//
// All rate limiters implement the Limiter interface:
//   - Allow() bool - Check if a request is allowed
//   - Wait() - Block until a request is allowed
//   - Reset() - Reset the limiter state
//
// Usage:
//
//	// One download per second, enforced after every attempt
//	limiter := ratelimit.NewFixedInterval(time.Second)
//	limiter.Wait()
//	// Proceed with request
package ratelimit
