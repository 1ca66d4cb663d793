// Package retry provides configurable retry logic with pluggable
// backoff strategies. The download phase uses it with a single attempt
// by default; raising the attempt count retries network, rate-limit,
// and server faults while passing everything else through unchanged.
package retry
