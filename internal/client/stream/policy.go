package stream

import (
	"math"
	"time"
)

// ReconnectPolicy controls how the session reestablishes a closed
// connection. The zero-value-adjacent default (fixed 1 s delay, unlimited
// attempts) matches the behavior of the system this client talks to; the
// knobs exist so deployments can opt into growing delays and a cap.
type ReconnectPolicy struct {
	// Delay is the base wait before the first reconnect attempt.
	Delay time.Duration

	// Backoff multiplies the delay per subsequent attempt. Values below 1
	// are treated as 1 (fixed delay).
	Backoff float64

	// MaxAttempts caps consecutive failed attempts; 0 means retry forever.
	// The counter resets whenever a connection is established.
	MaxAttempts int
}

// DefaultReconnectPolicy retries forever with a fixed 1-second delay.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{Delay: time.Second, Backoff: 1.0}
}

// NextDelay returns the wait before the given 1-based attempt.
func (p ReconnectPolicy) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	backoff := p.Backoff
	if backoff < 1 {
		backoff = 1
	}
	d := float64(p.Delay) * math.Pow(backoff, float64(attempt-1))
	if d > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Exhausted reports whether the given 1-based attempt exceeds the cap.
func (p ReconnectPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt > p.MaxAttempts
}
