// Package ratelimit paces requests to the target.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter throttles requests. A nil *Limiter never blocks, so callers can
// hold one unconditionally.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter allows requestsPerSecond with the given burst. A rate <= 0
// yields nil.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// NewDelay spaces requests at least delay apart. A delay <= 0 yields nil.
func NewDelay(delay time.Duration) *Limiter {
	if delay <= 0 {
		return nil
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until a request is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may go now without blocking.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}

// SetRate updates the rate limit.
func (l *Limiter) SetRate(requestsPerSecond float64, burst int) {
	if l == nil {
		return
	}
	l.limiter.SetLimit(rate.Limit(requestsPerSecond))
	l.limiter.SetBurst(burst)
}

// Stats returns rate limiter statistics.
func (l *Limiter) Stats() LimiterStats {
	if l == nil {
		return LimiterStats{Unlimited: true}
	}
	return LimiterStats{
		Rate:  float64(l.limiter.Limit()),
		Burst: l.limiter.Burst(),
	}
}

// LimiterStats contains rate limiter statistics.
type LimiterStats struct {
	Rate      float64 `json:"rate"`
	Burst     int     `json:"burst"`
	Unlimited bool    `json:"unlimited"`
}
