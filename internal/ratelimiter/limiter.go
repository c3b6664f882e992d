// Copyright 2023 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package ratelimiter provides the token-bucket rate limiter that the record
// File Writer optionally consults before every sink write. RequestToken
// grants partial requests: callers must be prepared to receive fewer bytes
// than requested and loop.
package ratelimiter

import (
	"sync"
	"time"

	"github.com/cockroachdb/tokenbucket"
)

// A Limiter controls how frequently bytes may be written to a sink. It
// implements a token bucket of size burst, initially full and refilled at
// rate bytesPerSecond.
//
// Limiter is safe for concurrent use, since a rate limiter is typically
// shared across more writers than the single log writer that owns it.
type Limiter struct {
	mu struct {
		sync.Mutex
		tb    tokenbucket.TokenBucket
		rate  float64
		burst float64
	}
	sleepFn func(d time.Duration)
}

// NewLimiter returns a new Limiter that allows writes up to rate
// bytesPerSecond, with bursts of at most burst bytes.
func NewLimiter(bytesPerSecond, burst float64) *Limiter {
	l := &Limiter{}
	l.mu.tb.Init(tokenbucket.TokensPerSecond(bytesPerSecond), tokenbucket.Tokens(burst))
	l.mu.rate = bytesPerSecond
	l.mu.burst = burst
	return l
}

// NewLimiterWithCustomTime is like NewLimiter but lets tests substitute the
// clock and the sleep function.
func NewLimiterWithCustomTime(
	bytesPerSecond, burst float64, nowFn func() time.Time, sleepFn func(d time.Duration),
) *Limiter {
	l := &Limiter{}
	l.mu.tb.InitWithNowFn(tokenbucket.TokensPerSecond(bytesPerSecond), tokenbucket.Tokens(burst), nowFn)
	l.mu.rate = bytesPerSecond
	l.mu.burst = burst
	l.sleepFn = sleepFn
	return l
}

func (l *Limiter) sleep(d time.Duration) {
	if l.sleepFn != nil {
		l.sleepFn(d)
		return
	}
	time.Sleep(d)
}

// Wait blocks until n bytes of budget are available. If n is greater than
// the burst size, the bucket goes into debt, delaying future calls.
func (l *Limiter) Wait(n float64) {
	for {
		l.mu.Lock()
		ok, d := l.mu.tb.TryToFulfill(tokenbucket.Tokens(n))
		l.mu.Unlock()
		if ok {
			return
		}
		l.sleep(d)
	}
}

// RequestToken requests permission to write up to bytes bytes, optionally
// aligned to alignment (pass 0 or 1 for no alignment requirement). It
// returns the number of bytes actually authorized, which may be less than
// requested -- callers (File Writer's write drivers) must loop, issuing
// additional requests for the remainder. A nil Limiter authorizes the full
// request immediately, matching the "rate limiter is optional" contract.
func (l *Limiter) RequestToken(bytes int64, alignment int) int64 {
	if l == nil || bytes <= 0 {
		return bytes
	}

	l.mu.Lock()
	burst := l.mu.burst
	l.mu.Unlock()

	allowed := bytes
	if burst > 0 && float64(allowed) > burst {
		allowed = int64(burst)
	}
	if alignment > 1 && allowed > int64(alignment) {
		allowed -= allowed % int64(alignment)
	}
	if allowed <= 0 {
		allowed = bytes
	}

	l.Wait(float64(allowed))
	return allowed
}

// Rate returns the current rate limit in bytes per second.
func (l *Limiter) Rate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mu.rate
}

// SetRate updates the rate limit.
func (l *Limiter) SetRate(bytesPerSecond float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mu.tb.UpdateConfig(tokenbucket.TokensPerSecond(bytesPerSecond), tokenbucket.Tokens(l.mu.burst))
	l.mu.rate = bytesPerSecond
}
