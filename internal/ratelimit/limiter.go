// Package ratelimit throttles outgoing requests for one backend-client
// instance. Calls that exceed the allowed rate suspend until the next
// permitted slot; they are never rejected outright.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps a token bucket with optional named sub-buckets (e.g. a
// stricter order-placement budget alongside the general one).
type Limiter struct {
	global   *rate.Limiter
	buckets  sync.Map
	interval time.Duration
	metrics  *metrics
}

type metrics struct {
	total   atomic.Int64
	allowed atomic.Int64
	denied  atomic.Int64
	buckets atomic.Int32
}

// New creates a Limiter permitting one request per interval with a burst of
// one, the fixed-interval throttle most venue APIs document.
func New(interval time.Duration) *Limiter {
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &Limiter{
		global:   rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
		metrics:  &metrics{},
	}
}

// Wait suspends until the limiter allows a request or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	l.metrics.total.Add(1)
	if err := l.global.Wait(ctx); err != nil {
		l.metrics.denied.Add(1)
		return err
	}
	l.metrics.allowed.Add(1)
	return nil
}

// WaitBucket suspends on the named bucket's limiter. Buckets are created on
// demand with the global interval.
func (l *Limiter) WaitBucket(ctx context.Context, bucket string) error {
	l.metrics.total.Add(1)
	if err := l.getBucket(bucket).Wait(ctx); err != nil {
		l.metrics.denied.Add(1)
		return err
	}
	l.metrics.allowed.Add(1)
	return nil
}

// Allow reports whether a request is permitted right now, consuming a slot
// when it is.
func (l *Limiter) Allow() bool {
	l.metrics.total.Add(1)
	ok := l.global.Allow()
	if ok {
		l.metrics.allowed.Add(1)
	} else {
		l.metrics.denied.Add(1)
	}
	return ok
}

// SetInterval changes the global request interval.
func (l *Limiter) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	l.interval = interval
	l.global.SetLimit(rate.Every(interval))
}

// SetBucketInterval changes (or creates) a named bucket's interval.
func (l *Limiter) SetBucketInterval(bucket string, interval time.Duration) {
	if interval <= 0 {
		return
	}
	l.getBucket(bucket).SetLimit(rate.Every(interval))
}

func (l *Limiter) getBucket(bucket string) *rate.Limiter {
	if v, ok := l.buckets.Load(bucket); ok {
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rate.Every(l.interval), 1)
	actual, loaded := l.buckets.LoadOrStore(bucket, limiter)
	if !loaded {
		l.metrics.buckets.Add(1)
	}
	return actual.(*rate.Limiter)
}

// Snapshot is a point-in-time capture of limiter statistics.
type Snapshot struct {
	Total   int64
	Allowed int64
	Denied  int64
	Buckets int32
}

// Metrics returns the current statistics.
func (l *Limiter) Metrics() Snapshot {
	return Snapshot{
		Total:   l.metrics.total.Load(),
		Allowed: l.metrics.allowed.Load(),
		Denied:  l.metrics.denied.Load(),
		Buckets: l.metrics.buckets.Load(),
	}
}
