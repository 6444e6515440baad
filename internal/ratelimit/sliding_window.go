package ratelimit

import (
	"context"
	"sync"
	"time"
)

// SlidingWindow is the in-process limiter.  Each key owns a bucket with its
// own mutex, so requests for different keys never contend beyond the brief
// bucket lookup.  The clock must carry a monotonic reading; time.Now does.
type SlidingWindow struct {
	limit  int
	window time.Duration
	retry  time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	mu     sync.Mutex
	events []time.Time // admitted request times, oldest first
	dead   bool        // removed by Sweep; callers must look the key up again
}

// NewSlidingWindow builds a limiter admitting limit requests per window.
// RetryAfter on rejections is the fixed hint retry.
func NewSlidingWindow(limit int, window, retry time.Duration, now func() time.Time) *SlidingWindow {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if retry <= 0 {
		retry = window
	}
	if now == nil {
		now = time.Now
	}
	return &SlidingWindow{
		limit:   limit,
		window:  window,
		retry:   retry,
		now:     now,
		buckets: make(map[string]*bucket),
	}
}

func (w *SlidingWindow) bucketFor(key string) *bucket {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.buckets[key]
	if !ok {
		b = &bucket{}
		w.buckets[key] = b
	}
	return b
}

// Allow evicts timestamps older than now-window, then admits the request
// if fewer than limit remain.
func (w *SlidingWindow) Allow(_ context.Context, key string) (Decision, error) {
	var b *bucket
	for {
		b = w.bucketFor(key)
		b.mu.Lock()
		if !b.dead {
			break
		}
		b.mu.Unlock()
	}
	defer b.mu.Unlock()

	now := w.now()
	b.evict(now.Add(-w.window))

	if len(b.events) >= w.limit {
		return Decision{Allowed: false, Limit: w.limit, Remaining: 0, RetryAfter: w.retry}, nil
	}
	b.events = append(b.events, now)
	return Decision{Allowed: true, Limit: w.limit, Remaining: w.limit - len(b.events)}, nil
}

func (b *bucket) evict(cut time.Time) {
	i := 0
	for i < len(b.events) && b.events[i].Before(cut) {
		i++
	}
	if i > 0 {
		b.events = append(b.events[:0], b.events[i:]...)
	}
}

// Sweep drops buckets with no timestamps inside the window so idle clients
// do not keep memory alive.  It returns the number of buckets removed.
func (w *SlidingWindow) Sweep() int {
	cut := w.now().Add(-w.window)
	w.mu.Lock()
	defer w.mu.Unlock()
	removed := 0
	for key, b := range w.buckets {
		b.mu.Lock()
		b.evict(cut)
		empty := len(b.events) == 0
		if empty {
			b.dead = true
		}
		b.mu.Unlock()
		if empty {
			delete(w.buckets, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (w *SlidingWindow) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.Sweep()
		}
	}
}
