package session

import (
	"sync"
	"time"
)

type slot[T any] struct {
	last    time.Time
	pending T
	has     bool
	timer   Timer
}

// Throttler caps calls per key to one per interval. The first call in an
// idle interval fires immediately; later calls in the same interval are
// folded into a single pending value that fires when the interval ends.
//
// fire runs with the throttler's lock held, so it must not block or call
// back into the throttler.
type Throttler[T any] struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	merge    func(prev, next T) T
	fire     func(key string, v T)
	slots    map[string]*slot[T]
}

// NewThrottler builds a throttler. A nil merge keeps the latest value.
func NewThrottler[T any](clock Clock, interval time.Duration, merge func(prev, next T) T, fire func(key string, v T)) *Throttler[T] {
	if merge == nil {
		merge = func(_, next T) T { return next }
	}
	return &Throttler[T]{
		clock:    clock,
		interval: interval,
		merge:    merge,
		fire:     fire,
		slots:    make(map[string]*slot[T]),
	}
}

func (t *Throttler[T]) Call(key string, v T) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	s, ok := t.slots[key]
	if !ok {
		s = &slot[T]{}
		t.slots[key] = s
	}

	remaining := t.interval - now.Sub(s.last)
	if s.last.IsZero() || remaining <= 0 {
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		var zero T
		s.pending, s.has = zero, false
		s.last = now
		t.fire(key, v)
		return
	}

	if s.has {
		s.pending = t.merge(s.pending, v)
	} else {
		s.pending, s.has = v, true
	}
	if s.timer == nil {
		s.timer = t.clock.AfterFunc(remaining, func() { t.flush(key, s) })
	}
}

func (t *Throttler[T]) flush(key string, s *slot[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// The slot was cancelled or replaced after the timer was armed.
	if t.slots[key] != s || !s.has {
		return
	}
	v := s.pending
	var zero T
	s.pending, s.has, s.timer = zero, false, nil
	s.last = t.clock.Now()
	t.fire(key, v)
}

// Cancel drops any pending value for key and forgets its interval, so the
// next call fires immediately.
func (t *Throttler[T]) Cancel(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.slots[key]; ok {
		if s.timer != nil {
			s.timer.Stop()
		}
		delete(t.slots, key)
	}
}

// Pending reports whether key has a value waiting for its interval to end.
func (t *Throttler[T]) Pending(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[key]
	return ok && s.has
}

// Stop cancels every key.
func (t *Throttler[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, s := range t.slots {
		if s.timer != nil {
			s.timer.Stop()
		}
		delete(t.slots, key)
	}
}
