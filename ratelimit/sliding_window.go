package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SlidingWindow keeps the admitted timestamps of every key in process memory.
// Each key has its own lock so different keys never contend.
type SlidingWindow struct {
	maxRequests int
	window      time.Duration
	now         Clock

	mu   sync.RWMutex
	keys map[string]*keyWindow
}

type keyWindow struct {
	mu         sync.Mutex
	timestamps []time.Time
	removed    bool // set by Cleanup once the key is dropped from the map
}

// NewSlidingWindow creates a limiter admitting maxRequests per trailing window
func NewSlidingWindow(maxRequests int, window time.Duration) (*SlidingWindow, error) {
	if maxRequests < 1 {
		return nil, fmt.Errorf("max requests must be positive, got %d", maxRequests)
	}
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %s", window)
	}

	return &SlidingWindow{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		keys:        make(map[string]*keyWindow),
	}, nil
}

// WithClock replaces the time source, for tests
func (s *SlidingWindow) WithClock(clock Clock) *SlidingWindow {
	s.now = clock
	return s
}

// Allow admits the request when fewer than maxRequests were admitted in the trailing window
func (s *SlidingWindow) Allow(_ context.Context, key string) (Decision, error) {
	kw := s.lockWindow(key)
	defer kw.mu.Unlock()

	now := s.now()
	kw.prune(now.Add(-s.window))

	if len(kw.timestamps) >= s.maxRequests {
		return Decision{
			Allowed:           false,
			RetryAfterSeconds: retryAfter(kw.timestamps[0], s.window, now),
		}, nil
	}

	kw.timestamps = append(kw.timestamps, now)
	return Decision{Allowed: true}, nil
}

// lockWindow returns the locked live window for the key
func (s *SlidingWindow) lockWindow(key string) *keyWindow {
	for {
		kw := s.getWindow(key)
		kw.mu.Lock()
		if !kw.removed {
			return kw
		}
		kw.mu.Unlock()
	}
}

// getWindow returns the window for the key, creating it on first use
func (s *SlidingWindow) getWindow(key string) *keyWindow {
	s.mu.RLock()
	kw, exists := s.keys[key]
	s.mu.RUnlock()
	if exists {
		return kw
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if kw, exists = s.keys[key]; !exists {
		kw = &keyWindow{}
		s.keys[key] = kw
	}
	return kw
}

// prune drops timestamps older than the cutoff; timestamps are kept in admission order
func (kw *keyWindow) prune(cutoff time.Time) {
	drop := 0
	for drop < len(kw.timestamps) && kw.timestamps[drop].Before(cutoff) {
		drop++
	}
	if drop > 0 {
		kw.timestamps = append(kw.timestamps[:0], kw.timestamps[drop:]...)
	}
}

// Cleanup forgets keys with no admitted request inside the window
func (s *SlidingWindow) Cleanup() {
	cutoff := s.now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, kw := range s.keys {
		kw.mu.Lock()
		kw.prune(cutoff)
		if len(kw.timestamps) == 0 {
			kw.removed = true
			delete(s.keys, key)
		}
		kw.mu.Unlock()
	}
}

// StartCleanup runs Cleanup every interval until the context is cancelled
func (s *SlidingWindow) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// trackedKeys reports how many keys currently hold state
func (s *SlidingWindow) trackedKeys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
