// Package ratelimit counts attempts per caller key in fixed windows.
// A window opens at a key's first attempt and lasts for the configured
// duration; once it has elapsed the next attempt opens a fresh one.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter admits or rejects one attempt for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type window struct {
	count   int
	resetAt time.Time
}

// Memory is an in-process fixed-window limiter. Counters are lost on restart
// and are not shared between instances.
type Memory struct {
	mu      sync.Mutex
	windows map[string]*window
	max     int
	period  time.Duration
	now     func() time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// NewMemory allows max attempts per key in each period.
func NewMemory(max int, period time.Duration) *Memory {
	m := &Memory{
		windows: make(map[string]*window),
		max:     max,
		period:  period,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		m.windows[key] = &window{count: 1, resetAt: now.Add(m.period)}
		return true, nil
	}
	if w.count >= m.max {
		return false, nil
	}
	w.count++
	return true, nil
}

// Stop ends the background sweep.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
	})
}

// sweep drops expired windows so idle keys do not accumulate.
func (m *Memory) sweep() {
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			now := m.now()
			for k, w := range m.windows {
				if !now.Before(w.resetAt) {
					delete(m.windows, k)
				}
			}
			m.mu.Unlock()
		}
	}
}
