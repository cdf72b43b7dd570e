package session

import (
	"context"
	"sync"
	"time"

	"github.com/set-night/turbostart/internal/config"
)

type counter struct {
	n       int64
	resetAt time.Time
}

type Memory struct {
	mu       sync.Mutex
	awaiting map[int64]time.Time
	counters map[int64]*counter
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		awaiting: make(map[int64]time.Time),
		counters: make(map[int64]*counter),
		now:      time.Now,
	}
}

func (m *Memory) SetAwaitingTitle(_ context.Context, userID int64, awaiting bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if awaiting {
		m.awaiting[userID] = m.now().Add(config.BotSessionTTL)
	} else {
		delete(m.awaiting, userID)
	}
	return nil
}

func (m *Memory) AwaitingTitle(_ context.Context, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.awaiting[userID]
	if !ok {
		return false, nil
	}
	if !m.now().Before(exp) {
		delete(m.awaiting, userID)
		return false, nil
	}
	return true, nil
}

func (m *Memory) Hit(_ context.Context, userID int64, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	c, ok := m.counters[userID]
	if !ok || !now.Before(c.resetAt) {
		c = &counter{resetAt: now.Add(window)}
		m.counters[userID] = c
		m.sweep(now)
	}
	c.n++
	return c.n, nil
}

// sweep drops expired counters; called only when a new window opens.
func (m *Memory) sweep(now time.Time) {
	for id, c := range m.counters {
		if !now.Before(c.resetAt) {
			delete(m.counters, id)
		}
	}
}

func (m *Memory) Close() error { return nil }
