// Package testutil provides shared test doubles.
package testutil

import (
	"sync"
	"time"
)

// MockClock is a test double for domain.Clock.
type MockClock struct {
	mu      sync.Mutex
	NowTime time.Time
}

// NewMockClock returns a clock frozen at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{NowTime: t}
}

// Now returns the configured time.
func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.NowTime
}

// Advance moves the clock forward.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NowTime = m.NowTime.Add(d)
}

// PlainHasher prefixes passwords instead of running bcrypt, keeping seed tests fast.
func PlainHasher(password string) (string, error) {
	return "plain:" + password, nil
}
