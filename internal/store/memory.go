package store

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/outpost/internal/domain"
)

// Memory keeps the registry in process memory. It is the backend for tests and
// for OUTPOST_STORE=memory, where nothing survives a restart.
type Memory struct {
	mu        sync.RWMutex
	entries   []domain.Entry
	lastWrite time.Time
}

// NewMemory creates an empty in-memory store, optionally seeded.
func NewMemory(seed ...domain.Entry) *Memory {
	m := &Memory{}
	if len(seed) > 0 {
		m.entries = append([]domain.Entry(nil), seed...)
	}
	return m
}

func (m *Memory) Name() string { return "memory" }

// Load returns a copy so callers can never mutate stored state in place.
func (m *Memory) Load(_ context.Context) []domain.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Save replaces all entries.
func (m *Memory) Save(_ context.Context, entries []domain.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make([]domain.Entry, len(entries))
	copy(m.entries, entries)
	m.lastWrite = time.Now()
	return nil
}

// LastWrite returns the time of the last Save, zero if never saved.
func (m *Memory) LastWrite() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.lastWrite
}
