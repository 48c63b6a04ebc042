package store

import (
	"context"
	"sync"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/audit"
)

// DefaultMemoryCapacity bounds a Memory store when no capacity is given.
const DefaultMemoryCapacity = 1000

// Memory keeps the most recent records in a bounded ring buffer. When the
// buffer is full the oldest record is evicted.
type Memory struct {
	mu       sync.RWMutex
	records  []*audit.Record
	capacity int
}

// NewMemory creates a Memory store holding at most capacity records.
// A non-positive capacity falls back to DefaultMemoryCapacity.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &Memory{capacity: capacity}
}

// Store appends the record, evicting the oldest when full.
func (m *Memory) Store(_ context.Context, rec *audit.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.records) >= m.capacity {
		m.records = m.records[1:]
	}
	m.records = append(m.records, rec)
	return nil
}

// List returns the stored records, oldest first.
func (m *Memory) List() []*audit.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*audit.Record(nil), m.records...)
}

// Count returns the number of stored records.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Clear removes all stored records.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

var _ audit.Store = (*Memory)(nil)
