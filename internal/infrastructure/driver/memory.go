package driver

import (
	"context"
	"sync"
)

// MemoryKV process local KeyValueDB, data is lost on exit
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ KeyValueDB = &MemoryKV{}

// NewMemoryKV create an empty MemoryKV
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

// Get implement KeyValueDB
func (m *MemoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return "", ErrNil
	}
	return v, nil
}

// Set implement KeyValueDB
func (m *MemoryKV) Set(ctx context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	return nil
}

// Ping implement KeyValueDB
func (m *MemoryKV) Ping(ctx context.Context) error {
	return nil
}

// Close implement KeyValueDB
func (m *MemoryKV) Close() error {
	return nil
}
