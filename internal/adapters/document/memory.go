package document

import (
	"context"
	"sync"

	"github.com/mallmap/core/internal/ports"
)

// Memory keeps the document in process memory.
type Memory struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemory returns an empty in-memory store. Pass initial bytes to seed it.
func NewMemory(initial []byte) *Memory {
	m := &Memory{}
	if initial != nil {
		m.data = append(make([]byte, 0, len(initial)), initial...)
	}
	return m
}

func (m *Memory) Read(ctx context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return nil, ports.ErrDocumentNotFound
	}
	return append([]byte(nil), m.data...), nil
}

func (m *Memory) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.data = append(make([]byte, 0, len(data)), data...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Name() string { return "memory" }
