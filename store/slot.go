package store

import (
	"context"
	"slices"
	"sync"

	"github.com/prior-it/clientbook/core"
)

// Slot is a single named piece of durable storage that holds the serialised customer list.
type Slot interface {
	// Load the current contents of the slot or core.ErrNotFound if the slot was never written.
	Load(ctx context.Context) ([]byte, error)
	// Overwrite the contents of the slot.
	Save(ctx context.Context, data []byte) error
}

// MemorySlot keeps the slot contents in memory. It is mostly useful for tests.
type MemorySlot struct {
	mu   sync.Mutex
	data []byte
	err  error
}

var _ Slot = &MemorySlot{}

// NewMemorySlot creates a slot that already contains the specified data, pass nil to create an
// empty slot.
func NewMemorySlot(data []byte) *MemorySlot {
	return &MemorySlot{data: slices.Clone(data)}
}

func (m *MemorySlot) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, core.ErrNotFound
	}
	return slices.Clone(m.data), nil
}

func (m *MemorySlot) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data = slices.Clone(data)
	return nil
}

// Bytes returns the raw contents of the slot.
func (m *MemorySlot) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.data)
}

// Fail makes all subsequent saves return err, pass nil to make them succeed again.
func (m *MemorySlot) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
