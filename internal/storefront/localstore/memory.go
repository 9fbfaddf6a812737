// Package localstore holds the guest-state stores a storefront.Controller
// writes through to.
package localstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tair/storefront/internal/storefront"
)

// MemoryStore keeps the encoded blob in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	blob []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load decodes the last saved state. An empty store yields an empty state.
func (m *MemoryStore) Load(_ context.Context) (storefront.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decode(m.blob)
}

func (m *MemoryStore) Save(_ context.Context, state storefront.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blob = data
	m.mu.Unlock()
	return nil
}

func decode(data []byte) (storefront.State, error) {
	var state storefront.State
	if len(data) == 0 {
		return state, nil
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return storefront.State{}, err
	}
	return state, nil
}
