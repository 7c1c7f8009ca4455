package core

import (
	"sync"
)

// Assigns is a thread-safe store of values a component exposes to tests
// and observers. The router does not read it; renders are driven by the
// component's own state.
type Assigns struct {
	data map[string]any
	mu   sync.RWMutex
}

// NewAssigns creates a new assigns store.
func NewAssigns() *Assigns {
	return &Assigns{data: make(map[string]any)}
}

// Get retrieves a value from the store.
func (a *Assigns) Get(key string) any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data[key]
}

// Set stores a value.
func (a *Assigns) Set(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[key] = value
}
