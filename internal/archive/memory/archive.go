// Package memory stores payloads in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Archive keeps payloads in a map and returns pseudo URIs.
type Archive struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an in-memory payload archive.
func New() *Archive {
	return &Archive{data: make(map[string][]byte)}
}

// Put stores a copy of the payload and returns a memory:// URI.
func (a *Archive) Put(_ context.Context, path string, _ string, data []byte) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.data[path] = append([]byte(nil), data...)
	return fmt.Sprintf("memory://%s", path), nil
}

// Get returns the stored payload for a path.
func (a *Archive) Get(path string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	data, ok := a.data[path]
	return data, ok
}

// Len reports how many payloads are stored.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.data)
}
