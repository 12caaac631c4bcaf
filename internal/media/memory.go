package media

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/tessera-live/tessera/internal/domain"
)

// Memory is an in-process content store for tests and local development.
// Identifiers are the hex sha256 of the payload, so the content-addressing
// property (identical bytes, identical id) holds exactly.
type Memory struct {
	mu       sync.Mutex
	objects  map[string][]byte
	maxBytes int
}

func NewMemory(maxBytes int) *Memory {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Memory{
		objects:  make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

func (m *Memory) Upload(_ context.Context, data []byte) (string, error) {
	if len(data) > m.maxBytes {
		return "", fmt.Errorf("payload is %d bytes, limit %d: %w", len(data), m.maxBytes, domain.ErrPayloadTooLarge)
	}
	sum := sha256.Sum256(data)
	id := "sha256:" + hex.EncodeToString(sum[:])

	m.mu.Lock()
	if _, ok := m.objects[id]; !ok {
		m.objects[id] = append([]byte(nil), data...)
	}
	m.mu.Unlock()
	return id, nil
}

// Get returns a stored payload by content id.
func (m *Memory) Get(id string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[id]
	return data, ok
}
