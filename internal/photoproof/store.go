// Package photoproof stores moderator photo evidence. The engine persists
// only the reference string returned here; the bytes live with the external
// blob store.
package photoproof

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"fieldproof/pkg/platform/sentinel"
)

// Store is the blob storage collaborator interface.
type Store interface {
	Store(ctx context.Context, data []byte) (ref string, err error)
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// InMemory keeps proofs in a map; backs tests and local development.
type InMemory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemory() *InMemory {
	return &InMemory{blobs: make(map[string][]byte)}
}

func (s *InMemory) Store(_ context.Context, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := fmt.Sprintf("proof/%s", uuid.New())
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[ref] = cp
	return ref, nil
}

func (s *InMemory) Fetch(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if blob, ok := s.blobs[ref]; ok {
		cp := make([]byte, len(blob))
		copy(cp, blob)
		return cp, nil
	}
	return nil, sentinel.ErrNotFound
}
