// Package store holds the audit trail persistence implementations.
package store

import (
	"context"
	"sync"

	"fieldproof/internal/audit"
	id "fieldproof/pkg/domain"
)

// InMemory keeps events keyed by document so per-document append order is the
// slice order.
type InMemory struct {
	mu     sync.RWMutex
	events map[id.DocumentID][]audit.Event
}

func NewInMemory() *InMemory {
	return &InMemory{events: make(map[id.DocumentID][]audit.Event)}
}

func (s *InMemory) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.DocumentID] = append(s.events[event.DocumentID], event)
	return nil
}

func (s *InMemory) ListByDocument(_ context.Context, documentID id.DocumentID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[documentID]...), nil
}

// ListAll returns every event across all documents (admin-only operation).
func (s *InMemory) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []audit.Event
	for _, events := range s.events {
		all = append(all, events...)
	}
	return all, nil
}
