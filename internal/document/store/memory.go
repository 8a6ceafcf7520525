package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"fieldproof/internal/document/models"
	id "fieldproof/pkg/domain"
	"fieldproof/pkg/platform/sentinel"
)

// InMemory keeps documents in a map guarded by one mutex. Holding the lock
// across validate-and-mutate gives UpdateIfStatus its atomicity.
type InMemory struct {
	mu   sync.RWMutex
	docs map[id.DocumentID]*models.Document
}

func NewInMemory() *InMemory {
	return &InMemory{docs: make(map[id.DocumentID]*models.Document)}
}

func clone(doc *models.Document) *models.Document {
	cp := *doc
	if doc.Latitude != nil {
		lat := *doc.Latitude
		cp.Latitude = &lat
	}
	if doc.Longitude != nil {
		lng := *doc.Longitude
		cp.Longitude = &lng
	}
	if doc.AssignedTo != nil {
		assigned := *doc.AssignedTo
		cp.AssignedTo = &assigned
	}
	if doc.Findings != nil {
		f := *doc.Findings
		cp.Findings = &f
	}
	if doc.Decision != nil {
		dec := *doc.Decision
		cp.Decision = &dec
	}
	return &cp
}

func (s *InMemory) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[doc.ID]; exists {
		return sentinel.ErrConflict
	}
	if err := doc.CheckInvariants(); err != nil {
		return err
	}
	s.docs[doc.ID] = clone(doc)
	return nil
}

func (s *InMemory) Get(_ context.Context, docID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if doc, ok := s.docs[docID]; ok {
		return clone(doc), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) UpdateIfStatus(_ context.Context, docID id.DocumentID, expected models.Status, mutate func(*models.Document) error) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if current.Status != expected {
		return nil, sentinel.ErrConflict
	}

	next := clone(current)
	if err := mutate(next); err != nil {
		return nil, err
	}
	if err := next.CheckInvariants(); err != nil {
		return nil, err
	}
	s.docs[docID] = next
	return clone(next), nil
}

func (s *InMemory) Query(_ context.Context, filter Filter) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Document
	for _, doc := range s.docs {
		if filter.OwnerID != nil && doc.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.AssignedTo != nil && !doc.IsAssignedTo(*filter.AssignedTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, doc.Status) {
			continue
		}
		out = append(out, clone(doc))
	}

	slices.SortFunc(out, func(a, b *models.Document) int {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (s *InMemory) CountOpenByModerator(_ context.Context, moderatorID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, doc := range s.docs {
		if doc.Status == models.StatusAssignedToModerator && doc.IsAssignedTo(moderatorID) {
			count++
		}
	}
	return count, nil
}
