package store

import (
	"context"
	"sort"
	"sync"

	"fieldproof/internal/regcode/models"
	id "fieldproof/pkg/domain"
	"fieldproof/pkg/platform/sentinel"
	"fieldproof/pkg/requestcontext"
)

// InMemory is the in-memory implementation; backs tests and local development.
// A single mutex makes ConsumeIfUnused atomic.
type InMemory struct {
	mu    sync.Mutex
	codes map[string]*models.RegistrationCode
}

func NewInMemory() *InMemory {
	return &InMemory{codes: make(map[string]*models.RegistrationCode)}
}

func (m *InMemory) Create(_ context.Context, code *models.RegistrationCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.codes[code.Code]; exists {
		return sentinel.ErrConflict
	}
	m.codes[code.Code] = clone(code)
	return nil
}

func (m *InMemory) FindByCode(_ context.Context, code string) (*models.RegistrationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.codes[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(stored), nil
}

func (m *InMemory) ConsumeIfUnused(ctx context.Context, code string, userID id.UserID) (*models.RegistrationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.codes[code]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if stored.Consumed {
		return nil, sentinel.ErrAlreadyUsed
	}
	stored.MarkConsumed(userID, requestcontext.Now(ctx))
	return clone(stored), nil
}

func (m *InMemory) List(_ context.Context) ([]*models.RegistrationCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.RegistrationCode, 0, len(m.codes))
	for _, c := range m.codes {
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func clone(c *models.RegistrationCode) *models.RegistrationCode {
	cp := *c
	if c.ConsumedAt != nil {
		t := *c.ConsumedAt
		cp.ConsumedAt = &t
	}
	if c.ConsumedBy != nil {
		u := *c.ConsumedBy
		cp.ConsumedBy = &u
	}
	return &cp
}
