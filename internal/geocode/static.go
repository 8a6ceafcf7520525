package geocode

import (
	"context"
	"sync"

	dErrors "fieldproof/pkg/domain-errors"
)

// Static resolves from a fixed table. It backs tests and local development
// where no geocoding service is reachable.
type Static struct {
	mu      sync.RWMutex
	results map[string]Result
	err     error
}

func NewStatic() *Static {
	return &Static{results: make(map[string]Result)}
}

// Add registers a resolution for the exact address text.
func (s *Static) Add(addressText string, result Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[addressText] = result
}

// FailWith makes every Resolve return err until cleared with nil.
func (s *Static) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Static) Resolve(_ context.Context, addressText string) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return Result{}, s.err
	}
	if result, ok := s.results[addressText]; ok {
		return result, nil
	}
	return Result{}, dErrors.New(dErrors.CodeNotFound, "address could not be resolved")
}
