// Package store persists registration codes. ConsumeIfUnused is the
// single-use guarantee: whatever the caller count, exactly one consumption
// succeeds per code.
package store

import (
	"context"

	"fieldproof/internal/regcode/models"
	id "fieldproof/pkg/domain"
)

// Store is the registration code persistence interface.
//
// ConsumeIfUnused atomically flips an unconsumed code to consumed and stamps
// the consuming user. A code already consumed (or mid-consumption by a racing
// caller) returns sentinel.ErrAlreadyUsed; an unknown code text returns
// sentinel.ErrNotFound.
type Store interface {
	Create(ctx context.Context, code *models.RegistrationCode) error
	FindByCode(ctx context.Context, code string) (*models.RegistrationCode, error)
	ConsumeIfUnused(ctx context.Context, code string, userID id.UserID) (*models.RegistrationCode, error)
	List(ctx context.Context) ([]*models.RegistrationCode, error)
}
