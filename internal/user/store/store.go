// Package store persists account records.
package store

import (
	"context"

	"fieldproof/internal/user/models"
	id "fieldproof/pkg/domain"
)

// Store is interface-driven to keep domain logic testable and to allow
// swapping in-memory and PostgreSQL implementations without rewiring
// business code.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}
