// Package store persists verification documents. The conditional update is
// the engine's sole concurrency-control primitive: every status mutation is
// guarded by the status observed at read time, so two actors racing on one
// document cannot both win.
package store

import (
	"context"

	"fieldproof/internal/document/models"
	id "fieldproof/pkg/domain"
)

// Filter selects documents for Query. Zero fields match everything.
type Filter struct {
	OwnerID    *id.UserID
	AssignedTo *id.UserID
	Statuses   []models.Status
}

// Store is the keyed record store consumed by the workflow engine.
//
// UpdateIfStatus implements compare-and-swap: it loads the document, verifies
// the current status equals expected, runs mutate, verifies aggregate
// invariants, and persists, all atomically (mutex in memory, row lock in
// PostgreSQL). A status mismatch returns sentinel.ErrConflict and writes
// nothing; a mutate error aborts the entire write.
type Store interface {
	Create(ctx context.Context, doc *models.Document) error
	Get(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	UpdateIfStatus(ctx context.Context, docID id.DocumentID, expected models.Status, mutate func(*models.Document) error) (*models.Document, error)
	// Query returns matching documents in a stable order (creation time, then id).
	Query(ctx context.Context, filter Filter) ([]*models.Document, error)
	// CountOpenByModerator counts documents currently assigned_to_moderator
	// for the given moderator; backs the capacity policy.
	CountOpenByModerator(ctx context.Context, moderatorID id.UserID) (int, error)
}
