// Package notify delivers fire-and-forget transition notifications. Delivery
// failures are logged and dropped; they never block or roll back a transition.
package notify

import (
	"context"
	"time"

	"fieldproof/internal/document/models"
	id "fieldproof/pkg/domain"
)

// Notification describes a completed transition worth telling downstream
// systems about.
type Notification struct {
	DocumentID id.DocumentID `json:"document_id"`
	OwnerID    id.UserID     `json:"owner_id"`
	Action     string        `json:"action"`
	NewStatus  models.Status `json:"new_status"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Sink accepts notifications. Implementations must be non-blocking from the
// caller's perspective and must swallow their own failures.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// Noop discards every notification.
type Noop struct{}

func (Noop) Notify(context.Context, Notification) {}
