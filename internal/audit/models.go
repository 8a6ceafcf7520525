// Package audit records every transition attempt against a verification
// document. Events are append-only and immutable; within one document's
// history they are strictly ordered, so every decision is reconstructible.
package audit

import (
	"time"

	"github.com/google/uuid"

	"fieldproof/internal/document/models"
	id "fieldproof/pkg/domain"
)

// Action names the operation whose attempt is being recorded.
type Action string

const (
	ActionAssign         Action = "assign"
	ActionReassign       Action = "reassign"
	ActionSubmitFindings Action = "submit_findings"
	ActionFinalize       Action = "finalize"
	ActionImport         Action = "import"
)

// Outcome tags whether the attempt was accepted or denied.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeDenied   Outcome = "denied"
)

// Event is one immutable audit record. Denied attempts are recorded too,
// carrying the failure kind in Reason; NewStatus then equals PriorStatus.
type Event struct {
	ID          uuid.UUID     `json:"id"`
	DocumentID  id.DocumentID `json:"document_id"`
	ActorID     id.UserID     `json:"actor_id"`
	ActorRole   id.Role       `json:"actor_role"`
	Action      Action        `json:"action"`
	Outcome     Outcome       `json:"outcome"`
	Reason      string        `json:"reason,omitempty"`
	PriorStatus models.Status `json:"prior_status"`
	NewStatus   models.Status `json:"new_status"`

	// Payload snapshot relevant to the transition.
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
	Override       bool     `json:"override,omitempty"`
	RequestID      string   `json:"request_id,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}
