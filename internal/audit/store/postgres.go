package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldproof/internal/audit"
	"fieldproof/internal/document/models"
	id "fieldproof/pkg/domain"
)

// Postgres appends events to the audit_events table. The serial seq column
// preserves per-document ordering; the application never updates or deletes
// rows.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Append(ctx context.Context, event audit.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events (id, document_id, actor_id, actor_role, action, outcome,
			reason, prior_status, new_status, distance_meters, override, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		event.ID, uuid.UUID(event.DocumentID), uuid.UUID(event.ActorID), string(event.ActorRole),
		string(event.Action), string(event.Outcome), event.Reason,
		string(event.PriorStatus), string(event.NewStatus),
		event.DistanceMeters, event.Override, event.RequestID, event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Postgres) ListByDocument(ctx context.Context, documentID id.DocumentID) ([]audit.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, actor_id, actor_role, action, outcome,
			reason, prior_status, new_status, distance_meters, override, request_id, occurred_at
		FROM audit_events
		WHERE document_id = $1
		ORDER BY seq`, uuid.UUID(documentID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			event      audit.Event
			rawDoc     uuid.UUID
			rawActor   uuid.UUID
			actorRole  string
			action     string
			outcome    string
			priorState string
			newState   string
		)
		err := rows.Scan(&event.ID, &rawDoc, &rawActor, &actorRole, &action, &outcome,
			&event.Reason, &priorState, &newState,
			&event.DistanceMeters, &event.Override, &event.RequestID, &event.OccurredAt)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.DocumentID = id.DocumentID(rawDoc)
		event.ActorID = id.UserID(rawActor)
		event.ActorRole = id.Role(actorRole)
		event.Action = audit.Action(action)
		event.Outcome = audit.Outcome(outcome)
		event.PriorStatus = models.Status(priorState)
		event.NewStatus = models.Status(newState)
		out = append(out, event)
	}
	return out, rows.Err()
}
