// Package service orchestrates the document state machine. Every mutating
// operation runs the same sequence: authorization guard, state-machine check,
// geofence verdict where required, then one conditional update. Exactly one
// audit event is recorded whether the attempt was accepted or denied.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"fieldproof/internal/audit"
	"fieldproof/internal/authz"
	"fieldproof/internal/document/models"
	"fieldproof/internal/document/store"
	"fieldproof/internal/geofence"
	"fieldproof/internal/notify"
	"fieldproof/internal/platform/metrics"
	id "fieldproof/pkg/domain"
	dErrors "fieldproof/pkg/domain-errors"
	"fieldproof/pkg/platform/sentinel"
	"fieldproof/pkg/requestcontext"
)

// Position is the actor's live coordinates at the time of a findings
// submission.
type Position struct {
	Latitude  float64
	Longitude float64
}

// Service owns findings submission and finalization. Assignment lives with
// the assignment manager; both share the guard, store and audit recorder.
type Service struct {
	docs     store.Store
	guard    *authz.Guard
	geofence *geofence.Evaluator
	auditor  *audit.Recorder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	notifier notify.Sink
	tracer   trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifier(sink notify.Sink) Option {
	return func(s *Service) { s.notifier = sink }
}

// New constructs a Service.
func New(docs store.Store, guard *authz.Guard, eval *geofence.Evaluator, auditor *audit.Recorder, opts ...Option) *Service {
	s := &Service{
		docs:     docs,
		guard:    guard,
		geofence: eval,
		auditor:  auditor,
		logger:   slog.Default(),
		notifier: notify.Noop{},
		tracer:   otel.Tracer("fieldproof/document"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a document the actor is authorized to read.
func (s *Service) Get(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	doc, err := s.docs.Get(ctx, docID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	actor := requestcontext.Actor(ctx)
	if decision := s.guard.Authorize(actor, authz.ActionRead, doc); !decision.Allowed {
		return nil, decision.Err()
	}
	return doc, nil
}

// List returns the documents visible to the actor: admins see all, submitters
// their own, moderators their open assignments.
func (s *Service) List(ctx context.Context, statuses []models.Status) ([]*models.Document, error) {
	actor := requestcontext.Actor(ctx)
	filter := store.Filter{Statuses: statuses}
	switch actor.Role {
	case id.RoleAdmin:
	case id.RoleUser:
		owner := actor.UserID
		filter.OwnerID = &owner
	case id.RoleModerator:
		moderator := actor.UserID
		filter.AssignedTo = &moderator
	default:
		return nil, dErrors.New(dErrors.CodeForbidden, "unauthenticated caller")
	}
	return s.docs.Query(ctx, filter)
}

// History returns a document's audit trail; admin only.
func (s *Service) History(ctx context.Context, docID id.DocumentID) ([]audit.Event, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Role != id.RoleAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "audit history requires the admin role")
	}
	if _, err := s.docs.Get(ctx, docID); err != nil {
		return nil, translateStoreErr(err)
	}
	return s.auditor.History(ctx, docID)
}

// SubmitFindings records a moderator's on-site report and moves the document
// to moderator_verified or verification_failed. The geofence verdict is
// computed synchronously and must pass strictly before the conditional
// update; an admin override bypasses it, and the bypass is never silent.
func (s *Service) SubmitFindings(ctx context.Context, docID id.DocumentID, position Position, findings models.Findings, override bool) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.SubmitFindings")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	doc, err := s.docs.Get(ctx, docID)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	event := audit.Event{
		DocumentID:  docID,
		ActorID:     actor.UserID,
		ActorRole:   actor.Role,
		Action:      audit.ActionSubmitFindings,
		PriorStatus: doc.Status,
		NewStatus:   doc.Status,
		Override:    override,
	}

	if decision := s.guard.Authorize(actor, authz.ActionSubmitFindings, doc); !decision.Allowed {
		return nil, s.deny(ctx, event, string(decision.Reason), decision.Err())
	}
	if err := doc.CanSubmitFindings(); err != nil {
		return nil, s.deny(ctx, event, string(dErrors.CodeOf(err)), err)
	}

	// Override is honored for admins only; a moderator-supplied flag is
	// authorization-irrelevant noise.
	bypassGeofence := override && actor.Role == id.RoleAdmin
	if !bypassGeofence {
		if !doc.Geocoded() {
			err := dErrors.New(dErrors.CodeInvalidInput,
				"document has no resolved coordinates; geofence cannot be evaluated")
			return nil, s.deny(ctx, event, string(dErrors.CodeInvalidInput), err)
		}
		verdict, err := s.geofence.Evaluate(position.Latitude, position.Longitude, *doc.Latitude, *doc.Longitude)
		if err != nil {
			return nil, s.deny(ctx, event, string(dErrors.CodeOf(err)), err)
		}
		event.DistanceMeters = &verdict.DistanceMeters
		if !verdict.WithinRange {
			if s.metrics != nil {
				s.metrics.GeofenceViolations.Inc()
			}
			err := dErrors.Newf(dErrors.CodeGeofenceViolation,
				"actor is %.0fm from the target address, radius is %.0fm",
				verdict.DistanceMeters, s.geofence.RadiusMeters())
			return nil, s.deny(ctx, event, string(dErrors.CodeGeofenceViolation), err)
		}
	}

	updated, err := s.docs.UpdateIfStatus(ctx, docID, doc.Status, func(d *models.Document) error {
		if err := d.CanSubmitFindings(); err != nil {
			return err
		}
		d.ApplyFindings(findings, requestcontext.Now(ctx))
		return nil
	})
	if err != nil {
		err = translateStoreErr(err)
		return nil, s.deny(ctx, event, string(dErrors.CodeOf(err)), err)
	}

	event.NewStatus = updated.Status
	if err := s.accept(ctx, event); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, notify.Notification{
		DocumentID: updated.ID,
		OwnerID:    updated.OwnerID,
		Action:     string(audit.ActionSubmitFindings),
		NewStatus:  updated.Status,
		OccurredAt: updated.UpdatedAt,
	})
	return updated, nil
}

// Finalize closes a document as verified or rejected. Admin only; with the
// override flag any non-terminal document may be closed directly, bypassing
// the moderator stage.
func (s *Service) Finalize(ctx context.Context, docID id.DocumentID, approve bool, notes string, override bool) (*models.Document, error) {
	ctx, span := s.tracer.Start(ctx, "document.Finalize")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	doc, err := s.docs.Get(ctx, docID)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	event := audit.Event{
		DocumentID:  docID,
		ActorID:     actor.UserID,
		ActorRole:   actor.Role,
		Action:      audit.ActionFinalize,
		PriorStatus: doc.Status,
		NewStatus:   doc.Status,
		Override:    override,
	}

	if decision := s.guard.Authorize(actor, authz.ActionFinalize, doc); !decision.Allowed {
		return nil, s.deny(ctx, event, string(decision.Reason), decision.Err())
	}
	if err := doc.CanFinalize(override); err != nil {
		return nil, s.deny(ctx, event, string(dErrors.CodeOf(err)), err)
	}

	updated, err := s.docs.UpdateIfStatus(ctx, docID, doc.Status, func(d *models.Document) error {
		if err := d.CanFinalize(override); err != nil {
			return err
		}
		d.ApplyDecision(approve, actor.UserID, notes, requestcontext.Now(ctx))
		return nil
	})
	if err != nil {
		err = translateStoreErr(err)
		return nil, s.deny(ctx, event, string(dErrors.CodeOf(err)), err)
	}

	event.NewStatus = updated.Status
	if err := s.accept(ctx, event); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, notify.Notification{
		DocumentID: updated.ID,
		OwnerID:    updated.OwnerID,
		Action:     string(audit.ActionFinalize),
		NewStatus:  updated.Status,
		OccurredAt: updated.UpdatedAt,
	})
	return updated, nil
}

func (s *Service) accept(ctx context.Context, event audit.Event) error {
	event.Outcome = audit.OutcomeAccepted
	if err := s.auditor.Record(ctx, event); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncrementTransitionAccepted(string(event.Action))
	}
	return nil
}

// deny records the denied attempt and hands the original error back. The
// audit record is mandatory; if it cannot be written that failure wins.
func (s *Service) deny(ctx context.Context, event audit.Event, reason string, cause error) error {
	event.Outcome = audit.OutcomeDenied
	event.Reason = reason
	if auditErr := s.auditor.Record(ctx, event); auditErr != nil {
		return auditErr
	}
	if s.metrics != nil {
		s.metrics.IncrementTransitionDenied(string(event.Action), reason)
	}
	s.logger.InfoContext(ctx, "transition denied",
		"document_id", event.DocumentID.String(),
		"action", event.Action,
		"reason", reason,
	)
	return cause
}

func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "document not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "document changed concurrently; refetch and retry")
	default:
		return err
	}
}
