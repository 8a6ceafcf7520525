// Package assignment binds documents to moderators. Assignment is an admin
// act: the target moderator must hold the moderator role, work the document's
// jurisdiction, and have capacity; the bind itself is one conditional update
// so two admins racing on a pending document produce exactly one assignment.
package assignment

import (
	"context"
	"errors"
	"log/slog"

	"fieldproof/internal/audit"
	"fieldproof/internal/authz"
	"fieldproof/internal/document/models"
	docStore "fieldproof/internal/document/store"
	"fieldproof/internal/platform/metrics"
	userStore "fieldproof/internal/user/store"
	id "fieldproof/pkg/domain"
	dErrors "fieldproof/pkg/domain-errors"
	"fieldproof/pkg/platform/sentinel"
	"fieldproof/pkg/requestcontext"
)

// Manager performs assign and reassign.
type Manager struct {
	docs    docStore.Store
	users   userStore.Store
	guard   *authz.Guard
	auditor *audit.Recorder
	maxOpen int
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(m *Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithMaxOpenAssignments caps how many documents a moderator may hold in
// assigned_to_moderator at once. Zero means unlimited.
func WithMaxOpenAssignments(n int) Option {
	return func(m *Manager) { m.maxOpen = n }
}

func New(docs docStore.Store, users userStore.Store, guard *authz.Guard, auditor *audit.Recorder, opts ...Option) *Manager {
	m := &Manager{
		docs:    docs,
		users:   users,
		guard:   guard,
		auditor: auditor,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Assign moves a pending document to the given moderator.
func (m *Manager) Assign(ctx context.Context, docID id.DocumentID, moderatorID id.UserID, override bool) (*models.Document, error) {
	return m.bind(ctx, docID, moderatorID, override, audit.ActionAssign)
}

// Reassign rebinds a document that already left pending_assignment to a new
// moderator, clearing any prior findings. This is the recovery path for a
// verification_failed document.
func (m *Manager) Reassign(ctx context.Context, docID id.DocumentID, moderatorID id.UserID, override bool) (*models.Document, error) {
	return m.bind(ctx, docID, moderatorID, override, audit.ActionReassign)
}

func (m *Manager) bind(ctx context.Context, docID id.DocumentID, moderatorID id.UserID, override bool, action audit.Action) (*models.Document, error) {
	actor := requestcontext.Actor(ctx)
	doc, err := m.docs.Get(ctx, docID)
	if err != nil {
		return nil, translateStoreErr(err)
	}

	event := audit.Event{
		DocumentID:  docID,
		ActorID:     actor.UserID,
		ActorRole:   actor.Role,
		Action:      action,
		PriorStatus: doc.Status,
		NewStatus:   doc.Status,
		Override:    override,
	}

	guardAction := authz.ActionAssign
	if action == audit.ActionReassign {
		guardAction = authz.ActionReassign
	}
	if decision := m.guard.Authorize(actor, guardAction, doc); !decision.Allowed {
		return nil, m.deny(ctx, event, string(decision.Reason), decision.Err())
	}

	canTransition := doc.CanAssign
	if action == audit.ActionReassign {
		canTransition = doc.CanReassign
	}
	if err := canTransition(); err != nil {
		return nil, m.deny(ctx, event, string(dErrors.CodeOf(err)), err)
	}

	if err := m.checkTarget(ctx, doc, moderatorID, override); err != nil {
		return nil, m.deny(ctx, event, string(dErrors.CodeOf(err)), err)
	}

	updated, err := m.docs.UpdateIfStatus(ctx, docID, doc.Status, func(d *models.Document) error {
		if action == audit.ActionReassign {
			if err := d.CanReassign(); err != nil {
				return err
			}
			d.ApplyReassignment(moderatorID, requestcontext.Now(ctx))
			return nil
		}
		if err := d.CanAssign(); err != nil {
			return err
		}
		d.ApplyAssignment(moderatorID, requestcontext.Now(ctx))
		return nil
	})
	if err != nil {
		err = translateStoreErr(err)
		return nil, m.deny(ctx, event, string(dErrors.CodeOf(err)), err)
	}

	event.NewStatus = updated.Status
	event.Outcome = audit.OutcomeAccepted
	if err := m.auditor.Record(ctx, event); err != nil {
		return nil, err
	}
	if m.metrics != nil {
		m.metrics.IncrementTransitionAccepted(string(action))
	}
	m.logger.InfoContext(ctx, "document assigned",
		"document_id", docID.String(),
		"moderator_id", moderatorID.String(),
		"action", action,
	)
	return updated, nil
}

// checkTarget validates the receiving moderator: role, jurisdiction against
// the document's resolved region, and open-assignment capacity. Override
// relaxes the jurisdiction and geocode-pending checks, never the role.
func (m *Manager) checkTarget(ctx context.Context, doc *models.Document, moderatorID id.UserID, override bool) error {
	target, err := m.users.FindByID(ctx, moderatorID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "target moderator not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load target moderator")
	}
	if target.Role != id.RoleModerator {
		return dErrors.Newf(dErrors.CodeInvalidInput,
			"documents can only be assigned to moderators, %s has role %s",
			moderatorID, target.Role)
	}
	if !override {
		if doc.GeocodePending {
			return dErrors.New(dErrors.CodeInvalidInput,
				"document address is not geocoded yet; resolve it or assign with override")
		}
		if target.Jurisdiction != doc.Region {
			return dErrors.Newf(dErrors.CodeForbidden,
				"moderator works jurisdiction %q but the document is in %q",
				target.Jurisdiction, doc.Region)
		}
	}
	if m.maxOpen > 0 {
		open, err := m.docs.CountOpenByModerator(ctx, moderatorID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "count open assignments")
		}
		if open >= m.maxOpen {
			return dErrors.Newf(dErrors.CodeConflict,
				"moderator already holds %d open assignments (limit %d)", open, m.maxOpen)
		}
	}
	return nil
}

func (m *Manager) deny(ctx context.Context, event audit.Event, reason string, cause error) error {
	event.Outcome = audit.OutcomeDenied
	event.Reason = reason
	if auditErr := m.auditor.Record(ctx, event); auditErr != nil {
		return auditErr
	}
	if m.metrics != nil {
		m.metrics.IncrementTransitionDenied(string(event.Action), reason)
	}
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
