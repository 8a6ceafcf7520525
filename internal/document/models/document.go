// Package models holds the VerificationDocument aggregate and its lifecycle
// rules. Transitions are expressed as CanX/ApplyX pairs so stores can run the
// validation and the mutation under one conditional update.
package models

import (
	"time"

	id "fieldproof/pkg/domain"
	dErrors "fieldproof/pkg/domain-errors"
)

// Findings is the structured on-site report a moderator submits.
// When AddressExists is false the remaining fields may be empty.
type Findings struct {
	AddressExists bool   `json:"address_exists"`
	BuildingType  string `json:"building_type,omitempty"`
	OccupantMet   bool   `json:"occupant_met,omitempty"`
	Relationship  string `json:"relationship,omitempty"`
	Comments      string `json:"comments,omitempty"`
	PhotoProofRef string `json:"photo_proof_ref,omitempty"`
}

// Decision is the admin ruling that closes a document.
type Decision struct {
	DecidedBy id.UserID `json:"decided_by"`
	DecidedAt time.Time `json:"decided_at"`
	Notes     string    `json:"notes,omitempty"`
}

// Document is the central aggregate of the verification engine.
//
// Invariants (status and sub-fields are correlated):
//   - assigned_to_moderator implies a non-nil AssignedTo
//   - moderator_verified / verification_failed implies non-nil Findings
//   - verified / rejected implies a non-nil Decision
//
// Documents are never physically deleted; verified and rejected are terminal.
type Document struct {
	ID      id.DocumentID
	OwnerID id.UserID

	// Raw address fields as imported.
	FullName string
	Email    string
	Phone    string
	Address  string
	City     string
	State    string
	Country  string

	// Resolved by the geocoding collaborator; nil until resolution succeeds.
	Latitude       *float64
	Longitude      *float64
	Region         string
	GeocodePending bool

	Status     Status
	AssignedTo *id.UserID
	Findings   *Findings
	Decision   *Decision

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New builds a document in pending_assignment, the only entry state.
func New(docID id.DocumentID, ownerID id.UserID, now time.Time) *Document {
	return &Document{
		ID:        docID,
		OwnerID:   ownerID,
		Status:    StatusPendingAssignment,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Geocoded reports whether the document carries resolved coordinates.
func (d *Document) Geocoded() bool {
	return d.Latitude != nil && d.Longitude != nil
}

// IsAssignedTo reports whether the document is currently bound to moderatorID.
func (d *Document) IsAssignedTo(moderatorID id.UserID) bool {
	return d.AssignedTo != nil && *d.AssignedTo == moderatorID
}

// guardNotTerminal is shared by every transition check.
func (d *Document) guardNotTerminal() error {
	if d.Status.Terminal() {
		return dErrors.Newf(dErrors.CodeTerminalState,
			"document is %s; no further transitions permitted", d.Status)
	}
	return nil
}

// CanAssign checks the pending_assignment -> assigned_to_moderator transition.
func (d *Document) CanAssign() error {
	if err := d.guardNotTerminal(); err != nil {
		return err
	}
	if d.Status != StatusPendingAssignment {
		return dErrors.Newf(dErrors.CodeIllegalTransition,
			"cannot assign a document in %s", d.Status)
	}
	return nil
}

// ApplyAssignment binds the document to a moderator.
// Call CanAssign first; stores run both under one conditional update.
func (d *Document) ApplyAssignment(moderatorID id.UserID, now time.Time) {
	d.Status = StatusAssignedToModerator
	d.AssignedTo = &moderatorID
	d.UpdatedAt = now
}

// CanReassign checks the admin-only rebind. Any non-terminal state that has
// left pending_assignment may revert to assigned_to_moderator; a document
// still pending must go through assign.
func (d *Document) CanReassign() error {
	if err := d.guardNotTerminal(); err != nil {
		return err
	}
	if d.Status == StatusPendingAssignment {
		return dErrors.New(dErrors.CodeIllegalTransition,
			"document is pending assignment; use assign")
	}
	return nil
}

// ApplyReassignment rebinds the document to a new moderator and clears any
// prior findings so the new moderator starts a clean verification.
func (d *Document) ApplyReassignment(moderatorID id.UserID, now time.Time) {
	d.Status = StatusAssignedToModerator
	d.AssignedTo = &moderatorID
	d.Findings = nil
	d.UpdatedAt = now
}

// CanSubmitFindings checks the assigned_to_moderator -> outcome transition.
// A verification_failed document requires admin reassignment before a new
// submission; it is not resubmittable directly.
func (d *Document) CanSubmitFindings() error {
	if err := d.guardNotTerminal(); err != nil {
		return err
	}
	if d.Status != StatusAssignedToModerator {
		return dErrors.Newf(dErrors.CodeIllegalTransition,
			"cannot submit findings for a document in %s", d.Status)
	}
	return nil
}

// ApplyFindings records the on-site report. The outcome status follows the
// address-exists verdict.
func (d *Document) ApplyFindings(f Findings, now time.Time) {
	cp := f
	d.Findings = &cp
	if f.AddressExists {
		d.Status = StatusModeratorVerified
	} else {
		d.Status = StatusVerificationFailed
	}
	d.UpdatedAt = now
}

// CanFinalize checks the admin ruling. Without override the document must be
// in a moderator outcome state; with override any non-terminal state may be
// closed directly.
func (d *Document) CanFinalize(override bool) error {
	if err := d.guardNotTerminal(); err != nil {
		return err
	}
	if override {
		return nil
	}
	if !d.Status.AwaitingDecision() {
		return dErrors.Newf(dErrors.CodeIllegalTransition,
			"cannot finalize a document in %s without override", d.Status)
	}
	return nil
}

// ApplyDecision closes the document as verified or rejected.
func (d *Document) ApplyDecision(approve bool, adminID id.UserID, notes string, now time.Time) {
	d.Decision = &Decision{DecidedBy: adminID, DecidedAt: now, Notes: notes}
	if approve {
		d.Status = StatusVerified
	} else {
		d.Status = StatusRejected
	}
	d.UpdatedAt = now
}

// CheckInvariants verifies the status/sub-field correlation. Stores call it
// before persisting a mutation; a violation aborts the entire write.
func (d *Document) CheckInvariants() error {
	if !d.Status.Valid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown status %q", d.Status)
	}
	if d.Status == StatusAssignedToModerator && d.AssignedTo == nil {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"assigned_to_moderator requires an assigned moderator")
	}
	if d.Status.AwaitingDecision() && d.Findings == nil {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"%s requires moderator findings", d.Status)
	}
	if d.Status.Terminal() && d.Decision == nil {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"%s requires an admin decision", d.Status)
	}
	return nil
}
