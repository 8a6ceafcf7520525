package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "fieldproof/pkg/domain"
	dErrors "fieldproof/pkg/domain-errors"
)

func newDoc(t *testing.T, status Status) *Document {
	t.Helper()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	doc := New(id.NewDocumentID(), id.NewUserID(), now)

	moderatorID := id.NewUserID()
	switch status {
	case StatusPendingAssignment:
	case StatusAssignedToModerator:
		doc.ApplyAssignment(moderatorID, now)
	case StatusModeratorVerified:
		doc.ApplyAssignment(moderatorID, now)
		doc.ApplyFindings(Findings{AddressExists: true}, now)
	case StatusVerificationFailed:
		doc.ApplyAssignment(moderatorID, now)
		doc.ApplyFindings(Findings{AddressExists: false}, now)
	case StatusVerified:
		doc.ApplyAssignment(moderatorID, now)
		doc.ApplyFindings(Findings{AddressExists: true}, now)
		doc.ApplyDecision(true, id.NewUserID(), "", now)
	case StatusRejected:
		doc.ApplyAssignment(moderatorID, now)
		doc.ApplyFindings(Findings{AddressExists: false}, now)
		doc.ApplyDecision(false, id.NewUserID(), "", now)
	default:
		t.Fatalf("unhandled status %s", status)
	}
	require.Equal(t, status, doc.Status)
	require.NoError(t, doc.CheckInvariants())
	return doc
}

func TestNewDocumentStartsPending(t *testing.T) {
	doc := New(id.NewDocumentID(), id.NewUserID(), time.Now())
	assert.Equal(t, StatusPendingAssignment, doc.Status)
	assert.False(t, doc.Geocoded())
	assert.Nil(t, doc.AssignedTo)
}

func TestTransitionTable(t *testing.T) {
	all := []Status{
		StatusPendingAssignment, StatusAssignedToModerator, StatusModeratorVerified,
		StatusVerificationFailed, StatusVerified, StatusRejected,
	}

	cases := []struct {
		name    string
		check   func(d *Document) error
		allowed map[Status]bool
	}{
		{
			name:    "assign",
			check:   func(d *Document) error { return d.CanAssign() },
			allowed: map[Status]bool{StatusPendingAssignment: true},
		},
		{
			name:  "reassign",
			check: func(d *Document) error { return d.CanReassign() },
			allowed: map[Status]bool{
				StatusAssignedToModerator: true,
				StatusModeratorVerified:   true,
				StatusVerificationFailed:  true,
			},
		},
		{
			name:    "submit findings",
			check:   func(d *Document) error { return d.CanSubmitFindings() },
			allowed: map[Status]bool{StatusAssignedToModerator: true},
		},
		{
			name:  "finalize",
			check: func(d *Document) error { return d.CanFinalize(false) },
			allowed: map[Status]bool{
				StatusModeratorVerified:  true,
				StatusVerificationFailed: true,
			},
		},
		{
			name:  "finalize with override",
			check: func(d *Document) error { return d.CanFinalize(true) },
			allowed: map[Status]bool{
				StatusPendingAssignment:   true,
				StatusAssignedToModerator: true,
				StatusModeratorVerified:   true,
				StatusVerificationFailed:  true,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, status := range all {
				err := tc.check(newDoc(t, status))
				if tc.allowed[status] {
					assert.NoError(t, err, "from %s", status)
					continue
				}
				require.Error(t, err, "from %s", status)
				if status.Terminal() {
					assert.True(t, dErrors.HasCode(err, dErrors.CodeTerminalState), "from %s", status)
				} else {
					assert.True(t, dErrors.HasCode(err, dErrors.CodeIllegalTransition), "from %s", status)
				}
			}
		})
	}
}

func TestApplyFindingsOutcomeFollowsAddressExists(t *testing.T) {
	now := time.Now()

	exists := newDoc(t, StatusAssignedToModerator)
	exists.ApplyFindings(Findings{AddressExists: true, BuildingType: "residential"}, now)
	assert.Equal(t, StatusModeratorVerified, exists.Status)

	missing := newDoc(t, StatusAssignedToModerator)
	missing.ApplyFindings(Findings{AddressExists: false, Comments: "empty plot"}, now)
	assert.Equal(t, StatusVerificationFailed, missing.Status)
	require.NotNil(t, missing.Findings)
	assert.Equal(t, "empty plot", missing.Findings.Comments)
}

func TestReassignmentClearsFindings(t *testing.T) {
	doc := newDoc(t, StatusVerificationFailed)
	next := id.NewUserID()
	doc.ApplyReassignment(next, time.Now())

	assert.Equal(t, StatusAssignedToModerator, doc.Status)
	assert.Nil(t, doc.Findings)
	require.NotNil(t, doc.AssignedTo)
	assert.Equal(t, next, *doc.AssignedTo)
	assert.NoError(t, doc.CheckInvariants())
}

func TestCheckInvariantsCatchesDrift(t *testing.T) {
	assigned := newDoc(t, StatusAssignedToModerator)
	assigned.AssignedTo = nil
	require.Error(t, assigned.CheckInvariants())

	verified := newDoc(t, StatusVerified)
	verified.Decision = nil
	require.Error(t, verified.CheckInvariants())

	outcome := newDoc(t, StatusModeratorVerified)
	outcome.Findings = nil
	require.Error(t, outcome.CheckInvariants())

	bogus := newDoc(t, StatusPendingAssignment)
	bogus.Status = Status("limbo")
	err := bogus.CheckInvariants()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusVerified.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusModeratorVerified.Terminal())

	assert.True(t, StatusModeratorVerified.AwaitingDecision())
	assert.True(t, StatusVerificationFailed.AwaitingDecision())
	assert.False(t, StatusPendingAssignment.AwaitingDecision())

	assert.False(t, Status("limbo").Valid())
}
