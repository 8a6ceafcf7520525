package models

// Status enumerates the document lifecycle. The wire strings are persisted
// and exported; they must not change.
type Status string

const (
	StatusPendingAssignment   Status = "pending_assignment"
	StatusAssignedToModerator Status = "assigned_to_moderator"
	StatusModeratorVerified   Status = "moderator_verified"
	StatusVerificationFailed  Status = "verification_failed"
	StatusVerified            Status = "verified"
	StatusRejected            Status = "rejected"
)

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingAssignment, StatusAssignedToModerator, StatusModeratorVerified,
		StatusVerificationFailed, StatusVerified, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusRejected
}

// AwaitingDecision reports whether s is one of the two moderator outcomes an
// admin finalizes from.
func (s Status) AwaitingDecision() bool {
	return s == StatusModeratorVerified || s == StatusVerificationFailed
}
