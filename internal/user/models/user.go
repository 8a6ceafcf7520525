// Package models holds the account records backing authorization decisions.
package models

import (
	"time"

	id "fieldproof/pkg/domain"
	dErrors "fieldproof/pkg/domain-errors"
)

// User is a registered account. Authentication lives with the identity
// provider; this record carries only what the engine needs to authorize
// actions: the role and, for moderators, the jurisdiction they act within.
//
// Invariants:
//   - Role is one of user/moderator/admin and immutable except by admin action
//   - Moderators carry a non-empty jurisdiction
type User struct {
	ID           id.UserID
	Role         id.Role
	Jurisdiction string
	FullName     string
	Email        string
	PhoneNumber  string
	Organization string
	CreatedAt    time.Time
}

// NewUser validates and builds an account record.
func NewUser(userID id.UserID, role id.Role, jurisdiction, fullName, email, phoneNumber, organization string, now time.Time) (*User, error) {
	if !role.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", role)
	}
	if role == id.RoleModerator && jurisdiction == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "moderator requires a jurisdiction")
	}
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	return &User{
		ID:           userID,
		Role:         role,
		Jurisdiction: jurisdiction,
		FullName:     fullName,
		Email:        email,
		PhoneNumber:  phoneNumber,
		Organization: organization,
		CreatedAt:    now,
	}, nil
}
