// Package models holds the single-use registration code aggregate.
package models

import (
	"net/mail"
	"time"

	id "fieldproof/pkg/domain"
	dErrors "fieldproof/pkg/domain-errors"
)

// RegistrationCode is an admin-issued invitation bound to one future account.
// The identity fields are fixed at issuance; registration consumes the code
// and copies them onto the new account verbatim.
type RegistrationCode struct {
	ID   id.CodeID
	Code string

	Role         id.Role
	Jurisdiction string

	FullName     string
	Email        string
	PhoneNumber  string
	Organization string

	Consumed   bool
	ConsumedAt *time.Time
	ConsumedBy *id.UserID

	CreatedAt time.Time
}

// NewRegistrationCode validates and builds an unconsumed code. Codes are
// issued for user and moderator accounts only; admins are provisioned out of
// band. A moderator code must carry the jurisdiction the account will work in.
func NewRegistrationCode(codeID id.CodeID, code string, role id.Role, jurisdiction, fullName, email, phoneNumber, organization string, now time.Time) (*RegistrationCode, error) {
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "code text is required")
	}
	if role != id.RoleUser && role != id.RoleModerator {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput,
			"registration codes are issued for user or moderator roles, got %q", role)
	}
	if role == id.RoleModerator && jurisdiction == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			"a moderator code requires a jurisdiction")
	}
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "full name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid email address")
	}

	return &RegistrationCode{
		ID:           codeID,
		Code:         code,
		Role:         role,
		Jurisdiction: jurisdiction,
		FullName:     fullName,
		Email:        email,
		PhoneNumber:  phoneNumber,
		Organization: organization,
		CreatedAt:    now,
	}, nil
}

// MarkConsumed stamps the one-and-only consumption. Stores call it inside
// their conditional update; a consumed code never reverts.
func (c *RegistrationCode) MarkConsumed(userID id.UserID, now time.Time) {
	c.Consumed = true
	c.ConsumedAt = &now
	c.ConsumedBy = &userID
}
