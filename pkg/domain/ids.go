// Package domain holds the typed identifiers shared across the verification
// engine. Wrapping uuid.UUID in distinct types makes cross-entity ID mixups a
// compile error instead of a runtime surprise.
package domain

import (
	"github.com/google/uuid"

	dErrors "fieldproof/pkg/domain-errors"
)

type (
	// UserID identifies a registered account (submitter, moderator or admin).
	UserID uuid.UUID

	// DocumentID identifies a verification document.
	DocumentID uuid.UUID

	// CodeID identifies a registration code record.
	CodeID uuid.UUID
)

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewDocumentID returns a fresh random DocumentID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// NewCodeID returns a fresh random CodeID.
func NewCodeID() CodeID { return CodeID(uuid.New()) }

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id DocumentID) String() string { return uuid.UUID(id).String() }
func (id CodeID) String() string     { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CodeID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

// The ID types marshal as canonical UUID strings in JSON payloads.

func (id UserID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id CodeID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(text []byte) error {
	parsed, err := ParseUserID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *DocumentID) UnmarshalText(text []byte) error {
	parsed, err := ParseDocumentID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CodeID) UnmarshalText(text []byte) error {
	parsed, err := ParseCodeID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// parseUUID enforces the parsing invariant shared by all ID types:
// IDs must be valid, non-empty, non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id must not be nil")
	}
	return u, nil
}

// ParseUserID parses and validates a user ID at a trust boundary.
func ParseUserID(raw string) (UserID, error) {
	u, err := parseUUID(raw, "user")
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseDocumentID parses and validates a document ID at a trust boundary.
func ParseDocumentID(raw string) (DocumentID, error) {
	u, err := parseUUID(raw, "document")
	if err != nil {
		return DocumentID{}, err
	}
	return DocumentID(u), nil
}

// ParseCodeID parses and validates a registration code ID.
func ParseCodeID(raw string) (CodeID, error) {
	u, err := parseUUID(raw, "code")
	if err != nil {
		return CodeID{}, err
	}
	return CodeID(u), nil
}
