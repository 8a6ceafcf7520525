package domain

// Role is the capability level attached to an account. The wire strings are
// part of the persisted registration-code schema and must not change.
type Role string

const (
	// RoleUser is a submitter: owns documents, may import/export their own data.
	RoleUser Role = "user"
	// RoleModerator performs on-site verification within a jurisdiction.
	RoleModerator Role = "moderator"
	// RoleAdmin assigns, reassigns and finalizes documents.
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known capability levels.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}
