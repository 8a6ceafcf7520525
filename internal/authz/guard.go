// Package authz is the single authorization decision point for the
// verification engine. Every mutating operation consults the guard before
// touching a document; a deny prevents any write.
//
// The guard is deliberately pure: it looks only at the actor's trusted claims
// and the document. Geofence enforcement is composed next to it by the
// document service, and the target-moderator jurisdiction match during
// assignment lives with the assignment manager (the guard never loads other
// users).
package authz

import (
	"fieldproof/internal/document/models"
	id "fieldproof/pkg/domain"
	dErrors "fieldproof/pkg/domain-errors"
	"fieldproof/pkg/requestcontext"
)

// Action is an operation subject to authorization.
type Action string

const (
	ActionRead           Action = "read"
	ActionAssign         Action = "assign"
	ActionReassign       Action = "reassign"
	ActionSubmitFindings Action = "submit_findings"
	ActionFinalize       Action = "finalize"
	ActionImport         Action = "import"
	ActionExport         Action = "export"
)

// DenyReason enumerates why the guard refused an action.
type DenyReason string

const (
	ReasonRoleNotPermitted     DenyReason = "role_not_permitted"
	ReasonJurisdictionMismatch DenyReason = "jurisdiction_mismatch"
	ReasonNotAssignedModerator DenyReason = "not_assigned_moderator"
	ReasonDocumentNotFound     DenyReason = "document_not_found"
)

// Decision is the tagged allow/deny result consumed uniformly by every
// mutating operation.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Detail  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason DenyReason, detail string) Decision {
	return Decision{Reason: reason, Detail: detail}
}

// Err converts a deny into the coded error surfaced to callers. Allowed
// decisions return nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	code := dErrors.CodeForbidden
	if d.Reason == ReasonDocumentNotFound {
		code = dErrors.CodeNotFound
	}
	msg := string(d.Reason)
	if d.Detail != "" {
		msg += ": " + d.Detail
	}
	return dErrors.New(code, msg)
}

// Guard maps (role, action, document, actor jurisdiction) onto allow/deny.
type Guard struct{}

func NewGuard() *Guard { return &Guard{} }

// Authorize decides whether actor may perform action on doc. doc may be nil
// only for the document-independent actions (import, export).
//
// Admin bypass of jurisdiction happens here explicitly; recording the bypass
// in the audit payload is the caller's obligation (the override flag travels
// with the transition, never silently).
func (g *Guard) Authorize(actor requestcontext.Identity, action Action, doc *models.Document) Decision {
	if actor.IsZero() || !actor.Role.Valid() {
		return deny(ReasonRoleNotPermitted, "unauthenticated caller")
	}

	switch action {
	case ActionImport, ActionExport:
		if actor.Role == id.RoleModerator {
			return deny(ReasonRoleNotPermitted, "moderators do not import or export documents")
		}
		return allow()
	}

	if doc == nil {
		return deny(ReasonDocumentNotFound, "")
	}

	switch action {
	case ActionRead:
		switch {
		case actor.Role == id.RoleAdmin:
			return allow()
		case actor.Role == id.RoleUser && doc.OwnerID == actor.UserID:
			return allow()
		case actor.Role == id.RoleModerator && doc.IsAssignedTo(actor.UserID):
			return allow()
		case actor.Role == id.RoleModerator:
			return deny(ReasonNotAssignedModerator, "")
		default:
			return deny(ReasonRoleNotPermitted, "submitters read only their own documents")
		}

	case ActionAssign, ActionReassign, ActionFinalize:
		// Role-capability check: a moderator never assigns or finalizes,
		// independent of jurisdiction.
		if actor.Role != id.RoleAdmin {
			return deny(ReasonRoleNotPermitted, string(action)+" requires the admin role")
		}
		return allow()

	case ActionSubmitFindings:
		if actor.Role == id.RoleAdmin {
			return allow()
		}
		if actor.Role != id.RoleModerator {
			return deny(ReasonRoleNotPermitted, "findings are written by moderators")
		}
		// Jurisdiction mismatch wins over every other check, including any
		// geofence result the caller may have computed.
		if doc.Region != "" && actor.Jurisdiction != doc.Region {
			return deny(ReasonJurisdictionMismatch,
				"moderator acts in "+actor.Jurisdiction+", document is in "+doc.Region)
		}
		if !doc.IsAssignedTo(actor.UserID) {
			return deny(ReasonNotAssignedModerator, "")
		}
		return allow()
	}

	return deny(ReasonRoleNotPermitted, "unknown action "+string(action))
}
