package bulk

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"fieldproof/internal/authz"
	"fieldproof/internal/document/models"
	docStore "fieldproof/internal/document/store"
	id "fieldproof/pkg/domain"
	dErrors "fieldproof/pkg/domain-errors"
	"fieldproof/pkg/requestcontext"
)

// ExportFilter selects which documents an export includes.
type ExportFilter string

const (
	FilterAll        ExportFilter = "all"
	FilterVerified   ExportFilter = "verified"
	FilterUnverified ExportFilter = "unverified"
	FilterRejected   ExportFilter = "rejected"
)

var exportHeader = []string{
	"fullName", "email", "phone", "address", "city", "state", "country",
	"status", "decidedBy", "decidedAt", "moderatorNotes",
}

// Exporter writes a read-only CSV snapshot. Admins export everything;
// submitters export only their own documents. Export never changes state.
type Exporter struct {
	docs  docStore.Store
	guard *authz.Guard
}

func NewExporter(docs docStore.Store, guard *authz.Guard) *Exporter {
	return &Exporter{docs: docs, guard: guard}
}

// Export streams matching documents to w in creation order.
func (e *Exporter) Export(ctx context.Context, w io.Writer, filter ExportFilter) (int, error) {
	actor := requestcontext.Actor(ctx)
	if decision := e.guard.Authorize(actor, authz.ActionExport, nil); !decision.Allowed {
		return 0, decision.Err()
	}

	statuses, err := filterStatuses(filter)
	if err != nil {
		return 0, err
	}

	query := docStore.Filter{Statuses: statuses}
	if actor.Role != id.RoleAdmin {
		owner := actor.UserID
		query.OwnerID = &owner
	}

	docs, err := e.docs.Query(ctx, query)
	if err != nil {
		return 0, err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return 0, err
	}
	for _, doc := range docs {
		if err := writer.Write(exportRecord(doc)); err != nil {
			return 0, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func filterStatuses(filter ExportFilter) ([]models.Status, error) {
	switch filter {
	case FilterAll, "":
		return nil, nil
	case FilterVerified:
		return []models.Status{models.StatusVerified}, nil
	case FilterRejected:
		return []models.Status{models.StatusRejected}, nil
	case FilterUnverified:
		return []models.Status{
			models.StatusPendingAssignment,
			models.StatusAssignedToModerator,
			models.StatusModeratorVerified,
			models.StatusVerificationFailed,
		}, nil
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown export filter %q", filter)
	}
}

func exportRecord(doc *models.Document) []string {
	var decidedBy, decidedAt string
	if doc.Decision != nil {
		decidedBy = doc.Decision.DecidedBy.String()
		decidedAt = doc.Decision.DecidedAt.UTC().Format(time.RFC3339)
	}
	var notes string
	if doc.Findings != nil {
		notes = doc.Findings.Comments
	}
	return []string{
		doc.FullName, doc.Email, doc.Phone, doc.Address, doc.City, doc.State, doc.Country,
		string(doc.Status), decidedBy, decidedAt, notes,
	}
}
