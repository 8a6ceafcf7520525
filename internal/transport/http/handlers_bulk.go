package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fieldproof/internal/bulk"
	"fieldproof/pkg/platform/httputil"
	"fieldproof/pkg/requestcontext"
)

// Importer ingests a CSV stream of addresses.
type Importer interface {
	Import(ctx context.Context, r io.Reader) (*bulk.Report, error)
}

// Exporter streams a filtered CSV snapshot.
type Exporter interface {
	Export(ctx context.Context, w io.Writer, filter bulk.ExportFilter) (int, error)
}

// BulkHandler wires the CSV import/export endpoints.
type BulkHandler struct {
	importer Importer
	exporter Exporter
	logger   *slog.Logger
}

func NewBulkHandler(importer Importer, exporter Exporter, logger *slog.Logger) *BulkHandler {
	return &BulkHandler{importer: importer, exporter: exporter, logger: logger}
}

func (h *BulkHandler) Register(r chi.Router) {
	r.Post("/documents/import", h.HandleImport)
	r.Get("/documents/export", h.HandleExport)
}

// HandleImport accepts the CSV as the request body and responds with the
// per-row report. Partial success is a 200; only a rejected batch errors.
func (h *BulkHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	report, err := h.importer.Import(ctx, r.Body)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "import handled",
		"request_id", requestcontext.RequestID(ctx),
		"created", report.Created,
		"failed", len(report.Failed),
	)
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleExport streams the CSV. The filter defaults to all.
func (h *BulkHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	filter := bulk.ExportFilter(r.URL.Query().Get("filter"))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="documents.csv"`)
	if _, err := h.exporter.Export(r.Context(), w, filter); err != nil {
		// Nothing has been written yet for authorization and filter errors;
		// export queries before emitting the header row.
		httputil.WriteError(w, err)
		return
	}
}
