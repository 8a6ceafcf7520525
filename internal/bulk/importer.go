// Package bulk moves documents in and out of the engine as CSV. Import
// creates pending documents from raw address rows; export emits a filtered,
// read-only snapshot. Neither path ever mutates document state beyond
// creation.
package bulk

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fieldproof/internal/audit"
	"fieldproof/internal/authz"
	"fieldproof/internal/document/models"
	docStore "fieldproof/internal/document/store"
	"fieldproof/internal/geocode"
	"fieldproof/internal/platform/config"
	"fieldproof/internal/platform/metrics"
	id "fieldproof/pkg/domain"
	dErrors "fieldproof/pkg/domain-errors"
	"fieldproof/pkg/requestcontext"
)

// importHeader is the required CSV layout, in order.
var importHeader = []string{"fullName", "email", "phone", "address", "city", "state", "country"}

// RowError reports why one row was skipped. RowIndex is 1-based over data
// rows; the header is row 0.
type RowError struct {
	RowIndex int    `json:"row_index"`
	Reason   string `json:"reason"`
}

// Report summarizes an import: partial success is the normal outcome.
type Report struct {
	Created int        `json:"created"`
	Failed  []RowError `json:"failed,omitempty"`
}

type row struct {
	index    int
	fullName string
	email    string
	phone    string
	address  string
	city     string
	state    string
	country  string

	result  geocode.Result
	pending bool
}

func (r row) addressText() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{r.address, r.city, r.state, r.country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Importer turns a CSV stream into pending documents. Geocoding runs with
// bounded parallelism; document creation is serialized in row order so the
// resulting set is deterministic.
type Importer struct {
	docs        docStore.Store
	resolver    geocode.Resolver
	guard       *authz.Guard
	auditor     *audit.Recorder
	parallelism int
	timeout     time.Duration
	maxRows     int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

type ImporterOption func(i *Importer)

func WithImporterLogger(logger *slog.Logger) ImporterOption {
	return func(i *Importer) { i.logger = logger }
}

func WithImporterMetrics(m *metrics.Metrics) ImporterOption {
	return func(i *Importer) { i.metrics = m }
}

func NewImporter(docs docStore.Store, resolver geocode.Resolver, guard *authz.Guard, auditor *audit.Recorder, cfg config.ImportConfig, opts ...ImporterOption) *Importer {
	imp := &Importer{
		docs:        docs,
		resolver:    resolver,
		guard:       guard,
		auditor:     auditor,
		parallelism: cfg.GeocodeParallelism,
		timeout:     cfg.GeocodeTimeout,
		maxRows:     cfg.MaxRows,
		logger:      slog.Default(),
	}
	if imp.parallelism <= 0 {
		imp.parallelism = 1
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// Import reads the CSV, validates each row, geocodes valid rows and creates
// one pending document per valid row owned by the calling actor. Invalid
// rows are reported, never created. A geocode failure is not a row failure:
// the document is created with its address resolution still pending.
func (imp *Importer) Import(ctx context.Context, r io.Reader) (*Report, error) {
	actor := requestcontext.Actor(ctx)
	if decision := imp.guard.Authorize(actor, authz.ActionImport, nil); !decision.Allowed {
		return nil, decision.Err()
	}

	report := &Report{}
	rows, rowErrs, err := imp.parse(r)
	if err != nil {
		return nil, err
	}
	report.Failed = rowErrs

	if err := imp.resolveAll(ctx, rows); err != nil {
		return nil, err
	}

	for _, rw := range rows {
		doc := models.New(id.NewDocumentID(), actor.UserID, requestcontext.Now(ctx))
		doc.FullName = rw.fullName
		doc.Email = rw.email
		doc.Phone = rw.phone
		doc.Address = rw.address
		doc.City = rw.city
		doc.State = rw.state
		doc.Country = rw.country
		if rw.pending {
			doc.GeocodePending = true
		} else {
			lat, lng := rw.result.Latitude, rw.result.Longitude
			doc.Latitude, doc.Longitude = &lat, &lng
			doc.Region = rw.result.Region
		}

		if err := imp.docs.Create(ctx, doc); err != nil {
			report.Failed = append(report.Failed, RowError{RowIndex: rw.index, Reason: "store: " + err.Error()})
			continue
		}
		report.Created++

		event := audit.Event{
			DocumentID:  doc.ID,
			ActorID:     actor.UserID,
			ActorRole:   actor.Role,
			Action:      audit.ActionImport,
			Outcome:     audit.OutcomeAccepted,
			PriorStatus: doc.Status,
			NewStatus:   doc.Status,
		}
		if err := imp.auditor.Record(ctx, event); err != nil {
			return nil, err
		}
	}

	if imp.metrics != nil {
		imp.metrics.DocumentsImported.Add(float64(report.Created))
		imp.metrics.ImportRowsFailed.Add(float64(len(report.Failed)))
	}
	imp.logger.InfoContext(ctx, "import finished",
		"created", report.Created,
		"failed", len(report.Failed),
	)
	return report, nil
}

func (imp *Importer) parse(r io.Reader) ([]*row, []RowError, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "empty import file")
	}
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "read header")
	}
	if err := checkHeader(header); err != nil {
		return nil, nil, err
	}

	var (
		rows    []*row
		rowErrs []RowError
		index   int
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		index++
		if imp.maxRows > 0 && index > imp.maxRows {
			return nil, nil, dErrors.Newf(dErrors.CodeInvalidInput,
				"import exceeds the %d row limit", imp.maxRows)
		}
		if err != nil {
			rowErrs = append(rowErrs, RowError{RowIndex: index, Reason: "malformed CSV: " + err.Error()})
			continue
		}

		rw := &row{
			index:    index,
			fullName: strings.TrimSpace(record[0]),
			email:    strings.TrimSpace(record[1]),
			phone:    strings.TrimSpace(record[2]),
			address:  strings.TrimSpace(record[3]),
			city:     strings.TrimSpace(record[4]),
			state:    strings.TrimSpace(record[5]),
			country:  strings.TrimSpace(record[6]),
		}
		if reason := validateRow(rw); reason != "" {
			rowErrs = append(rowErrs, RowError{RowIndex: index, Reason: reason})
			continue
		}
		rows = append(rows, rw)
	}
	return rows, rowErrs, nil
}

// resolveAll geocodes every row with bounded parallelism. Resolution failures
// mark the row pending instead of failing it; only context cancellation
// aborts the batch.
func (imp *Importer) resolveAll(ctx context.Context, rows []*row) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imp.parallelism)

	for _, rw := range rows {
		g.Go(func() error {
			callCtx := gctx
			if imp.timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(gctx, imp.timeout)
				defer cancel()
			}
			result, err := imp.resolver.Resolve(callCtx, rw.addressText())
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				imp.logger.WarnContext(ctx, "geocode failed, document will import unresolved",
					"row", rw.index,
					"error", err,
				)
				rw.pending = true
				return nil
			}
			rw.result = result
			return nil
		})
	}
	return g.Wait()
}

func checkHeader(header []string) error {
	if len(header) != len(importHeader) {
		return dErrors.Newf(dErrors.CodeInvalidInput,
			"expected %d columns, got %d", len(importHeader), len(header))
	}
	for i, want := range importHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return dErrors.Newf(dErrors.CodeInvalidInput,
				"column %d must be %q, got %q", i, want, header[i])
		}
	}
	return nil
}

func validateRow(rw *row) string {
	var missing []string
	if rw.fullName == "" {
		missing = append(missing, "fullName")
	}
	if rw.address == "" {
		missing = append(missing, "address")
	}
	if rw.city == "" {
		missing = append(missing, "city")
	}
	if rw.country == "" {
		missing = append(missing, "country")
	}
	if len(missing) > 0 {
		return fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return ""
}
