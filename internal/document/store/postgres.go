package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldproof/internal/document/models"
	id "fieldproof/pkg/domain"
	"fieldproof/pkg/platform/sentinel"
)

// Postgres persists documents in the documents table. UpdateIfStatus takes a
// row lock (SELECT ... FOR UPDATE) so validation and mutation happen under the
// same transaction the write commits in.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const documentColumns = `id, owner_id, full_name, email, phone, address, city, state, country,
	latitude, longitude, region, geocode_pending, status, assigned_to,
	findings, decided_by, decided_at, decision_notes, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, doc *models.Document) error {
	if err := doc.CheckInvariants(); err != nil {
		return err
	}
	findings, err := marshalFindings(doc.Findings)
	if err != nil {
		return err
	}

	var decidedBy *uuid.UUID
	var decisionNotes *string
	decision := doc.Decision
	if decision != nil {
		raw := uuid.UUID(decision.DecidedBy)
		decidedBy = &raw
		decisionNotes = &decision.Notes
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		uuid.UUID(doc.ID), uuid.UUID(doc.OwnerID), doc.FullName, doc.Email, doc.Phone,
		doc.Address, doc.City, doc.State, doc.Country,
		doc.Latitude, doc.Longitude, doc.Region, doc.GeocodePending, string(doc.Status),
		assignedToUUID(doc), findings, decidedBy, decidedAt(doc), decisionNotes,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, uuid.UUID(docID))
	return scanDocument(row)
}

func (s *Postgres) UpdateIfStatus(ctx context.Context, docID id.DocumentID, expected models.Status, mutate func(*models.Document) error) (*models.Document, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, uuid.UUID(docID))
	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	if doc.Status != expected {
		return nil, sentinel.ErrConflict
	}

	if err := mutate(doc); err != nil {
		return nil, err
	}
	if err := doc.CheckInvariants(); err != nil {
		return nil, err
	}

	findings, err := marshalFindings(doc.Findings)
	if err != nil {
		return nil, err
	}
	var decidedBy *uuid.UUID
	var decisionNotes *string
	if doc.Decision != nil {
		raw := uuid.UUID(doc.Decision.DecidedBy)
		decidedBy = &raw
		decisionNotes = &doc.Decision.Notes
	}

	tag, err := tx.Exec(ctx, `
		UPDATE documents
		SET latitude = $2, longitude = $3, region = $4, geocode_pending = $5,
		    status = $6, assigned_to = $7, findings = $8,
		    decided_by = $9, decided_at = $10, decision_notes = $11, updated_at = $12
		WHERE id = $1 AND status = $13`,
		uuid.UUID(doc.ID), doc.Latitude, doc.Longitude, doc.Region, doc.GeocodePending,
		string(doc.Status), assignedToUUID(doc), findings,
		decidedBy, decidedAt(doc), decisionNotes, doc.UpdatedAt,
		string(expected),
	)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, sentinel.ErrConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return doc, nil
}

func (s *Postgres) Query(ctx context.Context, filter Filter) ([]*models.Document, error) {
	builder := sq.Select(documentColumns).
		From("documents").
		OrderBy("created_at", "id").
		PlaceholderFormat(sq.Dollar)

	if filter.OwnerID != nil {
		builder = builder.Where(sq.Eq{"owner_id": uuid.UUID(*filter.OwnerID)})
	}
	if filter.AssignedTo != nil {
		builder = builder.Where(sq.Eq{"assigned_to": uuid.UUID(*filter.AssignedTo)})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		builder = builder.Where(sq.Eq{"status": statuses})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build document query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *Postgres) CountOpenByModerator(ctx context.Context, moderatorID id.UserID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM documents
		WHERE status = $1 AND assigned_to = $2`,
		string(models.StatusAssignedToModerator), uuid.UUID(moderatorID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open assignments: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc           models.Document
		rawID         uuid.UUID
		rawOwner      uuid.UUID
		status        string
		assignedTo    *uuid.UUID
		findingsJSON  []byte
		decidedBy     *uuid.UUID
		decidedAtTime *time.Time
		decisionNotes *string
	)
	err := row.Scan(&rawID, &rawOwner, &doc.FullName, &doc.Email, &doc.Phone,
		&doc.Address, &doc.City, &doc.State, &doc.Country,
		&doc.Latitude, &doc.Longitude, &doc.Region, &doc.GeocodePending, &status,
		&assignedTo, &findingsJSON, &decidedBy, &decidedAtTime, &decisionNotes,
		&doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}

	doc.ID = id.DocumentID(rawID)
	doc.OwnerID = id.UserID(rawOwner)
	doc.Status = models.Status(status)
	if assignedTo != nil {
		moderator := id.UserID(*assignedTo)
		doc.AssignedTo = &moderator
	}
	if len(findingsJSON) > 0 {
		var f models.Findings
		if err := json.Unmarshal(findingsJSON, &f); err != nil {
			return nil, fmt.Errorf("unmarshal findings: %w", err)
		}
		doc.Findings = &f
	}
	if decidedBy != nil && decidedAtTime != nil {
		decision := models.Decision{DecidedBy: id.UserID(*decidedBy), DecidedAt: *decidedAtTime}
		if decisionNotes != nil {
			decision.Notes = *decisionNotes
		}
		doc.Decision = &decision
	}
	return &doc, nil
}

func marshalFindings(f *models.Findings) ([]byte, error) {
	if f == nil {
		return nil, nil
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal findings: %w", err)
	}
	return raw, nil
}

func assignedToUUID(doc *models.Document) *uuid.UUID {
	if doc.AssignedTo == nil {
		return nil
	}
	raw := uuid.UUID(*doc.AssignedTo)
	return &raw
}

func decidedAt(doc *models.Document) *time.Time {
	if doc.Decision == nil {
		return nil
	}
	at := doc.Decision.DecidedAt
	return &at
}
