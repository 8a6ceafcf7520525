package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldproof/internal/regcode/models"
	id "fieldproof/pkg/domain"
	"fieldproof/pkg/platform/sentinel"
	"fieldproof/pkg/requestcontext"
)

const codeColumns = `id, code, role, full_name, email, phone_number, organization,
	jurisdiction, created_at, consumed, consumed_at, consumed_by`

// Postgres persists registration codes. The single-use guarantee rides on a
// conditional UPDATE filtered on consumed = FALSE; the database serializes
// racing consumers and at most one row update succeeds.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Create(ctx context.Context, code *models.RegistrationCode) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO registration_codes (id, code, role, full_name, email, phone_number, organization, jurisdiction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.UUID(code.ID), code.Code, string(code.Role), code.FullName, code.Email,
		code.PhoneNumber, code.Organization, code.Jurisdiction, code.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert registration code: %w", err)
	}
	return nil
}

func (s *Postgres) FindByCode(ctx context.Context, code string) (*models.RegistrationCode, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+codeColumns+` FROM registration_codes WHERE code = $1`, code)
	return scanCode(row)
}

func (s *Postgres) ConsumeIfUnused(ctx context.Context, code string, userID id.UserID) (*models.RegistrationCode, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE registration_codes
		SET consumed = TRUE, consumed_at = $2, consumed_by = $3
		WHERE code = $1 AND consumed = FALSE
		RETURNING `+codeColumns,
		code, requestcontext.Now(ctx), uuid.UUID(userID),
	)
	consumed, err := scanCode(row)
	if errors.Is(err, sentinel.ErrNotFound) {
		// No row matched: either the code does not exist or it lost the race.
		var exists bool
		if checkErr := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM registration_codes WHERE code = $1)`, code,
		).Scan(&exists); checkErr != nil {
			return nil, fmt.Errorf("check registration code: %w", checkErr)
		}
		if exists {
			return nil, sentinel.ErrAlreadyUsed
		}
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.RegistrationCode, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+codeColumns+` FROM registration_codes ORDER BY created_at, code`)
	if err != nil {
		return nil, fmt.Errorf("list registration codes: %w", err)
	}
	defer rows.Close()

	var codes []*models.RegistrationCode
	for rows.Next() {
		code, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func scanCode(row pgx.Row) (*models.RegistrationCode, error) {
	var (
		rawID      uuid.UUID
		role       string
		code       models.RegistrationCode
		consumedAt *time.Time
		consumedBy *uuid.UUID
	)
	err := row.Scan(&rawID, &code.Code, &role, &code.FullName, &code.Email,
		&code.PhoneNumber, &code.Organization, &code.Jurisdiction, &code.CreatedAt,
		&code.Consumed, &consumedAt, &consumedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan registration code: %w", err)
	}
	code.ID = id.CodeID(rawID)
	code.Role = id.Role(role)
	code.ConsumedAt = consumedAt
	if consumedBy != nil {
		by := id.UserID(*consumedBy)
		code.ConsumedBy = &by
	}
	return &code, nil
}
