package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldproof/internal/user/models"
	id "fieldproof/pkg/domain"
	"fieldproof/pkg/platform/sentinel"
)

// Postgres persists accounts in the users table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Create(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, role, jurisdiction, full_name, email, phone_number, organization, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(user.ID), string(user.Role), user.Jurisdiction, user.FullName,
		user.Email, user.PhoneNumber, user.Organization, user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(userID))
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (s *Postgres) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, role, jurisdiction, full_name, email, phone_number, organization, created_at
		FROM users `+where, arg)

	var (
		rawID uuid.UUID
		user  models.User
		role  string
	)
	err := row.Scan(&rawID, &role, &user.Jurisdiction, &user.FullName,
		&user.Email, &user.PhoneNumber, &user.Organization, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.ID = id.UserID(rawID)
	user.Role = id.Role(role)
	return &user, nil
}
