// Package service implements admin code issuance and the registration flow.
// A registration code is the only path into the system for user and moderator
// accounts, and each code admits exactly one account.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"fieldproof/internal/regcode/models"
	"fieldproof/internal/regcode/store"
	userModels "fieldproof/internal/user/models"
	userStore "fieldproof/internal/user/store"
	id "fieldproof/pkg/domain"
	dErrors "fieldproof/pkg/domain-errors"
	"fieldproof/pkg/platform/sentinel"
	"fieldproof/pkg/requestcontext"
)

// IssueParams carries the identity an admin binds to a new code.
type IssueParams struct {
	Role         id.Role
	Jurisdiction string
	FullName     string
	Email        string
	PhoneNumber  string
	Organization string
}

type Service struct {
	codes  store.Store
	users  userStore.Store
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(codes store.Store, users userStore.Store, opts ...Option) *Service {
	s := &Service{codes: codes, users: users, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a new single-use code. Admin only.
func (s *Service) Issue(ctx context.Context, params IssueParams) (*models.RegistrationCode, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Role != id.RoleAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "issuing registration codes requires the admin role")
	}

	code, err := models.NewRegistrationCode(
		id.NewCodeID(), uuid.NewString(), params.Role, params.Jurisdiction,
		params.FullName, params.Email, params.PhoneNumber, params.Organization,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, err
	}

	if err := s.codes.Create(ctx, code); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store registration code")
	}
	s.logger.InfoContext(ctx, "registration code issued",
		"code_id", code.ID.String(),
		"role", code.Role,
		"issued_by", actor.UserID.String(),
	)
	return code, nil
}

// List returns all issued codes. Admin only.
func (s *Service) List(ctx context.Context) ([]*models.RegistrationCode, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Role != id.RoleAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "listing registration codes requires the admin role")
	}
	return s.codes.List(ctx)
}

// Register consumes a code and creates the account it was issued for. The
// consumption is conditional on the code being unused; of any number of
// concurrent callers presenting the same code, exactly one acquires it and
// the rest fail without a second account ever existing.
func (s *Service) Register(ctx context.Context, codeText string) (*userModels.User, error) {
	if codeText == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "registration code is required")
	}

	userID := id.NewUserID()
	consumed, err := s.codes.ConsumeIfUnused(ctx, codeText, userID)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, "unknown registration code")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return nil, dErrors.New(dErrors.CodeConflict, "registration code has already been used")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "consume registration code")
	}

	account, err := userModels.NewUser(
		userID, consumed.Role, consumed.Jurisdiction, consumed.FullName,
		consumed.Email, consumed.PhoneNumber, consumed.Organization,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			// The code is spent but the email already has an account; the
			// code burns rather than admitting a duplicate identity.
			return nil, dErrors.New(dErrors.CodeConflict, "an account with this email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create account")
	}

	s.logger.InfoContext(ctx, "account registered",
		"user_id", account.ID.String(),
		"role", account.Role,
		"code_id", consumed.ID.String(),
	)
	return account, nil
}
