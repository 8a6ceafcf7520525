package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	regcodeModels "fieldproof/internal/regcode/models"
	regcodeService "fieldproof/internal/regcode/service"
	userModels "fieldproof/internal/user/models"
	id "fieldproof/pkg/domain"
	"fieldproof/pkg/platform/httputil"
	"fieldproof/pkg/requestcontext"
)

// RegistrationService covers code issuance and account registration.
type RegistrationService interface {
	Issue(ctx context.Context, params regcodeService.IssueParams) (*regcodeModels.RegistrationCode, error)
	List(ctx context.Context) ([]*regcodeModels.RegistrationCode, error)
	Register(ctx context.Context, codeText string) (*userModels.User, error)
}

// AccountHandler wires registration and the admin code endpoints.
type AccountHandler struct {
	registration RegistrationService
	logger       *slog.Logger
}

func NewAccountHandler(registration RegistrationService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{registration: registration, logger: logger}
}

func (h *AccountHandler) Register(r chi.Router) {
	r.Post("/register", h.HandleRegister)
	r.Post("/admin/codes", h.HandleIssueCode)
	r.Get("/admin/codes", h.HandleListCodes)
}

type registerRequest struct {
	Code string `json:"code"`
}

type issueCodeRequest struct {
	Role         string `json:"role"`
	Jurisdiction string `json:"jurisdiction"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phone_number"`
	Organization string `json:"organization"`
}

type codeResponse struct {
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	Role         string     `json:"role"`
	Jurisdiction string     `json:"jurisdiction,omitempty"`
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	Consumed     bool       `json:"consumed"`
	ConsumedAt   *time.Time `json:"consumed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

type accountResponse struct {
	ID           string    `json:"id"`
	Role         string    `json:"role"`
	Jurisdiction string    `json:"jurisdiction,omitempty"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
}

func toCodeResponse(code *regcodeModels.RegistrationCode) codeResponse {
	return codeResponse{
		ID:           code.ID.String(),
		Code:         code.Code,
		Role:         string(code.Role),
		Jurisdiction: code.Jurisdiction,
		FullName:     code.FullName,
		Email:        code.Email,
		Consumed:     code.Consumed,
		ConsumedAt:   code.ConsumedAt,
		CreatedAt:    code.CreatedAt,
	}
}

func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[registerRequest](w, r)
	if !ok {
		return
	}

	account, err := h.registration.Register(ctx, req.Code)
	if err != nil {
		h.logger.InfoContext(ctx, "registration refused",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, accountResponse{
		ID:           account.ID.String(),
		Role:         string(account.Role),
		Jurisdiction: account.Jurisdiction,
		FullName:     account.FullName,
		Email:        account.Email,
		CreatedAt:    account.CreatedAt,
	})
}

func (h *AccountHandler) HandleIssueCode(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[issueCodeRequest](w, r)
	if !ok {
		return
	}

	code, err := h.registration.Issue(r.Context(), regcodeService.IssueParams{
		Role:         id.Role(req.Role),
		Jurisdiction: req.Jurisdiction,
		FullName:     req.FullName,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		Organization: req.Organization,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCodeResponse(code))
}

func (h *AccountHandler) HandleListCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.registration.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]codeResponse, 0, len(codes))
	for _, code := range codes {
		out = append(out, toCodeResponse(code))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"codes": out})
}
