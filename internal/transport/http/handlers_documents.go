package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fieldproof/internal/audit"
	"fieldproof/internal/document/models"
	docservice "fieldproof/internal/document/service"
	id "fieldproof/pkg/domain"
	dErrors "fieldproof/pkg/domain-errors"
	"fieldproof/pkg/platform/httputil"
	"fieldproof/pkg/requestcontext"
)

// DocumentService is the workflow surface consumed by the document handler.
type DocumentService interface {
	Get(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	List(ctx context.Context, statuses []models.Status) ([]*models.Document, error)
	History(ctx context.Context, docID id.DocumentID) ([]audit.Event, error)
	SubmitFindings(ctx context.Context, docID id.DocumentID, position docservice.Position, findings models.Findings, override bool) (*models.Document, error)
	Finalize(ctx context.Context, docID id.DocumentID, approve bool, notes string, override bool) (*models.Document, error)
}

// AssignmentService is the binding surface consumed by the document handler.
type AssignmentService interface {
	Assign(ctx context.Context, docID id.DocumentID, moderatorID id.UserID, override bool) (*models.Document, error)
	Reassign(ctx context.Context, docID id.DocumentID, moderatorID id.UserID, override bool) (*models.Document, error)
}

// DocumentHandler wires document endpoints to the workflow services.
type DocumentHandler struct {
	docs       DocumentService
	assignment AssignmentService
	logger     *slog.Logger
}

func NewDocumentHandler(docs DocumentService, assignment AssignmentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{docs: docs, assignment: assignment, logger: logger}
}

// Register mounts document endpoints on the router.
func (h *DocumentHandler) Register(r chi.Router) {
	r.Get("/documents", h.HandleList)
	r.Get("/documents/{documentID}", h.HandleGet)
	r.Get("/documents/{documentID}/history", h.HandleHistory)
	r.Post("/documents/{documentID}/assign", h.HandleAssign)
	r.Post("/documents/{documentID}/reassign", h.HandleReassign)
	r.Post("/documents/{documentID}/findings", h.HandleSubmitFindings)
	r.Post("/documents/{documentID}/finalize", h.HandleFinalize)
}

type assignRequest struct {
	ModeratorID string `json:"moderator_id"`
	Override    bool   `json:"override"`
}

type findingsRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Override  bool    `json:"override"`

	AddressExists bool   `json:"address_exists"`
	BuildingType  string `json:"building_type"`
	OccupantMet   bool   `json:"occupant_met"`
	Relationship  string `json:"relationship"`
	Comments      string `json:"comments"`
	PhotoProofRef string `json:"photo_proof_ref"`
}

type finalizeRequest struct {
	Approve  bool   `json:"approve"`
	Notes    string `json:"notes"`
	Override bool   `json:"override"`
}

type documentResponse struct {
	ID             string           `json:"id"`
	OwnerID        string           `json:"owner_id"`
	FullName       string           `json:"full_name"`
	Email          string           `json:"email,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	Address        string           `json:"address"`
	City           string           `json:"city"`
	State          string           `json:"state,omitempty"`
	Country        string           `json:"country"`
	Latitude       *float64         `json:"latitude,omitempty"`
	Longitude      *float64         `json:"longitude,omitempty"`
	Region         string           `json:"region,omitempty"`
	GeocodePending bool             `json:"geocode_pending,omitempty"`
	Status         string           `json:"status"`
	AssignedTo     string           `json:"assigned_to,omitempty"`
	Findings       *models.Findings `json:"findings,omitempty"`
	Decision       *decisionDTO     `json:"decision,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type decisionDTO struct {
	DecidedBy string    `json:"decided_by"`
	DecidedAt time.Time `json:"decided_at"`
	Notes     string    `json:"notes,omitempty"`
}

func toDocumentResponse(doc *models.Document) documentResponse {
	resp := documentResponse{
		ID:             doc.ID.String(),
		OwnerID:        doc.OwnerID.String(),
		FullName:       doc.FullName,
		Email:          doc.Email,
		Phone:          doc.Phone,
		Address:        doc.Address,
		City:           doc.City,
		State:          doc.State,
		Country:        doc.Country,
		Latitude:       doc.Latitude,
		Longitude:      doc.Longitude,
		Region:         doc.Region,
		GeocodePending: doc.GeocodePending,
		Status:         string(doc.Status),
		Findings:       doc.Findings,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
	if doc.AssignedTo != nil {
		resp.AssignedTo = doc.AssignedTo.String()
	}
	if doc.Decision != nil {
		resp.Decision = &decisionDTO{
			DecidedBy: doc.Decision.DecidedBy.String(),
			DecidedAt: doc.Decision.DecidedAt,
			Notes:     doc.Decision.Notes,
		}
	}
	return resp
}

func documentIDParam(r *http.Request) (id.DocumentID, error) {
	return id.ParseDocumentID(chi.URLParam(r, "documentID"))
}

func (h *DocumentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	docID, err := documentIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	doc, err := h.docs.Get(r.Context(), docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *DocumentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var statuses []models.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := models.Status(strings.TrimSpace(s))
			if !status.Valid() {
				httputil.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "unknown status %q", s))
				return
			}
			statuses = append(statuses, status)
		}
	}

	docs, err := h.docs.List(r.Context(), statuses)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocumentResponse(doc))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"documents": out})
}

func (h *DocumentHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	docID, err := documentIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.docs.History(r.Context(), docID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *DocumentHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	h.handleBind(w, r, h.assignment.Assign)
}

func (h *DocumentHandler) HandleReassign(w http.ResponseWriter, r *http.Request) {
	h.handleBind(w, r, h.assignment.Reassign)
}

func (h *DocumentHandler) handleBind(w http.ResponseWriter, r *http.Request, bind func(context.Context, id.DocumentID, id.UserID, bool) (*models.Document, error)) {
	docID, err := documentIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[assignRequest](w, r)
	if !ok {
		return
	}
	moderatorID, err := id.ParseUserID(req.ModeratorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, err := bind(r.Context(), docID, moderatorID, req.Override)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *DocumentHandler) HandleSubmitFindings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID, err := documentIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[findingsRequest](w, r)
	if !ok {
		return
	}

	doc, err := h.docs.SubmitFindings(ctx, docID,
		docservice.Position{Latitude: req.Latitude, Longitude: req.Longitude},
		models.Findings{
			AddressExists: req.AddressExists,
			BuildingType:  req.BuildingType,
			OccupantMet:   req.OccupantMet,
			Relationship:  req.Relationship,
			Comments:      req.Comments,
			PhotoProofRef: req.PhotoProofRef,
		},
		req.Override,
	)
	if err != nil {
		h.logger.InfoContext(ctx, "findings submission refused",
			"request_id", requestcontext.RequestID(ctx),
			"document_id", docID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *DocumentHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	docID, err := documentIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[finalizeRequest](w, r)
	if !ok {
		return
	}

	doc, err := h.docs.Finalize(r.Context(), docID, req.Approve, req.Notes, req.Override)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDocumentResponse(doc))
}
