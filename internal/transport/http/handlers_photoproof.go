package httptransport

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fieldproof/internal/photoproof"
	id "fieldproof/pkg/domain"
	dErrors "fieldproof/pkg/domain-errors"
	"fieldproof/pkg/platform/httputil"
	"fieldproof/pkg/requestcontext"
)

// maxPhotoBytes bounds a single proof upload.
const maxPhotoBytes = 10 << 20

// PhotoHandler stores moderator photo evidence and returns the reference a
// findings submission carries in photo_proof_ref.
type PhotoHandler struct {
	proofs photoproof.Store
}

func NewPhotoHandler(proofs photoproof.Store) *PhotoHandler {
	return &PhotoHandler{proofs: proofs}
}

func (h *PhotoHandler) Register(r chi.Router) {
	r.Post("/photoproof", h.HandleUpload)
	r.Get("/photoproof", h.HandleFetch)
}

func (h *PhotoHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	actor := requestcontext.Actor(r.Context())
	if actor.Role != id.RoleModerator && actor.Role != id.RoleAdmin {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "photo proof is uploaded by moderators"))
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPhotoBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "read photo upload"))
		return
	}
	if len(data) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "empty photo upload"))
		return
	}

	ref, err := h.proofs.Store(r.Context(), data)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"ref": ref})
}

func (h *PhotoHandler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	actor := requestcontext.Actor(r.Context())
	if actor.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "authentication required"))
		return
	}

	ref := r.URL.Query().Get("ref")
	if ref == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "ref is required"))
		return
	}

	data, err := h.proofs.Fetch(r.Context(), ref)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeNotFound, "photo proof not found"))
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}
