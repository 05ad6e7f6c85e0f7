package rest

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/webitel/hose-relay/internal/domain/model"
	"github.com/webitel/hose-relay/internal/service"
)

type DIDHandler struct {
	resolver service.DIDResolver
}

func NewDIDHandler(resolver service.DIDResolver) *DIDHandler {
	return &DIDHandler{resolver: resolver}
}

type didResponse struct {
	Handle   string             `json:"handle,omitempty"`
	Document *model.DIDDocument `json:"document"`
}

// Resolve returns the document and handle for the DID in the path.
func (h *DIDHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	did := chi.URLParam(r, "did")

	doc, err := h.resolver.Resolve(r.Context(), did)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, didResponse{Handle: doc.Handle(), Document: doc})
}

// ResolveMany resolves every ?did= value and maps each DID to its handle.
func (h *DIDHandler) ResolveMany(w http.ResponseWriter, r *http.Request) {
	dids := r.URL.Query()["did"]
	if len(dids) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("at least one did query parameter is required"))
		return
	}

	docs, err := h.resolver.ResolveMany(r.Context(), dids)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	handles := make(map[string]string, len(docs))
	for did, doc := range docs {
		handles[did] = doc.Handle()
	}
	writeJSON(w, http.StatusOK, handles)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidDID):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrDIDNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}
