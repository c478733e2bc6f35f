package handler

import (
	"net/http"

	"github.com/dukerupert/rollcall/internal/checkout"
)

// ShareHandler resolves public share links. The token itself is the
// credential, so these routes sit outside the auth middleware.
type ShareHandler struct {
	svc *checkout.Service
}

func NewShareHandler(svc *checkout.Service) *ShareHandler {
	return &ShareHandler{svc: svc}
}

func (h *ShareHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.ResolveShareToken(r.PathValue("token"))
	if err != nil {
		// Expired, used, and never-issued all collapse to the same answer.
		writeCheckoutError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
