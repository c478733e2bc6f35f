package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/rollcall/internal/checkout"
	"github.com/dukerupert/rollcall/internal/model"
	"github.com/dukerupert/rollcall/internal/store"
	"github.com/dukerupert/rollcall/internal/websocket"
)

// CheckinHandler exposes the check-in, checkout, and sibling operations to
// the kiosks and broadcasts mutations to the hub.
type CheckinHandler struct {
	svc    *checkout.Service
	ledger *store.CheckinStore
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewCheckinHandler(svc *checkout.Service, ledger *store.CheckinStore, hub *websocket.Hub, logger *slog.Logger) *CheckinHandler {
	return &CheckinHandler{svc: svc, ledger: ledger, hub: hub, logger: logger}
}

type checkinRequest struct {
	FamilyID int64   `json:"family_id"`
	AdultID  int64   `json:"adult_id"`
	KidIDs   []int64 `json:"kid_ids"`
	EventID  int64   `json:"event_id"`
}

func (h *CheckinHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result, err := h.svc.CheckinKids(r.Context(), req.FamilyID, req.AdultID, req.KidIDs, req.EventID)
	if err != nil {
		h.logger.Error("check-in failed", "family_id", req.FamilyID, "event_id", req.EventID, "error", err)
		writeCheckoutError(w, err)
		return
	}

	if len(result.Entries) > 0 {
		ids := make([]int64, len(result.Entries))
		for i, e := range result.Entries {
			ids[i] = e.KidID
		}
		h.hub.Broadcast(websocket.CheckinCreated(req.EventID, ids))
	}

	writeJSON(w, http.StatusCreated, result)
}

type checkoutRequest struct {
	AdditionalKidIDs []int64 `json:"additional_kid_ids"`
	EventID          int64   `json:"event_id"`
	Code             string  `json:"code"`
}

func (h *CheckinHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	kidID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	result, err := h.svc.Checkout(r.Context(), kidID, req.AdditionalKidIDs, req.EventID, req.Code)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}

	if result.ClosedCount > 0 {
		kids := append([]int64{kidID}, req.AdditionalKidIDs...)
		h.hub.Broadcast(websocket.CheckoutCompleted(req.EventID, kids))
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *CheckinHandler) Siblings(w http.ResponseWriter, r *http.Request) {
	kidID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	eventID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("event_id")), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event_id")
		return
	}

	kids, err := h.svc.Siblings(kidID, eventID)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}
	if kids == nil {
		kids = []model.Kid{}
	}
	writeJSON(w, http.StatusOK, kids)
}

// Roster lists the open check-ins for an event.
func (h *CheckinHandler) Roster(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	entries, err := h.ledger.ListOpenByEvent(eventID)
	if err != nil {
		h.logger.Error("list roster", "event_id", eventID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list check-ins")
		return
	}
	if entries == nil {
		entries = []model.Checkin{}
	}
	writeJSON(w, http.StatusOK, entries)
}
