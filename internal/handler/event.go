package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/rollcall/internal/model"
	"github.com/dukerupert/rollcall/internal/store"
)

type EventHandler struct {
	events *store.EventStore
	logger *slog.Logger
}

func NewEventHandler(es *store.EventStore, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: es, logger: logger}
}

type eventRequest struct {
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.StartTime.IsZero() {
		writeError(w, http.StatusBadRequest, "name and start_time are required")
		return
	}

	event, err := h.events.Create(req.Name, req.StartTime)
	if err != nil {
		h.logger.Error("create event", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create event")
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Nearest returns the event closest to now, which kiosks use as their
// default selection at boot.
func (h *EventHandler) Nearest(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.Nearest(time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to find event")
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "no events")
		return
	}
	writeJSON(w, http.StatusOK, event)
}
