package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/rollcall/internal/model"
	"github.com/dukerupert/rollcall/internal/store"
)

// FamilyHandler covers the roster registry: families, their kids, and the
// adults authorized to pick them up.
type FamilyHandler struct {
	families *store.FamilyStore
	logger   *slog.Logger
}

func NewFamilyHandler(fs *store.FamilyStore, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{families: fs, logger: logger}
}

type familyRequest struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	AuthorizedAdults string `json:"authorized_adults"`
}

func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req familyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	family, err := h.families.Create(req.Name, req.Phone, req.AuthorizedAdults)
	if err != nil {
		h.logger.Error("create family", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create family")
		return
	}
	writeJSON(w, http.StatusCreated, family)
}

func (h *FamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	families, err := h.families.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list families")
		return
	}
	if families == nil {
		families = []model.Family{}
	}
	writeJSON(w, http.StatusOK, families)
}

func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	family, err := h.families.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get family")
		return
	}
	if family == nil {
		writeError(w, http.StatusNotFound, "family not found")
		return
	}
	writeJSON(w, http.StatusOK, family)
}

type kidRequest struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

func (h *FamilyHandler) CreateKid(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req kidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	kid, err := h.families.CreateKid(familyID, req.Name, req.Notes)
	if err != nil {
		h.logger.Error("create kid", "family_id", familyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create kid")
		return
	}
	writeJSON(w, http.StatusCreated, kid)
}

func (h *FamilyHandler) ListKids(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	kids, err := h.families.ListKidsByFamily(familyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list kids")
		return
	}
	if kids == nil {
		kids = []model.Kid{}
	}
	writeJSON(w, http.StatusOK, kids)
}

func (h *FamilyHandler) CreateAdult(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	adult, err := h.families.CreateAdult(familyID, req.Name)
	if err != nil {
		h.logger.Error("create adult", "family_id", familyID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create adult")
		return
	}
	writeJSON(w, http.StatusCreated, adult)
}

func (h *FamilyHandler) ListAdults(w http.ResponseWriter, r *http.Request) {
	familyID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	adults, err := h.families.ListAdultsByFamily(familyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list adults")
		return
	}
	if adults == nil {
		adults = []model.Adult{}
	}
	writeJSON(w, http.StatusOK, adults)
}
