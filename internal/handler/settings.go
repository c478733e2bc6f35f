package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/rollcall/internal/store"
)

// SettingsHandler reads and updates the checkout policy settings.
type SettingsHandler struct {
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: ss, logger: logger}
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.GetCheckoutSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	// Never expose the password hash; report only whether one is set.
	hasPassword := settings["app_password_hash"] != ""
	delete(settings, "app_password_hash")

	writeJSON(w, http.StatusOK, map[string]any{
		"settings":         settings,
		"app_password_set": hasPassword,
	})
}

type settingsRequest struct {
	RequireCheckoutCode   *string `json:"require_checkout_code"`
	CheckoutCodeMethod    *string `json:"checkout_code_method"`
	AdminOverridePassword *string `json:"admin_override_password"`
	AppPassword           *string `json:"app_password"`
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.RequireCheckoutCode != nil {
		if *req.RequireCheckoutCode != "true" && *req.RequireCheckoutCode != "false" {
			writeError(w, http.StatusBadRequest, "require_checkout_code must be true or false")
			return
		}
		if err := h.settings.Set("require_checkout_code", *req.RequireCheckoutCode); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save setting")
			return
		}
	}

	if req.CheckoutCodeMethod != nil {
		switch *req.CheckoutCodeMethod {
		case "qr", "label", "both":
		default:
			writeError(w, http.StatusBadRequest, "checkout_code_method must be qr, label, or both")
			return
		}
		if err := h.settings.Set("checkout_code_method", *req.CheckoutCodeMethod); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save setting")
			return
		}
	}

	if req.AdminOverridePassword != nil {
		if err := h.settings.Set("admin_override_password", *req.AdminOverridePassword); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save setting")
			return
		}
	}

	if req.AppPassword != nil && *req.AppPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.AppPassword), bcrypt.DefaultCost)
		if err != nil {
			h.logger.Error("hash app password", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save password")
			return
		}
		if err := h.settings.Set("app_password_hash", string(hash)); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save password")
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}
