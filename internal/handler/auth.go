package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/rollcall/internal/store"
)

const sessionCookieName = "rollcall_session"

// AuthHandler implements kiosk operator login against the stored app
// password.
type AuthHandler struct {
	sessions *store.SessionStore
	settings *store.SettingsStore
	logger   *slog.Logger
}

func NewAuthHandler(ss *store.SessionStore, settings *store.SettingsStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{sessions: ss, settings: settings, logger: logger}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	hash, err := h.settings.Get("app_password_hash")
	if err != nil {
		h.logger.Error("load app password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if hash == "" {
		// First run: no password configured, any login succeeds.
		h.issueSession(w)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "incorrect password")
		return
	}

	h.issueSession(w)
}

func (h *AuthHandler) issueSession(w http.ResponseWriter) {
	sess, err := h.sessions.Create()
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   12 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		if sess, err := h.sessions.GetByToken(cookie.Value); err == nil && sess != nil {
			h.sessions.Delete(sess.ID)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}
