package middleware

import (
	"net/http"
	"strings"

	"github.com/dukerupert/rollcall/internal/auth"
	"github.com/dukerupert/rollcall/internal/store"
)

const sessionCookieName = "rollcall_session"

// RequireAuth validates the kiosk session cookie and attaches the session to
// the request context. API requests get a 401 JSON body; page requests are
// redirected to /login.
func RequireAuth(sessions *store.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				rejectUnauthenticated(w, r)
				return
			}

			sess, err := sessions.GetByToken(cookie.Value)
			if err != nil || sess == nil {
				rejectUnauthenticated(w, r)
				return
			}

			ctx := auth.WithSession(r.Context(), auth.Session{SessionID: sess.ID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"authentication required"}`))
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
