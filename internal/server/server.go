package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/rollcall/internal/backup"
	"github.com/dukerupert/rollcall/internal/checkout"
	"github.com/dukerupert/rollcall/internal/config"
	"github.com/dukerupert/rollcall/internal/handler"
	"github.com/dukerupert/rollcall/internal/middleware"
	"github.com/dukerupert/rollcall/internal/store"
	ws "github.com/dukerupert/rollcall/internal/websocket"
)

// Server wires the stores, the checkout service, and the handlers into one
// HTTP surface.
type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	checkinH      *handler.CheckinHandler
	shareH        *handler.ShareHandler
	familyH       *handler.FamilyHandler
	eventH        *handler.EventHandler
	settingsH     *handler.SettingsHandler
	authH         *handler.AuthHandler
	backupH       *handler.BackupHandler
	sessionStore  *store.SessionStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	logger        *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)

	ledger := store.NewCheckinStore(db)
	tokens := store.NewShareTokenStore(db)
	families := store.NewFamilyStore(db)
	events := store.NewEventStore(db)
	settings := store.NewSettingsStore(db)
	sessions := store.NewSessionStore(db)

	svc := checkout.NewService(ledger, tokens, families, settings,
		cfg.DeveloperPassword, cfg.BaseURL, logger.With("component", "checkout"))

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		},
		DBPath:        cfg.DBPath,
		Passphrase:    cfg.BackupPassphrase,
		ScheduleHour:  cfg.BackupScheduleHour,
		RetentionDays: cfg.BackupRetentionDays,
	}, db, logger)

	return &Server{
		db:            db,
		hub:           hub,
		checkinH:      handler.NewCheckinHandler(svc, ledger, hub, logger.With("component", "checkin")),
		shareH:        handler.NewShareHandler(svc),
		familyH:       handler.NewFamilyHandler(families, logger.With("component", "family")),
		eventH:        handler.NewEventHandler(events, logger.With("component", "event")),
		settingsH:     handler.NewSettingsHandler(settings, logger.With("component", "settings")),
		authH:         handler.NewAuthHandler(sessions, settings, logger.With("component", "auth")),
		backupH:       handler.NewBackupHandler(backupMgr, logger.With("component", "backup")),
		sessionStore:  sessions,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the snapshot manager so main can start and stop it.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes. The share token is its own credential.
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /share/{token}", s.shareH.Resolve)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /logout", s.authH.Logout)

	// Check-in and checkout
	mux.HandleFunc("POST /api/checkins", s.checkinH.Create)
	mux.HandleFunc("POST /api/kids/{id}/checkout", s.checkinH.Checkout)
	mux.HandleFunc("GET /api/kids/{id}/siblings", s.checkinH.Siblings)
	mux.HandleFunc("GET /api/events/{id}/checkins", s.checkinH.Roster)

	// Roster registry
	mux.HandleFunc("POST /api/families", s.familyH.Create)
	mux.HandleFunc("GET /api/families", s.familyH.List)
	mux.HandleFunc("GET /api/families/{id}", s.familyH.Get)
	mux.HandleFunc("POST /api/families/{id}/kids", s.familyH.CreateKid)
	mux.HandleFunc("GET /api/families/{id}/kids", s.familyH.ListKids)
	mux.HandleFunc("POST /api/families/{id}/adults", s.familyH.CreateAdult)
	mux.HandleFunc("GET /api/families/{id}/adults", s.familyH.ListAdults)

	// Events
	mux.HandleFunc("POST /api/events", s.eventH.Create)
	mux.HandleFunc("GET /api/events", s.eventH.List)
	mux.HandleFunc("GET /api/events/nearest", s.eventH.Nearest)

	// Settings
	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.HandleFunc("PUT /api/settings", s.settingsH.Update)

	// Backup
	mux.HandleFunc("GET /api/backup/status", s.backupH.Status)
	mux.HandleFunc("POST /api/backup/run", s.backupH.Run)

	// Kiosk sync
	mux.HandleFunc("GET /ws", ws.Handle(s.hub))
}
