package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/JustinTDCT/MarkerVault/internal/auth"
	"github.com/JustinTDCT/MarkerVault/internal/config"
	"github.com/JustinTDCT/MarkerVault/internal/db"
	"github.com/JustinTDCT/MarkerVault/internal/jobs"
	"github.com/JustinTDCT/MarkerVault/internal/repository"
	"github.com/JustinTDCT/MarkerVault/internal/shift"
	"github.com/JustinTDCT/MarkerVault/internal/version"
	"golang.org/x/time/rate"
)

type Server struct {
	config       *config.Config
	db           *db.DB
	auth         *auth.Auth
	authmw       *auth.Middleware
	markerRepo   *repository.MarkerRepository
	itemRepo     *repository.ItemRepository
	backupRepo   *repository.BackupRepository
	sessionRepo  *repository.SessionRepository
	settingsRepo *repository.SettingsRepository
	engine       *shift.Engine
	jobQueue     *jobs.Queue
	wsHub        *WSHub
	router       *http.ServeMux

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func NewServer(cfg *config.Config, database *db.DB, jobQueue *jobs.Queue) *Server {
	markerRepo := repository.NewMarkerRepository(database.DB)
	sessionRepo := repository.NewSessionRepository(database.DB)
	authService := auth.NewAuth(cfg.JWTSecret, time.Duration(cfg.SessionTTLHours)*time.Hour)

	s := &Server{
		config:       cfg,
		db:           database,
		auth:         authService,
		authmw:       auth.NewMiddleware(authService, sessionRepo),
		markerRepo:   markerRepo,
		itemRepo:     repository.NewItemRepository(database.DB),
		backupRepo:   repository.NewBackupRepository(database.DB),
		sessionRepo:  sessionRepo,
		settingsRepo: repository.NewSettingsRepository(database.DB),
		engine:       shift.NewEngine(markerRepo),
		jobQueue:     jobQueue,
		wsHub:        NewWSHub(),
		router:       http.NewServeMux(),
		limiters:     make(map[string]*rate.Limiter),
	}

	s.setupRoutes()
	return s
}

func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

func (s *Server) Engine() *shift.Engine {
	return s.engine
}

func (s *Server) ItemRepo() *repository.ItemRepository {
	return s.itemRepo
}

func (s *Server) setupRoutes() {
	// Static files
	fs := http.FileServer(http.Dir("web"))
	s.router.Handle("/", fs)

	// Public
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/v1/status", s.handleStatus)
	s.router.HandleFunc("GET /api/v1/setup/check", s.handleSetupCheck)
	s.router.HandleFunc("POST /api/v1/setup", s.rlAuth(s.handleSetup))
	s.router.HandleFunc("POST /api/v1/auth/login", s.rlAuth(s.handleLogin))

	// Session management
	s.router.HandleFunc("POST /api/v1/auth/logout", s.authmw.RequireAuth(s.handleLogout))

	// WebSocket
	s.router.HandleFunc("GET /api/v1/ws", s.handleWebSocket)

	// Markers
	s.router.HandleFunc("GET /api/v1/items/{id}/markers", s.authmw.RequireAuth(s.handleListMarkers))
	s.router.HandleFunc("POST /api/v1/items/{id}/markers", s.authmw.RequireAuth(s.handleAddMarker))
	s.router.HandleFunc("PUT /api/v1/markers/{id}", s.authmw.RequireAuth(s.handleEditMarker))
	s.router.HandleFunc("DELETE /api/v1/markers/{id}", s.authmw.RequireAuth(s.handleDeleteMarker))
	s.router.HandleFunc("POST /api/v1/markers/bulk-delete", s.authmw.RequireAuth(s.handleBulkDeleteMarkers))

	// Marker shift engine
	s.router.HandleFunc("POST /api/v1/shift/check", s.authmw.RequireAuth(s.handleShiftCheck))
	s.router.HandleFunc("POST /api/v1/shift", s.authmw.RequireAuth(s.handleShift))
	s.router.HandleFunc("POST /api/v1/shift/bulk", s.authmw.RequireAuth(s.handleBulkShift))

	// Purge detection / restore
	s.router.HandleFunc("GET /api/v1/items/{id}/purged", s.authmw.RequireAuth(s.handleListPurged))
	s.router.HandleFunc("POST /api/v1/items/{id}/purged/restore", s.authmw.RequireAuth(s.handleRestorePurged))
	s.router.HandleFunc("GET /api/v1/items/{id}/backups", s.authmw.RequireAuth(s.handleListBackups))
}

// ──────────────────── Health / status ────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
		"version":    version.Load().Version,
		"ws_clients": s.wsHub.ClientCount(),
	}})
}

// ──────────────────── Rate limiting ────────────────────

// rlAuth wraps credential endpoints with a small per-IP limiter so password
// guessing is slow.
func (s *Server) rlAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			ip = fwd
		}

		s.limiterMu.Lock()
		lim, ok := s.limiters[ip]
		if !ok {
			lim = rate.NewLimiter(rate.Every(time.Second), 5)
			s.limiters[ip] = lim
		}
		s.limiterMu.Unlock()

		if !lim.Allow() {
			s.respondError(w, http.StatusTooManyRequests, "too many attempts, slow down")
			return
		}
		next(w, r)
	}
}

// ──────────────────── Helpers ────────────────────

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, Response{Success: false, Error: message})
}

func (s *Server) Handler() http.Handler {
	return s.securityHeadersMiddleware(s.corsMiddleware(s.router))
}

// securityHeadersMiddleware adds standard security headers to all responses.
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware handles CORS preflight and response headers globally.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
