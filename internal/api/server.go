package api

import (
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mydia/mydia/internal/auth"
	"github.com/mydia/mydia/internal/config"
	"github.com/mydia/mydia/internal/jobs"
	"github.com/mydia/mydia/internal/models"
	"github.com/mydia/mydia/internal/probe"
	"github.com/mydia/mydia/internal/stream"
	"github.com/mydia/mydia/internal/version"
)

// FileStore is the slice of the repository the streaming layer needs.
type FileStore interface {
	GetByID(id uuid.UUID) (*models.MediaFile, error)
}

type Server struct {
	config  *config.Config
	files   FileStore
	manager *stream.Manager
	auth    *auth.Auth
	prober  *probe.FFprobe
	cache   *probe.Cache
	queue   *jobs.Queue
	wsHub   *WSHub
	version version.Info
	router  *http.ServeMux

	rlMu       sync.Mutex
	rlLimiters map[string]*rate.Limiter
}

func NewServer(cfg *config.Config, files FileStore, manager *stream.Manager, authService *auth.Auth, prober *probe.FFprobe, cache *probe.Cache, queue *jobs.Queue) *Server {
	s := &Server{
		config:     cfg,
		files:      files,
		manager:    manager,
		auth:       authService,
		prober:     prober,
		cache:      cache,
		queue:      queue,
		wsHub:      NewWSHub(),
		version:    version.Load(),
		router:     http.NewServeMux(),
		rlLimiters: make(map[string]*rate.Limiter),
	}

	manager.OnEvent(func(evt stream.SessionEvent) {
		s.wsHub.Broadcast("session:update", evt)
	})

	s.setupRoutes()
	return s
}

func (s *Server) WSHub() *WSHub { return s.wsHub }

func (s *Server) setupRoutes() {
	// Public
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/v1/status", s.handleStatus)

	// Streaming
	s.router.HandleFunc("GET /api/v1/stream/candidates", s.handleStreamCandidates)
	s.router.HandleFunc("GET /api/v1/stream/file/{fileId}", s.handleStreamFile)
	s.router.HandleFunc("POST /api/v1/stream/{fileId}/token", s.rlToken(s.handleIssueMediaToken))
	s.router.HandleFunc("DELETE /api/v1/stream/sessions/{sessionId}", s.handleStopSession)

	// Probing
	s.router.HandleFunc("POST /api/v1/files/{fileId}/probe", s.handleEnqueueProbe)

	// WebSocket
	s.router.HandleFunc("GET /api/v1/ws", s.handleWebSocket)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.securityHeadersMiddleware(s.corsMiddleware(s.router)).ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"version":         s.version.Version,
		"go_version":      s.version.GoVersion,
		"active_sessions": s.manager.ActiveCount(),
		"ws_clients":      s.wsHub.ClientCount(),
	})
}

// ──────────────────── Middleware ────────────────────

// rlToken rate-limits token issuance per client IP so a leaked player page
// cannot mint tokens unbounded.
func (s *Server) rlToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !s.limiterFor(ip).Allow() {
			s.respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func (s *Server) limiterFor(ip string) *rate.Limiter {
	s.rlMu.Lock()
	defer s.rlMu.Unlock()
	if l, ok := s.rlLimiters[ip]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(1), 10)
	s.rlLimiters[ip] = l
	return l
}

func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
