package web

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"firesim/internal/adapters/http/middleware"
	"firesim/internal/adapters/http/perf"
	"firesim/internal/adapters/realtime"
	auditStore "firesim/internal/adapters/storage/audit"
	outboxStore "firesim/internal/adapters/storage/outbox"
	participantStore "firesim/internal/adapters/storage/participant"
	reportStore "firesim/internal/adapters/storage/report"
	sessionStore "firesim/internal/adapters/storage/session"
	"firesim/internal/application/orchestrators"
)

// Stores holds all storage dependencies.
type Stores struct {
	SessionStore     sessionStore.Store
	ParticipantStore participantStore.Store
	ReportStore      reportStore.Store
	OutboxStore      outboxStore.Store
	AuditStore       auditStore.Store
}

// Services holds the non-storage collaborators of the handlers.
type Services struct {
	PasswordHash   []byte // bcrypt hash of the admin password
	Generator      orchestrators.ImageGenerator
	Files          orchestrators.FileStore
	FilesHandler   http.Handler // serves stored files under /files/
	Broadcaster    *realtime.Broadcaster
	Notifier       orchestrators.Notifier
	Outbox         *orchestrators.OutboxProcessor
	NotifyTo       []string
	InfoCards      []string
	CSRFKey        string // hex; random per process when empty
	TrustedOrigins []string
	Production     bool
	SlowRequest    time.Duration // 0 uses middleware.DefaultSlowRequest
	RateLimit      int           // requests per second per client; 0 uses RateLimitPerSecond
}

// decodeCSRFKey reads the hex-encoded 32 byte CSRF secret.
// In development an empty key is replaced by a random one per startup.
func decodeCSRFKey(keyHex string, production bool) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			return nil, errors.New("csrf key must be 64 hex characters (32 bytes)")
		}
		return key, nil
	}
	if production {
		return nil, errors.New("csrf key is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	slog.Warn("config_event", "event", "random_csrf_key", "detail", "admin form sessions won't survive restart")
	return key, nil
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global services instance (set by NewMux)
var services *Services

// Global session store instance
var sessions *middleware.SessionStore

// RateLimitPerSecond is the per-client budget when Services.RateLimit is unset.
var RateLimitPerSecond = 20

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// timeNow is a variable for testability.
var timeNow = time.Now

// NewMux wires HTTP handlers for the app.
func NewMux(staticDir string, s *Stores, svc *Services, collector *perf.Collector) (http.Handler, error) {
	csrfKey, err := decodeCSRFKey(svc.CSRFKey, svc.Production)
	if err != nil {
		return nil, err
	}
	mux := newRouter(staticDir, s, svc, collector)

	rate := svc.RateLimit
	if rate <= 0 {
		rate = RateLimitPerSecond
	}
	limiter := middleware.NewRateLimiter(rate, time.Second)

	// Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey, svc.TrustedOrigins),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(collector, svc.SlowRequest),
	), nil
}

// newRouter sets the package state and registers every route.
func newRouter(staticDir string, s *Stores, svc *Services, collector *perf.Collector) *http.ServeMux {
	stores = s
	services = svc
	perfCollector = collector
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = svc.Production

	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	if svc.FilesHandler != nil {
		mux.Handle("GET /files/", svc.FilesHandler)
	}
	registerRoutes(mux)
	return mux
}
