package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sashakarcz/passify/internal/api/static"
	"github.com/sashakarcz/passify/internal/archive"
	"github.com/sashakarcz/passify/internal/config"
	"github.com/sashakarcz/passify/internal/events"
	"github.com/sashakarcz/passify/internal/generator"
	"github.com/sashakarcz/passify/internal/history"
	"github.com/sashakarcz/passify/internal/logger"
	"github.com/sashakarcz/passify/internal/metrics"
	"github.com/sashakarcz/passify/internal/session"
	"github.com/sashakarcz/passify/internal/storage"
)

// Server serves the web interface, the JSON API and health endpoints
type Server struct {
	cfg         Config
	history     history.Store
	generator   *generator.Generator
	sessions    *session.Manager
	broadcaster *events.Broadcaster
	archiver    *archive.Archiver
	database    *storage.Store
	metrics     *metrics.Metrics
	authManager *AuthManager
	handler     http.Handler
	httpServer  *http.Server
}

// Config holds API server configuration
type Config struct {
	Listen         string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	HistoryBackend string
	MetricsEnabled bool
	MetricsPath    string
	SecureCookie   bool
	WebAuth        *config.WebAuth
}

// New creates a new API server. A nil broadcaster disables the activity
// stream; nil metrics are replaced by a private registry.
func New(cfg Config, store history.Store, sessions *session.Manager, broadcaster *events.Broadcaster, m *metrics.Metrics) *Server {
	if cfg.Listen == "" {
		cfg.Listen = ":5001"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}

	s := &Server{
		cfg:         cfg,
		history:     store,
		generator:   generator.New(),
		sessions:    sessions,
		broadcaster: broadcaster,
		metrics:     m,
		authManager: NewAuthManager(cfg.WebAuth),
	}
	s.handler = s.routes()
	return s
}

// SetArchiver enables the archive endpoints. Call before Start.
func (s *Server) SetArchiver(a *archive.Archiver) {
	s.archiver = a
}

// SetDatabase reports the Postgres pool in /health. Call before Start.
func (s *Server) SetDatabase(db *storage.Store) {
	s.database = db
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc, methods ...string) {
		mux.Handle(pattern, s.instrument(pattern, methods, h))
	}

	// Public endpoints
	handle("/login", s.handleLoginPage, http.MethodGet, http.MethodPost)
	handle("/logout", s.handleLogout, http.MethodPost)
	handle("/api/v1/login", s.handleLogin, http.MethodPost)
	handle("/api/v1/health", s.handleHealth, http.MethodGet, http.MethodHead)
	handle("/health", s.handleHealth, http.MethodGet, http.MethodHead)
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(static.Files))))

	// Pages
	handle("/", s.PageAuthMiddleware(s.handleIndex), http.MethodGet, http.MethodPost)
	handle("/history", s.PageAuthMiddleware(s.handleHistory), http.MethodGet)
	handle("/export", s.PageAuthMiddleware(s.handleExport), http.MethodGet)
	handle("/clear", s.PageAuthMiddleware(s.handleClear), http.MethodPost)

	// JSON API
	handle("/api/v1/generate", s.AuthMiddleware(s.handleGenerate), http.MethodPost)
	handle("/api/v1/history", s.AuthMiddleware(s.handleHistoryAPI), http.MethodGet, http.MethodDelete)
	handle("/api/v1/archive", s.AuthMiddleware(s.handleArchive), http.MethodGet, http.MethodPost)
	handle("/api/v1/activity/stream", s.AuthMiddleware(s.handleActivityStream), http.MethodGet)

	if s.cfg.MetricsEnabled {
		mux.Handle(s.cfg.MetricsPath, s.metrics.Handler())
	}

	return mux
}

// instrument records request latency under the route pattern. Methods the
// route does not accept are labelled "other".
func (s *Server) instrument(route string, methods []string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)

		method := "other"
		if slices.Contains(methods, r.Method) {
			method = r.Method
		}
		s.metrics.RecordRequest(route, method, time.Since(start).Seconds())
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	logger.Info().
		Str("listen", s.cfg.Listen).
		Bool("auth", s.authManager.Enabled()).
		Msg("Starting HTTP server")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	logger.Info().Msg("Stopping HTTP server")

	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	logger.Info().Msg("HTTP server stopped")
	return nil
}

// publish broadcasts an activity event when the stream is enabled
func (s *Server) publish(eventType events.EventType, message string, details map[string]interface{}) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Publish(eventType, message, details)
}
