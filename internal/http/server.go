// Package http provides the HTTP server for the journal API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/roelfdiedericks/lilybear/internal/journal"
	. "github.com/roelfdiedericks/lilybear/internal/logging"
	"github.com/roelfdiedericks/lilybear/internal/metrics"
)

// DefaultMaxUploadBytes caps the multipart body of POST /entries.
const DefaultMaxUploadBytes int64 = 32 << 20

// Journal is the part of journal.Service the handlers use.
type Journal interface {
	CreateEntry(ctx context.Context, u journal.Upload) (*journal.Result, error)
	GetEntry(ctx context.Context, dateKey string) ([]byte, error)
}

// Server represents the HTTP server
type Server struct {
	server  *http.Server
	journal Journal
	metrics *metrics.MetricsManager

	maxUploadBytes int64

	listener net.Listener
	wg       sync.WaitGroup
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Listen         string // Address to listen on (e.g., ":8000", "127.0.0.1:8000")
	MaxUploadBytes int64  // Request body cap for uploads; 0 = DefaultMaxUploadBytes
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *ServerConfig, j Journal) (*Server, error) {
	if j == nil {
		return nil, fmt.Errorf("http: journal service is required")
	}

	listen := cfg.Listen
	if listen == "" {
		listen = ":8000"
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}

	L_debug("http: NewServer", "listen", listen, "maxUploadBytes", maxUpload)

	s := &Server{
		journal:        j,
		metrics:        metrics.GetInstance(),
		maxUploadBytes: maxUpload,
	}

	// WriteTimeout covers the whole create-entry sequence, including an
	// interactive authorization on first use.
	s.server = &http.Server{
		Addr:              listen,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      15 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Apply middleware chain: logging -> strip headers
	wrap := func(h http.HandlerFunc) http.HandlerFunc {
		return s.logRequest(s.stripHeaders(h))
	}

	mux.HandleFunc("POST /entries", wrap(s.handleCreateEntry))
	mux.HandleFunc("GET /entries/{date}", wrap(s.handleGetEntry))
	// empty or multi-segment keys get the same JSON miss as unknown dates
	mux.HandleFunc("GET /entries/", wrap(s.handleEntryNotFound))

	mux.HandleFunc("GET /healthz", wrap(s.handleHealth))
	mux.HandleFunc("GET /metrics", wrap(s.handleMetrics))

	return mux
}

// Start binds the listen address and serves in the background. Bind
// errors are returned directly.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("http: listen %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		L_info("http: server starting", "addr", ln.Addr().String())

		err := s.server.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			L_error("http: server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		L_error("http: shutdown error", "error", err)
		return err
	}

	s.wg.Wait()
	L_info("http: server stopped")
	return nil
}

// logRequest wraps an HTTP handler to log requests
func (s *Server) logRequest(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(lw, r)

		L_debug("http: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", lw.statusCode,
			"duration", time.Since(start))
	}
}

// loggingResponseWriter wraps ResponseWriter to capture status code
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lw *loggingResponseWriter) WriteHeader(code int) {
	lw.statusCode = code
	lw.ResponseWriter.WriteHeader(code)
}

// stripHeaders removes fingerprinting headers
func (s *Server) stripHeaders(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Del("Server")
		w.Header().Del("X-Powered-By")

		handler(w, r)
	}
}
