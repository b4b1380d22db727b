// Package server exposes the company update triggers over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/company-updater/internal/config"
	"github.com/jonathan/company-updater/internal/server/middleware"
	"github.com/jonathan/company-updater/internal/server/ratelimit"
	"github.com/jonathan/company-updater/internal/types"
	"github.com/jonathan/company-updater/internal/updater"
)

// maxBodyBytes bounds trigger request bodies.
const maxBodyBytes = 1 << 16

// Updater is the trigger surface the server drives.
type Updater interface {
	UpdateOne(ctx context.Context, slug string) (*types.Company, error)
	RunAll(ctx context.Context, force bool) (*updater.BatchResult, error)
}

// Config holds server configuration.
type Config struct {
	Port int
	// JWT enables bearer-token auth on trigger routes when non-nil.
	JWT       *config.JWTConfig
	RateLimit *ratelimit.Config
	// RequestTimeout bounds a trigger request; zero means the client decides.
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

// Server represents the HTTP server.
type Server struct {
	httpServer  *http.Server
	updater     Updater
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	cfg         Config
	logger      *zap.Logger
}

// New creates a server for upd.
func New(cfg Config, upd Updater) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		updater:     upd,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		cfg:         cfg,
		logger:      logger,
	}
	if cfg.JWT != nil {
		s.jwtService = NewJWTService(cfg.JWT)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // batch triggers run for minutes
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	protect := func(h http.HandlerFunc) http.Handler {
		if s.jwtService == nil {
			return h
		}
		return middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(h)
	}
	mux.Handle("POST /api/companies/update", protect(s.handleUpdate))
	mux.Handle("POST /api/companies/update-all", protect(s.handleUpdateAll))
	mux.Handle("GET /api/companies/update-all", protect(s.handleScheduledUpdateAll))

	return s.withRateLimit(middleware.Logging(s.logger)(mux))
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", ln.Addr().String()), zap.Bool("auth", s.jwtService != nil))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-errCh
	s.logger.Info("server stopped")
	return nil
}

// Response is the envelope of every trigger response.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CompanyRef identifies a company in batch responses.
type CompanyRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BatchData is the data of a batch trigger response.
type BatchData struct {
	UpdatedCount int          `json:"updatedCount"`
	Companies    []CompanyRef `json:"companies"`
	FailedCount  int          `json:"failedCount"`
	RunID        string       `json:"runId"`
}

type updateRequest struct {
	Slug string `json:"slug"`
}

type updateAllRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeBody(r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}
	req.Slug = strings.TrimSpace(req.Slug)
	if req.Slug == "" {
		s.errorResponse(w, &ErrValidation{Field: "slug", Message: "is required"})
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	company, err := s.updater.UpdateOne(ctx, req.Slug)
	if err != nil {
		s.logger.Error("update trigger failed", zap.String("slug", req.Slug), zap.Error(err))
		s.errorResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, Response{
		Success: true,
		Message: fmt.Sprintf("updated company %q", company.Name),
		Data:    company,
	})
}

func (s *Server) handleUpdateAll(w http.ResponseWriter, r *http.Request) {
	var req updateAllRequest
	if err := decodeBody(r, &req); err != nil {
		s.errorResponse(w, err)
		return
	}
	s.runBatch(w, r, req.Force, "updated %d companies")
}

// handleScheduledUpdateAll serves periodic callers; it never forces.
func (s *Server) handleScheduledUpdateAll(w http.ResponseWriter, r *http.Request) {
	s.runBatch(w, r, false, "scheduled run updated %d companies")
}

func (s *Server) runBatch(w http.ResponseWriter, r *http.Request, force bool, format string) {
	ctx, cancel := s.requestContext(r)
	defer cancel()

	result, err := s.updater.RunAll(ctx, force)
	if err != nil {
		s.logger.Error("batch trigger failed", zap.Bool("force", force), zap.Error(err))
		s.errorResponse(w, err)
		return
	}

	refs := make([]CompanyRef, 0, len(result.Updated))
	for _, c := range result.Updated {
		refs = append(refs, CompanyRef{ID: c.ID, Name: c.Name})
	}
	s.jsonResponse(w, http.StatusOK, Response{
		Success: true,
		Message: fmt.Sprintf(format, len(refs)),
		Data: BatchData{
			UpdatedCount: len(refs),
			Companies:    refs,
			FailedCount:  len(result.Failed),
			RunID:        result.RunID.String(),
		},
	})
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

// decodeBody decodes an optional JSON body. An empty body leaves v unchanged.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

// jsonResponse writes a JSON response.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encoding JSON response", zap.Error(err))
	}
}

// errorResponse writes an error envelope with the status mapped from err.
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	s.jsonResponse(w, HTTPStatus(err), Response{Success: false, Error: err.Error()})
}

// withRateLimit rejects clients over their token budget with 429.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID uses the RemoteAddr IP; forwarded headers are not trusted.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	if info.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(info.RetryAfter.Seconds())+1))
	}
	s.logger.Warn("rate limit exceeded", zap.Int("limit", info.Limit), zap.Time("reset", info.ResetTime))
	s.jsonResponse(w, http.StatusTooManyRequests, Response{
		Success: false,
		Error:   "rate limit exceeded, try again later",
	})
}
