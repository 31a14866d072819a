// Package server exposes the finbook operations over HTTP as a JSON
// API. The server is single tenant: every handler operates on the one
// user it was bound to at construction.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/finbook-app/finbook/pkg/importer"
	"github.com/finbook-app/finbook/pkg/parser"
	"github.com/finbook-app/finbook/pkg/service"
	"github.com/finbook-app/finbook/pkg/storage"
)

// Server handles HTTP requests for the finbook API.
type Server struct {
	svc        *service.Service
	importer   *importer.Importer
	logger     *log.Logger
	mux        *http.ServeMux
	routesOnce sync.Once
	ownerID    uint
}

// New creates a new HTTP server bound to one user.
func New(svc *service.Service, imp *importer.Importer, ownerID uint, logger *log.Logger) *Server {
	return &Server{
		svc:      svc,
		importer: imp,
		logger:   logger,
		mux:      http.NewServeMux(),
		ownerID:  ownerID,
	}
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.Handler())
}

// Handler returns the route table without starting a listener. Routes
// are registered once no matter how often it is called.
func (s *Server) Handler() http.Handler {
	s.routesOnce.Do(s.setupRoutes)
	return s.mux
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/dashboard", s.withLogging(s.handleDashboard))

	s.mux.HandleFunc("/api/accounts", s.withLogging(s.handleAccounts))
	s.mux.HandleFunc("/api/accounts/", s.withLogging(s.handleAccount))

	s.mux.HandleFunc("/api/transactions", s.withLogging(s.handleTransactions))
	s.mux.HandleFunc("/api/transactions/", s.withLogging(s.handleTransaction))

	s.mux.HandleFunc("/api/categories", s.withLogging(s.handleCategories))
	s.mux.HandleFunc("/api/categories/", s.withLogging(s.handleCategory))

	s.mux.HandleFunc("/api/recurring", s.withLogging(s.handleRules))
	s.mux.HandleFunc("/api/recurring/", s.withLogging(s.handleRule))

	s.mux.HandleFunc("/api/import", s.withLogging(s.handleImport))

	s.mux.HandleFunc("/api/settings", s.withLogging(s.handleSettings))
}

// --- helpers ---

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func (s *Server) respond(w http.ResponseWriter, status int, v interface{}) {
	if err := s.writeJSON(w, status, v); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	_ = s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// fail maps domain errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		s.respondError(w, r, http.StatusBadRequest, verr.Message, nil)
	case errors.Is(err, storage.ErrNotFound):
		s.respondError(w, r, http.StatusNotFound, "not found", err)
	case errors.Is(err, parser.ErrUnrecognizedFormat):
		s.respondError(w, r, http.StatusUnprocessableEntity, "unrecognized statement format", err)
	default:
		s.respondError(w, r, http.StatusInternalServerError, "internal error", err)
	}
}

// withLogging wraps a handler to log request start/end and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
			}
		}()
		next(w, r)
	}
}

// pathID extracts the numeric ID that follows prefix in the URL path.
// The remainder after the ID (if any) is returned as rest.
func pathID(r *http.Request, prefix string) (id uint, rest string, err error) {
	tail := strings.TrimPrefix(r.URL.Path, prefix)
	part, rest, _ := strings.Cut(tail, "/")
	n, err := strconv.ParseUint(part, 10, 32)
	if err != nil {
		return 0, "", fmt.Errorf("invalid id %q", part)
	}
	return uint(n), rest, nil
}

// parseDate accepts a calendar date, empty meaning "unset".
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
