// Package httpapi provides the HTTP transport: routing, authentication
// middleware, the authorization policy, and the JSON handlers.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/anandakmagar/authguard/internal/logging"
	"github.com/anandakmagar/authguard/internal/server/metrics"
)

// Server wires the router to an http.Server and manages its lifecycle.
type Server struct {
	addr     string
	db       *sql.DB
	authn    *Authenticator
	policy   *Policy
	handlers *Handlers
	metrics  *metrics.Metrics
	logger   logging.Logger
}

// NewServer assembles the HTTP server from its middleware and handlers.
func NewServer(addr string, db *sql.DB, authn *Authenticator, policy *Policy, handlers *Handlers, m *metrics.Metrics, logger logging.Logger) *Server {
	return &Server{
		addr:     addr,
		db:       db,
		authn:    authn,
		policy:   policy,
		handlers: handlers,
		metrics:  m,
		logger:   logger.With("module", "http_server"),
	}
}

// Router builds the full route table with the authentication and
// authorization middleware applied to every request.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.authn.Middleware)
	r.Use(s.policy.Middleware)

	r.HandleFunc("/api/auth/login", s.handlers.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/register", s.handlers.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/refresh", s.handlers.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/send-reset-code/{username}", s.handlers.SendResetCode).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/change-password", s.handlers.ChangePassword).Methods(http.MethodPost)

	r.HandleFunc("/api/users", s.handlers.ListUsers).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}", s.handlers.GetUser).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}", s.handlers.UpdateUser).Methods(http.MethodPut)
	r.HandleFunc("/api/users/{id}", s.handlers.DeleteUser).Methods(http.MethodDelete)

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server starting", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info(ctx, "http server stopped")
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}
