package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/logfields"
	"git.home.luguber.info/inful/docblog/internal/metrics"
	"git.home.luguber.info/inful/docblog/internal/version"
)

const defaultHistoryLimit = 20

// Server exposes the daemon over HTTP:
//
//	GET  /healthz   status and version
//	GET  /builds    recent build history (?limit=n)
//	POST /build     request a rebuild
//	GET  /metrics   Prometheus metrics
//	GET  /          the built site
type Server struct {
	daemon   *Daemon
	logger   *slog.Logger
	errors   *errors.HTTPErrorAdapter
	srv      *http.Server
	listener net.Listener
}

// HealthResponse is the /healthz payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Build   Status `json:"build"`
}

// NewServer creates the HTTP server for d.
func NewServer(d *Daemon, logger *slog.Logger) *Server {
	s := &Server{daemon: d, logger: logger, errors: errors.NewHTTPErrorAdapter(logger)}
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /builds", s.handleBuilds)
	mux.HandleFunc("POST /build", s.handleBuild)
	mux.Handle("GET /metrics", metrics.HTTPHandler(s.daemon.opts.Registry))
	mux.Handle("GET /", http.FileServer(http.Dir(s.daemon.runner.OutputDir())))
	return mux
}

// Start listens on addr and serves in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryNetwork, "listen").
			WithContext("addr", addr).
			Build()
	}
	s.listener = ln
	s.logger.Info("HTTP server listening", slog.String("addr", ln.Addr().String()))
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server failed", logfields.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.daemon.Status()
	resp := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Uptime:  time.Since(s.daemon.started).Truncate(time.Second).String(),
		Build:   st,
	}
	if st.LastError != "" {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBuilds(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.errors.WriteErrorResponse(w, r, errors.ValidationError("limit must be a number").
				WithContext("limit", raw).
				Build())
			return
		}
		limit = n
	}
	builds, err := s.daemon.runner.RecentBuilds(r.Context(), limit)
	if err != nil {
		s.errors.WriteErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, builds)
}

func (s *Server) handleBuild(w http.ResponseWriter, _ *http.Request) {
	queued := s.daemon.Trigger("http")
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
