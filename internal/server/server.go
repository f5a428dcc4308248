// Package server exposes the read-only query surface over HTTP, the live
// observer channel over WebSocket and the Prometheus metrics endpoint.
//
// Every route answers GET only; any other method gets 405.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valter-silva-au/phaseops/internal/broadcast"
	"github.com/valter-silva-au/phaseops/internal/query"
	"github.com/valter-silva-au/phaseops/internal/storage"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

// Hub is the subscription side of the status broadcaster.
type Hub interface {
	Subscribe(o broadcast.Observer) error
	Unsubscribe(id string)
}

// Config holds server configuration.
type Config struct {
	// Address is the listen address (e.g. ":8080").
	Address string

	// ShutdownTimeout bounds connection draining on shutdown. Defaults to 10s.
	ShutdownTimeout time.Duration

	// ReadTimeout defaults to 10s.
	ReadTimeout time.Duration

	// WriteTimeout defaults to 10s. WebSocket connections clear it after
	// the upgrade and set a deadline per message instead.
	WriteTimeout time.Duration

	// IdleTimeout defaults to 60s.
	IdleTimeout time.Duration
}

// Server serves the phaseops HTTP surface.
type Server struct {
	httpServer      *http.Server
	queries         *query.Service
	hub             Hub
	gatherer        prometheus.Gatherer
	logger          *slog.Logger
	upgrader        websocket.Upgrader
	inShutdown      atomic.Bool
	shutdownTimeout time.Duration
	now             func() time.Time
}

// NewServer creates a Server. gatherer may be nil to disable /metrics.
func NewServer(queries *query.Service, hub Hub, gatherer prometheus.Gatherer, cfg Config, logger *slog.Logger) *Server {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		queries:         queries,
		hub:             hub,
		gatherer:        gatherer,
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
		now:             time.Now,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			// The dashboard may be served from another origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", getOnly(s.handleStatus))
	mux.HandleFunc("/api/metrics", getOnly(s.handleMetrics))
	mux.HandleFunc("/api/reports", getOnly(s.handleReports))
	mux.HandleFunc("/api/reports/{date}", getOnly(s.handleReport))
	mux.HandleFunc("/api/team", getOnly(s.handleTeam))
	mux.HandleFunc("/api/health", getOnly(s.handleHealth))
	mux.HandleFunc("/api/plan/today", getOnly(s.handlePlan))
	mux.HandleFunc("/api/alerts", getOnly(s.handleAlerts))
	mux.HandleFunc("/ws", getOnly(s.handleWebSocket))
	if s.gatherer != nil {
		mux.Handle("/metrics", getOnly(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP))
	}
	return mux
}

// Start listens on the configured address. It blocks until the server stops
// and returns http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting requests and drains open ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)
	s.httpServer.SetKeepAlivesEnabled(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// IsShuttingDown reports whether Shutdown was called.
func (s *Server) IsShuttingDown() bool {
	return s.inShutdown.Load()
}

func getOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.queries.Status())
}

// handleMetrics serves live metrics; ?since=7d adds event log history.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := query.ParseSince(raw, s.now().UTC())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		since = t
	}
	view, err := s.queries.Metrics(since)
	if err != nil {
		s.logger.Error("computing metrics", "error", err)
		writeError(w, http.StatusInternalServerError, "computing metrics")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReports(w http.ResponseWriter, _ *http.Request) {
	dates, err := s.queries.Reports()
	if err != nil {
		s.logger.Error("listing reports", "error", err)
		writeError(w, http.StatusInternalServerError, "listing reports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": dates, "count": len(dates)})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	report, err := s.queries.Report(date)
	switch {
	case errors.Is(err, storage.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrReportNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		s.logger.Error("loading report", "date", date, "error", err)
		writeError(w, http.StatusInternalServerError, "loading report")
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (s *Server) handleTeam(w http.ResponseWriter, _ *http.Request) {
	members := s.queries.Team()
	writeJSON(w, http.StatusOK, map[string]any{"members": members, "count": len(members)})
}

// handleHealth answers 503 while the system is in the error state.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h := s.queries.Health()
	status := http.StatusOK
	if h.Status == models.HealthError || s.IsShuttingDown() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

// handlePlan serves today's selection; ?day=N selects another day.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	day := 0
	if raw := r.URL.Query().Get("day"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "day must be an integer")
			return
		}
		day = n
	}
	writeJSON(w, http.StatusOK, s.queries.DayPlan(day))
}

func (s *Server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	alerts, err := s.queries.EvaluateAlerts()
	if err != nil {
		s.logger.Error("evaluating alerts", "error", err)
		writeError(w, http.StatusInternalServerError, "evaluating alerts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"live":    s.queries.Status().Alerts,
		"history": alerts,
	})
}
