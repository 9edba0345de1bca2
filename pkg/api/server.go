package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/lobsim/pkg/app/core/exchange"
	"github.com/uhyunpark/lobsim/pkg/app/session"
	"github.com/uhyunpark/lobsim/pkg/app/trader"
)

const maxTrades = 1000

// Server is the read-only market monitor. The session goroutine pushes
// snapshots in through the Update methods; handlers only read them.
type Server struct {
	router  *mux.Router
	hub     *Hub
	logger  *zap.SugaredLogger
	metrics http.Handler

	mu        sync.RWMutex
	sessionID string
	view      exchange.PublicView
	hasView   bool
	trades    []exchange.Trade // most recent maxTrades
	traders   []trader.Summary
	report    *session.Report
}

type Option func(*Server)

func WithLogger(l *zap.SugaredLogger) Option { return func(s *Server) { s.logger = l } }

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

// NewServer creates a new API server
func NewServer(opts ...Option) *Server {
	s := &Server{
		router: mux.NewRouter(),
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.logger)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/book", s.handleGetBook).Methods("GET")
	api.HandleFunc("/tape", s.handleGetTape).Methods("GET")
	api.HandleFunc("/traders", s.handleGetTraders).Methods("GET")
	api.HandleFunc("/report", s.handleGetReport).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods("GET")
	}
}

// Handler returns the CORS-wrapped router.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Hub exposes the websocket hub so callers can run it without Start.
func (s *Server) Hub() *Hub { return s.hub }

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)

	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Infow("api_start", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Attach wires the session's hooks to the monitor. Call before Run.
func (s *Server) Attach(sess *session.Session) {
	s.mu.Lock()
	s.sessionID = sess.ID()
	s.mu.Unlock()

	sess.OnTick = func(view exchange.PublicView) {
		s.UpdateBook(view, sess.Roster().Summaries())
	}
	sess.OnTrade = s.UpdateTrade
}

// UpdateBook stores the latest view and pushes it to "book" subscribers.
func (s *Server) UpdateBook(view exchange.PublicView, traders []trader.Summary) {
	view.Tape = nil
	s.mu.Lock()
	s.view = view
	s.hasView = true
	s.traders = traders
	id := s.sessionID
	s.mu.Unlock()

	s.hub.BroadcastToChannel(ChannelBook, BookUpdate{Type: "book", BookSnapshot: snapshot(id, view, 0)})
}

// UpdateTrade records a trade and pushes it to "trades" subscribers.
func (s *Server) UpdateTrade(t exchange.Trade) {
	s.mu.Lock()
	s.trades = append(s.trades, t)
	if len(s.trades) > maxTrades {
		s.trades = s.trades[len(s.trades)-maxTrades:]
	}
	s.mu.Unlock()

	s.hub.BroadcastToChannel(ChannelTrades, TradeUpdate{Type: "trade", TradeInfo: tradeInfo(t)})
}

// SetReport publishes the final session report.
func (s *Server) SetReport(r session.Report) {
	s.mu.Lock()
	s.report = &r
	s.mu.Unlock()
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	depth, ok := intQuery(w, r, "depth")
	if !ok {
		return
	}

	s.mu.RLock()
	view, has, id := s.view, s.hasView, s.sessionID
	s.mu.RUnlock()
	if !has {
		respondError(w, http.StatusServiceUnavailable, "no book yet", "session has not ticked")
		return
	}
	respondJSON(w, snapshot(id, view, depth))
}

func (s *Server) handleGetTape(w http.ResponseWriter, r *http.Request) {
	limit, ok := intQuery(w, r, "limit")
	if !ok {
		return
	}

	s.mu.RLock()
	trades := s.trades
	if limit > 0 && limit < len(trades) {
		trades = trades[len(trades)-limit:]
	}
	out := make([]TradeInfo, len(trades))
	for i, t := range trades {
		out[i] = tradeInfo(t)
	}
	s.mu.RUnlock()

	respondJSON(w, out)
}

func (s *Server) handleGetTraders(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]TraderInfo, len(s.traders))
	copy(out, s.traders)
	s.mu.RUnlock()

	if kind := r.URL.Query().Get("kind"); kind != "" {
		k, err := trader.ParseKind(kind)
		if err != nil {
			respondError(w, http.StatusBadRequest, "unknown strategy", err.Error())
			return
		}
		filtered := out[:0]
		for _, t := range out {
			if t.Kind == k {
				filtered = append(filtered, t)
			}
		}
		out = filtered
	}
	respondJSON(w, out)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	report := s.report
	s.mu.RUnlock()
	if report == nil {
		respondError(w, http.StatusNotFound, "report not ready", "session still running")
		return
	}
	respondJSON(w, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := HealthStatus{
		Status:    "ok",
		SessionID: s.sessionID,
		Time:      s.view.Time,
		Finished:  s.report != nil,
	}
	s.mu.RUnlock()
	status.Clients = s.hub.Clients()
	respondJSON(w, status)
}

// ==============================
// Helper Functions
// ==============================

// intQuery reads an optional non-negative integer query parameter,
// writing a 400 on malformed input.
func intQuery(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondError(w, http.StatusBadRequest, "invalid "+key, raw)
		return 0, false
	}
	return n, true
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
