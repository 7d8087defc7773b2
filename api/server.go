// Package api provides the HTTP REST API server for the COT dashboard.
//
// It exposes endpoints for the instrument catalog, raw report records,
// analysis charts, a market overview, the CFTC release calendar, news, and
// WebSocket refresh notifications.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cotlens/cotlens/internal/catalog"
	"github.com/cotlens/cotlens/internal/config"
	"github.com/cotlens/cotlens/internal/cot"
	"github.com/cotlens/cotlens/internal/infra"
	"github.com/cotlens/cotlens/internal/news"
	"github.com/cotlens/cotlens/internal/schedule"
	"github.com/cotlens/cotlens/web"
)

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	client   *cot.Client
	catalog  *catalog.Catalog
	cache    *infra.Cache
	news     *news.Reader
	schedule *schedule.Scraper
	wsHub    *WSHub
	log      *slog.Logger
	version  string
	serveUI  bool // when true, serve the embedded web UI at /
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config) (*Server, error) {
	cat, err := catalog.Load()
	if err != nil {
		return nil, err
	}

	client := cot.NewClient(cot.Options{
		BaseURL:  cfg.CFTC.BaseURL,
		AppToken: cfg.CFTC.AppToken,
		Timeout:  time.Duration(cfg.CFTC.TimeoutSec) * time.Second,
		RowLimit: cfg.CFTC.RowLimit,
	})

	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	srv := &Server{
		cfg:      cfg,
		client:   client,
		catalog:  cat,
		cache:    infra.NewCache(ttl),
		news:     news.NewReader(),
		schedule: schedule.New(),
		wsHub:    NewWSHub(),
		log:      newLogger(cfg.Logging),
		version:  "dev",
		serveUI:  true, // serve embedded web UI by default
	}

	srv.router = srv.buildRouter()
	return srv, nil
}

// SetVersion sets the version string reported by /health.
func (s *Server) SetVersion(v string) {
	if v != "" {
		s.version = v
	}
}

// SetServeUI controls whether the embedded web UI is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start WebSocket hub
	go s.wsHub.Run()

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.log.Info("server listening", "addr", addr, "authenticated", s.client.Authenticated())

	select {
	case err := <-errCh:
		return err
	case <-done:
	}
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health (also available at /health)
		r.Get("/health", s.handleHealth)

		// Instrument catalog
		r.Get("/instruments", s.handleInstruments)
		r.Get("/instruments/search", s.handleSearchInstruments)
		r.Get("/instruments/{code}", s.handleInstrumentByCode)

		// Raw report records
		r.Get("/reports/{code}", s.handleReports)

		// Analysis charts
		r.Get("/analysis/{kind}/{code}", s.handleAnalysis)

		// Multi-instrument overview
		r.Get("/overview", s.handleOverview)

		// Sidebar feeds
		r.Get("/news", s.handleNews)
		r.Get("/schedule", s.handleSchedule)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Get("/config/token", s.handleTokenStatus)

		// WebSocket refresh notifications
		r.Get("/ws", s.handleWebSocket)
	})

	// Serve embedded web UI (SPA with fallback to index.html)
	if s.serveUI {
		s.mountSPA(r, web.StaticFS())
	}

	return r
}

// mountSPA serves the embedded dashboard as a single-page app. Static assets
// are served directly; unknown paths fall back to index.html for client-side
// routing.
func (s *Server) mountSPA(r chi.Router, staticFS fs.FS) {
	fileServer := http.FileServerFS(staticFS)

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		rPath := strings.TrimPrefix(r.URL.Path, "/")
		if rPath == "" {
			rPath = "index.html"
		}

		// Try to open the requested file from the embedded FS
		f, err := staticFS.Open(rPath)
		if err != nil {
			serveIndexHTML(w, staticFS)
			return
		}
		f.Close()

		if rPath == "index.html" || strings.HasSuffix(rPath, ".html") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}

		fileServer.ServeHTTP(w, r)
	})
}

// serveIndexHTML reads and serves the embedded index.html for SPA fallback.
func serveIndexHTML(w http.ResponseWriter, staticFS fs.FS) {
	data, err := fs.ReadFile(staticFS, "index.html")
	if err != nil {
		http.Error(w, "web UI not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// newLogger builds the process logger from the logging config.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// ============================================================
// Response envelope
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

// writeFetchError maps a COT fetch failure to an HTTP status. Upstream
// trouble is a 502 so the frontend can distinguish it from a bad request.
func writeFetchError(w http.ResponseWriter, err error) {
	var fe *cot.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case cot.ErrBadQuery:
			writeError(w, http.StatusBadRequest, fe.Error())
			return
		case cot.ErrAuth, cot.ErrNetwork, cot.ErrMalformed:
			writeError(w, http.StatusBadGateway, fe.Error())
			return
		}
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// ============================================================
// WebSocket Hub
// ============================================================

// WSMessage is a message sent over WebSocket connections.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WSHub manages WebSocket connections and message broadcasting.
type WSHub struct {
	mu         sync.RWMutex
	clients    map[*WSClient]bool
	broadcast  chan WSMessage
	register   chan *WSClient
	unregister chan *WSClient
}

// WSClient represents a single WebSocket connection.
type WSClient struct {
	hub  *WSHub
	send chan WSMessage
}

// trySend queues a message for this client without blocking. The hub closes
// send under its write lock when it evicts a client, so holding the read
// lock and checking membership keeps this safe against a concurrent close.
func (c *WSClient) trySend(msg WSMessage) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients:    make(map[*WSClient]bool),
		broadcast:  make(chan WSMessage, 256),
		register:   make(chan *WSClient),
		unregister: make(chan *WSClient),
	}
}

// Run starts the hub event loop.
func (h *WSHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// Slow client; disconnect
					h.mu.RUnlock()
					h.mu.Lock()
					delete(h.clients, client)
					close(client.send)
					h.mu.Unlock()
					h.mu.RLock()
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast sends a message to all connected WebSocket clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	select {
	case h.broadcast <- msg:
	default:
		// Drop message if broadcast channel is full
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *WSHub) Register(client *WSClient) {
	h.register <- client
}

// Unregister removes a client from the hub.
func (h *WSHub) Unregister(client *WSClient) {
	h.unregister <- client
}
