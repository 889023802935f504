package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sloghttp "github.com/samber/slog-http"
	"github.com/voyagen/channelvault/api"
	"github.com/voyagen/channelvault/internal/catalog"
	"github.com/voyagen/channelvault/internal/config"
	"github.com/voyagen/channelvault/internal/metrics"
	"github.com/voyagen/channelvault/internal/models"
	"github.com/voyagen/channelvault/internal/service"
)

// Server holds dependencies for the HTTP API.
type Server struct {
	cfg       *config.Config
	refresher *service.Refresher
	metrics   *metrics.Metrics // nil disables /metrics
	logger    *slog.Logger
	mux       *http.ServeMux
}

// New creates a Server and registers routes.
func New(cfg *config.Config, refresher *service.Refresher, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{cfg: cfg, refresher: refresher, metrics: m, logger: logger, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Catalog
	s.mux.HandleFunc("GET /api/channels", s.handleListChannels)
	s.mux.HandleFunc("GET /api/channels/{id}", s.handleGetChannel)
	s.mux.HandleFunc("GET /api/categories", s.handleListCategories)
	s.mux.HandleFunc("GET /api/server-info", s.handleServerInfo)
	s.mux.HandleFunc("GET /api/diff", s.handleDiff)
	s.mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /guide.xml", s.handleGuide)

	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	// Docs
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handler returns the router wrapped in the request middlewares.
func (s *Server) Handler() http.Handler {
	handler := sloghttp.Recovery(s)
	handler = sloghttp.New(s.logger)(handler)
	return withCORS(handler)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("server shutdown", "error", err)
		}
	}()

	s.logger.Info("listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	c := s.published().Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"channels":    len(c.Channels),
		"lastRefresh": c.LastRefresh,
	})
}

// --- catalog handlers ---

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	channels := s.published().Channels(r.URL.Query().Get("category"))
	if channels == nil {
		channels = []models.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	ch, ok := s.published().ChannelByID(id)
	if !ok {
		writeErr(w, http.StatusNotFound, fmt.Errorf("channel %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	categories := s.published().Categories()
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleServerInfo(w http.ResponseWriter, _ *http.Request) {
	info := s.published().ServerInfo(s.cfg.Sources.URL, s.refresher.Sources(), s.refresher.AutoRefresh())
	writeJSON(w, http.StatusOK, info)
}

type diffResponse struct {
	Summary models.DiffSummary `json:"summary"`
	*models.DiffResult
}

func (s *Server) handleDiff(w http.ResponseWriter, _ *http.Request) {
	d := s.published().LastDiff()
	writeJSON(w, http.StatusOK, diffResponse{Summary: d.Summary(), DiffResult: d})
}

type refreshResponse struct {
	Channels   int                `json:"channels"`
	Categories int                `json:"categories"`
	Timestamp  time.Time          `json:"timestamp"`
	Diff       models.DiffSummary `json:"diff"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, err := s.refresher.Refresh(r.Context(), service.TriggerManual)
	if errors.Is(err, service.ErrRefreshInProgress) {
		writeErr(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Channels:   len(c.Channels),
		Categories: len(c.Categories),
		Timestamp:  c.LastRefresh,
		Diff:       c.Diff.Summary(),
	})
}

func (s *Server) handleGuide(w http.ResponseWriter, _ *http.Request) {
	body, err := catalog.GenerateXMLTV(s.published().Channels(""))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) published() *catalog.Published {
	return s.refresher.Published()
}

// --- middleware ---

// withCORS adds CORS headers to every response and handles preflight OPTIONS requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// --- helpers ---

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// parseID extracts a path parameter by name and parses it as a catalog id.
func parseID(r *http.Request, param string) (int, error) {
	v := r.PathValue(param)
	id, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", param, v)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON", "error", err)
	}
}

func writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		slog.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}

// --- docs handlers ---

func handleOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.OpenAPISpec)
}

func handleSwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, swaggerUIHTML)
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>ChannelVault API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
  <style>html{box-sizing:border-box;overflow-y:scroll}*,*:before,*:after{box-sizing:inherit}body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/docs/openapi.yaml",
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout",
    });
  </script>
</body>
</html>`
