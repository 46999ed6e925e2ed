package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/voyagen/watchvault/api"
	"github.com/voyagen/watchvault/internal/config"
	"github.com/voyagen/watchvault/internal/models"
	"github.com/voyagen/watchvault/internal/service"
	"github.com/voyagen/watchvault/internal/store"
)

// Version is reported by the healthcheck.
const Version = "1.0.0"

// Metadata is the OMDb surface the search and lookup endpoints proxy.
type Metadata interface {
	Search(ctx context.Context, text string) ([]models.SearchResult, error)
	ByID(ctx context.Context, imdbID string) (*models.ExternalMetadata, error)
	ByTitle(ctx context.Context, title string) (*models.ExternalMetadata, error)
}

// Server holds dependencies for the HTTP API.
type Server struct {
	store    store.Store
	cfg      *config.Config
	metadata Metadata
	queue    service.Queue // nil when REDIS_URL is not set
	mux      *http.ServeMux
}

// New creates a Server and registers routes.
// queue may be nil; ratings refresh requests then answer 503.
func New(s store.Store, cfg *config.Config, metadata Metadata, queue service.Queue) *Server {
	srv := &Server{store: s, cfg: cfg, metadata: metadata, queue: queue, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /v1/healthcheck", s.handleHealth)

	// Media entries
	s.mux.HandleFunc("GET /v1/movies", s.handleListMedia)
	s.mux.HandleFunc("POST /v1/movies", s.handleCreateMedia)
	s.mux.HandleFunc("GET /v1/movies/{id}", s.handleGetMedia)
	s.mux.HandleFunc("PUT /v1/movies/{id}", s.handleUpdateMedia)
	s.mux.HandleFunc("DELETE /v1/movies/{id}", s.handleDeleteMedia)
	s.mux.HandleFunc("POST /v1/movies/{id}/watched", s.handleMarkWatched)
	s.mux.HandleFunc("POST /v1/movies/{id}/ratings/refresh", s.handleRefreshRatings)
	s.mux.HandleFunc("POST /v1/ratings/refresh", s.handleRefreshAllRatings)

	// Derived list views
	s.mux.HandleFunc("GET /v1/lists/{kind}", s.handleListView)

	// OMDb proxy
	s.mux.HandleFunc("GET /v1/search", s.handleSearch)
	s.mux.HandleFunc("GET /v1/lookup", s.handleLookup)

	// Docs
	s.mux.HandleFunc("GET /v1/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /v1/docs/openapi.yaml", handleOpenAPIDocument)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handler returns the server wrapped in the CORS and logging middleware.
func (s *Server) Handler() http.Handler {
	return withCORS(withLogging(s))
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "available",
		"version": Version,
		"store":   s.cfg.Store,
		"jobs":    s.queue != nil,
	})
}

// --- docs handlers ---

func handleOpenAPIDocument(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.OpenAPIDocument)
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
  <title>WatchVault API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
  <style>html{box-sizing:border-box;overflow-y:scroll}*,*:before,*:after{box-sizing:inherit}body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/v1/docs/openapi.yaml",
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout",
    });
  </script>
</body>
</html>`
