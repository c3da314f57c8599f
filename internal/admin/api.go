// Package admin serves the read-only local HTTP API: document/chunk
// listing and retrieval, aggregate stats, health, and Prometheus metrics.
// It never mutates the store and never serves a UI.
package admin

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/allaspectsdev/windowcapd/internal/config"
	"github.com/allaspectsdev/windowcapd/internal/metrics"
	"github.com/allaspectsdev/windowcapd/internal/store"
)

// Server serves the admin JSON API for document listing/retrieval, store
// and collector stats, health, and Prometheus metrics.
type Server struct {
	router    chi.Router
	collector *metrics.Collector
	store     *store.Store
	cfg       *config.Config
	addr      string
	server    *http.Server
}

// NewServer creates a new admin Server wired to the given collector, store,
// config, and listen address.
func NewServer(collector *metrics.Collector, st *store.Store, cfg *config.Config, addr string) *Server {
	d := &Server{
		collector: collector,
		store:     st,
		cfg:       cfg,
		addr:      addr,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware(cfg.Admin.AllowedOrigins))

	r.Get("/health", d.handleHealth)
	r.Get("/metrics", metrics.PrometheusHandler(collector))
	r.Get("/api/documents", d.handleListDocuments)
	r.Get("/api/documents/{docID}", d.handleGetDocument)
	r.Get("/api/stats", d.handleStats)

	d.router = r
	return d
}

// Start begins listening on the configured address. It blocks until the
// server is shut down or an error occurs.
func (d *Server) Start() error {
	d.server = &http.Server{
		Addr:    d.addr,
		Handler: d.router,
	}
	log.Info().Str("addr", d.addr).Msg("admin API listening")
	if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the admin server.
func (d *Server) Shutdown(ctx context.Context) error {
	if d.server == nil {
		return nil
	}
	return d.server.Shutdown(ctx)
}

// handleHealth reports the daemon and store's liveness.
func (d *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if err := d.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListDocuments returns a paginated list of documents ordered by
// most recently ingested first. Accepts ?page and ?limit (default 1, 50).
func (d *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := (page - 1) * limit

	docs, total, err := d.store.ListDocumentsPage(limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list documents")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "database error"})
		return
	}

	writeJSON(w, http.StatusOK, paginatedResponse{
		Page:  page,
		Limit: limit,
		Total: total,
		Items: docs,
	})
}

// handleGetDocument returns a single document's metadata and its chunks.
func (d *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")

	doc, err := d.store.GetDocument(docID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
		return
	}

	chunks, err := d.store.GetChunks(docID)
	if err != nil {
		log.Error().Err(err).Str("doc_id", docID).Msg("failed to load chunks")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "database error"})
		return
	}

	writeJSON(w, http.StatusOK, documentDetail{
		Document: doc,
		Chunks:   chunks,
	})
}

// handleStats returns aggregate store counts alongside the in-memory
// collector snapshot.
func (d *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	dbStats, err := d.store.DBStats()
	if err != nil {
		log.Error().Err(err).Msg("failed to compute db stats")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "database error"})
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Store:     dbStats,
		Collector: d.collector.Stats(),
	})
}

// corsMiddleware restricts cross-origin requests to the configured
// allow-list. Unlisted origins are rejected outright on preflight; actual
// requests simply omit the Allow-Origin header, so browsers block them.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			_, ok := allowed[origin]

			if origin != "" && ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			}

			if r.Method == http.MethodOptions {
				if origin != "" && !ok {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
