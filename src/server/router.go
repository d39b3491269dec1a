package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"github.com/username/datadissem/src/handlers"
	"github.com/username/datadissem/src/security"
	"github.com/username/datadissem/src/services"
	"github.com/username/datadissem/src/utils"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Registry       services.APIKeyRegistry
	Datasets       services.DatasetService
	Queries        services.QueryService
	Settings       *services.APISettings
	AdminTokens    *security.AdminTokens // nil disables the admin API
	RateLimitRPS   float64
	RateLimitBurst int
	MaxUploadBytes int64
	DataSheet      int
}

// NewRouter builds the HTTP handler tree.
func NewRouter(d Deps) http.Handler {
	dataHandler := handlers.NewDataHandler(d.Queries, d.Registry)
	adminHandler := handlers.NewAdminHandler(d.Registry, d.Datasets, d.Settings, d.MaxUploadBytes, d.DataSheet)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	if d.RateLimitRPS > 0 {
		r.Use(handlers.RateLimitMiddleware(d.RateLimitRPS, d.RateLimitBurst))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.SendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Data API, gated by x-api-key
		r.Group(func(r chi.Router) {
			r.Use(handlers.APIKeyMiddleware(d.Registry))
			r.Get("/data", dataHandler.HandleGetData)
			r.Get("/chart", dataHandler.HandleGetChart)
			r.Get("/options", dataHandler.HandleGetOptions)
		})

		if d.AdminTokens != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Use(handlers.AdminMiddleware(d.AdminTokens))
				r.Post("/keys", adminHandler.HandleGenerateKey)
				r.Get("/keys", adminHandler.HandleListKeys)
				r.Get("/example-url", adminHandler.HandleExampleURL)
				r.Get("/config", adminHandler.HandleGetConfig)
				r.Put("/config", adminHandler.HandleUpdateConfig)
				r.Post("/dataset/reload", adminHandler.HandleReloadDataset)
				r.Post("/dataset", adminHandler.HandleUploadDataset)
			})
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.SendJSONError(w, "Not found", http.StatusNotFound)
	})

	return gzhttp.GzipHandler(r)
}

// New returns an http.Server for addr with conservative timeouts.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
