// Package ui exposes the estimation service over HTTP.
package ui

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"causalboot/internal"
	"causalboot/internal/analysis"
	"causalboot/internal/bootstrap"
	"causalboot/ports"
)

// App represents the HTTP application
type App struct {
	router   *chi.Mux
	service  *analysis.Service
	datasets ports.DatasetRepository // nil when persistence is not configured
	runs     ports.RunRepository
	defaults bootstrap.Options
	port     string
	log      *internal.Logger
}

// Config holds application configuration
type Config struct {
	Port     string
	Defaults bootstrap.Options
	Datasets ports.DatasetRepository
	Runs     ports.RunRepository
}

// NewApp creates the HTTP application over an analysis service
func NewApp(service *analysis.Service, cfg Config) *App {
	app := &App{
		router:   chi.NewRouter(),
		service:  service,
		datasets: cfg.Datasets,
		runs:     cfg.Runs,
		defaults: cfg.Defaults,
		port:     cfg.Port,
		log:      internal.DefaultLogger,
	}
	app.routes()
	return app
}

func (a *App) routes() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Recoverer)

	a.router.Get("/health", a.handleHealth)
	a.router.Route("/api", func(r chi.Router) {
		r.Post("/estimate", a.handleEstimate)
		r.Post("/weights", a.handleWeights)
		r.Get("/demo", a.handleDemo)

		if a.datasets != nil {
			r.Post("/datasets", a.handleSaveDataset)
			r.Get("/datasets", a.handleListDatasets)
			r.Post("/datasets/{id}/estimate", a.handleEstimateStored)
		}
		if a.runs != nil {
			r.Get("/runs/{id}", a.handleGetRun)
		}
	})
}

// Router returns the configured router for serving.
func (a *App) Router() http.Handler {
	return a.router
}

// Start runs the HTTP server on the configured port.
func (a *App) Start() error {
	a.log.Info("estimation API listening on :%s", a.port)
	return http.ListenAndServe(":"+a.port, a.router)
}
