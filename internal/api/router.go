package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stackcanvas/engine/internal/api/handlers"
	mw "github.com/stackcanvas/engine/internal/api/middleware"
)

type Dependencies struct {
	CatalogHandler  *handlers.CatalogHandler
	DesignsHandler  *handlers.DesignsHandler
	SessionsHandler *handlers.SessionsHandler
	ExportsHandler  *handlers.ExportsHandler
	PreviewHandler  *handlers.PreviewHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.Metrics)
	r.Use(mw.CORS)
	r.Use(mw.RateLimit(10, 20))
	r.Use(chimid.Compress(5))

	// Health endpoints
	hh := handlers.NewHealthHandler()
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		// Service palette
		api.Route("/catalog", func(cr chi.Router) {
			cr.Get("/", dep.CatalogHandler.List)
			cr.Get("/{serviceID}", dep.CatalogHandler.Get)
		})

		// Designs and their revisions
		api.Route("/designs", func(dr chi.Router) {
			dr.Get("/", dep.DesignsHandler.List)
			dr.Post("/", dep.DesignsHandler.Create)
			dr.Get("/{id}", dep.DesignsHandler.Get)
			dr.Put("/{id}", dep.DesignsHandler.Update)
			dr.Delete("/{id}", dep.DesignsHandler.Archive)

			dr.Get("/{id}/revisions", dep.DesignsHandler.ListRevisions)
			dr.Get("/{id}/revisions/current", dep.DesignsHandler.GetCurrentRevision)
			dr.Get("/{id}/revisions/{version}", dep.DesignsHandler.GetRevision)
			dr.Put("/{id}/revisions/{version}/current", dep.DesignsHandler.SetCurrentRevision)

			dr.Post("/{id}/exports", dep.ExportsHandler.Create)
			dr.Get("/{id}/exports", dep.ExportsHandler.List)
		})

		// Export artifacts
		api.Route("/exports", func(er chi.Router) {
			er.Get("/{artifactID}", dep.ExportsHandler.Get)
			er.Get("/{artifactID}/download", dep.ExportsHandler.Download)
		})

		// Live canvas sessions
		api.Route("/sessions", func(sr chi.Router) {
			sr.Post("/", dep.SessionsHandler.Open)
			sr.Get("/{id}", dep.SessionsHandler.State)
			sr.Delete("/{id}", dep.SessionsHandler.Close)

			sr.Post("/{id}/drop", dep.SessionsHandler.Drop)
			sr.Post("/{id}/connect", dep.SessionsHandler.Connect)
			sr.Post("/{id}/move", dep.SessionsHandler.Move)
			sr.Delete("/{id}/nodes/{nodeID}", dep.SessionsHandler.RemoveNode)
			sr.Put("/{id}/nodes/{nodeID}/property", dep.SessionsHandler.UpdateProperty)
			sr.Delete("/{id}/edges/{edgeID}", dep.SessionsHandler.RemoveEdge)
			sr.Post("/{id}/select", dep.SessionsHandler.Select)
			sr.Post("/{id}/clear", dep.SessionsHandler.Clear)

			sr.Post("/{id}/save", dep.SessionsHandler.Save)
			sr.Post("/{id}/restore", dep.SessionsHandler.Restore)
			sr.Get("/{id}/code", dep.SessionsHandler.Code)
			sr.Post("/{id}/preview", dep.PreviewHandler.Preview)
			sr.Get("/{id}/events", dep.SessionsHandler.Events)
		})
	})

	return r
}
