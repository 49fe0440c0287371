package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/swaggest/swgui/v5emb"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/transport/http/health"
)

func addRoutes(r chi.Router, logger zerolog.Logger, svc *app.GameService, checks []health.Dependency) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("GeoQuiz API", "/openapi.json", "/docs"))

	r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
	r.Mount("/api/countries", NewCountryHandler(svc, logger).Routes())

	ws := NewWSHandler(svc, logger)
	r.Get("/ws/ultimate", ws.ServeWS)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}
