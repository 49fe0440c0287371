package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"geoquiz-service/internal/app"
)

// CountryHandler serves the read-only country endpoints under /api/countries.
type CountryHandler struct {
	svc    *app.GameService
	logger zerolog.Logger
}

func NewCountryHandler(svc *app.GameService, logger zerolog.Logger) *CountryHandler {
	return &CountryHandler{svc: svc, logger: logger}
}

func (h *CountryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/names", h.names)
	r.Get("/capitals", h.capitals)
	r.Get("/random", h.random)
	r.Get("/resolve", h.resolve)
	r.Get("/ultimate/start", h.ultimateStart)
	return r
}

func (h *CountryHandler) names(w http.ResponseWriter, r *http.Request) {
	names, err := h.svc.Names(r.Context(), r.URL.Query().Get("locale"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *CountryHandler) capitals(w http.ResponseWriter, r *http.Request) {
	capitals, err := h.svc.Capitals(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, capitals)
}

func (h *CountryHandler) random(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	question, err := h.svc.RandomQuestion(r.Context(), q.Get("mode"), q.Get("locale"), q.Get("iso3"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (h *CountryHandler) resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lite, err := h.svc.Resolve(r.Context(), app.ResolveQuery{
		Locale: q.Get("locale"),
		ISO3:   q.Get("iso3"),
		Name:   q.Get("name"),
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, lite)
}

func (h *CountryHandler) ultimateStart(w http.ResponseWriter, r *http.Request) {
	round, err := h.svc.BuildRound(r.Context(), r.URL.Query().Get("locale"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}
