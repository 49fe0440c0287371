package http

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/transport/http/health"
)

type localeQuery struct {
	Locale string `query:"locale" description:"UI locale tag, e.g. fr-CA. Unsupported tags fall back to en."`
}

type randomQuery struct {
	Mode   string `query:"mode" required:"true" enum:"flag,capital,shape"`
	Locale string `query:"locale"`
	ISO3   string `query:"iso3" description:"Build the question for this country instead of drawing one."`
}

type resolveQuery struct {
	ISO3   string `query:"iso3" description:"ISO 3166-1 alpha-3 code; wins over name."`
	Name   string `query:"name" description:"Free-text country name in any known language."`
	Locale string `query:"locale"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "GeoQuiz API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Country resolution, suggestion lists and question generation for the GeoQuiz game.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Checks the dataset and the configured backends. A failing cache or database degrades the report; an empty dataset takes the service down.")
	getHealthz.AddRespStructure(health.Report{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(health.Report{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/countries/names
	getNames, _ := r.NewOperationContext(http.MethodGet, "/api/countries/names")
	getNames.SetSummary("Country name suggestions")
	getNames.SetDescription("Localized country names sorted with the locale's collation.")
	getNames.AddReqStructure(localeQuery{})
	getNames.AddRespStructure([]domain.NameSuggestion{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getNames)

	// GET /api/countries/capitals
	getCapitals, _ := r.NewOperationContext(http.MethodGet, "/api/countries/capitals")
	getCapitals.SetSummary("Capital suggestions")
	getCapitals.SetDescription("Deduplicated capitals of countries that have one.")
	getCapitals.AddRespStructure([]domain.CapitalSuggestion{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getCapitals)

	// GET /api/countries/random
	getRandom, _ := r.NewOperationContext(http.MethodGet, "/api/countries/random")
	getRandom.SetSummary("Random question")
	getRandom.SetDescription("Draws a flag, capital or shape question.")
	getRandom.AddReqStructure(randomQuery{})
	getRandom.AddRespStructure(domain.RandomQuestion{}, openapi.WithHTTPStatus(http.StatusOK))
	getRandom.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	getRandom.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getRandom.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getRandom)

	// GET /api/countries/resolve
	getResolve, _ := r.NewOperationContext(http.MethodGet, "/api/countries/resolve")
	getResolve.SetSummary("Resolve country")
	getResolve.SetDescription("Maps an ISO3 code or a free-text name to a country.")
	getResolve.AddReqStructure(resolveQuery{})
	getResolve.AddRespStructure(domain.CountryLite{}, openapi.WithHTTPStatus(http.StatusOK))
	getResolve.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	getResolve.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getResolve.AddRespStructure(AmbiguousResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(getResolve)

	// GET /api/countries/ultimate/start
	getUltimate, _ := r.NewOperationContext(http.MethodGet, "/api/countries/ultimate/start")
	getUltimate.SetSummary("Ultimate round")
	getUltimate.SetDescription("Builds a multi-step round around one country.")
	getUltimate.AddReqStructure(localeQuery{})
	getUltimate.AddRespStructure(domain.UltimateRound{}, openapi.WithHTTPStatus(http.StatusOK))
	getUltimate.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getUltimate)

	// GET /ws/ultimate
	getWS, _ := r.NewOperationContext(http.MethodGet, "/ws/ultimate")
	getWS.SetSummary("Ultimate session")
	getWS.SetDescription("Upgrades to a WebSocket running a resumable ultimate session. " +
		"Client messages: resume, start, submit, next, restart. Server messages: state, guess, snapshot, snapshotClear, error.")
	getWS.AddReqStructure(localeQuery{})
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	data, _ := json.MarshalIndent(newOpenAPISpec(), "", "  ")

	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write(data)
	}
}
