// Package health reports whether the game can be served. The dataset is
// required; caches and the database only degrade the report because requests
// keep working from the loaded dataset when they fail.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const checkTimeout = 3 * time.Second

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
	StatusFailing  = "failing"
)

// Checker verifies that a dependency is usable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a plain function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

// Describer is implemented by checkers that can summarise a healthy
// dependency, e.g. "250 countries".
type Describer interface {
	Describe() string
}

// Dependency is one named check.
type Dependency struct {
	Name     string
	Checker  Checker
	Optional bool
}

// Report is the /healthz body. Checks keep the order of the dependencies.
type Report struct {
	Status string        `json:"status"`
	Checks []CheckResult `json:"checks"`
}

type CheckResult struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Optional  bool   `json:"optional,omitempty"`
	Detail    string `json:"detail,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

// Check returns the result for name, if present.
func (r Report) Check(name string) (CheckResult, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return CheckResult{}, false
}

type Handler struct {
	deps   []Dependency
	logger zerolog.Logger
}

func NewHandler(logger zerolog.Logger, deps []Dependency) *Handler {
	return &Handler{deps: deps, logger: logger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.serve)
	return r
}

// Run checks every dependency concurrently.
func (h *Handler) Run(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	results := make([]CheckResult, len(h.deps))
	var g errgroup.Group
	for i, dep := range h.deps {
		g.Go(func() error {
			results[i] = h.run(ctx, dep)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: StatusOK, Checks: results}
	for _, res := range results {
		if res.Status == StatusOK {
			continue
		}
		if !res.Optional {
			report.Status = StatusDown
			break
		}
		report.Status = StatusDegraded
	}
	return report
}

func (h *Handler) run(ctx context.Context, dep Dependency) CheckResult {
	res := CheckResult{Name: dep.Name, Status: StatusOK, Optional: dep.Optional}
	start := time.Now()
	err := dep.Checker.Check(ctx)
	res.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		h.logger.Warn().Err(err).Str("dependency", dep.Name).Bool("optional", dep.Optional).Msg("health check failed")
		res.Status = StatusFailing
		return res
	}
	if d, ok := dep.Checker.(Describer); ok {
		res.Detail = d.Describe()
	}
	return res
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	report := h.Run(r.Context())
	code := http.StatusOK
	if report.Status == StatusDown {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}
