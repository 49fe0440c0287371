package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"geoquiz-service/internal/dataset"
	"geoquiz-service/internal/domain"
)

// GameService contains the core game use cases shared by the HTTP server and
// the terminal client.
type GameService struct {
	catalog      *Catalog
	sampler      *Sampler
	builder      *RoundBuilder
	session      SessionOptions
	quizAttempts int
	logger       zerolog.Logger
}

// ServiceOptions wires a GameService. Nil collaborators select the in-process defaults.
type ServiceOptions struct {
	Suggestions  SuggestionRepository
	Memo         ResolutionMemo
	Random       Random
	Session      SessionOptions
	QuizAttempts int
	Logger       zerolog.Logger
}

func NewGameService(ds *dataset.Dataset, opts ServiceOptions) *GameService {
	catalog := NewCatalog(ds, opts.Suggestions, opts.Memo, opts.Logger)
	opts.Session.Logger = opts.Logger
	return &GameService{
		catalog:      catalog,
		sampler:      NewSampler(catalog, opts.Random),
		builder:      NewRoundBuilder(catalog, opts.Random),
		session:      opts.Session,
		quizAttempts: opts.QuizAttempts,
		logger:       opts.Logger,
	}
}

func (s *GameService) Catalog() *Catalog { return s.catalog }

// Names lists the localized country suggestions.
func (s *GameService) Names(ctx context.Context, rawLocale string) ([]domain.NameSuggestion, error) {
	return s.catalog.Names(ctx, rawLocale)
}

// Capitals lists the capital suggestions.
func (s *GameService) Capitals(ctx context.Context) ([]domain.CapitalSuggestion, error) {
	return s.catalog.Capitals(ctx)
}

// Resolve maps an ISO3 code or a free-text name to a country.
func (s *GameService) Resolve(ctx context.Context, q ResolveQuery) (domain.CountryLite, error) {
	return s.catalog.Resolve(ctx, q)
}

// RandomQuestion draws a question for mode, or builds it for iso3 when given.
func (s *GameService) RandomQuestion(ctx context.Context, rawMode, rawLocale, iso3 string) (domain.RandomQuestion, error) {
	mode, err := domain.ParseMode(strings.ToLower(strings.TrimSpace(rawMode)))
	if err != nil {
		return domain.RandomQuestion{}, err
	}
	if strings.TrimSpace(iso3) != "" {
		return s.sampler.ForCountry(ctx, mode, iso3, rawLocale)
	}
	return s.sampler.Sample(ctx, mode, rawLocale)
}

// BuildRound issues a fresh ultimate round.
func (s *GameService) BuildRound(ctx context.Context, rawLocale string) (domain.UltimateRound, error) {
	return s.builder.Build(ctx, rawLocale)
}

// NewQuiz prepares a single-mode quiz with the configured attempts budget.
func (s *GameService) NewQuiz(rawMode, rawLocale string) (*Quiz, error) {
	mode, err := domain.ParseMode(strings.ToLower(strings.TrimSpace(rawMode)))
	if err != nil {
		return nil, err
	}
	return NewQuiz(s.catalog, s.sampler, mode, rawLocale, s.quizAttempts)
}

// NewUltimate creates an ultimate session persisting into store. Call Start on it.
func (s *GameService) NewUltimate(store SnapshotStore, rawLocale string) *UltimateSession {
	return NewUltimateSession(s.catalog, s.builder, store, rawLocale, s.session)
}
