package app

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/locale"
)

// DefaultQuizAttempts is the per-question budget of the single-mode quizzes.
const DefaultQuizAttempts = 5

// hintThresholds is the wrong-answer count at which each hint unlocks; zero disables it.
type hintThresholds struct {
	region, capital, firstLetter int
}

var quizHints = map[domain.Mode]hintThresholds{
	domain.ModeFlag:    {region: 2, capital: 3, firstLetter: 4},
	domain.ModeShape:   {region: 2, capital: 3, firstLetter: 4},
	domain.ModeCapital: {region: 3, firstLetter: 4},
}

// Hints holds the unlocked hints; nil means locked or unavailable.
type Hints struct {
	Region      *string `json:"region,omitempty"`
	Capital     *string `json:"capital,omitempty"`
	FirstLetter *string `json:"firstLetter,omitempty"`
}

// QuizState is a read-only view of a single-mode quiz.
type QuizState struct {
	Mode         domain.Mode           `json:"mode"`
	Question     domain.RandomQuestion `json:"question"`
	AttemptsLeft int                   `json:"attemptsLeft"`
	Feedback     domain.Feedback       `json:"feedback"`
	Reveal       *string               `json:"reveal"`
	Guesses      []domain.Guess        `json:"guesses"`
	Hints        Hints                 `json:"hints"`
	Score        int                   `json:"score"`
	Asked        int                   `json:"asked"`
}

// Quiz runs flag, capital or shape questions one after another.
type Quiz struct {
	catalog  *Catalog
	sampler  *Sampler
	mode     domain.Mode
	locale   string
	attempts int

	mu           sync.Mutex
	question     *domain.RandomQuestion
	details      domain.CountryLite
	attemptsLeft int
	feedback     domain.Feedback
	reveal       *string
	guesses      []domain.Guess
	score        int
	asked        int
}

// NewQuiz prepares a quiz; attempts below 1 fall back to DefaultQuizAttempts.
func NewQuiz(catalog *Catalog, sampler *Sampler, mode domain.Mode, rawLocale string, attempts int) (*Quiz, error) {
	if _, ok := quizHints[mode]; !ok {
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidInput, mode)
	}
	if attempts < 1 {
		attempts = DefaultQuizAttempts
	}
	return &Quiz{
		catalog:  catalog,
		sampler:  sampler,
		mode:     mode,
		locale:   locale.Normalize(rawLocale).Base,
		attempts: attempts,
		feedback: domain.FeedbackIdle,
	}, nil
}

// Start loads the first question.
func (q *Quiz) Start(ctx context.Context) (QuizState, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.loadLocked(ctx); err != nil {
		return QuizState{}, err
	}
	return q.stateLocked(), nil
}

// Next moves on. It is refused while the current question is untouched.
func (q *Quiz) Next(ctx context.Context) (QuizState, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.question != nil && q.feedback == domain.FeedbackIdle && q.attemptsLeft == q.attempts {
		return q.stateLocked(), domain.ErrNotAttempted
	}
	if err := q.loadLocked(ctx); err != nil {
		return QuizState{}, err
	}
	return q.stateLocked(), nil
}

// Submit grades a country name picked from the suggestion list.
func (q *Quiz) Submit(ctx context.Context, candidate string) (QuizState, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.question == nil {
		return QuizState{}, domain.ErrNoRound
	}
	if q.feedback != domain.FeedbackIdle {
		return q.stateLocked(), domain.ErrStepSettled
	}

	idx, err := q.catalog.NameIndex(ctx, locale.Normalize(q.locale))
	if err != nil {
		return QuizState{}, err
	}
	v, err := judgeText(idx, candidate, q.question.ISO3, q.question.LocalizedAnswer, q.question.Answer)
	if err != nil {
		return q.stateLocked(), err
	}

	guess := domain.Guess{Label: v.label, IsCorrect: v.correct}
	if v.correct {
		q.feedback = domain.FeedbackCorrect
		q.setRevealLocked()
		if q.attemptsLeft == q.attempts {
			q.score++
		}
		q.guesses = append(q.guesses, guess)
		return q.stateLocked(), nil
	}

	q.attemptsLeft = max(q.attemptsLeft-1, 0)
	if km := distanceTo(ctx, q.catalog, q.locale, v.iso3, q.details.LatLng); km != nil {
		guess.ISO3, guess.DistanceKm = v.iso3, km
	}
	q.guesses = append(q.guesses, guess)
	if q.attemptsLeft == 0 {
		q.feedback = domain.FeedbackWrong
		q.setRevealLocked()
	}
	return q.stateLocked(), nil
}

func (q *Quiz) State() QuizState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stateLocked()
}

func (q *Quiz) loadLocked(ctx context.Context) error {
	question, err := q.sampler.Sample(ctx, q.mode, q.locale)
	if err != nil {
		return err
	}
	details, err := q.catalog.Resolve(ctx, ResolveQuery{Locale: q.locale, ISO3: question.ISO3})
	if err != nil {
		return err
	}
	q.question = &question
	q.details = details
	q.attemptsLeft = q.attempts
	q.feedback = domain.FeedbackIdle
	q.reveal = nil
	q.guesses = nil
	q.asked++
	return nil
}

func (q *Quiz) setRevealLocked() {
	answer := q.question.LocalizedAnswer
	q.reveal = &answer
}

func (q *Quiz) stateLocked() QuizState {
	st := QuizState{
		Mode:         q.mode,
		AttemptsLeft: q.attemptsLeft,
		Feedback:     q.feedback,
		Reveal:       q.reveal,
		Guesses:      append([]domain.Guess(nil), q.guesses...),
		Score:        q.score,
		Asked:        q.asked,
	}
	if q.question != nil {
		st.Question = *q.question
		st.Hints = q.hintsLocked()
	}
	return st
}

func (q *Quiz) hintsLocked() Hints {
	th := quizHints[q.mode]
	wrong := q.attempts - q.attemptsLeft
	var h Hints
	if th.region > 0 && wrong >= th.region {
		h.Region = q.details.Region
	}
	if th.capital > 0 && wrong >= th.capital {
		h.Capital = q.details.Capital
	}
	if th.firstLetter > 0 && wrong >= th.firstLetter {
		if r, size := utf8.DecodeRuneInString(q.question.LocalizedAnswer); size > 0 && r != utf8.RuneError {
			letter := string(r)
			h.FirstLetter = &letter
		}
	}
	return h
}
