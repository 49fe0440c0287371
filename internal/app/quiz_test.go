package app_test

import (
	"context"
	"errors"
	"testing"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/domain"
)

func newCapitalQuiz(t *testing.T) *quizHarness {
	t.Helper()
	// Only FRA has a capital, so every capital question asks for France.
	svc := newService(newDataset(t, france(), germany()), 1, &fakeClock{}, app.SessionOptions{})
	quiz, err := svc.NewQuiz("capital", "en")
	if err != nil {
		t.Fatalf("new quiz: %v", err)
	}
	st, err := quiz.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st.Question.ISO3 != "FRA" || st.Question.Question.Data != "Paris" {
		t.Fatalf("unexpected question %+v", st.Question)
	}
	return &quizHarness{t: t, quiz: quiz}
}

func TestQuizCorrectFirstTry(t *testing.T) {
	h := newCapitalQuiz(t)
	st := h.submit("  FRANCE ")
	if st.Feedback != domain.FeedbackCorrect || st.Score != 1 || st.AttemptsLeft != 5 {
		t.Fatalf("unexpected state %+v", st)
	}
	if st.Reveal == nil || *st.Reveal != "France" {
		t.Fatalf("expected reveal on correct answer, got %v", st.Reveal)
	}
	if _, err := h.quiz.Submit(context.Background(), "France"); !errors.Is(err, domain.ErrStepSettled) {
		t.Fatalf("expected ErrStepSettled, got %v", err)
	}
}

func TestQuizWrongAnswersUnlockHints(t *testing.T) {
	h := newCapitalQuiz(t)

	if _, err := h.quiz.Submit(context.Background(), "Atlantis"); !errors.Is(err, domain.ErrNotASuggestion) {
		t.Fatalf("expected ErrNotASuggestion, got %v", err)
	}
	if st := h.quiz.State(); st.AttemptsLeft != 5 || len(st.Guesses) != 0 {
		t.Fatalf("rejected input must not change state, got %+v", st)
	}

	st := h.submit("Germany")
	if st.AttemptsLeft != 4 || st.Feedback != domain.FeedbackIdle {
		t.Fatalf("unexpected state after miss %+v", st)
	}
	g := st.Guesses[0]
	if g.IsCorrect || g.ISO3 != "DEU" || g.DistanceKm == nil || *g.DistanceKm <= 0 {
		t.Fatalf("expected distance hint on miss, got %+v", g)
	}
	if st.Hints.Region != nil {
		t.Fatalf("region hint must stay locked after one miss")
	}

	h.submit("Germany")
	st = h.submit("Germany")
	if st.Hints.Region == nil || *st.Hints.Region != "Europe" || st.Hints.FirstLetter != nil {
		t.Fatalf("expected only the region hint after three misses, got %+v", st.Hints)
	}
	if st.Hints.Capital != nil {
		t.Fatalf("capital mode never hints the capital")
	}

	st = h.submit("Germany")
	if st.Hints.FirstLetter == nil || *st.Hints.FirstLetter != "F" {
		t.Fatalf("expected first-letter hint, got %+v", st.Hints)
	}

	st = h.submit("Germany")
	if st.Feedback != domain.FeedbackWrong || st.AttemptsLeft != 0 || st.Reveal == nil || *st.Reveal != "France" {
		t.Fatalf("expected exhausted question, got %+v", st)
	}
	if st.Score != 0 || len(st.Guesses) != 5 {
		t.Fatalf("unexpected score or history %+v", st)
	}
}

func TestQuizNextRequiresAttempt(t *testing.T) {
	h := newCapitalQuiz(t)
	ctx := context.Background()

	if _, err := h.quiz.Next(ctx); !errors.Is(err, domain.ErrNotAttempted) {
		t.Fatalf("expected ErrNotAttempted, got %v", err)
	}
	h.submit("Germany")
	st, err := h.quiz.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if st.Asked != 2 || st.AttemptsLeft != 5 || st.Feedback != domain.FeedbackIdle || len(st.Guesses) != 0 || st.Reveal != nil {
		t.Fatalf("expected a fresh question, got %+v", st)
	}

	st = h.submit("France")
	if st.Score != 1 {
		t.Fatalf("expected score to carry across questions, got %d", st.Score)
	}
}

func TestQuizRejectsUnknownMode(t *testing.T) {
	svc := newService(newDataset(t, france()), 1, &fakeClock{}, app.SessionOptions{})
	if _, err := svc.NewQuiz("coat", "en"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

type quizHarness struct {
	t    *testing.T
	quiz *app.Quiz
}

func (h *quizHarness) submit(candidate string) app.QuizState {
	h.t.Helper()
	st, err := h.quiz.Submit(context.Background(), candidate)
	if err != nil {
		h.t.Fatalf("submit %q: %v", candidate, err)
	}
	return st
}
