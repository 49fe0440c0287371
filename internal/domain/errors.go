package domain

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned when no country matches a query.
	ErrNotFound = errors.New("country not found")
	// ErrAmbiguous is wrapped by AmbiguousError when a name matches several countries.
	ErrAmbiguous = errors.New("ambiguous country name")
	// ErrUnavailable indicates an eligibility pool is empty.
	ErrUnavailable = errors.New("no eligible data")
	// ErrInvalidInput indicates missing or malformed query parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotASuggestion is returned when free text does not exactly match any suggestion.
	ErrNotASuggestion = errors.New("answer must be picked from the suggestion list")
	// ErrStepMismatch indicates a submission of the wrong kind for the current step.
	ErrStepMismatch = errors.New("submission does not match the current step")
	// ErrStepSettled indicates the current step or question already has feedback.
	ErrStepSettled = errors.New("current step already answered")
	// ErrRoundFinished is returned for any action on a finished round.
	ErrRoundFinished = errors.New("round finished")
	// ErrNotAttempted is returned when skipping a question nobody has tried yet.
	ErrNotAttempted = errors.New("current question not attempted yet")
	// ErrNoRound is returned when a session has not loaded a round yet.
	ErrNoRound = errors.New("no round loaded")
	// ErrSnapshotInvalid marks a persisted snapshot that failed validation.
	ErrSnapshotInvalid = errors.New("invalid session snapshot")
)

// AmbiguousError carries the ISO3 codes that matched an ambiguous name.
type AmbiguousError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return "ambiguous country name " + `"` + e.Name + `"` + ", candidates: " + strings.Join(e.Candidates, ",")
}

func (e *AmbiguousError) Unwrap() error { return ErrAmbiguous }
