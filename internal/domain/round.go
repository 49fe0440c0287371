package domain

import "fmt"

// Mode is a single-mode quiz kind.
type Mode string

const (
	ModeFlag    Mode = "flag"
	ModeCapital Mode = "capital"
	ModeShape   Mode = "shape"
)

// ParseMode validates a raw mode string.
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(raw); m {
	case ModeFlag, ModeCapital, ModeShape:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, raw)
}

// Question is the mode-specific payload. Data is a flag URL, a capital name or a *Shape.
type Question struct {
	Type Mode `json:"type"`
	Data any  `json:"data"`
}

// RandomQuestion is a single-mode question with its answer strings.
type RandomQuestion struct {
	ISO3            string   `json:"iso3"`
	Question        Question `json:"question"`
	Options         []string `json:"options"`
	Answer          string   `json:"answer"`
	LocalizedAnswer string   `json:"localizedAnswer"`
}

// StepKind tags an ultimate step.
type StepKind string

const (
	StepShape      StepKind = "shape"
	StepArea       StepKind = "area"
	StepFlag       StepKind = "flag"
	StepCapital    StepKind = "capital"
	StepPopulation StepKind = "population"
	StepCoat       StepKind = "coat"
)

// StepKinds lists every kind in round order.
var StepKinds = []StepKind{StepShape, StepArea, StepFlag, StepCapital, StepPopulation, StepCoat}

// ChoiceSize is the number of options in a flag or coat step.
const ChoiceSize = 8

// ChoiceOption is one image in a multiple-choice step.
type ChoiceOption struct {
	ISO3 string `json:"iso3"`
	SVG  string `json:"svg"`
}

// UltimateStep is a tagged variant; only the fields of its Kind are set.
type UltimateStep struct {
	Kind StepKind `json:"kind"`

	// shape
	ShapeSVG *Shape `json:"shapeSvg,omitempty"`

	// area, population
	Area         float64 `json:"area,omitempty"`
	Population   float64 `json:"population,omitempty"`
	TolerancePct float64 `json:"tolerancePct,omitempty"`

	// flag, coat
	Options      []ChoiceOption `json:"options,omitempty"`
	CorrectIndex int            `json:"correctIndex"`

	// capital; CountryLocalized is hint text, not a translated capital.
	CapitalEN        string `json:"capitalEN,omitempty"`
	CountryLocalized string `json:"countryLocalized,omitempty"`
}

// Target returns the numeric answer of an area or population step.
func (s UltimateStep) Target() float64 {
	if s.Kind == StepPopulation {
		return s.Population
	}
	return s.Area
}

// Validate checks that the fields of the step's kind are populated.
func (s UltimateStep) Validate() error {
	switch s.Kind {
	case StepShape:
		if !s.ShapeSVG.Valid() {
			return fmt.Errorf("%w: shape step without outline", ErrSnapshotInvalid)
		}
	case StepArea, StepPopulation:
		if s.Target() <= 0 || s.TolerancePct <= 0 {
			return fmt.Errorf("%w: %s step without target", ErrSnapshotInvalid, s.Kind)
		}
	case StepFlag, StepCoat:
		if len(s.Options) != ChoiceSize || s.CorrectIndex < 0 || s.CorrectIndex >= len(s.Options) {
			return fmt.Errorf("%w: %s step with %d options", ErrSnapshotInvalid, s.Kind, len(s.Options))
		}
	case StepCapital:
		if s.CapitalEN == "" {
			return fmt.Errorf("%w: capital step without capital", ErrSnapshotInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown step kind %q", ErrSnapshotInvalid, s.Kind)
	}
	return nil
}

// UltimateRound is immutable once issued.
type UltimateRound struct {
	AnswerISO3      string         `json:"answerIso3"`
	AnswerEN        string         `json:"answerEN"`
	AnswerLocalized string         `json:"answerLocalized"`
	Steps           []UltimateStep `json:"steps"`
}

// SnapshotVersion is the persisted session format version.
const SnapshotVersion = 1

// Snapshot is the serialized ultimate session, keyed by locale.
type Snapshot struct {
	V            int           `json:"v"`
	Locale       string        `json:"locale"`
	Round        UltimateRound `json:"round"`
	StepIndex    int           `json:"stepIndex"`
	Feedback     Feedback      `json:"feedback"`
	AttemptsLeft int           `json:"attemptsLeft"`
	Reveal       *string       `json:"reveal"`
	Score        int           `json:"score"`
	Guesses      []Guess       `json:"guesses"`
	Finished     bool          `json:"finished"`
}

// Validate checks version, locale and shape. The returned error wraps ErrSnapshotInvalid.
func (s Snapshot) Validate(locale string) error {
	if s.V != SnapshotVersion {
		return fmt.Errorf("%w: version %d", ErrSnapshotInvalid, s.V)
	}
	if s.Locale != locale {
		return fmt.Errorf("%w: locale %q, want %q", ErrSnapshotInvalid, s.Locale, locale)
	}
	if len(s.Round.Steps) == 0 || s.Round.AnswerISO3 == "" {
		return fmt.Errorf("%w: empty round", ErrSnapshotInvalid)
	}
	if s.StepIndex < 0 || s.AttemptsLeft < 0 || s.Score < 0 {
		return fmt.Errorf("%w: negative counters", ErrSnapshotInvalid)
	}
	if !s.Feedback.Valid() {
		return fmt.Errorf("%w: feedback %q", ErrSnapshotInvalid, s.Feedback)
	}
	for _, step := range s.Round.Steps {
		if err := step.Validate(); err != nil {
			return err
		}
	}
	return nil
}
