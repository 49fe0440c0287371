package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/message"

	"geoquiz-service/internal/cache"
	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/geo"
	"geoquiz-service/internal/locale"
	"geoquiz-service/internal/match"
)

// SnapshotStore persists the ultimate session snapshot, one per locale.
type SnapshotStore interface {
	Load(ctx context.Context, locale string) (domain.Snapshot, bool, error)
	Save(ctx context.Context, snap domain.Snapshot) error
	Clear(ctx context.Context, locale string) error
}

// AttemptsConfig is the per-kind attempts budget.
type AttemptsConfig map[domain.StepKind]int

// DefaultAttempts gives outlines five tries and every other step one.
func DefaultAttempts() AttemptsConfig {
	return AttemptsConfig{
		domain.StepShape:      5,
		domain.StepArea:       1,
		domain.StepFlag:       1,
		domain.StepCapital:    1,
		domain.StepPopulation: 1,
		domain.StepCoat:       1,
	}
}

// For returns the budget of kind; unset or non-positive entries use the default.
func (a AttemptsConfig) For(kind domain.StepKind) int {
	if n, ok := a[kind]; ok && n > 0 {
		return n
	}
	if n, ok := DefaultAttempts()[kind]; ok {
		return n
	}
	return 1
}

// AutoAdvance controls moving to the next step without a Next call.
type AutoAdvance string

const (
	AutoAdvanceOff       AutoAdvance = "off"
	AutoAdvanceOnCorrect AutoAdvance = "on-correct"
	AutoAdvanceOnAny     AutoAdvance = "on-any"
)

// ParseAutoAdvance accepts "", "off", "on-correct" and "on-any".
func ParseAutoAdvance(raw string) (AutoAdvance, error) {
	switch m := AutoAdvance(strings.ToLower(strings.TrimSpace(raw))); m {
	case "", AutoAdvanceOff:
		return AutoAdvanceOff, nil
	case AutoAdvanceOnCorrect, AutoAdvanceOnAny:
		return m, nil
	}
	return "", fmt.Errorf("%w: auto-advance mode %q", domain.ErrInvalidInput, raw)
}

const (
	DefaultPersistDebounce = 80 * time.Millisecond
	MinAutoAdvanceDelay    = time.Second
	snapshotWriteTimeout   = 5 * time.Second
)

// SessionOptions tunes an UltimateSession. Zero values select defaults.
type SessionOptions struct {
	Attempts         AttemptsConfig
	PersistDebounce  time.Duration
	AutoAdvance      AutoAdvance
	AutoAdvanceDelay time.Duration
	Clock            Clock
	Logger           zerolog.Logger
}

// Phase is the coarse session state.
type Phase string

const (
	PhaseLoading  Phase = "loading"
	PhaseActive   Phase = "active"
	PhaseFinished Phase = "finished"
)

// UltimateState is a read-only view of the session.
type UltimateState struct {
	Phase        Phase                 `json:"phase"`
	Locale       string                `json:"locale"`
	Round        *domain.UltimateRound `json:"round,omitempty"`
	StepIndex    int                   `json:"stepIndex"`
	Step         *domain.UltimateStep  `json:"step,omitempty"`
	Feedback     domain.Feedback       `json:"feedback"`
	AttemptsLeft int                   `json:"attemptsLeft"`
	Reveal       *string               `json:"reveal"`
	Score        int                   `json:"score"`
	Guesses      []domain.Guess        `json:"guesses"`
	Finished     bool                  `json:"finished"`
	AnswerLatLng *geo.LatLng           `json:"answerLatLng"`
}

// Submission is one answer; which field is read depends on Kind.
type Submission struct {
	Kind  domain.StepKind `json:"kind"`
	Text  string          `json:"text,omitempty"`
	Value float64         `json:"value,omitempty"`
	Index int             `json:"index,omitempty"`
}

// UltimateSession is the resumable state machine of an ultimate round.
// Methods are safe for concurrent use; timer callbacks take the same lock.
type UltimateSession struct {
	catalog *Catalog
	builder *RoundBuilder
	store   SnapshotStore
	loc     locale.Locale
	opts    SessionOptions
	logger  zerolog.Logger

	mu           sync.Mutex
	phase        Phase
	round        *domain.UltimateRound
	stepIndex    int
	feedback     domain.Feedback
	attemptsLeft int
	reveal       *string
	score        int
	guesses      []domain.Guess
	finished     bool
	answerLatLng *geo.LatLng
	resolved     *cache.Bounded[string, domain.CountryLite]

	gen         uint64 // bumped on restart and close; stale timers compare it
	persistTask *Task
	advanceTask *Task
	closed      bool

	subMu       sync.Mutex
	subscribers map[chan UltimateState]struct{}
}

func NewUltimateSession(catalog *Catalog, builder *RoundBuilder, store SnapshotStore, rawLocale string, opts SessionOptions) *UltimateSession {
	if opts.Attempts == nil {
		opts.Attempts = DefaultAttempts()
	}
	if opts.PersistDebounce <= 0 {
		opts.PersistDebounce = DefaultPersistDebounce
	}
	if opts.AutoAdvance == "" {
		opts.AutoAdvance = AutoAdvanceOff
	}
	if opts.AutoAdvanceDelay < MinAutoAdvanceDelay {
		opts.AutoAdvanceDelay = MinAutoAdvanceDelay
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	loc := locale.Normalize(rawLocale)
	return &UltimateSession{
		catalog:     catalog,
		builder:     builder,
		store:       store,
		loc:         loc,
		opts:        opts,
		logger:      opts.Logger.With().Str("component", "ultimate").Str("locale", loc.Base).Logger(),
		phase:       PhaseLoading,
		feedback:    domain.FeedbackIdle,
		resolved:    cache.NewBounded[string, domain.CountryLite](64),
		subscribers: make(map[chan UltimateState]struct{}),
	}
}

// Locale is the normalized base locale the session is keyed by.
func (s *UltimateSession) Locale() string { return s.loc.Base }

// Start resumes a valid stored snapshot or builds a fresh round.
func (s *UltimateSession) Start(ctx context.Context) (UltimateState, error) {
	s.mu.Lock()
	s.cancelTimersLocked()
	s.phase = PhaseLoading

	if snap, ok := s.loadSnapshot(ctx); ok {
		s.restoreLocked(snap)
	} else if err := s.freshRoundLocked(ctx); err != nil {
		st := s.stateLocked()
		s.mu.Unlock()
		return st, err
	}
	s.answerLatLng = s.resolveAnswer(ctx)
	st := s.changedLocked()
	s.mu.Unlock()

	s.notify(st)
	return st, nil
}

// Restart discards the round, the stored snapshot and the session caches, then draws a new round.
func (s *UltimateSession) Restart(ctx context.Context) (UltimateState, error) {
	s.mu.Lock()
	s.cancelTimersLocked()
	s.gen++
	s.phase = PhaseLoading
	s.round = nil
	s.resolved.Clear()
	if err := s.store.Clear(ctx, s.loc.Base); err != nil {
		s.logger.Warn().Err(err).Msg("clear snapshot")
	}

	if err := s.freshRoundLocked(ctx); err != nil {
		st := s.stateLocked()
		s.mu.Unlock()
		return st, err
	}
	s.answerLatLng = s.resolveAnswer(ctx)
	st := s.changedLocked()
	s.mu.Unlock()

	s.notify(st)
	return st, nil
}

// Next advances one step, or finishes the round on the last step.
func (s *UltimateSession) Next() (UltimateState, error) {
	s.mu.Lock()
	if err := s.activeLocked(); err != nil {
		st := s.stateLocked()
		s.mu.Unlock()
		return st, err
	}
	s.nextLocked()
	st := s.changedLocked()
	s.mu.Unlock()

	s.notify(st)
	return st, nil
}

// Submit grades an answer for the current step.
func (s *UltimateSession) Submit(ctx context.Context, sub Submission) (UltimateState, error) {
	s.mu.Lock()
	if err := s.activeLocked(); err != nil {
		st := s.stateLocked()
		s.mu.Unlock()
		return st, err
	}
	step := s.round.Steps[s.stepIndex]
	if sub.Kind != step.Kind {
		st := s.stateLocked()
		s.mu.Unlock()
		return st, fmt.Errorf("%w: got %s, step is %s", domain.ErrStepMismatch, sub.Kind, step.Kind)
	}
	if s.feedback != domain.FeedbackIdle {
		st := s.stateLocked()
		s.mu.Unlock()
		return st, domain.ErrStepSettled
	}

	var err error
	switch step.Kind {
	case domain.StepShape:
		err = s.submitCountryLocked(ctx, sub.Text)
	case domain.StepCapital:
		err = s.submitCapitalLocked(ctx, step, sub.Text)
	case domain.StepArea, domain.StepPopulation:
		err = s.submitNumberLocked(step, sub.Value)
	case domain.StepFlag, domain.StepCoat:
		err = s.submitChoiceLocked(step, sub.Index)
	}
	if err != nil {
		st := s.stateLocked()
		s.mu.Unlock()
		return st, err
	}
	st := s.changedLocked()
	s.mu.Unlock()

	s.notify(st)
	return st, nil
}

// State returns the current view.
func (s *UltimateSession) State() UltimateState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Flush writes the snapshot immediately, replacing any pending debounced write.
func (s *UltimateSession) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.persistTask.Cancel()
	s.persistTask = nil
	if s.round == nil {
		s.mu.Unlock()
		return nil
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	return s.store.Save(ctx, snap)
}

// Close cancels pending timers. The session must not be used afterwards.
func (s *UltimateSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimersLocked()
	s.gen++
	s.closed = true
}

func (s *UltimateSession) loadSnapshot(ctx context.Context) (domain.Snapshot, bool) {
	snap, ok, err := s.store.Load(ctx, s.loc.Base)
	if err != nil {
		s.logger.Debug().Err(err).Msg("snapshot unreadable, starting fresh")
		return domain.Snapshot{}, false
	}
	if !ok {
		return domain.Snapshot{}, false
	}
	if err := snap.Validate(s.loc.Base); err != nil {
		s.logger.Debug().Err(err).Msg("snapshot discarded")
		return domain.Snapshot{}, false
	}
	return snap, true
}

func (s *UltimateSession) restoreLocked(snap domain.Snapshot) {
	round := snap.Round
	s.round = &round
	s.stepIndex = min(snap.StepIndex, len(round.Steps)-1)
	s.feedback = snap.Feedback
	s.attemptsLeft = snap.AttemptsLeft
	s.reveal = snap.Reveal
	s.score = snap.Score
	s.guesses = append([]domain.Guess(nil), snap.Guesses...)
	s.finished = snap.Finished
	s.phase = PhaseActive
	if s.finished {
		s.phase = PhaseFinished
	}
}

func (s *UltimateSession) freshRoundLocked(ctx context.Context) error {
	round, err := s.builder.Build(ctx, s.loc.Base)
	if err != nil {
		return err
	}
	s.round = &round
	s.stepIndex = 0
	s.feedback = domain.FeedbackIdle
	s.attemptsLeft = s.opts.Attempts.For(round.Steps[0].Kind)
	s.reveal = nil
	s.score = 0
	s.guesses = nil
	s.finished = false
	s.phase = PhaseActive
	return nil
}

// resolveAnswer looks up the answer's coordinates; they are never persisted.
func (s *UltimateSession) resolveAnswer(ctx context.Context) *geo.LatLng {
	if s.round == nil {
		return nil
	}
	lite, err := s.catalog.Resolve(ctx, ResolveQuery{Locale: s.loc.Base, ISO3: s.round.AnswerISO3})
	if err != nil {
		s.logger.Debug().Err(err).Str("iso3", s.round.AnswerISO3).Msg("answer coordinates unavailable")
		return nil
	}
	return lite.LatLng
}

func (s *UltimateSession) activeLocked() error {
	if s.round == nil {
		return domain.ErrNoRound
	}
	if s.finished {
		return domain.ErrRoundFinished
	}
	return nil
}

func (s *UltimateSession) nextLocked() {
	s.advanceTask.Cancel()
	s.advanceTask = nil
	if s.stepIndex+1 >= len(s.round.Steps) {
		s.finished = true
		s.phase = PhaseFinished
		return
	}
	s.stepIndex++
	s.feedback = domain.FeedbackIdle
	s.reveal = nil
	s.guesses = nil
	s.attemptsLeft = s.opts.Attempts.For(s.round.Steps[s.stepIndex].Kind)
}

func (s *UltimateSession) submitCountryLocked(ctx context.Context, text string) error {
	idx, err := s.catalog.NameIndex(ctx, s.loc)
	if err != nil {
		return err
	}
	v, err := judgeText(idx, text, s.round.AnswerISO3, s.round.AnswerLocalized, s.round.AnswerEN)
	if err != nil {
		return err
	}
	guess := domain.Guess{Label: v.label, IsCorrect: v.correct}
	if lite, ok := s.resolveGuess(ctx, v.iso3); ok && lite.LatLng != nil && s.answerLatLng != nil {
		km := geo.HaversineKm(*lite.LatLng, *s.answerLatLng)
		guess.ISO3, guess.DistanceKm = lite.ISO3, &km
	}
	s.applyLocked(v.correct, guess, s.countryLabel())
	return nil
}

func (s *UltimateSession) submitCapitalLocked(ctx context.Context, step domain.UltimateStep, text string) error {
	idx, err := s.catalog.CapitalIndex(ctx)
	if err != nil {
		return err
	}
	v, err := judgeText(idx, text, s.round.AnswerISO3, step.CapitalEN)
	if err != nil {
		return err
	}
	s.applyLocked(v.correct, domain.Guess{Label: v.label, IsCorrect: v.correct}, step.CapitalEN)
	return nil
}

func (s *UltimateSession) submitNumberLocked(step domain.UltimateStep, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return fmt.Errorf("%w: value %v", domain.ErrInvalidInput, value)
	}
	correct := match.WithinTolerance(value, step.Target(), step.TolerancePct)
	guess := domain.Guess{Label: s.formatNumber(step.Kind, value), IsCorrect: correct}
	s.applyLocked(correct, guess, s.formatNumber(step.Kind, step.Target()))
	return nil
}

func (s *UltimateSession) submitChoiceLocked(step domain.UltimateStep, index int) error {
	if index < 0 || index >= len(step.Options) {
		return fmt.Errorf("%w: option %d of %d", domain.ErrInvalidInput, index, len(step.Options))
	}
	picked := step.Options[index]
	label := picked.ISO3
	if c, ok := s.catalog.Dataset().ByISO3(picked.ISO3); ok {
		label = LocalizedName(c, s.loc)
	}
	correct := index == step.CorrectIndex
	s.applyLocked(correct, domain.Guess{Label: label, ISO3: picked.ISO3, IsCorrect: correct}, s.countryLabel())
	return nil
}

// applyLocked records a graded submission.
func (s *UltimateSession) applyLocked(correct bool, guess domain.Guess, revealText string) {
	s.guesses = append(s.guesses, guess)
	if correct {
		if s.attemptsLeft == s.opts.Attempts.For(s.round.Steps[s.stepIndex].Kind) {
			s.score++
		}
		s.feedback = domain.FeedbackCorrect
		s.reveal = &revealText
		return
	}
	s.attemptsLeft = max(s.attemptsLeft-1, 0)
	if s.attemptsLeft == 0 {
		s.feedback = domain.FeedbackWrong
		s.reveal = &revealText
	}
}

func (s *UltimateSession) resolveGuess(ctx context.Context, iso3 string) (domain.CountryLite, bool) {
	if iso3 == "" {
		return domain.CountryLite{}, false
	}
	if lite, ok := s.resolved.Get(iso3); ok {
		return lite, true
	}
	lite, err := s.catalog.Resolve(ctx, ResolveQuery{Locale: s.loc.Base, ISO3: iso3})
	if err != nil {
		return domain.CountryLite{}, false
	}
	s.resolved.Put(iso3, lite)
	return lite, true
}

func (s *UltimateSession) countryLabel() string {
	if s.round.AnswerLocalized != "" {
		return s.round.AnswerLocalized
	}
	return s.round.AnswerEN
}

// formatNumber groups digits the way the session locale does; areas carry a km² suffix.
func (s *UltimateSession) formatNumber(kind domain.StepKind, v float64) string {
	out := message.NewPrinter(s.loc.Tag()).Sprintf("%d", int64(math.Round(v)))
	if kind == domain.StepArea {
		out += " km²"
	}
	return out
}

// changedLocked schedules the debounced write and, when feedback just
// settled, the auto-advance. It returns the state to publish.
func (s *UltimateSession) changedLocked() UltimateState {
	if !s.closed && s.round != nil {
		s.persistTask.Cancel()
		gen := s.gen
		s.persistTask = ScheduleTask(s.opts.Clock, s.opts.PersistDebounce, func() { s.persistIfCurrent(gen) })
		s.scheduleAdvanceLocked()
	}
	return s.stateLocked()
}

func (s *UltimateSession) scheduleAdvanceLocked() {
	if s.finished || s.feedback == domain.FeedbackIdle || s.advanceTask.State() == TaskScheduled {
		return
	}
	switch s.opts.AutoAdvance {
	case AutoAdvanceOnAny:
	case AutoAdvanceOnCorrect:
		if s.feedback != domain.FeedbackCorrect {
			return
		}
	default:
		return
	}
	gen, step := s.gen, s.stepIndex
	s.advanceTask = ScheduleTask(s.opts.Clock, s.opts.AutoAdvanceDelay, func() { s.autoAdvance(gen, step) })
}

func (s *UltimateSession) autoAdvance(gen uint64, step int) {
	s.mu.Lock()
	if s.gen != gen || s.stepIndex != step || s.activeLocked() != nil || s.feedback == domain.FeedbackIdle {
		s.mu.Unlock()
		return
	}
	s.nextLocked()
	st := s.changedLocked()
	s.mu.Unlock()
	s.notify(st)
}

func (s *UltimateSession) persistIfCurrent(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.round == nil {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), snapshotWriteTimeout)
	defer cancel()
	if err := s.store.Save(ctx, snap); err != nil {
		s.logger.Warn().Err(err).Msg("persist snapshot")
	}
}

func (s *UltimateSession) cancelTimersLocked() {
	s.persistTask.Cancel()
	s.advanceTask.Cancel()
	s.persistTask, s.advanceTask = nil, nil
}

func (s *UltimateSession) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		V:            domain.SnapshotVersion,
		Locale:       s.loc.Base,
		Round:        *s.round,
		StepIndex:    s.stepIndex,
		Feedback:     s.feedback,
		AttemptsLeft: s.attemptsLeft,
		Reveal:       s.reveal,
		Score:        s.score,
		Guesses:      append([]domain.Guess{}, s.guesses...),
		Finished:     s.finished,
	}
}

func (s *UltimateSession) stateLocked() UltimateState {
	st := UltimateState{
		Phase:        s.phase,
		Locale:       s.loc.Base,
		StepIndex:    s.stepIndex,
		Feedback:     s.feedback,
		AttemptsLeft: s.attemptsLeft,
		Reveal:       s.reveal,
		Score:        s.score,
		Guesses:      append([]domain.Guess{}, s.guesses...),
		Finished:     s.finished,
		AnswerLatLng: s.answerLatLng,
	}
	if s.round != nil {
		st.Round = s.round
		step := s.round.Steps[s.stepIndex]
		st.Step = &step
	}
	return st
}

// Subscribe returns a channel receiving every state change, including those
// made by timers. The caller must invoke cancel to release it.
func (s *UltimateSession) Subscribe() (<-chan UltimateState, func()) {
	ch := make(chan UltimateState, 8)
	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

// notify fans st out; a full subscriber loses its oldest pending state.
func (s *UltimateSession) notify(st UltimateState) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- st:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- st
		}
	}
}
