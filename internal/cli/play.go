package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/infra/disk"
)

const (
	quizHelp        = "commands: :next  :quit"
	ultimateHelp    = "commands: :next  :restart  :quit"
	keysHelp        = "tab completes · ↓/↑ cycle suggestions · esc quits"
	transcriptLines = 24
)

var (
	styleSubtle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// NewPlayCmd runs a quiz in the terminal against the local dataset.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		loc      string
		stateDir string
	)
	cmd := &cobra.Command{
		Use:       "play [flag|capital|shape|ultimate]",
		Short:     "Play in the terminal; ultimate rounds resume after a restart",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"flag", "capital", "shape", "ultimate"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := "ultimate"
			if len(args) == 1 {
				mode = args[0]
			}
			return runPlay(cmd.Context(), *configPath, mode, loc, stateDir, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&loc, "locale", "en", "UI locale, e.g. fr or pt-BR")
	cmd.Flags().StringVar(&stateDir, "state-dir", defaultStateDir(), "directory holding resumable ultimate sessions")
	return cmd
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "geoquiz")
	}
	return ".geoquiz"
}

func runPlay(ctx context.Context, configPath, mode, loc, stateDir string, in io.Reader, out io.Writer) error {
	rt, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer rt.Close()

	var p player
	if mode == "ultimate" {
		store, err := disk.NewSnapshotStore(stateDir)
		if err != nil {
			return err
		}
		session := rt.svc.NewUltimate(store, loc)
		defer session.Close()
		p = newUltimatePlayer(rt.svc, session)
	} else {
		quiz, err := rt.svc.NewQuiz(mode, loc)
		if err != nil {
			return err
		}
		p = &quizPlayer{svc: rt.svc, quiz: quiz, loc: loc}
	}
	return play(ctx, p, in, out)
}

// play runs p in a bubbletea program until :quit, esc or ctrl+c.
func play(ctx context.Context, p player, in io.Reader, out io.Writer) error {
	m, err := newPlayModel(ctx, p)
	if err != nil {
		return err
	}
	defer p.finish(ctx, out)

	final, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil && ctx.Err() == nil {
		return err
	}
	if fm, ok := final.(playModel); ok && fm.err != nil {
		return fm.err
	}
	return nil
}

// player is one game in the terminal. handle reacts to a submitted line and
// writes what the player sees next; suggestions feed the input's autocomplete.
type player interface {
	start(ctx context.Context, out io.Writer) error
	handle(ctx context.Context, line string, out io.Writer) (quit bool, err error)
	suggestions(ctx context.Context) []string
	// watch waits for a change made outside handle. Nil when none can happen.
	watch() tea.Cmd
	changed(out io.Writer)
	finish(ctx context.Context, out io.Writer)
}

type sessionChangedMsg struct{}

type playModel struct {
	ctx        context.Context
	player     player
	input      textinput.Model
	transcript *bytes.Buffer
	err        error
	done       bool
}

func newPlayModel(ctx context.Context, p player) (playModel, error) {
	ti := textinput.New()
	ti.Placeholder = "type an answer"
	ti.Prompt = "> "
	ti.CharLimit = 64
	ti.Width = 48
	ti.ShowSuggestions = true
	ti.Focus()

	m := playModel{ctx: ctx, player: p, input: ti, transcript: &bytes.Buffer{}}
	if err := p.start(ctx, m.transcript); err != nil {
		return m, err
	}
	m.input.SetSuggestions(p.suggestions(ctx))
	return m, nil
}

func (m playModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.player.watch())
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m.submit(":quit")
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			return m.submit(line)
		}
	case sessionChangedMsg:
		m.player.changed(m.transcript)
		m.input.SetSuggestions(m.player.suggestions(m.ctx))
		return m, m.player.watch()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m playModel) submit(line string) (tea.Model, tea.Cmd) {
	fmt.Fprintf(m.transcript, "> %s\n", line)
	quit, err := m.player.handle(m.ctx, line, m.transcript)
	if err != nil {
		m.err = err
		return m, tea.Quit
	}
	if quit {
		m.done = true
		return m, tea.Quit
	}
	m.input.SetSuggestions(m.player.suggestions(m.ctx))
	return m, nil
}

func (m playModel) View() string {
	var b strings.Builder
	b.WriteString(lastLines(m.transcript.String(), transcriptLines))
	switch {
	case m.err != nil:
		b.WriteString(styleError.Render("error: "+m.err.Error()) + "\n")
	case !m.done:
		b.WriteString(m.input.View() + "\n")
		b.WriteString(styleSubtle.Render(keysHelp) + "\n")
	}
	return b.String()
}

func lastLines(s string, n int) string {
	lines := strings.SplitAfter(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "")
}

// quizPlayer plays a single-mode quiz.
type quizPlayer struct {
	svc   *app.GameService
	quiz  *app.Quiz
	loc   string
	st    app.QuizState
	names []string
}

func (p *quizPlayer) start(ctx context.Context, out io.Writer) error {
	st, err := p.quiz.Start(ctx)
	if err != nil {
		return err
	}
	p.st = st
	fmt.Fprintln(out, quizHelp)
	printQuestion(out, st)
	return nil
}

func (p *quizPlayer) handle(ctx context.Context, line string, out io.Writer) (bool, error) {
	switch line {
	case ":quit":
		fmt.Fprintf(out, "score %d/%d\n", p.st.Score, p.st.Asked)
		return true, nil
	case ":next":
		next, err := p.quiz.Next(ctx)
		if errors.Is(err, domain.ErrNotAttempted) {
			fmt.Fprintln(out, "have a guess first")
			return false, nil
		}
		if err != nil {
			return false, err
		}
		p.st = next
		printQuestion(out, p.st)
		return false, nil
	}

	next, err := p.quiz.Submit(ctx, line)
	if err != nil {
		printSubmitError(out, err)
		return false, nil
	}
	p.st = next
	printQuizFeedback(out, p.st)
	return false, nil
}

// Every quiz mode is answered with a country name.
func (p *quizPlayer) suggestions(ctx context.Context) []string {
	if p.names == nil {
		p.names = nameLabels(ctx, p.svc, p.loc)
	}
	return p.names
}

func (p *quizPlayer) watch() tea.Cmd                    { return nil }
func (p *quizPlayer) changed(io.Writer)                 {}
func (p *quizPlayer) finish(context.Context, io.Writer) {}

// ultimatePlayer drives an ultimate session. The snapshot is flushed on
// finish so the round resumes next time.
type ultimatePlayer struct {
	svc         *app.GameService
	session     *app.UltimateSession
	st          app.UltimateState
	updates     <-chan app.UltimateState
	unsubscribe func()
	names       []string
	capitals    []string
}

func newUltimatePlayer(svc *app.GameService, session *app.UltimateSession) *ultimatePlayer {
	updates, unsubscribe := session.Subscribe()
	return &ultimatePlayer{svc: svc, session: session, updates: updates, unsubscribe: unsubscribe}
}

func (p *ultimatePlayer) start(ctx context.Context, out io.Writer) error {
	st, err := p.session.Start(ctx)
	if err != nil {
		return err
	}
	p.st = st
	fmt.Fprintln(out, ultimateHelp)
	printStep(out, st)
	return nil
}

func (p *ultimatePlayer) handle(ctx context.Context, line string, out io.Writer) (bool, error) {
	var (
		next app.UltimateState
		err  error
	)
	switch line {
	case ":quit":
		fmt.Fprintf(out, "score %d\n", p.session.State().Score)
		return true, nil
	case ":next":
		next, err = p.session.Next()
	case ":restart":
		next, err = p.session.Restart(ctx)
	default:
		// auto-advance may have moved on since the last prompt
		p.st = p.session.State()
		sub, perr := parseSubmission(p.st, line)
		if perr != nil {
			fmt.Fprintln(out, perr)
			return false, nil
		}
		next, err = p.session.Submit(ctx, sub)
		if err == nil {
			printLastGuess(out, next.Guesses)
			printStepFeedback(out, next)
			p.st = next
			return false, nil
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrRoundFinished) {
			fmt.Fprintln(out, "round over, type :restart")
			return false, nil
		}
		printSubmitError(out, err)
		return false, nil
	}
	p.st = next
	printStep(out, p.st)
	return false, nil
}

// suggestions follow the current step: country names for the outline,
// capitals for the capital step and nothing for numbers or choices.
func (p *ultimatePlayer) suggestions(ctx context.Context) []string {
	st := p.session.State()
	if st.Step == nil || st.Finished {
		return nil
	}
	switch st.Step.Kind {
	case domain.StepShape:
		if p.names == nil {
			p.names = nameLabels(ctx, p.svc, p.session.Locale())
		}
		return p.names
	case domain.StepCapital:
		if p.capitals == nil {
			p.capitals = capitalLabels(ctx, p.svc)
		}
		return p.capitals
	}
	return nil
}

func (p *ultimatePlayer) watch() tea.Cmd {
	updates := p.updates
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return sessionChangedMsg{}
	}
}

// changed prints the step again when a timer moved the session on.
// Notifications for changes made by handle are already on screen.
func (p *ultimatePlayer) changed(out io.Writer) {
	cur := p.session.State()
	if cur.Round == p.st.Round && cur.StepIndex == p.st.StepIndex && cur.Finished == p.st.Finished {
		p.st = cur
		return
	}
	p.st = cur
	printStep(out, cur)
}

func (p *ultimatePlayer) finish(ctx context.Context, out io.Writer) {
	p.unsubscribe()
	if err := p.session.Flush(context.WithoutCancel(ctx)); err != nil {
		fmt.Fprintf(out, "could not save progress: %v\n", err)
	}
}

func nameLabels(ctx context.Context, svc *app.GameService, loc string) []string {
	names, err := svc.Names(ctx, loc)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n.Name)
	}
	return slices.Compact(out)
}

func capitalLabels(ctx context.Context, svc *app.GameService) []string {
	capitals, err := svc.Capitals(ctx)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(capitals))
	for _, c := range capitals {
		out = append(out, c.Capital)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func printQuestion(out io.Writer, st app.QuizState) {
	q := st.Question.Question
	switch q.Type {
	case domain.ModeFlag:
		fmt.Fprintf(out, "\n#%d Which country flies this flag? %v\n", st.Asked, q.Data)
	case domain.ModeCapital:
		fmt.Fprintf(out, "\n#%d Which country has the capital %v?\n", st.Asked, q.Data)
	case domain.ModeShape:
		fmt.Fprintf(out, "\n#%d Which country has this outline?\n", st.Asked)
		if shape, ok := q.Data.(*domain.Shape); ok {
			fmt.Fprintf(out, "  viewBox %s, %d paths\n", shape.ViewBox, len(shape.Paths))
		}
	}
	fmt.Fprintf(out, "%d attempts\n", st.AttemptsLeft)
}

func printQuizFeedback(out io.Writer, st app.QuizState) {
	printLastGuess(out, st.Guesses)
	switch st.Feedback {
	case domain.FeedbackCorrect:
		fmt.Fprintf(out, "Correct! It is %s. Score %d. Type :next\n", deref(st.Reveal), st.Score)
		return
	case domain.FeedbackWrong:
		fmt.Fprintf(out, "Out of attempts, it was %s. Type :next\n", deref(st.Reveal))
		return
	}
	fmt.Fprintf(out, "%d attempts left\n", st.AttemptsLeft)
	if st.Hints.Region != nil {
		fmt.Fprintf(out, "  hint: region %s\n", *st.Hints.Region)
	}
	if st.Hints.Capital != nil {
		fmt.Fprintf(out, "  hint: capital %s\n", *st.Hints.Capital)
	}
	if st.Hints.FirstLetter != nil {
		fmt.Fprintf(out, "  hint: starts with %s\n", *st.Hints.FirstLetter)
	}
}

func printStep(out io.Writer, st app.UltimateState) {
	if st.Round == nil {
		return
	}
	if st.Finished {
		fmt.Fprintf(out, "\nRound over: %d/%d. The country was %s. Type :restart\n", st.Score, len(st.Round.Steps), st.Round.AnswerLocalized)
		return
	}
	if st.Step == nil {
		return
	}
	fmt.Fprintf(out, "\nStep %d/%d: ", st.StepIndex+1, len(st.Round.Steps))
	switch step := st.Step; step.Kind {
	case domain.StepShape:
		fmt.Fprintf(out, "which country has this outline? (viewBox %s, %d paths)\n", step.ShapeSVG.ViewBox, len(step.ShapeSVG.Paths))
	case domain.StepArea:
		fmt.Fprintf(out, "how large is it in km²? (±%.0f%%)\n", step.TolerancePct*100)
	case domain.StepPopulation:
		fmt.Fprintf(out, "how many people live there? (±%.0f%%)\n", step.TolerancePct*100)
	case domain.StepCapital:
		fmt.Fprintf(out, "what is the capital of %s?\n", step.CountryLocalized)
	case domain.StepFlag, domain.StepCoat:
		fmt.Fprintf(out, "pick its %s\n", step.Kind)
		for i, opt := range step.Options {
			fmt.Fprintf(out, "  %d) %s\n", i+1, opt.SVG)
		}
	}
	fmt.Fprintf(out, "%d attempts\n", st.AttemptsLeft)
}

func printStepFeedback(out io.Writer, st app.UltimateState) {
	switch st.Feedback {
	case domain.FeedbackCorrect:
		fmt.Fprintf(out, "Correct: %s. Score %d. Type :next\n", deref(st.Reveal), st.Score)
	case domain.FeedbackWrong:
		fmt.Fprintf(out, "Wrong, the answer was %s. Type :next\n", deref(st.Reveal))
	default:
		fmt.Fprintf(out, "%d attempts left\n", st.AttemptsLeft)
	}
}

// parseSubmission reads the input line according to the current step kind.
func parseSubmission(st app.UltimateState, line string) (app.Submission, error) {
	if st.Step == nil {
		return app.Submission{}, errors.New("no step to answer")
	}
	sub := app.Submission{Kind: st.Step.Kind}
	switch st.Step.Kind {
	case domain.StepArea, domain.StepPopulation:
		clean := strings.NewReplacer(",", "", "_", "", " ", "", "km²", "").Replace(line)
		v, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return sub, fmt.Errorf("enter a number, got %q", line)
		}
		sub.Value = v
	case domain.StepFlag, domain.StepCoat:
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(st.Step.Options) {
			return sub, fmt.Errorf("enter an option between 1 and %d", len(st.Step.Options))
		}
		sub.Index = n - 1
	default:
		sub.Text = line
	}
	return sub, nil
}

func printLastGuess(out io.Writer, guesses []domain.Guess) {
	if len(guesses) == 0 {
		return
	}
	g := guesses[len(guesses)-1]
	if g.IsCorrect {
		return
	}
	if g.DistanceKm != nil {
		fmt.Fprintf(out, "✗ %s (%d km away)\n", g.Label, *g.DistanceKm)
		return
	}
	fmt.Fprintf(out, "✗ %s\n", g.Label)
}

func printSubmitError(out io.Writer, err error) {
	switch {
	case errors.Is(err, domain.ErrNotASuggestion):
		fmt.Fprintln(out, "not in the list, try :names <prefix>")
	case errors.Is(err, domain.ErrStepSettled):
		fmt.Fprintln(out, "already answered, type :next")
	default:
		fmt.Fprintf(out, "error: %v\n", err)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
