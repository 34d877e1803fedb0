package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui/views/funnel"
	"github.com/custodia-labs/printdesk/internal/core/domain"
)

// plausibleThreshold is the minimum confidence of a candidate passed to the funnel.
const plausibleThreshold = 0.7

// Option configures the App.
type Option func(*App)

// WithDescription starts by resolving text instead of asking for it.
func WithDescription(text string) Option {
	return func(a *App) {
		a.description = text
	}
}

// WithCandidates starts the funnel directly over the given model IDs.
func WithCandidates(ids []string) Option {
	return func(a *App) {
		a.candidates = ids
	}
}

// WithSearchOptions sets the options used for manual searches.
// The model filter is always the identified printer.
func WithSearchOptions(opts domain.SearchOptions) Option {
	return func(a *App) {
		a.searchOpts = opts
	}
}

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	describeInput *input.PromptInput
	problemInput  *input.PromptInput
	funnelView    *funnel.View
	results       *list.ResultList
	statusBar     *status.Bar

	currentView messages.ViewType
	description string
	candidates  []string
	searchOpts  domain.SearchOptions

	// model is the identified printer, empty until resolved.
	model string

	// outcome is the last funnel outcome, nil if no funnel ran.
	outcome *domain.FunnelOutcome

	err    error
	width  int
	height int
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports, opts ...Option) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	a := &App{
		ports:         ports,
		ctx:           context.Background(),
		styles:        s,
		keymap:        km,
		describeInput: input.NewPromptInput(s, "Impressora:", "ex.: minha L3150 não puxa papel"),
		problemInput:  input.NewPromptInput(s, "Problema:", "ex.: papel atolado"),
		results:       list.NewResultList(s),
		statusBar:     status.NewBar(s, km),
		currentView:   messages.ViewDescribe,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{tea.SetWindowTitle("printdesk"), a.describeInput.Init()}
	switch {
	case len(a.candidates) > 0:
		a.statusBar.SetState(status.StateResolving)
		cmds = append(cmds, a.startFunnelCmd(a.candidates))
	case a.description != "":
		a.describeInput.SetValue(a.description)
		a.statusBar.SetState(status.StateResolving)
		cmds = append(cmds, a.resolveCmd(a.description))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.describeInput.SetWidth(msg.Width)
		a.problemInput.SetWidth(msg.Width)
		a.results.SetDimensions(msg.Width, msg.Height-6)
		a.statusBar.SetWidth(msg.Width)
		return a, nil

	case tea.KeyMsg:
		if keymap.Matches(msg.String(), a.keymap.Quit) {
			return a, tea.Quit
		}
		return a.handleKey(msg)

	case messages.ResolveCompleted:
		return a.handleResolved(msg)

	case messages.FunnelFinished:
		return a.handleFunnelFinished(msg)

	case messages.SearchCompleted:
		if msg.Err != nil {
			return a.fail(msg.Err)
		}
		a.results.SetResults(msg.Results)
		a.currentView = messages.ViewResults
		a.statusBar.SetState(status.StateResults)
		a.statusBar.SetMessage(fmt.Sprintf("%d seções", len(msg.Results)))
		return a, nil

	case messages.ErrorOccurred:
		return a.fail(msg.Err)

	default:
		// Cursor blink and other component messages.
		var cmd tea.Cmd
		switch a.currentView {
		case messages.ViewDescribe:
			a.describeInput, cmd = a.describeInput.Update(msg)
		case messages.ViewProblem:
			a.problemInput, cmd = a.problemInput.Update(msg)
		}
		return a, cmd
	}
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	k := msg.String()

	if keymap.Matches(k, a.keymap.Restart) {
		a.reset()
		return a, nil
	}

	switch a.currentView {
	case messages.ViewDescribe:
		if keymap.Matches(k, a.keymap.Select) {
			text := strings.TrimSpace(a.describeInput.Value())
			if text == "" {
				return a, nil
			}
			a.err = nil
			a.statusBar.SetState(status.StateResolving)
			return a, a.resolveCmd(text)
		}
		a.describeInput, cmd = a.describeInput.Update(msg)
		return a, cmd

	case messages.ViewFunnel:
		if keymap.Matches(k, a.keymap.Back) {
			a.reset()
			return a, nil
		}
		a.funnelView, cmd = a.funnelView.Update(msg)
		return a, cmd

	case messages.ViewProblem:
		if keymap.Matches(k, a.keymap.Back) {
			a.reset()
			return a, nil
		}
		if keymap.Matches(k, a.keymap.Select) {
			query := strings.TrimSpace(a.problemInput.Value())
			if query == "" {
				return a, nil
			}
			a.err = nil
			a.statusBar.SetState(status.StateSearching)
			return a, a.searchCmd(query)
		}
		a.problemInput, cmd = a.problemInput.Update(msg)
		return a, cmd

	case messages.ViewResults:
		if keymap.Matches(k, a.keymap.Back) {
			a.currentView = messages.ViewProblem
			a.statusBar.SetState(status.StateReady)
			a.problemInput.Focus()
			return a, nil
		}
		a.results, cmd = a.results.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleResolved(msg messages.ResolveCompleted) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return a.fail(msg.Err)
	}
	if msg.Session == nil {
		best, ok := msg.Resolution.Best()
		if !ok {
			return a.fail(fmt.Errorf("%w: nenhum modelo reconhecido", domain.ErrUnknownModel))
		}
		return a.identified(best.ModelID)
	}

	a.funnelView = funnel.NewView(a.styles, msg.Session)
	a.currentView = messages.ViewFunnel
	a.statusBar.SetState(status.StateAsking)
	return a, a.funnelView.Init()
}

func (a *App) handleFunnelFinished(msg messages.FunnelFinished) (tea.Model, tea.Cmd) {
	outcome := msg.Outcome
	a.outcome = &outcome
	if outcome.Status == domain.FunnelResolved {
		return a.identified(outcome.ModelID)
	}

	// Never guess: search without a model filter and say so.
	a.model = ""
	a.statusBar.SetModel("")
	a.statusBar.SetState(status.StateReady)
	a.statusBar.SetMessage("Modelo não identificado: " + strings.Join(outcome.Remaining, ", "))
	return a.askProblem()
}

func (a *App) identified(id string) (tea.Model, tea.Cmd) {
	a.model = id
	a.statusBar.SetModel(id)
	a.statusBar.SetState(status.StateReady)
	a.statusBar.SetMessage("")
	return a.askProblem()
}

func (a *App) askProblem() (tea.Model, tea.Cmd) {
	if a.ports.Search == nil {
		return a, tea.Quit
	}
	a.currentView = messages.ViewProblem
	a.describeInput.Blur()
	a.problemInput.Focus()
	return a, nil
}

func (a *App) fail(err error) (tea.Model, tea.Cmd) {
	a.err = err
	a.statusBar.SetState(status.StateError)
	a.statusBar.SetMessage(err.Error())
	return a, nil
}

func (a *App) reset() {
	a.model = ""
	a.outcome = nil
	a.err = nil
	a.funnelView = nil
	a.describeInput.Reset()
	a.problemInput.Reset()
	a.results.SetResults(nil)
	a.statusBar.Clear()
	a.currentView = messages.ViewDescribe
	a.describeInput.Focus()
}

// resolveCmd resolves text and starts the funnel when it is ambiguous.
func (a *App) resolveCmd(text string) tea.Cmd {
	ctx := a.ctx
	resolver := a.ports.Resolver
	return func() tea.Msg {
		res, err := resolver.Resolve(ctx, text)
		if err != nil {
			return messages.ResolveCompleted{Err: err}
		}
		if _, ok := res.Unique(); ok {
			return messages.ResolveCompleted{Resolution: res}
		}

		plausible := res.Plausible(plausibleThreshold)
		if len(plausible) == 1 {
			return messages.ResolveCompleted{Resolution: res}
		}
		ids := make([]string, len(plausible))
		for i, c := range plausible {
			ids[i] = c.ModelID
		}
		session, err := resolver.StartFunnel(ctx, ids)
		return messages.ResolveCompleted{Resolution: res, Session: session, Err: err}
	}
}

func (a *App) startFunnelCmd(ids []string) tea.Cmd {
	ctx := a.ctx
	resolver := a.ports.Resolver
	return func() tea.Msg {
		session, err := resolver.StartFunnel(ctx, ids)
		return messages.ResolveCompleted{Session: session, Err: err}
	}
}

func (a *App) searchCmd(query string) tea.Cmd {
	ctx := a.ctx
	search := a.ports.Search
	opts := a.searchOpts
	opts.ModelFilter = a.model
	return func() tea.Msg {
		results, err := search.Search(ctx, query, opts)
		return messages.SearchCompleted{Results: results, Err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	var body string
	switch a.currentView {
	case messages.ViewDescribe:
		body = a.styles.Normal.Render("Qual é a sua impressora Epson?") + "\n\n" + a.describeInput.View()
	case messages.ViewFunnel:
		if a.funnelView != nil {
			body = a.funnelView.View()
		}
	case messages.ViewProblem:
		body = a.problemInput.View()
	case messages.ViewResults:
		body = a.results.View()
	}

	if a.err != nil {
		body += "\n\n" + a.styles.Error.Render(a.err.Error())
	}

	header := a.styles.Title.Render("printdesk") + a.styles.Muted.Render("  manuais Epson")
	return header + "\n\n" + body + "\n\n" + a.statusBar.View()
}

// CurrentView returns the active step.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Model returns the identified printer, empty if none.
func (a *App) Model() string {
	return a.model
}

// Outcome returns the last funnel outcome, nil if no funnel ran.
func (a *App) Outcome() *domain.FunnelOutcome {
	return a.outcome
}

// Err returns the last error.
func (a *App) Err() error {
	return a.err
}

// Run starts the TUI and blocks until the user quits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}
