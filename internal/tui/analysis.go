package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/commitlens/commitlens-cli/internal/analysis"
	"github.com/commitlens/commitlens-cli/internal/api"
	"github.com/commitlens/commitlens-cli/internal/entity"
	"github.com/commitlens/commitlens-cli/internal/forms"
	"github.com/commitlens/commitlens-cli/internal/querycache"
)

// optionLimit is how many projects, agents and users the analysis form
// offers.
const optionLimit = 100

type optionsMsg struct {
	opts forms.AnalysisOptions
	err  error
}

type analysisPhase int

const (
	phaseForm analysisPhase = iota
	phaseRunning
	phaseResult
)

type analysisKeys struct {
	Edit   key.Binding
	Leave  key.Binding
	Reload key.Binding
	Reset  key.Binding
}

type analysisScreen struct {
	ctx    context.Context
	client api.Client
	cache  *querycache.Cache
	log    *slog.Logger

	form    *forms.Analysis
	poller  *analysis.Poller
	spinner spinner.Model
	keys    analysisKeys

	phase      analysisPhase
	editing    bool
	loading    bool
	optionsErr error
	runID      string

	width, height int
}

func newAnalysisScreen(deps crudDeps, c api.Client, interval time.Duration) *analysisScreen {
	log := deps.log.With("screen", "analysis")
	return &analysisScreen{
		ctx:     deps.ctx,
		client:  c,
		cache:   deps.cache,
		log:     log,
		form:    forms.NewAnalysis(deps.ctx, c.StartAnalysis),
		poller:  analysis.NewPoller(deps.ctx, c.AnalysisStatus, interval, analysis.WithLogger(log)),
		spinner: spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(accentStyle)),
		keys: analysisKeys{
			Edit:   key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "fill in form")),
			Leave:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "leave form")),
			Reload: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload options")),
			Reset:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "new analysis")),
		},
	}
}

func (s *analysisScreen) Title() string { return "Analysis" }
func (s *analysisScreen) Close()        { s.poller.Stop() }

// Capturing is true while the user types into the form.
func (s *analysisScreen) Capturing() bool { return s.phase == phaseForm && s.editing }

func (s *analysisScreen) Help() ([]key.Binding, [][]key.Binding) {
	switch s.phase {
	case phaseForm:
		if s.editing {
			return []key.Binding{s.keys.Leave}, [][]key.Binding{{s.keys.Leave}}
		}
		return []key.Binding{s.keys.Edit, s.keys.Reload}, [][]key.Binding{{s.keys.Edit, s.keys.Reload}}
	case phaseResult:
		return []key.Binding{s.keys.Reset}, [][]key.Binding{{s.keys.Reset}}
	}
	return nil, nil
}

func (s *analysisScreen) SetSize(w, h int) {
	s.width, s.height = w, h
	s.form.SetWidth(min(80, max(30, w-4)))
}

func (s *analysisScreen) Init() tea.Cmd {
	return tea.Batch(s.loadOptions(), s.form.Init())
}

// loadOptions fetches the first page of every entity the form picks from.
// The three lists load concurrently and go through the query cache, so a
// table showing the same page shares the request.
func (s *analysisScreen) loadOptions() tea.Cmd {
	s.loading = true
	s.optionsErr = nil
	ctx, c, cache := s.ctx, s.client, s.cache
	q := entity.Query{Page: 1, Limit: optionLimit}
	return func() tea.Msg {
		var opts forms.AnalysisOptions
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			p, err := listCached(gctx, cache, entity.KindProjects, q, entity.ProjectFilter{}, c.Projects().List)
			opts.Projects = p.Data
			return err
		})
		g.Go(func() error {
			p, err := listCached(gctx, cache, entity.KindAgents, q, entity.AgentFilter{}, c.Agents().List)
			opts.Agents = p.Data
			return err
		})
		g.Go(func() error {
			p, err := listCached(gctx, cache, entity.KindUsers, q, entity.UserFilter{}, c.Users().List)
			opts.Users = p.Data
			return err
		})
		err := g.Wait()
		return optionsMsg{opts: opts, err: err}
	}
}

func listCached[T any](ctx context.Context, cache *querycache.Cache, kind entity.Kind, q entity.Query, f entity.Filter,
	list func(context.Context, entity.Query, entity.Filter) (entity.Page[T], error),
) (entity.Page[T], error) {
	key, err := querycache.Key(string(kind), "options", q, f)
	if err != nil {
		return entity.Page[T]{}, err
	}
	return querycache.Get(ctx, cache, key, func(ctx context.Context) (entity.Page[T], error) {
		return list(ctx, q, f)
	})
}

func (s *analysisScreen) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case optionsMsg:
		s.loading = false
		if msg.err != nil {
			s.optionsErr = msg.err
			s.log.Warn("loading analysis options failed", "err", msg.err)
			return notifyErr(fmt.Errorf("load options: %w", msg.err))
		}
		s.form.SetOptions(msg.opts)
		return s.form.Init()

	case forms.SubmittedMsg:
		if msg.FormID != s.form.ID() {
			return nil
		}
		if !s.form.Apply(msg) {
			if msg.Err != nil && !s.form.Submitting() {
				return notifyErr(msg.Err)
			}
			return nil
		}
		return s.start(msg.Result.ID)

	case analysis.StatusMsg:
		cmd := s.poller.Update(msg)
		if s.phase == phaseRunning && !s.poller.Active() {
			s.phase = phaseResult
			switch {
			case s.poller.Status() == analysis.StatusSuccess:
				cmd = tea.Batch(cmd, notify("Analysis completed"))
			case s.poller.Err() != nil:
				cmd = tea.Batch(cmd, notifyErr(s.poller.Err()))
			}
		}
		return cmd

	case spinner.TickMsg:
		if s.phase != phaseRunning {
			return nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	// Poller ticks and huh's internal messages.
	cmds := []tea.Cmd{s.poller.Update(msg)}
	if s.phase == phaseForm {
		cmds = append(cmds, s.form.Update(msg))
	}
	return tea.Batch(cmds...)
}

func (s *analysisScreen) start(runID string) tea.Cmd {
	s.runID = runID
	s.phase = phaseRunning
	s.editing = false
	s.log.Info("analysis started", "run", runID)
	return tea.Batch(notify("Analysis started"), s.poller.Start(runID), s.spinner.Tick)
}

// reset drops the finished run and goes back to a fresh form.
func (s *analysisScreen) reset() tea.Cmd {
	s.poller.Reset()
	s.runID = ""
	s.phase = phaseForm
	s.form.Reset()
	return s.form.Init()
}

func (s *analysisScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch s.phase {
	case phaseForm:
		if s.loading {
			return nil
		}
		if s.editing {
			if key.Matches(msg, s.keys.Leave) && !s.form.Submitting() {
				s.editing = false
				return nil
			}
			return s.form.Update(msg)
		}
		switch {
		case key.Matches(msg, s.keys.Edit):
			s.editing = true
			return s.form.Init()
		case key.Matches(msg, s.keys.Reload):
			s.cache.InvalidatePrefix(string(entity.KindProjects))
			s.cache.InvalidatePrefix(string(entity.KindAgents))
			s.cache.InvalidatePrefix(string(entity.KindUsers))
			return s.loadOptions()
		}
		return nil
	case phaseResult:
		if key.Matches(msg, s.keys.Reset) {
			return s.reset()
		}
	}
	return nil
}

func (s *analysisScreen) View() string {
	var body string
	switch s.phase {
	case phaseForm:
		body = s.formView()
	case phaseRunning:
		body = s.stepperView()
	case phaseResult:
		body = s.resultView()
	}
	return panelStyle().Width(max(0, s.width-2)).Render(body)
}

func (s *analysisScreen) formView() string {
	if s.loading {
		return mutedStyle.Render("Loading projects, agents and users...")
	}
	var parts []string
	if s.optionsErr != nil {
		parts = append(parts, dangerStyle.Render("Could not load options: "+s.optionsErr.Error()), mutedStyle.Render("ctrl+r to retry"))
	}
	o := s.form.Options()
	if len(o.Projects) == 0 || len(o.Agents) == 0 || len(o.Users) == 0 {
		parts = append(parts, mutedStyle.Render("An analysis needs at least one project, agent and user."))
	}
	parts = append(parts, s.form.View())
	if !s.editing {
		parts = append(parts, accentStyle.Render("enter: fill in the form"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// stepIcon marks a step: done, running, waiting or failed.
func stepIcon(st analysis.Step, spin string, failed bool) string {
	switch {
	case failed:
		return dangerStyle.Render("✗")
	case st.State == analysis.StepCompleted:
		return successStyle.Render("✓")
	case st.State == analysis.StepCurrent:
		return spin
	}
	return mutedStyle.Render("○")
}

func (s *analysisScreen) steps() string {
	failedAt, failed := s.poller.FailedAt()
	lines := make([]string, 0, len(s.poller.Steps()))
	for _, st := range s.poller.Steps() {
		isFailed := failed && st.Index == failedAt.Index
		title := st.Title
		switch {
		case isFailed:
			title = dangerStyle.Render(title)
		case st.State == analysis.StepCurrent:
			title = titleStyle.Render(title)
		case st.State == analysis.StepPending:
			title = mutedStyle.Render(title)
		}
		lines = append(lines, fmt.Sprintf("%s %s  %s", stepIcon(st, s.spinner.View(), isFailed), title, mutedStyle.Render(st.Description)))
	}
	return strings.Join(lines, "\n")
}

func (s *analysisScreen) stepperView() string {
	head := titleStyle.Render("Analysis in progress") + "  " + mutedStyle.Render("run "+s.runID)
	parts := []string{head, "", s.steps()}
	if err := s.poller.Err(); err != nil {
		parts = append(parts, "", dangerStyle.Render("status check failed, retrying: "+err.Error()))
	}
	return strings.Join(parts, "\n")
}

func (s *analysisScreen) resultView() string {
	var head, action string
	switch {
	case s.poller.Status() == analysis.StatusSuccess:
		head = successStyle.Render("Analysis completed")
		action = "enter: Start new analysis"
	case s.poller.Status() == analysis.StatusFailed:
		step, _ := s.poller.FailedAt()
		head = dangerStyle.Render("Analysis failed during " + step.Title)
		action = "enter: Try again"
	default:
		head = dangerStyle.Render("Lost track of the analysis")
		if err := s.poller.Err(); err != nil {
			head += "\n" + mutedStyle.Render(err.Error())
		}
		action = "enter: Try again"
	}
	return strings.Join([]string{head, mutedStyle.Render("run " + s.runID), "", s.steps(), "", accentStyle.Render(action)}, "\n")
}
