// Package tui is the interactive console: a tab per entity table plus the
// analysis screen, with modals for forms and confirmations.
package tui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/commitlens/commitlens-cli/internal/api"
	"github.com/commitlens/commitlens-cli/internal/buildinfo"
	"github.com/commitlens/commitlens-cli/internal/querycache"
)

const noticeTTL = 4 * time.Second

type clearNoticeMsg struct{ seq uint64 }

type Config struct {
	Client       api.Client
	PageSize     int
	PollInterval time.Duration
	ExportDir    string
	Logger       *slog.Logger
	CacheOptions *querycache.Options
}

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	cache  *querycache.Cache
	log    *slog.Logger
	apiURL string

	screens []screen
	active  int

	width  int
	height int

	help help.Model
	keys keyMap

	notice    noticeMsg
	noticeSeq uint64
	closed    bool
}

func Run(cfg Config) error {
	m := New(cfg)
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// New builds the console. The query cache lives as long as the Model; Close
// tears it down.
func New(cfg Config) *Model {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	opts := querycache.DefaultOptions()
	if cfg.CacheOptions != nil {
		opts = *cfg.CacheOptions
	}
	opts.Logger = log
	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		ctx:    ctx,
		cancel: cancel,
		cache:  querycache.New(opts),
		log:    log,
		apiURL: cfg.Client.BaseURL,
		help:   help.New(),
		keys:   defaultKeyMap(),
	}
	deps := crudDeps{
		ctx:       ctx,
		cache:     m.cache,
		log:       log,
		pageSize:  cfg.PageSize,
		exportDir: cfg.ExportDir,
	}
	m.screens = []screen{
		newUsersScreen(deps, cfg.Client),
		newProjectsScreen(deps, cfg.Client),
		newAgentsScreen(deps, cfg.Client),
		newAnalysisScreen(deps, cfg.Client, cfg.PollInterval),
	}
	return m
}

// Close cancels in-flight requests and drops the cache. It is safe to call
// more than once.
func (m *Model) Close() {
	if m.closed {
		return
	}
	m.closed = true
	for _, s := range m.screens {
		s.Close()
	}
	m.cancel()
	m.cache.Close()
}

func (m *Model) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(m.screens))
	for _, s := range m.screens {
		cmds = append(cmds, s.Init())
	}
	return tea.Batch(cmds...)
}

func (m *Model) current() screen { return m.screens[m.active] }

func (m *Model) switchTo(i int) {
	m.active = (i + len(m.screens)) % len(m.screens)
	m.help.ShowAll = false
}

// bodyHeight leaves room for the header, notice line and help footer.
func (m *Model) bodyHeight() int {
	return max(5, m.height-5)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		for _, s := range m.screens {
			s.SetSize(msg.Width, m.bodyHeight())
		}
		return m, nil

	case noticeMsg:
		m.noticeSeq++
		m.notice = msg
		if msg.err {
			m.log.Debug("notice", "err", msg.text)
		}
		seq := m.noticeSeq
		return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = noticeMsg{}
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.Close()
			return m, tea.Quit
		}
		if !m.current().Capturing() {
			switch {
			case key.Matches(msg, m.keys.Quit):
				m.Close()
				return m, tea.Quit
			case key.Matches(msg, m.keys.Help):
				m.help.ShowAll = !m.help.ShowAll
				return m, nil
			case key.Matches(msg, m.keys.Users):
				m.switchTo(0)
				return m, nil
			case key.Matches(msg, m.keys.Projects):
				m.switchTo(1)
				return m, nil
			case key.Matches(msg, m.keys.Agents):
				m.switchTo(2)
				return m, nil
			case key.Matches(msg, m.keys.Analysis):
				m.switchTo(3)
				return m, nil
			case key.Matches(msg, m.keys.Next):
				m.switchTo(m.active + 1)
				return m, nil
			case key.Matches(msg, m.keys.Prev):
				m.switchTo(m.active - 1)
				return m, nil
			}
		}
		return m, m.current().Update(msg)
	}

	// Everything else is a result some screen is waiting for; each screen
	// ignores messages that are not its own.
	cmds := make([]tea.Cmd, 0, len(m.screens))
	for _, s := range m.screens {
		cmds = append(cmds, s.Update(msg))
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) renderHeader() string {
	tabs := make([]string, len(m.screens))
	for i, s := range m.screens {
		tabs[i] = tabStyle(i == m.active).Render(s.Title())
	}
	left := titleStyle.Render("commitlens") + "  " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	right := mutedStyle.Render(m.apiURL + " · " + versionLabel(buildinfo.Current()))
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) renderNotice() string {
	switch {
	case m.notice.text == "":
		return ""
	case m.notice.err:
		return dangerStyle.Render(strings.ReplaceAll(m.notice.text, "\n", " · "))
	}
	return successStyle.Render(m.notice.text)
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading…"
	}
	short, full := m.current().Help()
	keys := helpKeys{global: m.keys, short: short, full: full}

	body := lipgloss.NewStyle().Height(m.bodyHeight()).MaxHeight(m.bodyHeight()).Render(m.current().View())
	footer := footerStyle().Render(m.help.View(keys))
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), "", body, m.renderNotice(), footer)
}
