package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	DefaultInterval = 2 * time.Second
	// Consecutive fetch errors tolerated before the poller gives up.
	DefaultMaxErrors = 5
)

// FetchFunc returns the raw status of a run.
type FetchFunc func(ctx context.Context, runID string) (string, error)

// StatusMsg carries one status fetch back into the event loop.
type StatusMsg struct {
	RunID  string
	Gen    uint64
	Status Status
	Err    error
}

type tickMsg struct{ gen uint64 }

// Poller drives periodic status fetches for a single run from inside a
// bubbletea program. Each Start opens a new generation; messages from older
// generations are ignored, which is how timers of a previous run are
// cancelled.
type Poller struct {
	ctx       context.Context
	fetch     FetchFunc
	interval  time.Duration
	maxErrors int
	log       *slog.Logger

	runID   string
	gen     uint64
	active  bool
	tracker Tracker
	errs    int
	lastErr error
}

type PollerOption func(*Poller)

func WithMaxErrors(n int) PollerOption { return func(p *Poller) { p.maxErrors = n } }

func WithLogger(l *slog.Logger) PollerOption { return func(p *Poller) { p.log = l } }

func NewPoller(ctx context.Context, fetch FetchFunc, interval time.Duration, opts ...PollerOption) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		ctx:       ctx,
		fetch:     fetch,
		interval:  interval,
		maxErrors: DefaultMaxErrors,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	p.log = p.log.With("component", "analysis-poller")
	return p
}

func (p *Poller) RunID() string           { return p.runID }
func (p *Poller) Active() bool            { return p.active }
func (p *Poller) Status() Status          { return p.tracker.Status() }
func (p *Poller) Steps() []Step           { return p.tracker.Steps() }
func (p *Poller) FailedAt() (Step, bool)  { return p.tracker.FailedAt() }
func (p *Poller) Err() error              { return p.lastErr }
func (p *Poller) Interval() time.Duration { return p.interval }

// Start arms the poller for runID and returns the first fetch.
func (p *Poller) Start(runID string) tea.Cmd {
	p.gen++
	p.runID = runID
	p.active = runID != ""
	p.tracker.Reset()
	p.errs = 0
	p.lastErr = nil
	if !p.active {
		return nil
	}
	// The run exists as soon as it is created.
	p.tracker.Observe(StatusStarted)
	p.log.Debug("polling started", "run", runID, "gen", p.gen)
	return p.fetchCmd(p.gen)
}

// Stop cancels polling. Pending ticks and fetches are discarded when they
// arrive.
func (p *Poller) Stop() {
	if p.active {
		p.log.Debug("polling stopped", "run", p.runID, "gen", p.gen)
	}
	p.gen++
	p.active = false
}

// Reset stops polling and forgets the run.
func (p *Poller) Reset() {
	p.Stop()
	p.runID = ""
	p.tracker.Reset()
	p.errs = 0
	p.lastErr = nil
}

func (p *Poller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tickMsg:
		if !p.active || msg.gen != p.gen {
			return nil
		}
		return p.fetchCmd(msg.gen)

	case StatusMsg:
		if !p.active || msg.Gen != p.gen || msg.RunID != p.runID {
			return nil
		}
		if msg.Err != nil {
			p.errs++
			p.lastErr = msg.Err
			p.log.Warn("status fetch failed", "run", p.runID, "attempt", p.errs, "err", msg.Err)
			if p.maxErrors > 0 && p.errs >= p.maxErrors {
				p.active = false
				p.lastErr = fmt.Errorf("giving up after %d failed status checks: %w", p.errs, msg.Err)
				return nil
			}
			return p.tick(msg.Gen)
		}
		p.errs = 0
		p.lastErr = nil
		if p.tracker.Observe(msg.Status) {
			p.log.Info("analysis status", "run", p.runID, "status", msg.Status)
		}
		if p.tracker.Status().Terminal() {
			p.active = false
			return nil
		}
		return p.tick(msg.Gen)
	}
	return nil
}

func (p *Poller) tick(gen uint64) tea.Cmd {
	return tea.Tick(p.interval, func(time.Time) tea.Msg { return tickMsg{gen: gen} })
}

func (p *Poller) fetchCmd(gen uint64) tea.Cmd {
	ctx, fetch, runID := p.ctx, p.fetch, p.runID
	return func() tea.Msg {
		raw, err := fetch(ctx, runID)
		if err != nil {
			return StatusMsg{RunID: runID, Gen: gen, Err: err}
		}
		s, err := ParseStatus(raw)
		return StatusMsg{RunID: runID, Gen: gen, Status: s, Err: err}
	}
}
