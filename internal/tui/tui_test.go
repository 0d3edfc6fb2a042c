package tui

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commitlens/commitlens-cli/internal/api"
	"github.com/commitlens/commitlens-cli/internal/entity"
	"github.com/commitlens/commitlens-cli/internal/mock"
	"github.com/commitlens/commitlens-cli/internal/querycache"
)

// cmdWait bounds how long collect waits for a round of commands. Cursor
// blinks and other slow ticks are dropped.
const cmdWait = 300 * time.Millisecond

func newTestClient(t *testing.T) api.Client {
	t.Helper()
	t.Setenv("COMMITLENS_HTTP_RETRY_ENABLED", "false")
	srv, err := mock.NewServer(mock.Store{}, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return api.Client{BaseURL: ts.URL, HTTP: ts.Client()}
}

func newTestDeps(t *testing.T) (crudDeps, api.Client) {
	t.Helper()
	c := newTestClient(t)
	cache := querycache.New(querycache.Options{StaleTime: time.Minute, GCTime: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		cache.Close()
	})
	return crudDeps{
		ctx:       ctx,
		cache:     cache,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		pageSize:  10,
		exportDir: t.TempDir(),
	}, c
}

// collect runs cmd, expanding batches, and returns the messages that arrive
// within cmdWait.
func collect(cmd tea.Cmd) []tea.Msg {
	var (
		mu   sync.Mutex
		msgs []tea.Msg
		wg   sync.WaitGroup
	)
	var run func(tea.Cmd)
	run = func(c tea.Cmd) {
		if c == nil {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := c()
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, c := range batch {
					run(c)
				}
				return
			}
			if msg == nil {
				return
			}
			mu.Lock()
			msgs = append(msgs, msg)
			mu.Unlock()
		}()
	}
	run(cmd)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cmdWait):
	}
	mu.Lock()
	defer mu.Unlock()
	return append([]tea.Msg(nil), msgs...)
}

// pump feeds the results of cmd back into update until nothing is left to
// do. Notices are recorded instead of delivered and spinner ticks are
// dropped so the loop ends.
func pump(t *testing.T, update func(tea.Msg) tea.Cmd, cmd tea.Cmd) []noticeMsg {
	t.Helper()
	var notices []noticeMsg
	for round := 0; cmd != nil; round++ {
		if round == 60 {
			t.Fatalf("messages still flowing after %d rounds", round)
		}
		var next []tea.Cmd
		for _, msg := range collect(cmd) {
			switch msg := msg.(type) {
			case noticeMsg:
				notices = append(notices, msg)
			case spinner.TickMsg:
			default:
				next = append(next, update(msg))
			}
		}
		cmd = tea.Batch(next...)
	}
	return notices
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func texts(notices []noticeMsg) []string {
	out := make([]string, len(notices))
	for i, n := range notices {
		out[i] = n.text
	}
	return out
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	c := newTestClient(t)
	m := New(Config{
		Client:       c,
		PageSize:     10,
		PollInterval: 10 * time.Millisecond,
		ExportDir:    t.TempDir(),
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(m.Close)
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return m
}

func send(m *Model, msg tea.Msg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

func TestModelTabs(t *testing.T) {
	m := newTestModel(t)
	assert.Equal(t, 0, m.active)

	send(m, keyPress("3"))
	assert.Equal(t, "Agents", m.current().Title())
	send(m, keyPress("tab"))
	assert.Equal(t, "Analysis", m.current().Title())
	send(m, keyPress("tab"))
	assert.Equal(t, "Users", m.current().Title(), "tabs wrap around")
	send(m, keyPress("shift+tab"))
	assert.Equal(t, "Analysis", m.current().Title())
	send(m, keyPress("2"))
	assert.Equal(t, "Projects", m.current().Title())
}

func TestModelLoadsEveryScreen(t *testing.T) {
	m := newTestModel(t)
	pump(t, func(msg tea.Msg) tea.Cmd { return send(m, msg) }, m.Init())

	users := m.screens[0].(*crudScreen[entity.User, entity.UserFilter])
	assert.Equal(t, 40, users.coll.Total())
	assert.Len(t, users.table.Rows(), 10)

	view := m.View()
	assert.Contains(t, view, "Users")
	assert.Contains(t, view, "page 1 of 4")
	assert.Contains(t, view, m.apiURL)
}

func TestModelCapturingScreenKeepsKeys(t *testing.T) {
	m := newTestModel(t)
	pump(t, func(msg tea.Msg) tea.Cmd { return send(m, msg) }, m.Init())

	send(m, keyPress("/"))
	require.True(t, m.current().Capturing())
	send(m, keyPress("2"))
	send(m, keyPress("q"))
	assert.Equal(t, "Users", m.current().Title(), "digits go to the search input")
	assert.False(t, m.closed)

	send(m, keyPress("esc"))
	assert.False(t, m.current().Capturing())
	send(m, keyPress("2"))
	assert.Equal(t, "Projects", m.current().Title())
}

func TestModelQuit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			m := newTestModel(t)
			cmd := send(m, keyPress(k))
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
			assert.True(t, m.closed)
		})
	}
}

func TestModelNoticeExpires(t *testing.T) {
	m := newTestModel(t)
	send(m, noticeMsg{text: "User created"})
	assert.Contains(t, m.View(), "User created")

	// An older clear tick does not hide a newer notice.
	send(m, noticeMsg{text: "Project created"})
	send(m, clearNoticeMsg{seq: m.noticeSeq - 1})
	assert.Contains(t, m.View(), "Project created")

	send(m, clearNoticeMsg{seq: m.noticeSeq})
	assert.NotContains(t, m.View(), "Project created")
}
