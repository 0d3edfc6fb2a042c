package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/commitlens/commitlens-cli/internal/forms"
)

type modalKind int

const (
	modalForm modalKind = iota
	modalConfirm
	modalDetail
)

type modalResult int

const (
	modalResultNone modalResult = iota
	modalResultConfirmed
	modalResultCanceled
)

// formModal is what a modal needs from a form controller. Both
// forms.Controller and forms.ProjectCreate satisfy it.
type formModal interface {
	ID() string
	Title() string
	Init() tea.Cmd
	Update(tea.Msg) tea.Cmd
	View() string
	SetWidth(int)
	Reset()
	Submitting() bool
	Apply(forms.SubmittedMsg) bool
}

// checkingForm is a form that also resolves something remotely before it
// can be submitted.
type checkingForm interface {
	ApplyCheck(forms.CheckedMsg)
}

type modalModel struct {
	kind  modalKind
	title string

	form   formModal
	list   list.Model
	detail viewport.Model

	ids    []string
	bulk   bool
	status string
	err    error

	result modalResult
}

type modalItem struct {
	id   string
	name string
	desc string
}

func (i modalItem) Title() string       { return i.name }
func (i modalItem) Description() string { return i.desc }
func (i modalItem) FilterValue() string { return i.name + " " + i.desc }

func newModalList(title string, filter bool) list.Model {
	d := list.NewDefaultDelegate()
	d.ShowDescription = true
	d.Styles = itemStyles()
	l := list.New([]list.Item{}, d, 0, 0)
	l.Title = title
	// The modal frame renders the title.
	l.SetShowTitle(false)
	l.Styles = listStyles()
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(true)
	l.SetFilteringEnabled(filter)
	l.KeyMap.Quit.SetKeys("q")
	return l
}

func newFormModal(f formModal) *modalModel {
	return &modalModel{kind: modalForm, title: f.Title(), form: f}
}

// newConfirmModal lists what is about to be deleted.
func newConfirmModal(title string, items []modalItem) *modalModel {
	l := newModalList(title, false)
	li := make([]list.Item, len(items))
	ids := make([]string, len(items))
	for i, it := range items {
		li[i] = it
		ids[i] = it.id
	}
	l.SetItems(li)
	return &modalModel{
		kind:   modalConfirm,
		title:  title,
		list:   l,
		ids:    ids,
		status: "enter/y delete · esc cancel",
	}
}

func newDetailModal(title, body string) *modalModel {
	vp := viewport.New(0, 0)
	vp.SetContent(body)
	return &modalModel{kind: modalDetail, title: title, detail: vp, status: "↑/↓ scroll · esc close"}
}

func (m *modalModel) size(w, h int) (boxW, boxH int) {
	return min(96, max(40, w-6)), min(28, max(10, h-4))
}

// SetSize sizes the modal content for a w×h screen.
func (m *modalModel) SetSize(w, h int) {
	boxW, boxH := m.size(w, h)
	innerW := boxW - 4
	innerH := max(3, boxH-6)
	switch m.kind {
	case modalForm:
		m.form.SetWidth(innerW)
	case modalConfirm:
		m.list.SetSize(innerW, innerH)
	case modalDetail:
		m.detail.Width, m.detail.Height = innerW, innerH
	}
}

func (m *modalModel) View(w, h int) string {
	if w <= 0 || h <= 0 {
		return ""
	}
	boxW, boxH := m.size(w, h)

	title := titleStyle.Render(m.title)

	var content string
	switch m.kind {
	case modalForm:
		content = m.form.View()
	case modalConfirm:
		content = m.list.View()
	case modalDetail:
		content = m.detail.View()
	}

	status := ""
	if strings.TrimSpace(m.status) != "" {
		status = mutedStyle.Render(m.status)
	}
	if m.err != nil {
		status = dangerStyle.Render(m.err.Error())
	}

	body := strings.Join([]string{title, "", content, "", status}, "\n")

	panel := lipgloss.NewStyle().
		Width(boxW).
		MaxHeight(boxH + 2).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(1, 1).
		Render(body)

	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, panel)
}

// handleKey routes a key inside the modal. Forms get every key except esc.
func (m *modalModel) handleKey(msg tea.KeyMsg) (modalResult, tea.Cmd) {
	if msg.String() == "esc" {
		if m.kind == modalForm && m.form.Submitting() {
			return modalResultNone, nil
		}
		m.result = modalResultCanceled
		return m.result, nil
	}

	switch m.kind {
	case modalForm:
		return modalResultNone, m.form.Update(msg)
	case modalConfirm:
		switch msg.String() {
		case "enter", "y":
			m.result = modalResultConfirmed
			return m.result, nil
		case "n", "backspace":
			m.result = modalResultCanceled
			return m.result, nil
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(translateNavKeys(msg))
		return modalResultNone, cmd
	case modalDetail:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(translateNavKeys(msg))
		return modalResultNone, cmd
	}
	return modalResultNone, nil
}

// translateNavKeys maps emacs-style movement onto arrow keys.
func translateNavKeys(msg tea.KeyMsg) tea.KeyMsg {
	switch msg.String() {
	case "ctrl+n":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+p":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+f":
		return tea.KeyMsg{Type: tea.KeyPgDown}
	case "ctrl+b":
		return tea.KeyMsg{Type: tea.KeyPgUp}
	default:
		return msg
	}
}
