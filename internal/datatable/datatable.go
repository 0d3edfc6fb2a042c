// Package datatable is the paginated, sortable, selectable table shared by
// the users, projects and agents screens. The table owns no data: each frame
// the screen hands it the rows, total and page state of its collection, and
// the table reports user intent back through the Setters.
package datatable

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/commitlens/commitlens-cli/internal/collection"
	"github.com/commitlens/commitlens-cli/internal/entity"
	"github.com/commitlens/commitlens-cli/internal/selection"
)

// Column renders one data column. ID is the sort key sent to the API; a
// column without an ID cannot be sorted.
type Column[T any] struct {
	ID    string
	Title string
	Width int
	Value func(T) string
}

// ColumnsFunc builds the data columns. onDeselect is nil when selection is
// disabled for the table.
type ColumnsFunc[T any] func(onDeselect func(id string)) []Column[T]

// ToolbarContext is what the toolbar slot sees of the selection.
type ToolbarContext[T any] struct {
	SelectedRows       []T
	AllSelectedIDs     []string
	TotalSelectedCount int
	ResetSelection     func()
}

type ToolbarFunc[T any] func(ToolbarContext[T]) string

// Setters forward user intent to the owner of the page state. Each returns
// the command that reloads the data, if any.
type Setters struct {
	OnPageChange     func(page int) tea.Cmd
	OnPageSizeChange func(size int) tea.Cmd
	OnSortingChange  func(sorting []entity.SortSpec) tea.Cmd
	OnSearchChange   func(search string) tea.Cmd
}

type Config[T any] struct {
	Columns          ColumnsFunc[T]
	ID               func(T) string
	PageSizeOptions  []int
	Toolbar          ToolbarFunc[T]
	Export           ExportConfig
	Setters          Setters
	DisableSelection bool
	// ActionsHint is shown in the trailing actions column.
	ActionsHint string
	Styles      *table.Styles
}

type KeyMap struct {
	Toggle       key.Binding
	ToggleAll    key.Binding
	PrevPage     key.Binding
	NextPage     key.Binding
	SmallerPage  key.Binding
	LargerPage   key.Binding
	Sort         key.Binding
	SortDir      key.Binding
	Search       key.Binding
	Export       key.Binding
	ExportFormat key.Binding
	Copy         key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle:       key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		ToggleAll:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select page")),
		PrevPage:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev page")),
		NextPage:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next page")),
		SmallerPage:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "smaller pages")),
		LargerPage:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "larger pages")),
		Sort:         key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		SortDir:      key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "flip sort")),
		Search:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Export:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		ExportFormat: key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "export format")),
		Copy:         key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy ids")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.PrevPage, k.NextPage, k.Sort, k.Search, k.Export}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.ToggleAll, k.Copy},
		{k.PrevPage, k.NextPage, k.SmallerPage, k.LargerPage},
		{k.Sort, k.SortDir, k.Search},
		{k.Export, k.ExportFormat},
	}
}

const (
	numberWidth = 4
	selectWidth = 3
)

type Model[T any] struct {
	cfg     Config[T]
	keys    KeyMap
	columns []Column[T]
	widths  []int
	sel     *selection.Manager

	table     table.Model
	pager     paginator.Model
	search    textinput.Model
	searching bool

	rows    []T
	total   int
	loading bool
	state   collection.PageState
	err     error

	exportFormat string
	status       string

	width  int
	height int
}

func New[T any](cfg Config[T]) *Model[T] {
	if len(cfg.PageSizeOptions) == 0 {
		cfg.PageSizeOptions = collection.PageSizeOptions
	}
	m := &Model[T]{
		cfg:          cfg,
		keys:         DefaultKeyMap(),
		exportFormat: cfg.Export.format(),
		state:        collection.PageState{Page: 1, PageSize: cfg.PageSizeOptions[0]},
	}
	if cfg.DisableSelection {
		m.sel = selection.Disabled()
		m.columns = cfg.Columns(nil)
	} else {
		m.sel = selection.New()
		m.columns = cfg.Columns(m.sel.Deselect)
	}

	m.table = table.New(table.WithFocused(true), table.WithHeight(10))
	if cfg.Styles != nil {
		m.table.SetStyles(*cfg.Styles)
	}
	m.pager = paginator.New()
	m.pager.Type = paginator.Dots

	m.search = textinput.New()
	m.search.Prompt = "/ "
	m.search.Placeholder = "search"
	m.search.CharLimit = 120

	m.syncColumns()
	return m
}

func (m *Model[T]) Keys() KeyMap                  { return m.keys }
func (m *Model[T]) Selection() *selection.Manager { return m.sel }
func (m *Model[T]) Searching() bool               { return m.searching }
func (m *Model[T]) Rows() []T                     { return m.rows }
func (m *Model[T]) Status() string                { return m.status }

// Deselect drops id from the selection, e.g. after the row was deleted.
func (m *Model[T]) Deselect(id string) { m.sel.Deselect(id) }

// Current returns the row under the cursor.
func (m *Model[T]) Current() (T, bool) {
	var zero T
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rows) {
		return zero, false
	}
	return m.rows[i], true
}

// SetData replaces what the table shows. It is called every time the
// owning collection changes.
func (m *Model[T]) SetData(rows []T, total int, loading bool, state collection.PageState, err error) {
	moved := !samePage(m.state, state)
	m.rows = rows
	m.total = total
	m.loading = loading
	m.state = state
	m.err = err
	if !m.searching {
		m.search.SetValue(state.Search)
	}
	m.syncColumns()
	m.syncRows()
	if moved && len(rows) > 0 {
		m.table.SetCursor(0)
	}
}

func samePage(a, b collection.PageState) bool {
	return a.Page == b.Page && a.PageSize == b.PageSize && a.Search == b.Search && slices.Equal(a.Sorting, b.Sorting)
}

func (m *Model[T]) SetSize(w, h int) {
	m.width, m.height = w, h
	// toolbar, search, header, footer, status
	m.table.SetHeight(max(3, h-6))
	m.table.SetWidth(w)
	m.syncColumns()
	m.syncRows()
}

func (m *Model[T]) pageIDs() []string {
	ids := make([]string, len(m.rows))
	for i, r := range m.rows {
		ids[i] = m.cfg.ID(r)
	}
	return ids
}

// ToolbarContext exposes the selection to the toolbar slot.
func (m *Model[T]) ToolbarContext() ToolbarContext[T] {
	return ToolbarContext[T]{
		SelectedRows:       selection.Rows(m.sel, m.rows, m.cfg.ID),
		AllSelectedIDs:     m.sel.IDs(),
		TotalSelectedCount: m.sel.Count(),
		ResetSelection:     m.sel.Reset,
	}
}

func (m *Model[T]) sortOf(columnID string) (entity.SortDirection, bool) {
	for _, s := range m.state.Sorting {
		if s.ColumnID == columnID {
			return s.Direction, true
		}
	}
	return "", false
}

func (m *Model[T]) syncColumns() {
	avail := m.width
	cols := make([]table.Column, 0, len(m.columns)+3)
	cols = append(cols, table.Column{Title: "№", Width: numberWidth})
	used := numberWidth
	if m.sel.Enabled() {
		head := "[ ]"
		switch ids := m.pageIDs(); {
		case m.sel.AllOnPage(ids):
			head = "[x]"
		case m.sel.SomeOnPage(ids):
			head = "[-]"
		}
		cols = append(cols, table.Column{Title: head, Width: selectWidth})
		used += selectWidth
	}
	actionsW := 0
	if m.cfg.ActionsHint != "" {
		actionsW = runewidth.StringWidth(m.cfg.ActionsHint)
		used += actionsW
	}
	for _, c := range m.columns {
		used += c.Width
	}
	// Padding is two cells per column in the default styles.
	used += 2 * (len(m.columns) + 2)
	extra := 0
	if avail > used {
		extra = avail - used
	}
	m.widths = m.widths[:0]
	for i, c := range m.columns {
		title := c.Title
		if dir, ok := m.sortOf(c.ID); ok && c.ID != "" {
			if dir == entity.SortDesc {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		w := c.Width
		if i == len(m.columns)-1 {
			w += extra
		}
		m.widths = append(m.widths, w)
		cols = append(cols, table.Column{Title: title, Width: w})
	}
	if actionsW > 0 {
		cols = append(cols, table.Column{Title: "actions", Width: actionsW})
	}
	// Rows must be cleared before shrinking the column count.
	if len(m.table.Columns()) != len(cols) {
		m.table.SetRows(nil)
	}
	m.table.SetColumns(cols)
}

func (m *Model[T]) syncRows() {
	offset := (max(1, m.state.Page) - 1) * max(1, m.state.PageSize)
	rows := make([]table.Row, 0, len(m.rows))
	for i, r := range m.rows {
		row := table.Row{strconv.Itoa(offset + i + 1)}
		if m.sel.Enabled() {
			mark := "[ ]"
			if m.sel.IsSelected(m.cfg.ID(r)) {
				mark = "[x]"
			}
			row = append(row, mark)
		}
		for j, c := range m.columns {
			row = append(row, Truncate(c.Value(r), m.widths[j]))
		}
		if m.cfg.ActionsHint != "" {
			row = append(row, m.cfg.ActionsHint)
		}
		rows = append(rows, row)
	}
	m.table.SetRows(rows)
	if m.table.Cursor() < 0 && len(rows) > 0 {
		m.table.SetCursor(0)
	}
}

// Truncate shortens s to w cells, marking the cut with an ellipsis.
func Truncate(s string, w int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if w <= 0 || runewidth.StringWidth(s) <= w {
		return s
	}
	return runewidth.Truncate(s, w, "…")
}

// RelTime renders timestamps the way the createdAt columns show them.
func RelTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func call[A any](fn func(A) tea.Cmd, a A) tea.Cmd {
	if fn == nil {
		return nil
	}
	return fn(a)
}

// Update handles the table keys. Keys it does not own go to the embedded
// bubbles table for cursor movement.
func (m *Model[T]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case ExportedMsg:
		if msg.Err != nil {
			m.status = "export failed: " + msg.Err.Error()
		} else {
			m.status = fmt.Sprintf("exported %d rows to %s", msg.Rows, msg.Path)
		}
		return nil
	case CopiedMsg:
		if msg.Err != nil {
			m.status = "copy failed: " + msg.Err.Error()
		} else {
			m.status = fmt.Sprintf("copied %d ids", msg.Count)
		}
		return nil
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKey(msg)
	}
	return nil
}

func (m *Model[T]) updateSearch(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		v := strings.TrimSpace(m.search.Value())
		if v == m.state.Search {
			return nil
		}
		return call(m.cfg.Setters.OnSearchChange, v)
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue(m.state.Search)
		return nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return cmd
}

func (m *Model[T]) updateKey(msg tea.KeyMsg) tea.Cmd {
	k := m.keys
	switch {
	case key.Matches(msg, k.Toggle):
		if r, ok := m.Current(); ok {
			m.sel.Toggle(m.cfg.ID(r))
			m.syncColumns()
			m.syncRows()
		}
		return nil
	case key.Matches(msg, k.ToggleAll):
		m.sel.ToggleAllOnPage(m.pageIDs())
		m.syncColumns()
		m.syncRows()
		return nil
	case key.Matches(msg, k.PrevPage):
		if m.state.Page > 1 {
			return call(m.cfg.Setters.OnPageChange, m.state.Page-1)
		}
		return nil
	case key.Matches(msg, k.NextPage):
		if m.state.Page < collection.PageCount(m.total, m.state.PageSize) {
			return call(m.cfg.Setters.OnPageChange, m.state.Page+1)
		}
		return nil
	case key.Matches(msg, k.SmallerPage), key.Matches(msg, k.LargerPage):
		step := 1
		if key.Matches(msg, k.SmallerPage) {
			step = -1
		}
		i := slices.Index(m.cfg.PageSizeOptions, m.state.PageSize) + step
		if i < 0 || i >= len(m.cfg.PageSizeOptions) {
			return nil
		}
		return call(m.cfg.Setters.OnPageSizeChange, m.cfg.PageSizeOptions[i])
	case key.Matches(msg, k.Sort):
		return call(m.cfg.Setters.OnSortingChange, m.nextSort())
	case key.Matches(msg, k.SortDir):
		if len(m.state.Sorting) == 0 {
			return nil
		}
		s := m.state.Sorting[0]
		if s.Direction == entity.SortDesc {
			s.Direction = entity.SortAsc
		} else {
			s.Direction = entity.SortDesc
		}
		return call(m.cfg.Setters.OnSortingChange, []entity.SortSpec{s})
	case key.Matches(msg, k.Search):
		m.searching = true
		return m.search.Focus()
	case key.Matches(msg, k.Export):
		return m.exportCmd()
	case key.Matches(msg, k.ExportFormat):
		m.exportFormat = nextFormat(m.exportFormat)
		m.status = "export format: " + m.exportFormat
		return nil
	case key.Matches(msg, k.Copy):
		return copyCmd(m.sel.IDs())
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return cmd
}

// nextSort cycles: unsorted, then each sortable column ascending, then back
// to unsorted.
func (m *Model[T]) nextSort() []entity.SortSpec {
	var ids []string
	for _, c := range m.columns {
		if c.ID != "" {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	if len(m.state.Sorting) == 0 {
		return []entity.SortSpec{{ColumnID: ids[0], Direction: entity.SortAsc}}
	}
	i := slices.Index(ids, m.state.Sorting[0].ColumnID)
	if i < 0 {
		return []entity.SortSpec{{ColumnID: ids[0], Direction: entity.SortAsc}}
	}
	if i+1 >= len(ids) {
		return nil
	}
	return []entity.SortSpec{{ColumnID: ids[i+1], Direction: entity.SortAsc}}
}

var (
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#88708d", Dark: "#eae3f0"})
	dangerStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#a32138", Dark: "#b82727"}).Bold(true)
)

// Footer is the pagination line under the table.
func (m *Model[T]) Footer() string {
	pages := collection.PageCount(m.total, m.state.PageSize)
	line := fmt.Sprintf("page %d of %d · %s items · size %d", m.state.Page, pages, humanize.Comma(int64(m.total)), m.state.PageSize)
	if pages > 1 && pages <= 20 {
		m.pager.PerPage = max(1, m.state.PageSize)
		m.pager.SetTotalPages(m.total)
		m.pager.Page = m.state.Page - 1
		line += "  " + m.pager.View()
	}
	return line
}

func (m *Model[T]) View() string {
	var parts []string
	if m.cfg.Toolbar != nil {
		if tb := m.cfg.Toolbar(m.ToolbarContext()); tb != "" {
			parts = append(parts, tb)
		}
	}
	switch {
	case m.searching:
		parts = append(parts, m.search.View())
	case m.state.Search != "":
		parts = append(parts, mutedStyle.Render("search: "+m.state.Search))
	}
	parts = append(parts, m.table.View())
	if len(m.rows) == 0 && !m.loading {
		parts = append(parts, mutedStyle.Render("No results."))
	}
	parts = append(parts, mutedStyle.Render(m.Footer()))
	switch {
	case m.err != nil:
		parts = append(parts, dangerStyle.Render(m.err.Error()))
	case m.loading:
		parts = append(parts, mutedStyle.Render("Loading..."))
	case m.status != "":
		parts = append(parts, mutedStyle.Render(m.status))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
