package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize/english"

	"github.com/commitlens/commitlens-cli/internal/api"
	"github.com/commitlens/commitlens-cli/internal/collection"
	"github.com/commitlens/commitlens-cli/internal/datatable"
	"github.com/commitlens/commitlens-cli/internal/entity"
	"github.com/commitlens/commitlens-cli/internal/forms"
	"github.com/commitlens/commitlens-cli/internal/querycache"
)

// screen is one tab of the console.
type screen interface {
	Title() string
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View() string
	SetSize(w, h int)
	// Capturing reports whether the screen wants every key, e.g. while a
	// modal or the search input is open.
	Capturing() bool
	Help() (short []key.Binding, full [][]key.Binding)
	Close()
}

type noticeMsg struct {
	text string
	err  bool
}

func notify(format string, args ...any) tea.Cmd {
	text := fmt.Sprintf(format, args...)
	return func() tea.Msg { return noticeMsg{text: text} }
}

func notifyErr(err error) tea.Cmd {
	return func() tea.Msg { return noticeMsg{text: forms.ErrorLines(err), err: true} }
}

type deletedMsg struct {
	kind    entity.Kind
	bulk    bool
	results []api.BulkResult
	err     error
}

type crudSpec[T any, F entity.Filter] struct {
	kind     entity.Kind
	title    string
	singular string
	columns  datatable.ColumnsFunc[T]
	id       func(T) string
	label    func(T) string
	fetch    collection.Fetcher[T, F]
	del      api.DeleteFunc
	create   formModal
	edit     func(T) formModal
	detail   func(row T, width int) string
}

// crudScreen is the list/create/update/delete screen shared by users,
// projects and agents.
type crudScreen[T any, F entity.Filter] struct {
	spec crudSpec[T, F]
	ctx  context.Context
	log  *slog.Logger

	coll  *collection.Collection[T, F]
	table *datatable.Model[T]
	keys  crudKeys
	modal *modalModel

	deleting      bool
	width, height int
}

type crudDeps struct {
	ctx       context.Context
	cache     *querycache.Cache
	log       *slog.Logger
	pageSize  int
	exportDir string
}

func newCrudScreen[T any, F entity.Filter](deps crudDeps, spec crudSpec[T, F]) *crudScreen[T, F] {
	s := &crudScreen[T, F]{
		spec: spec,
		ctx:  deps.ctx,
		log:  deps.log.With("screen", string(spec.kind)),
		keys: defaultCrudKeys(),
	}
	s.coll = collection.New(spec.kind, deps.cache, spec.fetch, collection.Options{
		PageSize: deps.pageSize,
		Logger:   deps.log,
	})
	styles := tableStyles()
	s.table = datatable.New(datatable.Config[T]{
		Columns:         spec.columns,
		ID:              spec.id,
		PageSizeOptions: s.coll.PageSizes(),
		Toolbar:         s.toolbar,
		Export:          datatable.ExportConfig{Dir: deps.exportDir, Entity: string(spec.kind)},
		ActionsHint:     "u·d",
		Styles:          &styles,
		Setters: datatable.Setters{
			OnPageChange: func(p int) tea.Cmd {
				s.coll.SetPage(p)
				return s.load()
			},
			OnPageSizeChange: func(n int) tea.Cmd {
				if err := s.coll.SetPageSize(n); err != nil {
					return notifyErr(err)
				}
				return s.load()
			},
			OnSortingChange: func(sorting []entity.SortSpec) tea.Cmd {
				s.coll.SetSorting(sorting)
				return s.load()
			},
			OnSearchChange: func(q string) tea.Cmd {
				s.coll.SetSearch(q)
				return s.load()
			},
		},
	})
	return s
}

func (s *crudScreen[T, F]) Title() string   { return s.spec.title }
func (s *crudScreen[T, F]) Init() tea.Cmd   { return s.load() }
func (s *crudScreen[T, F]) Capturing() bool { return s.modal != nil || s.table.Searching() }
func (s *crudScreen[T, F]) Close()          { s.coll.Close() }

func (s *crudScreen[T, F]) Help() ([]key.Binding, [][]key.Binding) {
	tk := s.table.Keys()
	k := s.keys
	short := []key.Binding{k.New, k.Edit, k.Delete, tk.Toggle, k.BulkDelete, tk.PrevPage, tk.NextPage, tk.Search}
	full := append([][]key.Binding{{k.New, k.Edit, k.Delete, k.BulkDelete, k.Details, k.Refresh}}, tk.FullHelp()...)
	return short, full
}

func (s *crudScreen[T, F]) SetSize(w, h int) {
	s.width, s.height = w, h
	s.table.SetSize(w, h)
	if s.modal != nil {
		s.modal.SetSize(w, h)
	}
}

func (s *crudScreen[T, F]) load() tea.Cmd {
	cmd := s.coll.Load(s.ctx)
	s.sync()
	return cmd
}

func (s *crudScreen[T, F]) sync() {
	s.table.SetData(s.coll.Rows(), s.coll.Total(), s.coll.IsFetching(), s.coll.State(), s.coll.Err())
}

func (s *crudScreen[T, F]) toolbar(ctx datatable.ToolbarContext[T]) string {
	if s.deleting {
		return accentStyle.Render("Deleting...")
	}
	if ctx.TotalSelectedCount == 0 {
		return ""
	}
	return accentStyle.Render(fmt.Sprintf("%s selected (%d on this page) · D delete selected · y copy ids",
		english.Plural(ctx.TotalSelectedCount, s.spec.singular, ""), len(ctx.SelectedRows)))
}

func (s *crudScreen[T, F]) openForm(f formModal) tea.Cmd {
	if f == nil {
		return nil
	}
	s.modal = newFormModal(f)
	s.modal.SetSize(s.width, s.height)
	return f.Init()
}

func (s *crudScreen[T, F]) confirmDelete(ids []string, labels map[string]string, bulk bool) {
	items := make([]modalItem, len(ids))
	for i, id := range ids {
		name := labels[id]
		if name == "" {
			name = id
		}
		items[i] = modalItem{id: id, name: name, desc: id}
	}
	title := fmt.Sprintf("Delete %s?", english.Plural(len(ids), s.spec.singular, ""))
	s.modal = newConfirmModal(title, items)
	s.modal.SetSize(s.width, s.height)
	if bulk {
		s.modal.status = "enter/y delete all · esc cancel"
	}
	s.modal.bulk = bulk
}

func (s *crudScreen[T, F]) deleteCmd(ids []string, bulk bool) tea.Cmd {
	s.deleting = true
	ctx, del, kind := s.ctx, s.spec.del, s.spec.kind
	return func() tea.Msg {
		res, err := api.DeleteMany(ctx, del, ids, api.DefaultBulkLimit)
		return deletedMsg{kind: kind, bulk: bulk, results: res, err: err}
	}
}

// afterMutation refetches the entity with fresh data from the backend.
func (s *crudScreen[T, F]) afterMutation() tea.Cmd {
	s.coll.Invalidate()
	return s.load()
}

func (s *crudScreen[T, F]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case collection.Result[T]:
		if msg.Kind != s.spec.kind {
			return nil
		}
		var cmd tea.Cmd
		if s.coll.Apply(msg) {
			cmd = s.coll.Load(s.ctx)
		}
		s.sync()
		return cmd

	case forms.SubmittedMsg:
		if s.modal == nil || s.modal.kind != modalForm || msg.FormID != s.modal.form.ID() {
			return nil
		}
		f := s.modal.form
		wasSubmitting := f.Submitting()
		if f.Apply(msg) {
			s.modal = nil
			text := msg.Result.Message
			if text == "" {
				text = s.spec.singular + " saved"
			}
			return tea.Batch(notify("%s", text), s.afterMutation())
		}
		if wasSubmitting && !f.Submitting() && msg.Err != nil {
			s.log.Warn("mutation failed", "form", msg.FormID, "err", msg.Err)
			return notifyErr(msg.Err)
		}
		return nil

	case forms.CheckedMsg:
		if s.modal != nil && s.modal.kind == modalForm {
			if c, ok := s.modal.form.(checkingForm); ok {
				c.ApplyCheck(msg)
			}
		}
		return nil

	case forms.CanceledMsg:
		if s.modal != nil && s.modal.kind == modalForm && s.modal.form.ID() == msg.FormID {
			s.modal = nil
		}
		return nil

	case deletedMsg:
		if msg.kind != s.spec.kind {
			return nil
		}
		s.deleting = false
		var ok []string
		for _, r := range msg.results {
			if r.Err == nil {
				ok = append(ok, r.ID)
			}
		}
		cmds := []tea.Cmd{s.afterMutation()}
		if msg.err != nil {
			// Ids that are gone leave the selection so a retry only resends
			// the failed ones.
			for _, id := range ok {
				s.table.Deselect(id)
			}
			s.log.Warn("delete failed", "err", msg.err, "deleted", len(ok))
			cmds = append(cmds, notifyErr(msg.err))
		} else {
			if msg.bulk {
				s.table.ToolbarContext().ResetSelection()
			} else {
				for _, id := range ok {
					s.table.Deselect(id)
				}
			}
			cmds = append(cmds, notify("Deleted %s", english.Plural(len(ok), s.spec.singular, "")))
		}
		return tea.Batch(cmds...)

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	// huh moves between fields with its own messages.
	if s.modal != nil && s.modal.kind == modalForm {
		return tea.Batch(s.modal.form.Update(msg), s.table.Update(msg))
	}
	return s.table.Update(msg)
}

func (s *crudScreen[T, F]) handleKey(msg tea.KeyMsg) tea.Cmd {
	if s.modal != nil {
		res, cmd := s.modal.handleKey(msg)
		switch res {
		case modalResultCanceled:
			if s.modal.kind == modalForm {
				s.modal.form.Reset()
			}
			s.modal = nil
		case modalResultConfirmed:
			ids, bulk := s.modal.ids, s.modal.bulk
			s.modal = nil
			return s.deleteCmd(ids, bulk)
		}
		return cmd
	}
	if s.table.Searching() {
		return s.table.Update(msg)
	}

	switch {
	case key.Matches(msg, s.keys.New):
		return s.openForm(s.spec.create)

	case key.Matches(msg, s.keys.Edit):
		if row, ok := s.table.Current(); ok && s.spec.edit != nil {
			return s.openForm(s.spec.edit(row))
		}
		return nil

	case key.Matches(msg, s.keys.Delete):
		if s.deleting {
			return nil
		}
		if row, ok := s.table.Current(); ok {
			id := s.spec.id(row)
			s.confirmDelete([]string{id}, map[string]string{id: s.spec.label(row)}, false)
		}
		return nil

	case key.Matches(msg, s.keys.BulkDelete):
		if s.deleting {
			return nil
		}
		ctx := s.table.ToolbarContext()
		if ctx.TotalSelectedCount == 0 {
			return notifyErr(errors.New("nothing selected"))
		}
		labels := make(map[string]string, len(ctx.SelectedRows))
		for _, r := range ctx.SelectedRows {
			labels[s.spec.id(r)] = s.spec.label(r)
		}
		s.confirmDelete(ctx.AllSelectedIDs, labels, true)
		return nil

	case key.Matches(msg, s.keys.Details):
		if row, ok := s.table.Current(); ok && s.spec.detail != nil {
			s.modal = newDetailModal(s.spec.label(row), s.spec.detail(row, max(20, min(90, s.width-10))))
			s.modal.SetSize(s.width, s.height)
		}
		return nil

	case key.Matches(msg, s.keys.Refresh):
		return s.afterMutation()
	}
	return s.table.Update(msg)
}

func (s *crudScreen[T, F]) View() string {
	if s.modal != nil {
		return s.modal.View(s.width, s.height)
	}
	return s.table.View()
}
