// Package selection tracks which rows are selected across every page of a
// table. Ids stay selected when the page, sort order or search changes and
// when they drop out of the current page's data; only Reset clears them.
package selection

import (
	"slices"
	"sort"
)

type Manager struct {
	ids      map[string]struct{}
	disabled bool
}

func New() *Manager {
	return &Manager{ids: map[string]struct{}{}}
}

// Disabled returns a manager that ignores every operation. Tables without a
// selection column use it so callers never need a nil check.
func Disabled() *Manager {
	return &Manager{ids: map[string]struct{}{}, disabled: true}
}

func (m *Manager) Enabled() bool { return !m.disabled }

func (m *Manager) Toggle(id string) {
	if m.disabled || id == "" {
		return
	}
	if _, ok := m.ids[id]; ok {
		delete(m.ids, id)
		return
	}
	m.ids[id] = struct{}{}
}

// Deselect removes one id. Row action columns use it after deleting a row.
func (m *Manager) Deselect(id string) {
	if m.disabled {
		return
	}
	delete(m.ids, id)
}

// ToggleAllOnPage deselects exactly pageIDs when all of them are selected and
// selects all of them otherwise. Ids on other pages are left alone.
func (m *Manager) ToggleAllOnPage(pageIDs []string) {
	if m.disabled || len(pageIDs) == 0 {
		return
	}
	if m.AllOnPage(pageIDs) {
		for _, id := range pageIDs {
			delete(m.ids, id)
		}
		return
	}
	for _, id := range pageIDs {
		if id != "" {
			m.ids[id] = struct{}{}
		}
	}
}

func (m *Manager) IsSelected(id string) bool {
	if m.disabled {
		return false
	}
	_, ok := m.ids[id]
	return ok
}

// AllOnPage reports whether every id in pageIDs is selected. An empty page is
// never "all selected".
func (m *Manager) AllOnPage(pageIDs []string) bool {
	if m.disabled || len(pageIDs) == 0 {
		return false
	}
	for _, id := range pageIDs {
		if _, ok := m.ids[id]; !ok {
			return false
		}
	}
	return true
}

// SomeOnPage is true when at least one but not every id is selected; the
// header checkbox renders it as indeterminate.
func (m *Manager) SomeOnPage(pageIDs []string) bool {
	n := len(m.PageSelected(pageIDs))
	return n > 0 && n < len(pageIDs)
}

// PageSelected returns the selected subset of pageIDs, in page order.
func (m *Manager) PageSelected(pageIDs []string) []string {
	if m.disabled {
		return nil
	}
	var out []string
	for _, id := range pageIDs {
		if _, ok := m.ids[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// IDs returns every selected id, sorted.
func (m *Manager) IDs() []string {
	if m.disabled {
		return nil
	}
	out := make([]string, 0, len(m.ids))
	for id := range m.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) Count() int {
	if m.disabled {
		return 0
	}
	return len(m.ids)
}

func (m *Manager) Reset() {
	if m.disabled {
		return
	}
	clear(m.ids)
}

// Rows picks the rows of page whose id is selected.
func Rows[T any](m *Manager, page []T, id func(T) string) []T {
	if m.disabled {
		return nil
	}
	return slices.DeleteFunc(slices.Clone(page), func(r T) bool { return !m.IsSelected(id(r)) })
}
