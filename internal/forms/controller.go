// Package forms drives the create/update forms of the console. A Controller
// owns the form values, the huh form bound to them, validation, and the
// submit/reset lifecycle; the surrounding screen only decides when to open
// and close the modal.
package forms

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/commitlens/commitlens-cli/internal/entity"
)

// Spec describes one form. Fields binds huh fields to the value pointer;
// Validate runs on the whole value before Submit is called. Intercept, when
// set, runs as the user completes the form and may return a command that
// replaces the submit.
type Spec[V any] struct {
	ID        string
	Title     string
	Defaults  func() V
	Fields    func(v *V) []huh.Field
	Validate  func(V) error
	Submit    func(ctx context.Context, v V) (entity.MutationResult, error)
	Intercept func(v V) tea.Cmd
}

// SubmittedMsg carries the outcome of a submit back into Update.
type SubmittedMsg struct {
	FormID string
	Seq    uint64
	Result entity.MutationResult
	Err    error
}

// CanceledMsg is sent when the user aborts the form from inside huh.
type CanceledMsg struct{ FormID string }

type Controller[V any] struct {
	spec  Spec[V]
	ctx   context.Context
	width int

	values     *V
	form       *huh.Form
	submitting bool
	seq        uint64
	err        error
}

func New[V any](ctx context.Context, spec Spec[V]) *Controller[V] {
	if ctx == nil {
		ctx = context.Background()
	}
	if spec.Defaults == nil {
		spec.Defaults = func() V {
			var zero V
			return zero
		}
	}
	c := &Controller[V]{spec: spec, ctx: ctx}
	c.Reset()
	return c
}

func (c *Controller[V]) ID() string       { return c.spec.ID }
func (c *Controller[V]) Title() string    { return c.spec.Title }
func (c *Controller[V]) Values() V        { return *c.values }
func (c *Controller[V]) Submitting() bool { return c.submitting }
func (c *Controller[V]) Err() error       { return c.err }
func (c *Controller[V]) Form() *huh.Form  { return c.form }

// Reset restores the defaults and clears any error.
func (c *Controller[V]) Reset() {
	v := c.spec.Defaults()
	c.values = &v
	c.submitting = false
	c.err = nil
	c.rebuild()
}

// SetValues prefills the form, typically with the row being edited.
func (c *Controller[V]) SetValues(v V) {
	*c.values = v
	c.err = nil
	c.rebuild()
}

// Edit changes the values in place. The form is rebuilt so bound fields show
// the new values.
func (c *Controller[V]) Edit(fn func(v *V)) {
	fn(c.values)
	c.rebuild()
}

func (c *Controller[V]) SetWidth(w int) {
	c.width = w
	if c.form != nil && w > 0 {
		c.form.WithWidth(w)
	}
}

func (c *Controller[V]) rebuild() {
	var fields []huh.Field
	if c.spec.Fields != nil {
		fields = c.spec.Fields(c.values)
	}
	c.form = huh.NewForm(huh.NewGroup(fields...)).
		WithShowHelp(false).
		WithTheme(huh.ThemeCharm())
	if c.width > 0 {
		c.form.WithWidth(c.width)
	}
}

func (c *Controller[V]) Init() tea.Cmd { return c.form.Init() }

// Update forwards msg to the form. Completing the last field submits.
func (c *Controller[V]) Update(msg tea.Msg) tea.Cmd {
	if c.submitting {
		return nil
	}
	m, cmd := c.form.Update(msg)
	if f, ok := m.(*huh.Form); ok {
		c.form = f
	}
	switch c.form.State {
	case huh.StateCompleted:
		if c.spec.Intercept != nil {
			if next := c.spec.Intercept(*c.values); next != nil {
				c.rebuild()
				return tea.Batch(cmd, next)
			}
		}
		return tea.Batch(cmd, c.Submit())
	case huh.StateAborted:
		id := c.spec.ID
		c.rebuild()
		return func() tea.Msg { return CanceledMsg{FormID: id} }
	}
	return cmd
}

// Submit validates the current values and, when they pass, runs the
// mutation. A second Submit while one is in flight is ignored.
func (c *Controller[V]) Submit() tea.Cmd {
	if c.submitting {
		return nil
	}
	if c.spec.Validate != nil {
		if err := c.spec.Validate(*c.values); err != nil {
			c.err = err
			c.rebuild()
			return nil
		}
	}
	if c.spec.Submit == nil {
		c.err = errors.New("form has no submit handler")
		c.rebuild()
		return nil
	}
	c.err = nil
	c.submitting = true
	c.seq++
	seq, id, v, ctx, submit := c.seq, c.spec.ID, *c.values, c.ctx, c.spec.Submit
	return func() tea.Msg {
		res, err := submit(ctx, v)
		return SubmittedMsg{FormID: id, Seq: seq, Result: res, Err: err}
	}
}

// Apply consumes the result of the latest submit and reports whether the
// form is done (the mutation succeeded and the values were reset). On
// failure the values stay so the user can correct them.
func (c *Controller[V]) Apply(msg SubmittedMsg) (done bool) {
	if msg.FormID != c.spec.ID || msg.Seq != c.seq || !c.submitting {
		return false
	}
	c.submitting = false
	if msg.Err != nil {
		c.err = msg.Err
		c.rebuild()
		return false
	}
	c.Reset()
	return true
}

func (c *Controller[V]) View() string {
	var b strings.Builder
	b.WriteString(c.form.View())
	if c.submitting {
		b.WriteString("\nSaving...")
	}
	if c.err != nil {
		b.WriteString("\n")
		b.WriteString(ErrorLines(c.err))
	}
	return b.String()
}

// ErrorLines renders field errors one per line, sorted by field, and any
// other error as a single line.
func ErrorLines(err error) string {
	var fe entity.FieldErrors
	if !errors.As(err, &fe) {
		return err.Error()
	}
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, fe[k]))
	}
	return strings.Join(lines, "\n")
}
