package datatable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/commitlens/commitlens-cli/internal/format"
	"github.com/commitlens/commitlens-cli/internal/selection"
)

const CSV = "csv"

var exportFormats = []string{format.JSON, CSV, format.EDN}

// ExportConfig controls where the e key writes rows. An empty Dir means the
// working directory.
type ExportConfig struct {
	Dir    string
	Entity string
	Format string
	Now    func() time.Time
}

func (c ExportConfig) format() string {
	f := strings.ToLower(strings.TrimSpace(c.Format))
	for _, known := range exportFormats {
		if f == known {
			return f
		}
	}
	return format.JSON
}

func nextFormat(cur string) string {
	for i, f := range exportFormats {
		if f == cur {
			return exportFormats[(i+1)%len(exportFormats)]
		}
	}
	return exportFormats[0]
}

type ExportedMsg struct {
	Path string
	Rows int
	Err  error
}

type CopiedMsg struct {
	Count int
	Err   error
}

// writeClipboard is swapped out in tests.
var writeClipboard = clipboard.WriteAll

func copyCmd(ids []string) tea.Cmd {
	return func() tea.Msg {
		if len(ids) == 0 {
			return CopiedMsg{Err: errors.New("nothing selected")}
		}
		if err := writeClipboard(strings.Join(ids, "\n")); err != nil {
			return CopiedMsg{Err: err}
		}
		return CopiedMsg{Count: len(ids)}
	}
}

// exportRows is the selected rows of the current page, or the whole page
// when nothing on it is selected.
func (m *Model[T]) exportRows() []T {
	if rows := selection.Rows(m.sel, m.rows, m.cfg.ID); len(rows) > 0 {
		return rows
	}
	return m.rows
}

func (m *Model[T]) exportCmd() tea.Cmd {
	rows := m.exportRows()
	cfg := m.cfg.Export
	cfg.Format = m.exportFormat
	cols := m.columns
	return func() tea.Msg {
		path, err := Export(cfg, cols, rows)
		return ExportedMsg{Path: path, Rows: len(rows), Err: err}
	}
}

// Export writes rows to a timestamped file and returns its path. JSON and
// EDN carry every column by ID (or title when the column has no ID); CSV
// writes the rendered cells under a header row.
func Export[T any](cfg ExportConfig, cols []Column[T], rows []T) (string, error) {
	if len(rows) == 0 {
		return "", errors.New("no rows to export")
	}
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	name := cfg.Entity
	if name == "" {
		name = "export"
	}
	f := cfg.format()
	path := filepath.Join(cfg.Dir, fmt.Sprintf("%s-%s.%s", name, now().Format("20060102-150405"), f))
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return "", err
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if f == CSV {
		w := csv.NewWriter(out)
		header := make([]string, len(cols))
		for i, c := range cols {
			header[i] = c.Title
		}
		if err := w.Write(header); err != nil {
			return "", err
		}
		for _, r := range rows {
			rec := make([]string, len(cols))
			for i, c := range cols {
				rec[i] = c.Value(r)
			}
			if err := w.Write(rec); err != nil {
				return "", err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", err
		}
		return path, out.Close()
	}

	records := make([]map[string]any, len(rows))
	for i, r := range rows {
		rec := make(map[string]any, len(cols))
		for _, c := range cols {
			k := c.ID
			if k == "" {
				k = c.Title
			}
			rec[k] = c.Value(r)
		}
		records[i] = rec
	}
	if err := format.Write(out, records, f, true); err != nil {
		return "", err
	}
	return path, out.Close()
}
