package tui

import (
	"strings"
	"time"

	"github.com/commitlens/commitlens-cli/internal/buildinfo"
)

// versionLabel is the build shown in the header, e.g. "v1.4.0 · abcdef1 · 2026-01-14".
func versionLabel(info buildinfo.Info) string {
	parts := []string{info.Version}
	if c := shortCommit(info.Commit); c != "" {
		parts = append(parts, c)
	}
	if d := shortDate(info.Date); d != "" {
		parts = append(parts, d)
	}
	return strings.Join(parts, " · ")
}

func shortCommit(commit string) string {
	c := strings.TrimSpace(commit)
	switch {
	case c == "" || c == "none":
		return ""
	case len(c) > 7:
		return c[:7]
	}
	return c
}

func shortDate(date string) string {
	d := strings.TrimSpace(date)
	if d == "" || d == "unknown" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, d); err == nil {
		return t.Format(time.DateOnly)
	}
	if len(d) >= 10 {
		return d[:10]
	}
	return d
}
