package tui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Adaptive so the console stays readable on light and dark terminals.
var (
	textColor = lipgloss.AdaptiveColor{Light: "#1f2a35", Dark: "#f4f7fb"}
	muted     = lipgloss.AdaptiveColor{Light: "#6b7785", Dark: "#c5ced8"}
	// Light-theme borders stay dark enough to be seen.
	border  = lipgloss.AdaptiveColor{Light: "#6b7785", Dark: "#c5ced8"}
	accent  = lipgloss.AdaptiveColor{Light: "#2f6fd0", Dark: "#6ea8ff"}
	success = lipgloss.AdaptiveColor{Light: "#1d7a46", Dark: "#4cc38a"}
	danger  = lipgloss.AdaptiveColor{Light: "#a32138", Dark: "#e5484d"}
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(textColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	accentStyle  = lipgloss.NewStyle().Foreground(accent)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	dangerStyle  = lipgloss.NewStyle().Foreground(danger).Bold(true)
)

func faintIfDark(s lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return s.Faint(true)
	}
	return s
}

func tabStyle(active bool) lipgloss.Style {
	if active {
		return lipgloss.NewStyle().Bold(true).Foreground(accent).Underline(true).Padding(0, 1)
	}
	return faintIfDark(lipgloss.NewStyle().Foreground(muted).Padding(0, 1))
}

func listStyles() list.Styles {
	s := list.DefaultStyles()

	s.TitleBar = lipgloss.NewStyle().Padding(0, 0, 1, 0)
	s.Title = lipgloss.NewStyle().Bold(true).Foreground(textColor).UnsetBackground()

	s.Spinner = lipgloss.NewStyle().Foreground(muted)

	s.FilterPrompt = lipgloss.NewStyle().Foreground(accent)
	s.FilterCursor = lipgloss.NewStyle().Foreground(accent)
	s.DefaultFilterCharacterMatch = lipgloss.NewStyle().Underline(true)

	s.StatusBar = lipgloss.NewStyle().Foreground(muted).Padding(0, 0, 1, 0)
	s.StatusEmpty = lipgloss.NewStyle().Foreground(muted)
	s.NoItems = lipgloss.NewStyle().Foreground(muted)
	s.PaginationStyle = lipgloss.NewStyle().PaddingLeft(0)
	s.HelpStyle = lipgloss.NewStyle().Padding(1, 0, 0, 0).Foreground(muted)

	s.ActivePaginationDot = lipgloss.NewStyle().Foreground(accent).SetString("•")
	s.InactivePaginationDot = lipgloss.NewStyle().Foreground(muted).SetString("•")
	s.DividerDot = lipgloss.NewStyle().Foreground(muted).SetString(" • ")

	return s
}

func itemStyles() list.DefaultItemStyles {
	s := list.NewDefaultItemStyles()

	s.NormalTitle = lipgloss.NewStyle().
		Foreground(textColor).
		Padding(0, 0, 0, 2)

	s.NormalDesc = lipgloss.NewStyle().
		Foreground(muted).
		Padding(0, 0, 0, 2)

	s.SelectedTitle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(danger).
		Foreground(textColor).
		Bold(true).
		Padding(0, 0, 0, 1)

	s.SelectedDesc = s.SelectedTitle.
		Bold(false).
		Foreground(textColor)

	s.DimmedTitle = lipgloss.NewStyle().
		Foreground(muted).
		Padding(0, 0, 0, 2)

	s.DimmedDesc = lipgloss.NewStyle().
		Foreground(border).
		Padding(0, 0, 0, 2)

	return s
}

// tableStyles keeps the table text-first: plain cells, a faint header and a
// typographic cursor row instead of a colour block.
func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = lipgloss.NewStyle().Foreground(muted).Bold(true).Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(border)
	s.Cell = lipgloss.NewStyle().Padding(0, 1)
	s.Selected = lipgloss.NewStyle().Bold(true).Foreground(accent)
	return s
}

func panelStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.HiddenBorder()).
		Padding(0, 1).
		AlignVertical(lipgloss.Top).
		Align(lipgloss.Left)
}

func footerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Faint(true)
}
