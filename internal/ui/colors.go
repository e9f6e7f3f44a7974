package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/plstat/internal/tasks"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette holds the named [lipgloss.Style] values used by the views.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	label lipgloss.Style
}

// NewPalette builds a palette from title, success, error, warning and help colors.
func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		label: NewBold(h).Width(14),
	}
}

// bullet marks a pipeline step in the run view: purge and wait steps never fail the run, so they get the warning color.
func (p *Palette) bullet(phase tasks.Phase) string {
	switch phase {
	case tasks.Wait, tasks.Purge:
		return p.warn.Render("•")
	case tasks.Evaluate, tasks.Lock, tasks.Done:
		return p.help.Render("•")
	default:
		return p.ok.Render("•")
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
