package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/audiograb/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette holds the styles for headings, job states and help text.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	dim   lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
		dim:   NewStyle(h),
	}
}

// Mark renders the glyph shown before a job in state s.
func (p *Palette) Mark(s models.State) string {
	switch s {
	case models.StateComplete:
		return p.ok.Render("✓")
	case models.StateFailed:
		return p.err.Render("✗")
	case models.StatePending:
		return p.dim.Render("•")
	default:
		return p.help.Render("↓")
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
