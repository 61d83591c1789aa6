package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"quran-go/internal/config"
	"quran-go/internal/quran"
)

const (
	maxTextWidth = 80
	sidePadding  = 4
)

type styles struct {
	header    lipgloss.Style
	reference lipgloss.Style
	text      lipgloss.Style
	dim       lipgloss.Style
	liked     lipgloss.Style
	help      lipgloss.Style
	status    lipgloss.Style
}

func newStyles(theme config.Theme) styles {
	return styles{
		header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(theme.HighlightColor)),
		reference: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.VerseNumColor)).Bold(true),
		text:      lipgloss.NewStyle().Foreground(lipgloss.Color(theme.TextColor)),
		dim:       lipgloss.NewStyle().Foreground(lipgloss.Color(theme.DimColor)),
		liked:     lipgloss.NewStyle().Foreground(lipgloss.Color(theme.HighlightColor)).Bold(true),
		help:      lipgloss.NewStyle().Foreground(lipgloss.Color(theme.VerseNumColor)),
		status:    lipgloss.NewStyle().Foreground(lipgloss.Color(theme.HighlightColor)).Italic(true),
	}
}

func (m model) centerText(text string) string {
	visualWidth := lipgloss.Width(text)
	if visualWidth >= m.width {
		return text
	}
	leftPadding := (m.width - visualWidth) / 2
	return strings.Repeat(" ", leftPadding) + text
}

// textWidth is the wrap width for verse text.
func (m model) textWidth() int {
	return max(20, min(maxTextWidth, m.width-2*sidePadding))
}

func wrapText(text string, width int) []string {
	wrapped := wordwrap.String(strings.Join(strings.Fields(text), " "), width)
	return strings.Split(wrapped, "\n")
}

func truncateText(text string, maxLen int) string {
	return runewidth.Truncate(text, maxLen, "…")
}

// renderCentered writes each wrapped line of text centered, returning the
// number of lines written.
func (m model) renderCentered(content *strings.Builder, text string, style lipgloss.Style) int {
	lines := wrapText(text, m.textWidth())
	for _, line := range lines {
		content.WriteString(m.centerText(style.Render(line)))
		content.WriteByte('\n')
	}
	return len(lines)
}

func (m model) renderVerseZen(content *strings.Builder, verse quran.Verse) int {
	ref := verse.Reference
	if m.likes.IsLiked(verse.ID) {
		ref = m.styles.liked.Render("♥ ") + m.styles.reference.Render(ref)
	} else {
		ref = m.styles.reference.Render(ref)
	}
	content.WriteString(m.centerText(ref))
	content.WriteString("\n\n")
	lines := 2

	lines += m.renderCentered(content, verse.TextPrimary, m.styles.text)
	content.WriteByte('\n')
	lines++
	lines += m.renderCentered(content, verse.TextTranslation, m.styles.text)
	return lines
}

// renderNeighbour writes a dimmed one-line preview of an adjacent verse.
func (m model) renderNeighbour(content *strings.Builder, verse quran.Verse) {
	line := fmt.Sprintf("%s  %s", verse.Reference, verse.TextTranslation)
	line = truncateText(line, m.textWidth())
	content.WriteString(m.centerText(m.styles.dim.Render(line)))
	content.WriteByte('\n')
}

// padTo appends newlines until used reaches height.
func padTo(content *strings.Builder, used, height int) {
	if remaining := height - used; remaining > 0 {
		content.WriteString(strings.Repeat("\n", remaining))
	}
}
