package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"quran-go/internal/quran"
)

// likedItem is a liked verse in the overlay list.
type likedItem struct {
	verse quran.Verse
}

func (i likedItem) FilterValue() string {
	return i.verse.Reference + " " + i.verse.TextTranslation
}

func likedItems(verses []quran.Verse) []list.Item {
	items := make([]list.Item, len(verses))
	for i, v := range verses {
		items[i] = likedItem{verse: v}
	}
	return items
}

const noMatch = 1000000

// fuzzyMatchAndScore ranks text against pattern; lower scores are better.
// A direct substring hit scores its offset, a word prefix 100 plus the
// word position and a word infix 500 plus the word position.
func fuzzyMatchAndScore(text, pattern string) (matches bool, score int) {
	if pattern == "" {
		return true, noMatch
	}

	textLower := strings.ToLower(text)
	patternLower := strings.ToLower(pattern)

	if idx := strings.Index(textLower, patternLower); idx >= 0 {
		return true, idx
	}

	for i, word := range strings.Fields(textLower) {
		cleanWord := strings.Trim(word, ".,;:!?\"'()[]")
		if strings.HasPrefix(cleanWord, patternLower) {
			return true, 100 + i
		}
		if strings.Contains(cleanWord, patternLower) {
			return true, 500 + i
		}
	}

	return false, noMatch
}

// filterLiked is the overlay's list.FilterFunc. Every whitespace-separated
// term must match; the item's score is the sum of its term scores.
func filterLiked(term string, targets []string) []list.Rank {
	terms := strings.Fields(term)

	type scored struct {
		index int
		score int
	}
	var matches []scored
	for i, target := range targets {
		total := 0
		ok := true
		for _, t := range terms {
			match, score := fuzzyMatchAndScore(target, t)
			if !match {
				ok = false
				break
			}
			total += score
		}
		if ok {
			matches = append(matches, scored{index: i, score: total})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score < matches[j].score
	})
	ranks := make([]list.Rank, len(matches))
	for i, match := range matches {
		ranks[i] = list.Rank{Index: match.index}
	}
	return ranks
}

// likedDelegate renders a liked verse as its reference and a truncated
// translation.
type likedDelegate struct {
	styles styles
}

func (d likedDelegate) Height() int  { return 2 }
func (d likedDelegate) Spacing() int { return 1 }

func (d likedDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

func (d likedDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(likedItem)
	if !ok {
		return
	}
	width := max(10, m.Width()-4)
	title := truncateText(it.verse.Reference, width)
	desc := truncateText(it.verse.TextTranslation, width)

	cursor := "  "
	titleStyle, descStyle := d.styles.reference, d.styles.dim
	if index == m.Index() {
		cursor = d.styles.header.Render("> ")
		titleStyle = d.styles.header
		descStyle = d.styles.text
	}
	fmt.Fprintf(w, "%s%s\n  %s", cursor, titleStyle.Render(title), descStyle.Render(desc))
}

func newLikedList(s styles) list.Model {
	l := list.New(nil, likedDelegate{styles: s}, 0, 0)
	l.Title = "Liked verses"
	l.Styles.Title = s.header
	l.Filter = filterLiked
	l.SetShowHelp(false)
	l.SetShowStatusBar(true)
	l.DisableQuitKeybindings()
	l.SetStatusBarItemName("verse", "verses")
	l.FilterInput.PromptStyle = s.reference
	l.FilterInput.Cursor.Style = lipgloss.NewStyle().Foreground(s.reference.GetForeground())
	return l
}
