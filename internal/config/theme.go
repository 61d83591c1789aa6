package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const themeFile = "theme.json"

// Theme holds the UI colours.
type Theme struct {
	HighlightColor string `json:"highlightColor"`
	VerseNumColor  string `json:"verseNumColor"`
	TextColor      string `json:"textColor"`
	DimColor       string `json:"dimColor"`
}

// DefaultTheme returns the built-in colours.
func DefaultTheme() Theme {
	return Theme{
		HighlightColor: "#cba6f7",
		VerseNumColor:  "#89b4fa",
		TextColor:      "#cdd6f4",
		DimColor:       "#313244",
	}
}

// LoadTheme reads theme.json from dir, writing the defaults there when it
// is missing or unreadable, then applies COLOR_* environment overrides.
func LoadTheme(dir string) Theme {
	theme := DefaultTheme()
	path := filepath.Join(dir, themeFile)
	if err := loadJSON(path, &theme); err != nil {
		theme = DefaultTheme()
		_ = saveJSON(path, theme)
	}

	theme.HighlightColor = getConfigValue("", "COLOR_HIGHLIGHT", theme.HighlightColor)
	theme.VerseNumColor = getConfigValue("", "COLOR_VERSE_NUM", theme.VerseNumColor)
	theme.TextColor = getConfigValue("", "COLOR_TEXT", theme.TextColor)
	theme.DimColor = getConfigValue("", "COLOR_DIM", theme.DimColor)
	return theme.fill()
}

// fill replaces blank colours with the defaults.
func (t Theme) fill() Theme {
	d := DefaultTheme()
	if t.HighlightColor == "" {
		t.HighlightColor = d.HighlightColor
	}
	if t.VerseNumColor == "" {
		t.VerseNumColor = d.VerseNumColor
	}
	if t.TextColor == "" {
		t.TextColor = d.TextColor
	}
	if t.DimColor == "" {
		t.DimColor = d.DimColor
	}
	return t
}

func saveJSON(path string, data any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, jsonData, 0o644)
}

func loadJSON(path string, target any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
