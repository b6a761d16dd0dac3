package layouts

import (
	"fmt"
	"regexp"
	"strings"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Palette is the shop's brand colors.
type Palette struct {
	Primary   string
	Secondary string
	Text      string
	Accent    string
}

// DefaultPalette is the beige and cocoa scheme used across the site.
func DefaultPalette() Palette {
	return Palette{
		Primary:   "#d6cbb8",
		Secondary: "#fefaf6",
		Text:      "#4b3832",
		Accent:    "#bfae99",
	}
}

func getThemeCssVars(palette *Palette) string {
	defaults := DefaultPalette()
	primary := defaults.Primary
	secondary := defaults.Secondary
	text := defaults.Text
	accent := defaults.Accent

	if palette != nil {
		primary = themeColorOrDefault(palette.Primary, primary)
		secondary = themeColorOrDefault(palette.Secondary, secondary)
		text = themeColorOrDefault(palette.Text, text)
		accent = themeColorOrDefault(palette.Accent, accent)
	}

	return fmt.Sprintf(
		":root{--theme-primary:%s;--theme-secondary:%s;--theme-text:%s;--theme-accent:%s;}",
		primary,
		secondary,
		text,
		accent,
	)
}

func themeColorOrDefault(value string, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	if !hexColor.MatchString(trimmed) {
		return fallback
	}
	return trimmed
}
