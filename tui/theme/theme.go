package theme

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const defaultThemeName = "kanagawa"

// ThemeEnv selects the palette ("kanagawa", "gruvbox" or "terminal").
const ThemeEnv = "LIVESYNC_THEME"

// --- Kanagawa palette (light, dark) ---
const (
	kanagawaLightGreen, kanagawaDarkGreen       = "#4E7C5A", "#98BB6C"
	kanagawaLightYellow, kanagawaDarkYellow     = "#A68A64", "#FF9E3B"
	kanagawaLightRed, kanagawaDarkRed           = "#C34043", "#FF5D62"
	kanagawaLightOrange, kanagawaDarkOrange     = "#CC6B4E", "#FFA066"
	kanagawaLightCyan, kanagawaDarkCyan         = "#5B8BBE", "#7E9CD8"
	kanagawaLightViolet, kanagawaDarkViolet     = "#674D7A", "#957FB8"
	kanagawaLightText, kanagawaDarkText         = "#2B2F42", "#DCD7BA"
	kanagawaLightMuted, kanagawaDarkMuted       = "#6C7086", "#727169"
	kanagawaLightBorder, kanagawaDarkBorder     = "#B5BDC5", "#363646"
	kanagawaLightSelected, kanagawaDarkSelected = "#E2E6F3", "#223249"
)

// --- Gruvbox palette (light, dark) ---
const (
	gruvboxLightGreen, gruvboxDarkGreen       = "#98971A", "#B8BB26"
	gruvboxLightYellow, gruvboxDarkYellow     = "#D79921", "#FABD2F"
	gruvboxLightRed, gruvboxDarkRed           = "#CC241D", "#FB4934"
	gruvboxLightOrange, gruvboxDarkOrange     = "#D65D0E", "#FE8019"
	gruvboxLightCyan, gruvboxDarkCyan         = "#458588", "#83A598"
	gruvboxLightViolet, gruvboxDarkViolet     = "#8F3F71", "#B16286"
	gruvboxLightText, gruvboxDarkText         = "#3C3836", "#EBDBB2"
	gruvboxLightMuted, gruvboxDarkMuted       = "#928374", "#BDAE93"
	gruvboxLightBorder, gruvboxDarkBorder     = "#D5C4A1", "#504945"
	gruvboxLightSelected, gruvboxDarkSelected = "#F2E5BC", "#32302F"
)

// Colors is the palette used by a theme.
type Colors struct {
	Green    lipgloss.TerminalColor
	Yellow   lipgloss.TerminalColor
	Red      lipgloss.TerminalColor
	Orange   lipgloss.TerminalColor
	Cyan     lipgloss.TerminalColor
	Violet   lipgloss.TerminalColor
	Text     lipgloss.TerminalColor
	Muted    lipgloss.TerminalColor
	Border   lipgloss.TerminalColor
	Selected lipgloss.TerminalColor
}

// Theme holds the pre-configured styles for the dashboard and log output.
type Theme struct {
	Colors Colors

	Header lipgloss.Style
	Title  lipgloss.Style

	// Status indicators
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	Bold   lipgloss.Style
	Normal lipgloss.Style
	Muted  lipgloss.Style

	TableHeader lipgloss.Style
	SelectedRow lipgloss.Style
	Box         lipgloss.Style

	Highlight lipgloss.Style
	Accent    lipgloss.Style
}

var themeRegistry = map[string]func() Colors{
	"kanagawa": newKanagawaColors,
	"gruvbox":  newGruvboxColors,
	"terminal": newTerminalColors,
}

// DefaultTheme is selected from LIVESYNC_THEME at startup.
var DefaultTheme = NewThemeWithName(os.Getenv(ThemeEnv))

// NewThemeWithName constructs a theme from a palette name. Unknown names
// fall back to the default palette.
func NewThemeWithName(name string) *Theme {
	key := strings.ToLower(strings.TrimSpace(name))
	build, ok := themeRegistry[key]
	if !ok {
		build = themeRegistry[defaultThemeName]
	}
	return newTheme(build())
}

// RenderStatus renders text with the style matching status.
func RenderStatus(status, text string) string {
	switch status {
	case "success":
		return DefaultTheme.Success.Render(text)
	case "error":
		return DefaultTheme.Error.Render(text)
	case "warning":
		return DefaultTheme.Warning.Render(text)
	case "info":
		return DefaultTheme.Info.Render(text)
	default:
		return text
	}
}

func newTheme(colors Colors) *Theme {
	return &Theme{
		Colors: colors,

		Header: lipgloss.NewStyle().
			Bold(true).
			MarginBottom(1),

		Title: lipgloss.NewStyle().
			Bold(true).
			Underline(true),

		Success: lipgloss.NewStyle().Foreground(colors.Green).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(colors.Red).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(colors.Yellow).Bold(true),
		Info:    lipgloss.NewStyle().Foreground(colors.Cyan).Bold(true),

		Bold:   lipgloss.NewStyle().Bold(true),
		Normal: lipgloss.NewStyle(),
		Muted:  lipgloss.NewStyle().Faint(true),

		TableHeader: lipgloss.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colors.Border),

		SelectedRow: lipgloss.NewStyle().
			Background(colors.Selected).
			Foreground(colors.Text),

		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Border).
			Padding(0, 1),

		Highlight: lipgloss.NewStyle().Foreground(colors.Orange).Bold(true),
		Accent:    lipgloss.NewStyle().Foreground(colors.Violet).Bold(true),
	}
}

func newKanagawaColors() Colors {
	return Colors{
		Green:    lipgloss.AdaptiveColor{Light: kanagawaLightGreen, Dark: kanagawaDarkGreen},
		Yellow:   lipgloss.AdaptiveColor{Light: kanagawaLightYellow, Dark: kanagawaDarkYellow},
		Red:      lipgloss.AdaptiveColor{Light: kanagawaLightRed, Dark: kanagawaDarkRed},
		Orange:   lipgloss.AdaptiveColor{Light: kanagawaLightOrange, Dark: kanagawaDarkOrange},
		Cyan:     lipgloss.AdaptiveColor{Light: kanagawaLightCyan, Dark: kanagawaDarkCyan},
		Violet:   lipgloss.AdaptiveColor{Light: kanagawaLightViolet, Dark: kanagawaDarkViolet},
		Text:     lipgloss.AdaptiveColor{Light: kanagawaLightText, Dark: kanagawaDarkText},
		Muted:    lipgloss.AdaptiveColor{Light: kanagawaLightMuted, Dark: kanagawaDarkMuted},
		Border:   lipgloss.AdaptiveColor{Light: kanagawaLightBorder, Dark: kanagawaDarkBorder},
		Selected: lipgloss.AdaptiveColor{Light: kanagawaLightSelected, Dark: kanagawaDarkSelected},
	}
}

func newGruvboxColors() Colors {
	return Colors{
		Green:    lipgloss.AdaptiveColor{Light: gruvboxLightGreen, Dark: gruvboxDarkGreen},
		Yellow:   lipgloss.AdaptiveColor{Light: gruvboxLightYellow, Dark: gruvboxDarkYellow},
		Red:      lipgloss.AdaptiveColor{Light: gruvboxLightRed, Dark: gruvboxDarkRed},
		Orange:   lipgloss.AdaptiveColor{Light: gruvboxLightOrange, Dark: gruvboxDarkOrange},
		Cyan:     lipgloss.AdaptiveColor{Light: gruvboxLightCyan, Dark: gruvboxDarkCyan},
		Violet:   lipgloss.AdaptiveColor{Light: gruvboxLightViolet, Dark: gruvboxDarkViolet},
		Text:     lipgloss.AdaptiveColor{Light: gruvboxLightText, Dark: gruvboxDarkText},
		Muted:    lipgloss.AdaptiveColor{Light: gruvboxLightMuted, Dark: gruvboxDarkMuted},
		Border:   lipgloss.AdaptiveColor{Light: gruvboxLightBorder, Dark: gruvboxDarkBorder},
		Selected: lipgloss.AdaptiveColor{Light: gruvboxLightSelected, Dark: gruvboxDarkSelected},
	}
}

// newTerminalColors uses the ANSI palette so the terminal's own scheme applies.
func newTerminalColors() Colors {
	return Colors{
		Green:    lipgloss.Color("2"),
		Yellow:   lipgloss.Color("3"),
		Red:      lipgloss.Color("1"),
		Orange:   lipgloss.Color("208"),
		Cyan:     lipgloss.Color("6"),
		Violet:   lipgloss.Color("5"),
		Text:     lipgloss.Color("7"),
		Muted:    lipgloss.Color("8"),
		Border:   lipgloss.Color("8"),
		Selected: lipgloss.Color("8"),
	}
}
