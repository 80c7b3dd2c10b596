package viz

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// Theme colours the live view. Series gives one chart colour per
// electronic state, reused cyclically when there are more states.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Series  []asciigraph.AnsiColor
}

var (
	ThemeCyberpunk = Theme{
		Name:    "cyberpunk",
		Primary: lipgloss.Color("#ff00ff"),
		Accent:  lipgloss.Color("#00ffff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#666666"),
		Success: lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ff8800"),
		Error:   lipgloss.Color("#ff0000"),
		Series:  []asciigraph.AnsiColor{asciigraph.Magenta, asciigraph.Cyan, asciigraph.Yellow, asciigraph.Green},
	}

	ThemeRetro = Theme{
		Name:    "retro",
		Primary: lipgloss.Color("#00ff00"),
		Accent:  lipgloss.Color("#88ff88"),
		Text:    lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#005500"),
		Success: lipgloss.Color("#88ff88"),
		Warning: lipgloss.Color("#ffff00"),
		Error:   lipgloss.Color("#ff0000"),
		Series:  []asciigraph.AnsiColor{asciigraph.Green, asciigraph.Lime, asciigraph.DarkGreen, asciigraph.YellowGreen},
	}

	ThemeMinimal = Theme{
		Name:    "minimal",
		Primary: lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#0088ff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
		Success: lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff0000"),
		Series:  []asciigraph.AnsiColor{asciigraph.Default, asciigraph.Blue, asciigraph.Gray, asciigraph.SkyBlue},
	}

	ThemeOcean = Theme{
		Name:    "ocean",
		Primary: lipgloss.Color("#0077be"),
		Accent:  lipgloss.Color("#ffd700"),
		Text:    lipgloss.Color("#e0f0ff"),
		Muted:   lipgloss.Color("#4488aa"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffcc00"),
		Error:   lipgloss.Color("#ff4444"),
		Series:  []asciigraph.AnsiColor{asciigraph.DodgerBlue, asciigraph.Gold, asciigraph.Aqua, asciigraph.Coral},
	}

	CurrentTheme = ThemeCyberpunk

	Themes = []Theme{ThemeCyberpunk, ThemeRetro, ThemeMinimal, ThemeOcean}
)

// GetTheme returns the theme with the given name, or the default.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeCyberpunk
}

func SetTheme(name string) { CurrentTheme = GetTheme(name) }

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// seriesColors returns n chart colours from the theme palette.
func (t Theme) seriesColors(n int) []asciigraph.AnsiColor {
	out := make([]asciigraph.AnsiColor, n)
	for i := range out {
		out[i] = t.Series[i%len(t.Series)]
	}
	return out
}
