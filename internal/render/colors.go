package render

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	Purple    = lipgloss.AdaptiveColor{Light: "#5d40c9", Dark: "#bd93f9"}
	Pink      = lipgloss.AdaptiveColor{Light: "#d10074", Dark: "#ff79c6"}
	Cyan      = lipgloss.AdaptiveColor{Light: "#0073a8", Dark: "#8be9fd"}
	Gray      = lipgloss.AdaptiveColor{Light: "#d0d0d0", Dark: "#44475a"} // Borders
	LightGray = lipgloss.AdaptiveColor{Light: "#4a4a4a", Dark: "#a9b1d6"}
	Red       = lipgloss.AdaptiveColor{Light: "#d32f2f", Dark: "#ff5555"}
	Green     = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#50fa7b"}
)

var (
	TitleStyle  = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	HeaderStyle = lipgloss.NewStyle().Foreground(Cyan).Bold(true).Padding(0, 1)
	CellStyle   = lipgloss.NewStyle().Padding(0, 1)
	DimStyle    = lipgloss.NewStyle().Foreground(LightGray)
	WarnStyle   = lipgloss.NewStyle().Foreground(Red).Bold(true)
	OKStyle     = lipgloss.NewStyle().Foreground(Green)
	// Optimistic unchokes are highlighted.
	BonusStyle = lipgloss.NewStyle().Foreground(Pink).Padding(0, 1)
)

// DisableColor forces plain output, e.g. when piping or under test.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
