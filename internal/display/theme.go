package display

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme is the color palette for diagnostics and listings. Colors are ANSI
// 256-color codes.
type Theme struct {
	ErrorLabel  lipgloss.Color
	WarnLabel   lipgloss.Color
	Caret       lipgloss.Color
	FaintText   lipgloss.Color
	Candidate   lipgloss.Color
	Description lipgloss.Color
	Success     lipgloss.Color
}

// DefaultTheme is used unless SetTheme is called.
var DefaultTheme = Theme{
	ErrorLabel:  lipgloss.Color("196"),
	WarnLabel:   lipgloss.Color("214"),
	Caret:       lipgloss.Color("203"),
	FaintText:   lipgloss.Color("245"),
	Candidate:   lipgloss.Color("39"),
	Description: lipgloss.Color("250"),
	Success:     lipgloss.Color("42"),
}

type styles struct {
	errorLabel  lipgloss.Style
	warnLabel   lipgloss.Style
	caret       lipgloss.Style
	faint       lipgloss.Style
	candidate   lipgloss.Style
	description lipgloss.Style
	success     lipgloss.Style
}

var (
	activeTheme = DefaultTheme
	current     = newStyles(DefaultTheme)
)

func newStyles(t Theme) styles {
	return styles{
		errorLabel:  lipgloss.NewStyle().Foreground(t.ErrorLabel).Bold(true),
		warnLabel:   lipgloss.NewStyle().Foreground(t.WarnLabel).Bold(true),
		caret:       lipgloss.NewStyle().Foreground(t.Caret),
		faint:       lipgloss.NewStyle().Foreground(t.FaintText),
		candidate:   lipgloss.NewStyle().Foreground(t.Candidate),
		description: lipgloss.NewStyle().Foreground(t.Description),
		success:     lipgloss.NewStyle().Foreground(t.Success),
	}
}

// SetTheme replaces the palette.
func SetTheme(t Theme) {
	activeTheme = t
	current = newStyles(t)
}

// SetColor enables or disables ANSI styling for everything this package
// prints.
func SetColor(enabled bool) {
	colorEnabled = enabled
	if enabled {
		lipgloss.SetColorProfile(termenv.EnvColorProfile())
	} else {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	current = newStyles(activeTheme)

	mu.Lock()
	renderer = nil
	mu.Unlock()
}

var colorEnabled = true
