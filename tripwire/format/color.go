package format

import (
	"github.com/charmbracelet/lipgloss"
)

// ColorScheme selects the styles applied by NewColorFormatter.
type ColorScheme struct {
	String  lipgloss.Style
	Number  lipgloss.Style
	Keyword lipgloss.Style
}

// DefaultColorScheme returns the stock terminal color scheme.
func DefaultColorScheme() ColorScheme {
	return ColorScheme{
		String:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Number:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		Keyword: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

// NewColorFormatter returns a Continue-stage formatter that colorizes
// top-level leaf values for terminal output. It reports Continue so later
// formatters still see the (styled) value, and Skip for containers, which
// fall through to default rendering.
//
// Note: enabling color alongside the default finalize function will escape
// the ANSI styling; callers wanting color should disable finalization or
// install a finalize function that preserves ANSI sequences.
func NewColorFormatter(scheme ColorScheme) Formatter {
	return Formatter{
		Name: "color",
		Format: func(state *State, value any) (Result, any) {
			switch v := value.(type) {
			case string:
				return Continue, scheme.String.Render(v)
			case bool:
				return Continue, scheme.Keyword.Render(state.renderDefault(v))
			case int, int8, int16, int32, int64,
				uint, uint8, uint16, uint32, uint64,
				float32, float64:
				return Continue, scheme.Number.Render(state.renderDefault(v))
			case nil:
				return Continue, scheme.Keyword.Render("nil")
			default:
				return Skip, nil
			}
		},
	}
}
