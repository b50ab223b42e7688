package session

import (
	"io"
	"os"
	"strings"

	"cmdtutor/internal/config"
	"cmdtutor/internal/logging"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Theme holds the session color scheme.
type Theme struct {
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
	Info    lipgloss.Color
	IsDark  bool
}

// LightTheme returns the palette for light terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary: lipgloss.Color("#101F38"),
		Accent:  lipgloss.Color("#558B2F"),
		Muted:   lipgloss.Color("#6b7280"),
		Success: lipgloss.Color("#2e7d32"),
		Error:   lipgloss.Color("#e53935"),
		Warning: lipgloss.Color("#b26a00"),
		Info:    lipgloss.Color("#1565c0"),
	}
}

// DarkTheme returns the palette for dark terminal backgrounds.
func DarkTheme() Theme {
	return Theme{
		Primary: lipgloss.Color("#8BC34A"),
		Accent:  lipgloss.Color("#FFD54F"),
		Muted:   lipgloss.Color("#9aa5b8"),
		Success: lipgloss.Color("#8BC34A"),
		Error:   lipgloss.Color("#ef5350"),
		Warning: lipgloss.Color("#FFC107"),
		Info:    lipgloss.Color("#4fc3f7"),
		IsDark:  true,
	}
}

// ThemeFor picks the palette named in the UI config.
func ThemeFor(ui config.UIConfig) Theme {
	if ui.IsLight() {
		return LightTheme()
	}
	return DarkTheme()
}

// Styles holds the styled text used by the session.
type Styles struct {
	Theme Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
	Prompt   lipgloss.Style
	Code     lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
}

// NewStyles builds styles for output written to w. The renderer detects
// the color profile of w, so pipes and buffers get plain text.
func NewStyles(w io.Writer, theme Theme) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Theme: theme,

		Title: r.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Subtitle: r.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Muted: r.NewStyle().
			Foreground(theme.Muted),

		Bold: r.NewStyle().
			Bold(true),

		Prompt: r.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Code: r.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Success: r.NewStyle().
			Foreground(theme.Success).
			Bold(true),

		Error: r.NewStyle().
			Foreground(theme.Error).
			Bold(true),

		Warning: r.NewStyle().
			Foreground(theme.Warning),

		Info: r.NewStyle().
			Foreground(theme.Info),
	}
}

// Markdown renders lesson references. Without a renderer it prints the
// source unchanged.
type Markdown struct {
	renderer *glamour.TermRenderer
}

// NewMarkdown creates a renderer for w following the UI config. Output that
// is not a terminal uses glamour's notty style.
func NewMarkdown(w io.Writer, ui config.UIConfig) *Markdown {
	if !ui.Markdown {
		return &Markdown{}
	}
	width := ui.Width
	if width <= 0 {
		width = 80
	}

	style := "dark"
	switch {
	case !isTerminal(w):
		style = "notty"
	case ui.IsLight():
		style = "light"
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		logging.SessionWarn("Markdown renderer unavailable, using plain text: %v", err)
		return &Markdown{}
	}
	return &Markdown{renderer: r}
}

// Render returns md rendered for the terminal.
func (m *Markdown) Render(md string) string {
	if m == nil || m.renderer == nil {
		return md
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		logging.SessionWarn("Markdown render failed: %v", err)
		return md
	}
	return strings.TrimRight(out, "\n") + "\n"
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
