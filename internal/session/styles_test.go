package session

import (
	"bytes"
	"testing"

	"cmdtutor/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestThemeFor(t *testing.T) {
	assert.False(t, ThemeFor(config.UIConfig{Theme: "light"}).IsDark)
	assert.True(t, ThemeFor(config.UIConfig{Theme: "dark"}).IsDark)
	assert.True(t, ThemeFor(config.UIConfig{}).IsDark)
}

func TestStylesArePlainWithoutTerminal(t *testing.T) {
	s := NewStyles(&bytes.Buffer{}, DarkTheme())
	assert.Equal(t, "✅  Correct!", s.Success.Render("✅  Correct!"))
}

func TestMarkdownDisabled(t *testing.T) {
	md := "### Command Reference\n\n- `pwd` Print Working Directory\n"
	m := NewMarkdown(&bytes.Buffer{}, config.UIConfig{Markdown: false})
	assert.Equal(t, md, m.Render(md))

	var nilRenderer *Markdown
	assert.Equal(t, md, nilRenderer.Render(md))
}

func TestMarkdownRendersForPipes(t *testing.T) {
	m := NewMarkdown(&bytes.Buffer{}, config.UIConfig{Markdown: true, Width: 60})
	out := m.Render("### Command Reference\n\n- `pwd` Print Working Directory\n")
	assert.Contains(t, out, "Command Reference")
	assert.Contains(t, out, "Print Working Directory")
}
