package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()

	require.NotNil(t, theme)
	for _, c := range []lipgloss.Color{
		theme.Primary, theme.Secondary, theme.Foreground, theme.Muted,
		theme.Success, theme.Warning, theme.Error, theme.Border, theme.Bar,
	} {
		assert.NotEmpty(t, string(c))
	}
}

func TestDefaultTheme_AccentsAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	accents := []lipgloss.Color{theme.Primary, theme.Secondary, theme.Success, theme.Warning, theme.Error}

	seen := make(map[string]bool)
	for _, c := range accents {
		assert.False(t, seen[string(c)], "duplicate accent: %s", c)
		seen[string(c)] = true
	}
}

func TestNewStyles_WithTheme(t *testing.T) {
	theme := DefaultTheme()
	styles := NewStyles(theme)

	require.NotNil(t, styles)
	assert.Equal(t, theme, styles.Theme())
}

func TestNewStyles_NilTheme(t *testing.T) {
	styles := NewStyles(nil)

	require.NotNil(t, styles)
	assert.NotNil(t, styles.Theme())
}

func TestStyles_LabelsUseAccents(t *testing.T) {
	theme := DefaultTheme()
	styles := NewStyles(theme)

	assert.Equal(t, lipgloss.TerminalColor(theme.Secondary), styles.UserLabel.GetForeground())
	assert.Equal(t, lipgloss.TerminalColor(theme.Primary), styles.AssistantLabel.GetForeground())
	assert.True(t, styles.UserLabel.GetBold())
}

func TestStyles_RenderKeepsText(t *testing.T) {
	styles := DefaultStyles()

	assert.Contains(t, styles.Normal.Render("hello"), "hello")
	assert.Contains(t, styles.Error.Render("failed"), "failed")
}
