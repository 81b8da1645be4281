package cli

import "github.com/charmbracelet/lipgloss"

// theme holds the styles used for terminal output.
type theme struct {
	bot    lipgloss.Style
	user   lipgloss.Style
	hint   lipgloss.Style
	ok     lipgloss.Style
	failed lipgloss.Style
	label  lipgloss.Style
}

func newTheme(plain bool) theme {
	if plain {
		s := lipgloss.NewStyle()
		return theme{bot: s, user: s, hint: s, ok: s, failed: s, label: s}
	}
	return theme{
		bot:    lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFD7")),
		user:   lipgloss.NewStyle().Foreground(lipgloss.Color("#00D787")).Bold(true),
		hint:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C")).Italic(true),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("#00D787")).Bold(true),
		failed: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF005F")).Bold(true),
		label:  lipgloss.NewStyle().Bold(true),
	}
}
