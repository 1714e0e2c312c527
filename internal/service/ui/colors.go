package ui

import "github.com/charmbracelet/lipgloss"

var (
	// TitleStyle ANSI 6 (cyan) for headings.
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)

	// UsageStyle ANSI 2 (green) for usage lines and arguments.
	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// DescStyle ANSI 8 (gray) keeps descriptions dim.
	DescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	// FlagStyle ANSI 3 (yellow) for flags.
	FlagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)

	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	// KeptStyle and DiscardedStyle mark candidates in search output.
	KeptStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	DiscardedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
)
