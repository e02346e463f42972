package cli

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Theme defines the terminal color scheme.
type Theme struct {
	Primary lipgloss.Color
	Dim     lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme is the ITSLanguage blue theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#3ba7e5"),
	Dim:     lipgloss.Color("#6e7681"),
	Warning: lipgloss.Color("#e3b341"),
	Error:   lipgloss.Color("#f85149"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Border  lipgloss.Style
	Help    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label:   lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Border:  lipgloss.NewStyle().Foreground(t.Dim),
		Help:    lipgloss.NewStyle().Foreground(t.Dim),
		Success: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Warning: lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(t.Error),
	}
}

// DefaultStyles are the styles of DefaultTheme.
var DefaultStyles = NewStyles(DefaultTheme)

// NewLogger returns a slog logger printing human readable lines to w.
// Verbose enables debug records.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: verbose,
		Prefix:          "its",
	})
	return slog.New(handler)
}
