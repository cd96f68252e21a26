package output

import "github.com/charmbracelet/lipgloss"

// Status symbols.
const (
	SymbolSuccess = "✓"
	SymbolWarning = "!"
	SymbolError   = "✗"
	SymbolSkipped = "-"
)

// Styles holds the lipgloss styles used by commands.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Path    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")),
		Header2: r.NewStyle().Bold(true),
		Bold:    r.NewStyle().Bold(true),
		Muted:   r.NewStyle().Foreground(lipgloss.Color("#64748B")),
		Success: r.NewStyle().Foreground(lipgloss.Color("#10B981")),
		Warning: r.NewStyle().Foreground(lipgloss.Color("#FBBF24")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true),
		Info:    r.NewStyle().Foreground(lipgloss.Color("#38BDF8")),
		Path:    r.NewStyle().Foreground(lipgloss.Color("#A78BFA")),
	}
}

// Level returns the style for a linter or diagnostic severity name.
func (s *Styles) Level(level string) lipgloss.Style {
	switch level {
	case "error":
		return s.Error
	case "warning":
		return s.Warning
	case "suggestion", "info":
		return s.Info
	}
	return s.Muted
}
