package output

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7D7AFF"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#D29922"}
	colorError   = lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#6E7781", Dark: "#8B949E"}
)

// Styles holds the text styles used by commands.
type Styles struct {
	Header1       lipgloss.Style
	Header2       lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Success       lipgloss.Style
	Warning       lipgloss.Style
	Error         lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
}

// NewStyles builds styles bound to a lipgloss renderer.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1:       r.NewStyle().Bold(true).Foreground(colorPrimary).MarginBottom(1),
		Header2:       r.NewStyle().Bold(true).Foreground(colorPrimary),
		Bold:          r.NewStyle().Bold(true),
		Muted:         r.NewStyle().Foreground(colorMuted),
		Success:       r.NewStyle().Foreground(colorSuccess),
		Warning:       r.NewStyle().Foreground(colorWarning),
		Error:         r.NewStyle().Foreground(colorError).Bold(true),
		StatusSuccess: r.NewStyle().Foreground(colorSuccess).Bold(true),
		StatusFailed:  r.NewStyle().Foreground(colorError).Bold(true),
	}
}

// Status renders a status word with the matching style.
func (s *Styles) Status(status string) string {
	switch status {
	case "success", "completed":
		return s.StatusSuccess.Render(status)
	case "failure", "failed":
		return s.StatusFailed.Render(status)
	default:
		return s.Warning.Render(status)
	}
}
