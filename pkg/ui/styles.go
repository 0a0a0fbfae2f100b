package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// Light mode colors tuned for WCAG AA compliance (contrast ratio >= 4.5:1)
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorText        = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext     = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}

	// Roles follow the HTML export: user indigo, assistant neutral, system amber.
	ColorRoleUser      = lipgloss.AdaptiveColor{Light: "#3730A3", Dark: "#A5B4FC"}
	ColorRoleAssistant = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorRoleSystem    = lipgloss.AdaptiveColor{Light: "#92400E", Dark: "#FCD34D"}

	ColorBadgeText = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGES
// ══════════════════════════════════════════════════════════════════════════════

// RenderRoleBadge returns the role label on the role's accent color.
func (t Theme) RenderRoleBadge(label, class string) string {
	return t.Renderer.NewStyle().
		Background(t.RoleColor(class)).
		Foreground(ColorBadgeText).
		Bold(true).
		Padding(0, 1).
		Render(label)
}

// RenderKeyHint renders "key action" for the footer.
func (t Theme) RenderKeyHint(key, action string) string {
	k := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).Render(key)
	return k + " " + t.MutedText.Render(action)
}

// RenderToggle renders a footer toggle with its on/off state.
func (t Theme) RenderToggle(key, name string, on bool) string {
	state := t.MutedText.Render("off")
	if on {
		state = t.Renderer.NewStyle().Foreground(ColorSuccess).Render("on")
	}
	return t.RenderKeyHint(key, name) + " " + state
}
