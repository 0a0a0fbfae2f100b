package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/threadview/pkg/render"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) below that.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// GlamourStyle picks the markdown style for the configured theme. "auto"
// falls back to notty when the terminal cannot show colors.
func GlamourStyle(theme string) string {
	if theme == "" || theme == "auto" {
		if TermProfile <= colorprofile.ASCII {
			return "notty"
		}
		return "auto"
	}
	return theme
}

// Theme holds the pre-computed styles of the viewer.
type Theme struct {
	Renderer *lipgloss.Renderer

	Primary lipgloss.AdaptiveColor
	Subtext lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor

	User      lipgloss.AdaptiveColor
	Assistant lipgloss.AdaptiveColor
	System    lipgloss.AdaptiveColor

	Base      lipgloss.Style
	Header    lipgloss.Style
	MutedText lipgloss.Style
	Focused   lipgloss.Style
	Unfocused lipgloss.Style
	Hidden    lipgloss.Style
	Expand    lipgloss.Style
	Search    lipgloss.Style
}

// DefaultTheme returns the Dracula-inspired adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary: ColorPrimary,
		Subtext: ColorSubtext,
		Muted:   ColorMuted,
		Border:  ColorBgHighlight,

		User:      ColorRoleUser,
		Assistant: ColorRoleAssistant,
		System:    ColorRoleSystem,
	}

	t.Base = r.NewStyle().Foreground(ColorText)
	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)
	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.Focused = r.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		PaddingLeft(1)
	t.Unfocused = r.NewStyle().
		Border(lipgloss.HiddenBorder(), false, false, false, true).
		PaddingLeft(1)
	t.Hidden = r.NewStyle().Foreground(ColorWarning).Italic(true)
	t.Expand = r.NewStyle().Foreground(ColorInfo).Italic(true)
	t.Search = r.NewStyle().Foreground(t.Primary).Bold(true)
	return t
}

// RoleColor returns the accent of a role class.
func (t Theme) RoleColor(class string) lipgloss.AdaptiveColor {
	switch class {
	case "user":
		return t.User
	case "system":
		return t.System
	}
	return t.Assistant
}

// StatusStyle styles the status line by kind.
func (t Theme) StatusStyle(kind render.StatusKind) lipgloss.Style {
	s := t.Renderer.NewStyle().Padding(0, 1)
	switch kind {
	case render.StatusOK:
		return s.Foreground(ColorSuccess)
	case render.StatusWarn:
		return s.Foreground(ColorWarning)
	case render.StatusError:
		return s.Foreground(ColorDanger).Bold(true)
	}
	return s.Foreground(ColorInfo)
}

// TestTheme returns a theme for tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
