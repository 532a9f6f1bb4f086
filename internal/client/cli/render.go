package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"ocgamma/internal/client/api"
	"ocgamma/internal/client/notify"
	"ocgamma/internal/client/theme"
)

// palette picks readable colors for the resolved theme.
type palette struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	warning lipgloss.Style
}

func newPalette(r theme.Resolved) palette {
	if r == theme.ResolvedDark {
		return palette{
			title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E5E7EB")),
			muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
			success: lipgloss.NewStyle().Foreground(lipgloss.Color("#4ADE80")),
			failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")),
			warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24")),
		}
	}
	return palette{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#111827")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#15803D")),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#B91C1C")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#B45309")),
	}
}

func (p palette) notification(w io.Writer, n notify.Notification) {
	style := p.muted
	switch n.Type {
	case notify.Success:
		style = p.success
	case notify.Error:
		style = p.failure
	case notify.Warning:
		style = p.warning
	}
	line := style.Render(n.Title)
	if n.Message != "" {
		line += " " + p.muted.Render(n.Message)
	}
	fmt.Fprintln(w, line)
}

func (p palette) user(w io.Writer, u *api.User) {
	fmt.Fprintln(w, p.title.Render(u.Username))
	fmt.Fprintf(w, "  %s %s\n", p.muted.Render("email:"), u.Email)
	if u.FullName != nil && *u.FullName != "" {
		fmt.Fprintf(w, "  %s %s\n", p.muted.Render("name: "), *u.FullName)
	}
	fmt.Fprintf(w, "  %s %s\n", p.muted.Render("role: "), u.Role)
	fmt.Fprintf(w, "  %s %s\n", p.muted.Render("theme:"), u.ThemePreference)
}

func (p palette) theme(w io.Writer, pref theme.Preference, resolved theme.Resolved) {
	fmt.Fprintf(w, "%s %s %s\n", p.title.Render(string(pref)), p.muted.Render("->"), resolved)
}
