package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/trezcool/masomo-dashboard/core/navigation"
	"github.com/trezcool/masomo-dashboard/core/user"
)

type noticeKind int

const (
	noticeInfo noticeKind = iota
	noticeSuccess
	noticeWarning
	noticeError
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(8)
	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)

	noticeStyles = map[noticeKind]lipgloss.Style{
		noticeInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("#22D3EE")),
		noticeSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		noticeWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		noticeError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F43F5E")),
	}
	noticeIcons = map[noticeKind]string{
		noticeInfo:    "i",
		noticeSuccess: "✓",
		noticeWarning: "!",
		noticeError:   "✗",
	}
)

func renderNotice(kind noticeKind, msg string) string {
	return noticeStyles[kind].Render(noticeIcons[kind] + " " + msg)
}

func renderIdentity(id user.Identity) string {
	rows := []string{
		titleStyle.Render(id.FullName()),
		labelStyle.Render("email") + id.Email,
		labelStyle.Render("role") + id.Role.Name(),
	}
	if id.School != "" {
		rows = append(rows, labelStyle.Render("school")+id.School)
	}
	return boxStyle.Render(strings.Join(rows, "\n"))
}

// renderMenu draws entries as a tree, highlighting the entry reaching current.
func renderMenu(role user.Role, entries []navigation.Entry, current string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(role.Name() + " menu"))
	b.WriteString("\n")
	writeEntries(&b, entries, current, 0)
	return strings.TrimRight(b.String(), "\n")
}

func writeEntries(b *strings.Builder, entries []navigation.Entry, current string, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		line := e.Title + " " + mutedStyle.Render(e.Path)
		if e.Path == current || (len(e.Children) == 0 && e.Reaches(current)) {
			line = currentStyle.Render("› "+e.Title) + " " + mutedStyle.Render(e.Path)
		} else {
			line = "  " + line
		}
		b.WriteString(indent + line + "\n")
		writeEntries(b, e.Children, current, depth+1)
	}
}
