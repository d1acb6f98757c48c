package theme

import (
	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Rule       lipgloss.Style
	Title      lipgloss.Style
	Clock      lipgloss.Style
	Status     lipgloss.Style
	StatusWarn lipgloss.Style
	Watermark  lipgloss.Style
	Help       lipgloss.Style

	Author     lipgloss.Style
	MetaValue  lipgloss.Style
	Content    lipgloss.Style
	ActiveLine lipgloss.Style
	Cursor     lipgloss.Style

	StickOn   lipgloss.Style
	StateLoad lipgloss.Style
	StateIdle lipgloss.Style
	Empty     lipgloss.Style
}

func Default() Theme {
	cpMauve := lipgloss.Color("#cba6f7")
	cpRed := lipgloss.Color("#f38ba8")
	cpPeach := lipgloss.Color("#fab387")
	cpYellow := lipgloss.Color("#f9e2af")
	cpGreen := lipgloss.Color("#a6e3a1")
	cpTeal := lipgloss.Color("#94e2d5")
	cpLavender := lipgloss.Color("#b4befe")
	cpText := lipgloss.Color("#cdd6f4")
	cpSubtext0 := lipgloss.Color("#a6adc8")
	cpOverlay0 := lipgloss.Color("#6c7086")
	cpOverlay1 := lipgloss.Color("#7f849c")
	cpSurface0 := lipgloss.Color("#313244")

	return Theme{
		Rule:       lipgloss.NewStyle().Foreground(cpOverlay0),
		Title:      lipgloss.NewStyle().Bold(true).Foreground(cpMauve),
		Clock:      lipgloss.NewStyle().Foreground(cpSubtext0),
		Status:     lipgloss.NewStyle().Foreground(cpTeal),
		StatusWarn: lipgloss.NewStyle().Bold(true).Foreground(cpRed),
		Watermark:  lipgloss.NewStyle().Foreground(cpOverlay1),
		Help:       lipgloss.NewStyle().Foreground(cpSubtext0),

		Author:     lipgloss.NewStyle().Bold(true).Foreground(cpLavender),
		MetaValue:  lipgloss.NewStyle().Foreground(cpOverlay1),
		Content:    lipgloss.NewStyle().Foreground(cpText),
		ActiveLine: lipgloss.NewStyle().Background(cpSurface0).Foreground(cpText),
		Cursor:     lipgloss.NewStyle().Bold(true).Foreground(cpYellow),

		StickOn:   lipgloss.NewStyle().Bold(true).Foreground(cpGreen),
		StateLoad: lipgloss.NewStyle().Foreground(cpPeach),
		StateIdle: lipgloss.NewStyle().Foreground(cpOverlay1),
		Empty:     lipgloss.NewStyle().Italic(true).Foreground(cpSubtext0),
	}
}

// Plain is a theme without colors or attributes, for tests and dumb
// terminals.
func Plain() Theme {
	s := lipgloss.NewStyle()
	return Theme{
		Rule: s, Title: s, Clock: s, Status: s, StatusWarn: s, Watermark: s, Help: s,
		Author: s, MetaValue: s, Content: s, ActiveLine: s, Cursor: s,
		StickOn: s, StateLoad: s, StateIdle: s, Empty: s,
	}
}

func (t Theme) RenderActiveLine(active bool, line string) string {
	if !active {
		return line
	}
	return t.ActiveLine.Render(line)
}
