package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/glabrego/conch/internal/blast"
	"github.com/glabrego/conch/internal/render/text"
	tuitheme "github.com/glabrego/conch/internal/tui/theme"
)

type WrapFunc func(string, int) []string

// Wrap breaks s at word boundaries so no line is wider than width cells.
// Words longer than width are broken.
func Wrap(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	return strings.Split(ansi.Wrap(s, width, ""), "\n")
}

// DetailMetaLines is the heading of the detail pane: the author underlined,
// then the id and posting time.
func DetailMetaLines(b blast.Blast, width int, now time.Time, wrap WrapFunc, th tuitheme.Theme) []string {
	author := authorName(b)
	lines := make([]string, 0, 8)
	for _, line := range wrap(author, width) {
		lines = append(lines, th.Author.Render(line))
	}
	lines = append(lines, th.Rule.Render(strings.Repeat("=", max(1, min(width, ansi.StringWidth(author))))))
	lines = append(lines, "")

	lines = append(lines, th.MetaValue.Render(fmt.Sprintf("Blast: #%d", b.ID)))
	if !b.PostedAt.IsZero() {
		if now.IsZero() {
			now = time.Now()
		}
		date := b.PostedAt.UTC().Format(time.RFC3339) + " (" + humanize.RelTime(b.PostedAt, now, "ago", "from now") + ")"
		for _, line := range wrap("Date: "+date, width) {
			lines = append(lines, th.MetaValue.Render(line))
		}
	}
	return lines
}

// DetailLines renders all of b for the detail pane, content wrapped to the
// frame width and paragraphs separated by blank lines.
func DetailLines(b blast.Blast, f Frame, wrap WrapFunc, th tuitheme.Theme) []string {
	width := max(1, f.Width-2*paddingX-1)
	lines := DetailMetaLines(b, width, f.Now, wrap, th)
	for _, para := range text.Paragraphs(b.Content) {
		lines = append(lines, "")
		for _, line := range wrap(para, width) {
			lines = append(lines, th.Content.Render(line))
		}
	}
	return leftPadLines(lines)
}

// DetailMaxTop is the furthest the detail pane can scroll.
func DetailMaxTop(linesLen, bodyHeight int) int {
	return max(0, linesLen-bodyHeight)
}

// DetailWindow returns the lines visible with the pane scrolled to top.
func DetailWindow(lines []string, top, height int) []string {
	if len(lines) == 0 || height <= 0 {
		return nil
	}
	top = min(max(0, top), len(lines)-1)
	end := min(len(lines), top+height)
	return lines[top:end]
}

// DetailPosition is the indicator shown while a blast is open.
func DetailPosition(top, height, total int) string {
	if total <= height {
		return "all"
	}
	last := min(total, top+height)
	return fmt.Sprintf("lines %d-%d of %d", top+1, last, total)
}

func leftPadLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		if line == "" {
			out[i] = line
			continue
		}
		out[i] = pad(line)
	}
	return out
}

func authorName(b blast.Blast) string {
	if author := strings.TrimSpace(b.Author); author != "" {
		return author
	}
	return "anonymous"
}
