package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/glabrego/conch/internal/blast"
	"github.com/glabrego/conch/internal/feed"
	"github.com/glabrego/conch/internal/render/text"
	tuitheme "github.com/glabrego/conch/internal/tui/theme"
)

// RenderList renders nodes, highlighting current.
func RenderList(nodes []*feed.Node, current *feed.Node, f Frame, th tuitheme.Theme) []string {
	lines := make([]string, 0, len(nodes)*LinesPerBlast)
	for _, n := range nodes {
		lines = append(lines, RenderBlast(n.Blast(), n == current, f, th)...)
	}
	return lines
}

// RenderBlast renders the header and content lines of one blast.
func RenderBlast(b blast.Blast, active bool, f Frame, th tuitheme.Theme) []string {
	width := max(1, f.Width-2*paddingX)

	marker := "  "
	if active {
		marker = th.Cursor.Render("> ")
	}
	header := marker + th.Author.Render(authorName(b)) + "  " + th.MetaValue.Render(MetaLabel(b, f.Now))
	content := "  " + th.Content.Render(text.Flatten(b.Content))

	return []string{
		pad(th.RenderActiveLine(active, fit(header, width))),
		pad(th.RenderActiveLine(active, fit(content, width))),
	}
}

// MetaLabel is the id and relative posting time shown next to the author.
func MetaLabel(b blast.Blast, now time.Time) string {
	label := fmt.Sprintf("#%d", b.ID)
	if b.PostedAt.IsZero() {
		return label
	}
	if now.IsZero() {
		now = time.Now()
	}
	return label + " · " + humanize.RelTime(b.PostedAt, now, "ago", "from now")
}

// Placeholder fills the body when nothing is loaded.
func Placeholder(polling bool, th tuitheme.Theme) []string {
	msg := "No blasts yet."
	if polling {
		msg = "Fetching blasts…"
	}
	return []string{pad(th.Empty.Render(msg))}
}

func pluralBlasts(n int) string {
	if n == 1 {
		return "1 blast"
	}
	return humanize.Comma(int64(n)) + " blasts"
}

// fit truncates s to width cells and pads it so highlighted lines span the
// full width.
func fit(s string, width int) string {
	s = ansi.Truncate(s, width, "…")
	if gap := width - ansi.StringWidth(s); gap > 0 {
		s += strings.Repeat(" ", gap)
	}
	return s
}
