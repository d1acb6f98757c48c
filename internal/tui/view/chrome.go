package view

import (
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"

	tuitheme "github.com/glabrego/conch/internal/tui/theme"
)

const (
	Title        = " conch 螺 "
	TooSmallText = "Window too small! Embiggen!"

	// MinHeight fits the two rules and their padding lines.
	MinHeight        = 4
	MinWidthForClock = 64
	LinesPerBlast    = 2

	titleLeftMargin = 2
	paddingX        = 1
	statusMaxLen    = 64
	clockFormat     = " 2006-01-02 15:04:05 "
	ruleGlyph       = "─"
)

// Frame is everything a render needs besides the list itself. It is built
// fresh for every View call.
type Frame struct {
	Width  int
	Height int
	Now    time.Time

	Status     string
	StatusWarn bool
	Help       string
	Watermark  string

	StickToTop   bool
	LoadingOlder bool
	Exhausted    bool
	Loaded       int

	// DetailPos replaces the pagination state while a blast is open.
	DetailPos string
}

// BodyHeight is the number of lines between the chrome.
func BodyHeight(height int) int {
	return max(0, height-MinHeight)
}

// VisibleBlasts is how many blasts fit in the body.
func VisibleBlasts(height int) int {
	return BodyHeight(height) / LinesPerBlast
}

// Screen lays out the chrome around body.
func Screen(f Frame, body []string, th tuitheme.Theme) string {
	if f.Width <= 0 {
		return ""
	}
	if f.Height < MinHeight {
		return TooSmallText
	}

	lines := make([]string, 0, f.Height)
	lines = append(lines, TopRule(f, th), "")
	bodyHeight := BodyHeight(f.Height)
	for i := 0; i < bodyHeight; i++ {
		if i < len(body) {
			lines = append(lines, body[i])
		} else {
			lines = append(lines, "")
		}
	}
	lines = append(lines, Indicators(f, th), BottomRule(f, th))
	return strings.Join(lines, "\n")
}

// TopRule draws the title, the centered status message and, on wide
// terminals, the clock.
func TopRule(f Frame, th tuitheme.Theme) string {
	items := []placed{{col: titleLeftMargin, text: th.Title.Render(Title)}}

	if f.Status != "" {
		status := " " + ansi.Truncate(f.Status, statusMaxLen, "…") + " "
		style := th.Status
		if f.StatusWarn {
			style = th.StatusWarn
		}
		items = append(items, placed{col: (f.Width - ansi.StringWidth(status)) / 2, text: style.Render(status)})
	}

	if f.Width >= MinWidthForClock {
		clock := f.Now.Format(clockFormat)
		items = append(items, placed{col: f.Width - len(clock) - paddingX, text: th.Clock.Render(clock)})
	}
	return overlay(f.Width, th, items)
}

// BottomRule draws the key help and the watermark.
func BottomRule(f Frame, th tuitheme.Theme) string {
	var items []placed
	room := f.Width - 2*paddingX
	if f.Watermark != "" {
		w := ansi.StringWidth(f.Watermark)
		items = append(items, placed{col: f.Width - w - paddingX, text: th.Watermark.Render(f.Watermark)})
		room -= w + 1
	}
	if f.Help != "" && room > 2 {
		help := " " + ansi.Truncate(f.Help, room-2, "…") + " "
		items = append(items, placed{col: paddingX, text: help})
	}
	return overlay(f.Width, th, items)
}

// Indicators is the line above the bottom rule: the stick-to-top marker on
// the left and the pagination state on the right.
func Indicators(f Frame, th tuitheme.Theme) string {
	left := ""
	if f.StickToTop {
		left = th.StickOn.Render("⇡ stick to top")
	}

	if f.DetailPos != "" {
		return spread(f.Width, left, th.StateIdle.Render(f.DetailPos))
	}

	var right string
	switch {
	case f.LoadingOlder:
		right = th.StateLoad.Render("loading older…")
	case f.Exhausted && f.Loaded > 0:
		right = th.StateIdle.Render("end of feed")
	}
	if f.Loaded > 0 {
		count := th.StateIdle.Render(pluralBlasts(f.Loaded))
		if right == "" {
			right = count
		} else {
			right = count + th.StateIdle.Render(" · ") + right
		}
	}
	return spread(f.Width, left, right)
}

func spread(total int, left, right string) string {
	width := total - 2*paddingX
	if width < 1 {
		return ""
	}
	left = ansi.Truncate(left, width, "")
	gap := width - ansi.StringWidth(left) - ansi.StringWidth(right)
	if gap < 1 {
		return pad(left)
	}
	return pad(left + strings.Repeat(" ", gap) + right)
}

func pad(s string) string {
	return strings.Repeat(" ", paddingX) + s
}

type placed struct {
	col  int
	text string
}

// overlay draws items over a horizontal rule. Items that would overlap an
// earlier item or run past the edge are dropped.
func overlay(width int, th tuitheme.Theme, items []placed) string {
	sort.SliceStable(items, func(i, j int) bool { return items[i].col < items[j].col })

	var b strings.Builder
	cursor := 0
	for _, it := range items {
		w := ansi.StringWidth(it.text)
		if it.col < cursor || it.col+w > width {
			continue
		}
		if it.col > cursor {
			b.WriteString(th.Rule.Render(strings.Repeat(ruleGlyph, it.col-cursor)))
		}
		b.WriteString(it.text)
		cursor = it.col + w
	}
	if cursor < width {
		b.WriteString(th.Rule.Render(strings.Repeat(ruleGlyph, width-cursor)))
	}
	return b.String()
}
