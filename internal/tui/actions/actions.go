package actions

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/conch/internal/poll"
)

// pollTimeout bounds a whole poll; each query inside it has its own
// shorter timeout.
const pollTimeout = 30 * time.Second

// Fetcher runs one poll's queries.
type Fetcher interface {
	Fetch(ctx context.Context, req poll.Request) poll.Result
}

type PollDoneMsg struct {
	Result poll.Result
}

// TickMsg asks for the next poll. Ticks carrying a stale ID are ignored so
// only one tick chain is ever live.
type TickMsg struct {
	ID int
}

type ClockMsg struct {
	Now time.Time
}

type WatermarkMsg struct{}

type YankMsg struct {
	ID  int64
	Err error
}

type ClearStatusMsg struct {
	ID int
}

// Watermark is the spinner shown in the bottom-right corner while polling.
var Watermark = spinner.Spinner{
	Frames: []string{" /dev/fort 11 ", " -dev-fort 11 ", ` \dev\fort 11 `, " |dev|fort 11 "},
	FPS:    time.Second / 8,
}

func PollCmd(fetcher Fetcher, req poll.Request) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
		defer cancel()
		return PollDoneMsg{Result: fetcher.Fetch(ctx, req)}
	}
}

func TickCmd(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return TickMsg{ID: id}
	})
}

// ClockCmd fires on the next wall-clock second.
func ClockCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return ClockMsg{Now: t}
	})
}

func WatermarkCmd() tea.Cmd {
	return tea.Tick(Watermark.FPS, func(time.Time) tea.Msg {
		return WatermarkMsg{}
	})
}

func YankCmd(id int64, text string, copyFn func(string) error) tea.Cmd {
	return func() tea.Msg {
		return YankMsg{ID: id, Err: copyFn(text)}
	}
}

func ClearStatusCmd(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return ClearStatusMsg{ID: id}
	})
}
