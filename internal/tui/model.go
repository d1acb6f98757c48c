package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/glabrego/conch/internal/config"
	"github.com/glabrego/conch/internal/feed"
	"github.com/glabrego/conch/internal/poll"
	"github.com/glabrego/conch/internal/tui/actions"
	"github.com/glabrego/conch/internal/tui/platform"
	"github.com/glabrego/conch/internal/tui/state"
	tuitheme "github.com/glabrego/conch/internal/tui/theme"
	"github.com/glabrego/conch/internal/tui/view"
)

const (
	statusTTL = 3 * time.Second
	// olderRetry is how soon to poll again when the throttle held back an
	// older page that is still wanted.
	olderRetry = poll.DefaultOlderEvery
)

// Poller fetches off the UI goroutine and merges on it.
type Poller interface {
	actions.Fetcher
	Apply(v poll.Viewer, w *feed.Window, res poll.Result) *feed.Window
}

type Options struct {
	StickToTop   bool
	PageSize     int
	PollInterval time.Duration
	Prefetch     int
	KeyMap       config.KeyMapConfig
	Theme        *tuitheme.Theme
	Copy         func(string) error
	Now          func() time.Time
	Logger       *log.Logger
}

type Model struct {
	poller Poller
	window *feed.Window
	view   *state.View
	keys   KeyMap
	help   help.Model
	theme  tuitheme.Theme
	logger *log.Logger

	pageSize     int
	prefetch     int
	pollInterval time.Duration
	copyFn       func(string) error

	width  int
	height int
	now    time.Time

	polling        bool
	wantOlder      bool
	olderExhausted bool
	tickID         int
	spinning       bool
	spinFrame      int

	status     string
	statusWarn bool
	statusID   int
	showHelp   bool

	inDetail  bool
	detailTop int
}

func NewModel(poller Poller, opts Options) Model {
	if opts.PageSize < 1 {
		opts.PageSize = poll.DefaultPageSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.DefaultPollInterval
	}
	if opts.Prefetch < 0 {
		opts.Prefetch = 0
	}
	if opts.KeyMap == (config.KeyMapConfig{}) {
		opts.KeyMap = config.DefaultKeyMap()
	}
	th := tuitheme.Default()
	if opts.Theme != nil {
		th = *opts.Theme
	}
	if opts.Copy == nil {
		opts.Copy = platform.CopyToClipboard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return Model{
		poller:       poller,
		view:         state.New(opts.StickToTop),
		keys:         NewKeyMap(opts.KeyMap),
		help:         help.New(),
		theme:        th,
		logger:       opts.Logger.WithPrefix("tui"),
		pageSize:     opts.PageSize,
		prefetch:     opts.Prefetch,
		pollInterval: opts.PollInterval,
		copyFn:       opts.Copy,
		now:          opts.Now(),
		polling:      true,
		spinning:     true,
	}
}

// Init starts the first poll, the clock and the watermark.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		actions.PollCmd(m.poller, poll.RequestFor(m.window, false)),
		actions.ClockCmd(),
		actions.WatermarkCmd(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.scroll()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case actions.PollDoneMsg:
		return m.handlePoll(msg.Result)
	case actions.TickMsg:
		if msg.ID != m.tickID || m.polling {
			return m, nil
		}
		cmd := m.startPoll()
		return m, cmd
	case actions.ClockMsg:
		m.now = msg.Now
		return m, actions.ClockCmd()
	case actions.WatermarkMsg:
		return m.advanceWatermark()
	case actions.YankMsg:
		if msg.Err != nil {
			m.logger.Warn("yank failed", "id", msg.ID, "err", msg.Err)
			cmd := m.setStatus("copy failed: "+msg.Err.Error(), true)
			return m, cmd
		}
		cmd := m.setStatus(fmt.Sprintf("copied blast #%d", msg.ID), false)
		return m, cmd
	case actions.ClearStatusMsg:
		if msg.ID == m.statusID {
			m.status = ""
			m.statusWarn = false
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help), msg.Type == tea.KeyEsc:
			m.showHelp = false
		}
		return m, nil
	}
	if m.inDetail {
		return m.handleDetailKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.Open):
		if _, ok := m.view.Selected(); ok {
			m.inDetail = true
			m.detailTop = 0
		}
	case key.Matches(msg, m.keys.Down):
		cmd := m.afterMove(m.view.SelectNext())
		return m, cmd
	case key.Matches(msg, m.keys.Up):
		m.view.SelectPrev()
		m.scroll()
	case key.Matches(msg, m.keys.PageDown):
		cmd := m.afterMove(m.view.PageDown(m.pageStep()))
		return m, cmd
	case key.Matches(msg, m.keys.PageUp):
		m.view.PageUp(m.pageStep())
		m.scroll()
	case key.Matches(msg, m.keys.Top):
		m.view.JumpToTop()
		m.scroll()
	case key.Matches(msg, m.keys.Stick):
		m.view.ToggleStickToTop()
		label := "stick to top off"
		if m.view.StickToTop() {
			label = "stick to top on"
		}
		cmd := m.setStatus(label, false)
		return m, cmd
	case key.Matches(msg, m.keys.Refresh):
		return m.refresh()
	case key.Matches(msg, m.keys.Yank):
		return m, m.yank()
	}
	return m, nil
}

// handleDetailKey scrolls the open blast or moves to its neighbours.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	maxTop := view.DetailMaxTop(len(m.detailLines()), view.BodyHeight(m.height))
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Open):
		m.inDetail = false
		m.detailTop = 0
		m.scroll()
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.Down):
		m.detailTop = min(m.detailTop+1, maxTop)
	case key.Matches(msg, m.keys.Up):
		m.detailTop = max(m.detailTop-1, 0)
	case key.Matches(msg, m.keys.PageDown):
		m.detailTop = min(m.detailTop+view.BodyHeight(m.height), maxTop)
	case key.Matches(msg, m.keys.PageUp):
		m.detailTop = max(m.detailTop-view.BodyHeight(m.height), 0)
	case key.Matches(msg, m.keys.Top):
		m.detailTop = 0
	case key.Matches(msg, m.keys.NextBlast):
		m.detailTop = 0
		cmd := m.afterMove(m.view.SelectNext())
		return m, cmd
	case key.Matches(msg, m.keys.PrevBlast):
		m.detailTop = 0
		m.view.SelectPrev()
		m.scroll()
	case key.Matches(msg, m.keys.Refresh):
		return m.refresh()
	case key.Matches(msg, m.keys.Yank):
		return m, m.yank()
	}
	return m, nil
}

func (m Model) refresh() (tea.Model, tea.Cmd) {
	if m.polling {
		return m, nil
	}
	cmd := m.startPoll()
	return m, cmd
}

func (m Model) yank() tea.Cmd {
	b, ok := m.view.Selected()
	if !ok {
		return nil
	}
	return actions.YankCmd(b.ID, platform.YankText(b), m.copyFn)
}

func (m Model) handlePoll(res poll.Result) (tea.Model, tea.Cmd) {
	m.polling = false
	oldHead := m.window.Head()

	m.window = m.poller.Apply(m.view, m.window, res)

	if res.OlderAsked && res.OlderErr == nil {
		m.wantOlder = false
	}
	// A short first page means the whole feed fit in it. An empty one only
	// means nothing has been posted yet.
	firstPage := !res.Request.HasHead && res.NewerErr == nil && len(res.Newer) > 0
	if res.OlderExhausted() || (firstPage && len(res.Newer) < m.pageSize) {
		if !m.olderExhausted {
			m.logger.Info("reached the oldest blast", "loaded", m.window.Len())
		}
		m.olderExhausted = true
		m.wantOlder = false
	}
	m.scroll()

	var cmds []tea.Cmd
	if err := res.Err(); err != nil {
		cmds = append(cmds, m.setStatus("fetch failed: "+strings.ReplaceAll(err.Error(), "\n", "; "), true))
	} else if m.statusWarn {
		m.status = ""
		m.statusWarn = false
	}
	if added := m.window.Position(oldHead); oldHead != nil && added > 0 && !m.view.AtTop() {
		cmds = append(cmds, m.setStatus(fmt.Sprintf("%d new %s", added, plural(added, "blast")), false))
	}

	if m.wantOlder && !m.olderExhausted && !res.Request.WantOlder {
		// Older blasts were asked for while this poll was in flight.
		cmds = append(cmds, m.startPoll())
		return m, tea.Batch(cmds...)
	}
	m.tickID++
	cmds = append(cmds, actions.TickCmd(m.tickID, m.nextPollDelay(res)))
	return m, tea.Batch(cmds...)
}

// nextPollDelay is the poll interval, shortened when the throttle denied an
// older page that is still wanted.
func (m Model) nextPollDelay(res poll.Result) time.Duration {
	if m.wantOlder && !m.olderExhausted && res.Request.WantOlder && !res.OlderAsked {
		return min(m.pollInterval, olderRetry)
	}
	return m.pollInterval
}

// startPoll fetches newer blasts and, when asked for, older ones. Any
// pending tick is superseded; the next one is scheduled when this poll
// lands.
func (m *Model) startPoll() tea.Cmd {
	m.polling = true
	m.tickID++
	req := poll.RequestFor(m.window, m.wantOlder && !m.olderExhausted)
	cmds := []tea.Cmd{actions.PollCmd(m.poller, req)}
	if !m.spinning {
		m.spinning = true
		cmds = append(cmds, actions.WatermarkCmd())
	}
	return tea.Batch(cmds...)
}

// afterMove keeps the selection visible and asks for older blasts when it
// gets close to the oldest loaded one.
func (m *Model) afterMove(atTail bool) tea.Cmd {
	m.scroll()
	if !atTail && !m.view.NearTail(m.prefetch) {
		return nil
	}
	return m.requestOlder()
}

func (m *Model) requestOlder() tea.Cmd {
	if m.olderExhausted || m.window.Len() == 0 {
		return nil
	}
	m.wantOlder = true
	if m.polling {
		return nil
	}
	m.logger.Debug("requesting older blasts", "tail", m.window.Tail().ID())
	return m.startPoll()
}

// advanceWatermark spins while polling and then until the spinner is back
// on its first frame.
func (m Model) advanceWatermark() (tea.Model, tea.Cmd) {
	if !m.spinning {
		return m, nil
	}
	m.spinFrame = (m.spinFrame + 1) % len(actions.Watermark.Frames)
	if m.polling || m.spinFrame != 0 {
		return m, actions.WatermarkCmd()
	}
	m.spinning = false
	return m, nil
}

// setStatus shows msg in the top rule. Warnings stay until the next clean
// poll; everything else clears itself.
func (m *Model) setStatus(msg string, warn bool) tea.Cmd {
	m.statusID++
	m.status = msg
	m.statusWarn = warn
	if warn {
		return nil
	}
	return actions.ClearStatusCmd(m.statusID, statusTTL)
}

func (m *Model) scroll() {
	m.view.ScrollIntoView(view.VisibleBlasts(m.height))
}

func (m Model) pageStep() int {
	return state.PageStep(view.BodyHeight(m.height), view.LinesPerBlast)
}

func (m Model) View() string {
	f := m.frame()

	var body []string
	switch {
	case m.showHelp:
		for _, line := range strings.Split(m.help.FullHelpView(m.keys.FullHelp()), "\n") {
			body = append(body, " "+line)
		}
	case m.inDetail:
		body = view.DetailWindow(m.detailLines(), m.detailTop, view.BodyHeight(m.height))
	case m.window.Len() == 0:
		body = view.Placeholder(m.polling, m.theme)
	default:
		nodes := m.view.VisibleSlice(view.VisibleBlasts(m.height))
		body = view.RenderList(nodes, m.view.Current(), f, m.theme)
	}
	return view.Screen(f, body, m.theme)
}

func (m Model) frame() view.Frame {
	f := view.Frame{
		Width:        m.width,
		Height:       m.height,
		Now:          m.now,
		Status:       m.status,
		StatusWarn:   m.statusWarn,
		Help:         m.help.ShortHelpView(m.keys.ShortHelp()),
		Watermark:    actions.Watermark.Frames[m.spinFrame],
		StickToTop:   m.view.StickToTop(),
		LoadingOlder: m.polling && m.wantOlder,
		Exhausted:    m.olderExhausted,
		Loaded:       m.window.Len(),
	}
	if m.inDetail && !m.showHelp {
		f.Help = m.help.ShortHelpView(m.keys.DetailHelp())
		f.DetailPos = view.DetailPosition(m.detailTop, view.BodyHeight(m.height), len(m.detailLines()))
	}
	return f
}

// detailLines renders the selected blast for the detail pane.
func (m Model) detailLines() []string {
	b, ok := m.view.Selected()
	if !ok {
		return nil
	}
	return view.DetailLines(b, view.Frame{Width: m.width, Now: m.now}, view.Wrap, m.theme)
}

// Window is the loaded feed window. The caller owns it once the program
// has exited.
func (m Model) Window() *feed.Window {
	return m.window
}

func (m Model) State() *state.View {
	return m.view
}

func (m Model) Status() string {
	return m.status
}

// InDetail reports whether a blast is open in the detail pane.
func (m Model) InDetail() bool {
	return m.inDetail
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
