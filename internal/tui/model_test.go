package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glabrego/conch/internal/blast"
	"github.com/glabrego/conch/internal/poll"
	"github.com/glabrego/conch/internal/tui/actions"
	tuitheme "github.com/glabrego/conch/internal/tui/theme"
	"github.com/glabrego/conch/internal/tui/view"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type memSource struct {
	mu       sync.Mutex
	ids      []int64 // ascending
	err      error
	contents map[int64]string
}

func newMemSource(n int) *memSource {
	s := &memSource{}
	for id := int64(1); id <= int64(n); id++ {
		s.ids = append(s.ids, id)
	}
	return s
}

func (s *memSource) add(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, ids...)
}

func (s *memSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *memSource) blast(id int64) blast.Blast {
	content, ok := s.contents[id]
	if !ok {
		content = fmt.Sprintf("blast %d", id)
	}
	return blast.Blast{
		ID:       id,
		Author:   "hippo",
		Content:  content,
		PostedAt: fixedNow.Add(-time.Duration(id) * time.Minute),
	}
}

func (s *memSource) newestFirst(keep func(int64) bool, limit int) []blast.Blast {
	var out []blast.Blast
	for i := len(s.ids) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(s.ids[i]) {
			out = append(out, s.blast(s.ids[i]))
		}
	}
	return out
}

func (s *memSource) Recent(_ context.Context, limit int) ([]blast.Blast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.newestFirst(func(int64) bool { return true }, limit), nil
}

// After returns the oldest limit blasts past id, newest first.
func (s *memSource) After(_ context.Context, id int64, limit int) ([]blast.Blast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var asc []int64
	for _, x := range s.ids {
		if x > id && len(asc) < limit {
			asc = append(asc, x)
		}
	}
	out := make([]blast.Blast, 0, len(asc))
	for i := len(asc) - 1; i >= 0; i-- {
		out = append(out, s.blast(asc[i]))
	}
	return out, nil
}

func (s *memSource) Before(_ context.Context, id int64, limit int) ([]blast.Blast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.newestFirst(func(x int64) bool { return x < id }, limit), nil
}

type harness struct {
	t      *testing.T
	src    *memSource
	coord  *poll.Coordinator
	copied []string
}

func newHarness(t *testing.T, n int) *harness {
	t.Helper()
	src := newMemSource(n)
	return &harness{t: t, src: src}
}

func (h *harness) model(pageSize int, opts Options) Model {
	h.coord = poll.NewCoordinator(h.src, poll.Options{PageSize: pageSize, OlderEvery: -1})
	plain := tuitheme.Plain()
	opts.PageSize = pageSize
	opts.Theme = &plain
	opts.Now = func() time.Time { return fixedNow }
	if opts.Copy == nil {
		opts.Copy = func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		}
	}
	m := NewModel(h.coord, opts)
	return update(h.t, m, tea.WindowSizeMsg{Width: 80, Height: view.MinHeight + 3*view.LinesPerBlast})
}

// pollOnce runs the fetch the model would issue next and delivers its
// result.
func (h *harness) pollOnce(m Model) Model {
	h.t.Helper()
	req := poll.RequestFor(m.window, m.wantOlder && !m.olderExhausted)
	res := h.coord.Fetch(context.Background(), req)
	return update(h.t, m, actions.PollDoneMsg{Result: res})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func selectedID(t *testing.T, m Model) int64 {
	t.Helper()
	b, ok := m.State().Selected()
	require.True(t, ok)
	return b.ID
}

func TestModel_FirstPollPopulates(t *testing.T) {
	h := newHarness(t, 10)
	m := h.model(3, Options{})

	assert.Contains(t, ansi.Strip(m.View()), "Fetching blasts")

	m = h.pollOnce(m)
	assert.Equal(t, []int64{10, 9, 8}, m.Window().IDs())
	assert.Equal(t, int64(10), selectedID(t, m))
	assert.False(t, m.polling)
	assert.False(t, m.olderExhausted)

	out := ansi.Strip(m.View())
	assert.Contains(t, out, view.Title)
	assert.Contains(t, out, "hippo")
	assert.Contains(t, out, "#10")
	assert.Contains(t, out, "blast 10")
	assert.Contains(t, out, "3 blasts")
	assert.NotContains(t, out, "#7")
}

func TestModel_StickToTopFollowsNewBlasts(t *testing.T) {
	h := newHarness(t, 5)
	m := h.model(3, Options{StickToTop: true})
	m = h.pollOnce(m)
	require.Equal(t, int64(5), selectedID(t, m))

	h.src.add(6, 7)
	m = h.pollOnce(m)

	assert.Equal(t, []int64{7, 6, 5, 4, 3}, m.Window().IDs())
	assert.Equal(t, int64(7), selectedID(t, m))
	assert.Empty(t, m.Status())
}

func TestModel_SelectionStaysWithoutStickToTop(t *testing.T) {
	h := newHarness(t, 5)
	m := h.model(3, Options{})
	m = h.pollOnce(m)

	h.src.add(6, 7)
	m = h.pollOnce(m)

	assert.Equal(t, []int64{7, 6, 5, 4, 3}, m.Window().IDs())
	assert.Equal(t, int64(5), selectedID(t, m))
	assert.Equal(t, "2 new blasts", m.Status())
}

func TestModel_ReachingTailRequestsOlder(t *testing.T) {
	h := newHarness(t, 10)
	m := h.model(3, Options{})
	m = h.pollOnce(m)

	m, cmd := updateCmd(t, m, runeKey('j'))
	assert.Nil(t, cmd)
	assert.False(t, m.wantOlder)

	m, cmd = updateCmd(t, m, runeKey('j'))
	assert.NotNil(t, cmd)
	assert.True(t, m.wantOlder)
	assert.True(t, m.polling)
	assert.Contains(t, ansi.Strip(m.View()), "loading older")

	m = h.pollOnce(m)
	assert.Equal(t, []int64{10, 9, 8, 7, 6, 5}, m.Window().IDs())
	assert.Equal(t, int64(8), selectedID(t, m))
	assert.False(t, m.wantOlder)
	assert.False(t, m.olderExhausted)
}

func TestModel_PrefetchRequestsOlderEarly(t *testing.T) {
	h := newHarness(t, 10)
	m := h.model(3, Options{Prefetch: 1})
	m = h.pollOnce(m)

	m, cmd := updateCmd(t, m, runeKey('j'))
	assert.NotNil(t, cmd)
	assert.True(t, m.wantOlder)
}

func TestModel_ExhaustedFeedStopsAskingForOlder(t *testing.T) {
	h := newHarness(t, 2)
	m := h.model(3, Options{})
	m = h.pollOnce(m)
	require.True(t, m.olderExhausted)

	m, cmd := updateCmd(t, m, runeKey('j'))
	assert.Nil(t, cmd)
	assert.False(t, m.wantOlder)
	assert.Equal(t, int64(1), selectedID(t, m))
	assert.Contains(t, ansi.Strip(m.View()), "end of feed")
}

func TestModel_EmptyBeforePageExhausts(t *testing.T) {
	h := newHarness(t, 3)
	m := h.model(3, Options{})
	m = h.pollOnce(m)
	require.False(t, m.olderExhausted)

	m = update(t, m, runeKey('j'))
	m = update(t, m, runeKey('j'))
	require.True(t, m.wantOlder)

	m = h.pollOnce(m)
	assert.True(t, m.olderExhausted)
	assert.False(t, m.wantOlder)
	assert.Equal(t, []int64{3, 2, 1}, m.Window().IDs())
}

func TestModel_FetchErrorShowsWarningUntilCleanPoll(t *testing.T) {
	h := newHarness(t, 4)
	m := h.model(3, Options{})

	h.src.setErr(errors.New("connection refused"))
	m = h.pollOnce(m)
	assert.Equal(t, "fetch failed: fetch recent blasts: connection refused", m.Status())
	assert.True(t, m.statusWarn)
	assert.Equal(t, 0, m.Window().Len())
	assert.False(t, m.olderExhausted)
	assert.Contains(t, ansi.Strip(m.View()), "No blasts yet")

	h.src.setErr(nil)
	m = h.pollOnce(m)
	assert.Empty(t, m.Status())
	assert.False(t, m.statusWarn)
	assert.Equal(t, []int64{4, 3, 2}, m.Window().IDs())
}

func TestModel_StaleTicksAreIgnored(t *testing.T) {
	h := newHarness(t, 3)
	m := h.model(3, Options{})
	m = h.pollOnce(m)

	m, cmd := updateCmd(t, m, actions.TickMsg{ID: m.tickID - 1})
	assert.Nil(t, cmd)
	assert.False(t, m.polling)

	live := m.tickID
	m, cmd = updateCmd(t, m, actions.TickMsg{ID: live})
	assert.NotNil(t, cmd)
	assert.True(t, m.polling)

	// Starting a poll supersedes the tick that triggered it.
	m.polling = false
	_, cmd = updateCmd(t, m, actions.TickMsg{ID: live})
	assert.Nil(t, cmd)
}

func TestModel_RefreshSkippedWhilePolling(t *testing.T) {
	h := newHarness(t, 3)
	m := h.model(3, Options{})

	_, cmd := updateCmd(t, m, runeKey('r'))
	assert.Nil(t, cmd)

	m = h.pollOnce(m)
	m, cmd = updateCmd(t, m, runeKey('r'))
	assert.NotNil(t, cmd)
	assert.True(t, m.polling)
}

func TestModel_WatermarkFinishesRevolution(t *testing.T) {
	h := newHarness(t, 3)
	m := h.model(3, Options{})
	frames := len(actions.Watermark.Frames)

	var cmd tea.Cmd
	for i := 0; i < frames; i++ {
		m, cmd = updateCmd(t, m, actions.WatermarkMsg{})
		require.NotNil(t, cmd, "frame %d while polling", i)
	}
	assert.Equal(t, 0, m.spinFrame)

	m = h.pollOnce(m)
	for i := 1; i < frames; i++ {
		m, cmd = updateCmd(t, m, actions.WatermarkMsg{})
		require.NotNil(t, cmd, "frame %d after polling", i)
	}
	m, cmd = updateCmd(t, m, actions.WatermarkMsg{})
	assert.Nil(t, cmd)
	assert.False(t, m.spinning)
	assert.Equal(t, 0, m.spinFrame)

	_, cmd = updateCmd(t, m, actions.WatermarkMsg{})
	assert.Nil(t, cmd)
}

func TestModel_YankCopiesSelectedBlast(t *testing.T) {
	h := newHarness(t, 3)
	m := h.model(3, Options{})
	m = h.pollOnce(m)

	m, cmd := updateCmd(t, m, runeKey('y'))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, actions.YankMsg{ID: 3}, msg)
	assert.Equal(t, []string{"hippo: blast 3"}, h.copied)

	m = update(t, m, msg)
	assert.Equal(t, "copied blast #3", m.Status())
	assert.False(t, m.statusWarn)

	m = update(t, m, actions.ClearStatusMsg{ID: m.statusID})
	assert.Empty(t, m.Status())
}

func TestModel_YankFailureWarns(t *testing.T) {
	h := newHarness(t, 3)
	m := h.model(3, Options{Copy: func(string) error { return errors.New("no xclip") }})
	m = h.pollOnce(m)

	_, cmd := updateCmd(t, m, runeKey('y'))
	require.NotNil(t, cmd)
	m = update(t, m, cmd())
	assert.Equal(t, "copy failed: no xclip", m.Status())
	assert.True(t, m.statusWarn)
}

func TestModel_StaleClearStatusKeepsNewerStatus(t *testing.T) {
	h := newHarness(t, 3)
	m := h.model(3, Options{})
	m = h.pollOnce(m)

	m = update(t, m, runeKey('s'))
	first := m.statusID
	m = update(t, m, runeKey('s'))
	assert.Equal(t, "stick to top off", m.Status())

	m = update(t, m, actions.ClearStatusMsg{ID: first})
	assert.Equal(t, "stick to top off", m.Status())
}

func TestModel_ToggleStickToTop(t *testing.T) {
	h := newHarness(t, 3)
	m := h.model(3, Options{})
	m = h.pollOnce(m)
	require.False(t, m.State().StickToTop())

	m = update(t, m, runeKey('s'))
	assert.True(t, m.State().StickToTop())
	assert.Equal(t, "stick to top on", m.Status())
	assert.Contains(t, ansi.Strip(m.View()), "stick to top")
}

func TestModel_PagingAndJumpToTop(t *testing.T) {
	h := newHarness(t, 20)
	m := h.model(20, Options{})
	m = h.pollOnce(m)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	assert.Equal(t, int64(17), selectedID(t, m))
	assert.Equal(t, 1, m.State().Offset())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	assert.Equal(t, int64(20), selectedID(t, m))
	assert.Equal(t, 0, m.State().Offset())

	m = update(t, m, runeKey('j'))
	m = update(t, m, runeKey('j'))
	m = update(t, m, runeKey('g'))
	assert.Equal(t, int64(20), selectedID(t, m))
	assert.True(t, m.State().AtTop())
}

func TestModel_HelpSwallowsNavigation(t *testing.T) {
	h := newHarness(t, 5)
	m := h.model(3, Options{})
	m = h.pollOnce(m)

	m = update(t, m, runeKey('?'))
	assert.Contains(t, ansi.Strip(m.View()), "page down")

	m = update(t, m, runeKey('j'))
	assert.Equal(t, int64(5), selectedID(t, m))

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, ansi.Strip(m.View()), "page down")
	assert.Contains(t, ansi.Strip(m.View()), "#5")
}

func TestModel_Quit(t *testing.T) {
	h := newHarness(t, 1)
	m := h.model(3, Options{})

	_, cmd := updateCmd(t, m, runeKey('q'))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_TooSmall(t *testing.T) {
	h := newHarness(t, 3)
	m := h.model(3, Options{})
	m = h.pollOnce(m)

	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: view.MinHeight - 1})
	assert.Equal(t, view.TooSmallText, m.View())
}

func TestModel_ViewFitsTerminal(t *testing.T) {
	h := newHarness(t, 10)
	m := h.model(10, Options{})
	m = h.pollOnce(m)

	lines := strings.Split(m.View(), "\n")
	assert.Len(t, lines, view.MinHeight+3*view.LinesPerBlast)
	for i, line := range lines {
		assert.LessOrEqual(t, ansi.StringWidth(line), 80, "line %d", i)
	}
}

func TestModel_EmptyFeedAtStartupStillPagesOlder(t *testing.T) {
	h := newHarness(t, 0)
	m := h.model(3, Options{})
	m = h.pollOnce(m)
	require.Equal(t, 0, m.Window().Len())
	assert.False(t, m.olderExhausted)

	h.src.add(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	m = h.pollOnce(m)
	require.Equal(t, []int64{10, 9, 8}, m.Window().IDs())
	assert.False(t, m.olderExhausted)

	for i := 0; i < 20 && !m.olderExhausted; i++ {
		m = update(t, m, runeKey('j'))
		if m.polling {
			m = h.pollOnce(m)
		}
	}
	assert.Equal(t, []int64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, m.Window().IDs())
	assert.True(t, m.olderExhausted)
	assert.Equal(t, int64(1), selectedID(t, m))
}

func TestModel_OlderWantedDuringPollIsFetchedWhenItLands(t *testing.T) {
	h := newHarness(t, 10)
	m := h.model(3, Options{})
	m = h.pollOnce(m)

	m, cmd := updateCmd(t, m, actions.TickMsg{ID: m.tickID})
	require.NotNil(t, cmd)
	require.True(t, m.polling)
	inFlight := poll.RequestFor(m.window, false)

	m = update(t, m, runeKey('j'))
	m, cmd = updateCmd(t, m, runeKey('j'))
	assert.Nil(t, cmd)
	require.True(t, m.wantOlder)

	res := h.coord.Fetch(context.Background(), inFlight)
	m, cmd = updateCmd(t, m, actions.PollDoneMsg{Result: res})
	assert.NotNil(t, cmd)
	assert.True(t, m.polling)
	assert.True(t, m.wantOlder)

	m = h.pollOnce(m)
	assert.Equal(t, []int64{10, 9, 8, 7, 6, 5}, m.Window().IDs())
	assert.False(t, m.wantOlder)
}

func TestModel_NextPollDelay(t *testing.T) {
	h := newHarness(t, 3)
	m := h.model(3, Options{PollInterval: time.Hour})
	throttled := poll.Result{Request: poll.Request{HasHead: true, WantOlder: true}}

	assert.Equal(t, time.Hour, m.nextPollDelay(throttled))

	m.wantOlder = true
	assert.Equal(t, olderRetry, m.nextPollDelay(throttled))

	asked := throttled
	asked.OlderAsked = true
	asked.OlderErr = errors.New("timeout")
	assert.Equal(t, time.Hour, m.nextPollDelay(asked))

	m.olderExhausted = true
	assert.Equal(t, time.Hour, m.nextPollDelay(throttled))
}

func TestModel_DetailShowsWholeBlast(t *testing.T) {
	h := newHarness(t, 3)
	h.src.contents = map[int64]string{
		3: strings.Repeat("lorem ipsum dolor ", 30) + "\n\nsecond paragraph",
	}
	m := h.model(3, Options{})
	m = h.pollOnce(m)
	require.NotContains(t, ansi.Strip(m.View()), "second paragraph")

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.InDetail())
	out := ansi.Strip(m.View())
	assert.Contains(t, out, "Blast: #3")
	assert.Contains(t, out, "lines 1-6 of")
	assert.Contains(t, out, "back")

	for i := 0; i < 5; i++ {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})
	}
	out = ansi.Strip(m.View())
	assert.Contains(t, out, "second paragraph")
	assert.Equal(t, int64(3), selectedID(t, m))
	for i, line := range strings.Split(m.View(), "\n") {
		assert.LessOrEqual(t, ansi.StringWidth(line), 80, "line %d", i)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.InDetail())
	assert.Equal(t, 0, m.detailTop)
	assert.Contains(t, ansi.Strip(m.View()), "3 blasts")
}

func TestModel_DetailScrollKeepsSelection(t *testing.T) {
	h := newHarness(t, 3)
	h.src.contents = map[int64]string{3: strings.Repeat("word ", 200)}
	m := h.model(3, Options{})
	m = h.pollOnce(m)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = update(t, m, runeKey('j'))
	assert.Equal(t, 1, m.detailTop)
	assert.Equal(t, int64(3), selectedID(t, m))

	m = update(t, m, runeKey('k'))
	m = update(t, m, runeKey('k'))
	assert.Equal(t, 0, m.detailTop)
}

func TestModel_DetailShortBlastDoesNotScroll(t *testing.T) {
	h := newHarness(t, 3)
	m := h.model(3, Options{})
	m = h.pollOnce(m)
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 20})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = update(t, m, runeKey('j'))
	m = update(t, m, runeKey('j'))
	assert.Equal(t, 0, m.detailTop)
	assert.Equal(t, int64(3), selectedID(t, m))
	assert.Contains(t, ansi.Strip(m.View()), "all")
}

func TestModel_DetailNeighbours(t *testing.T) {
	h := newHarness(t, 10)
	m := h.model(3, Options{})
	m = h.pollOnce(m)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = update(t, m, runeKey(']'))
	assert.Equal(t, int64(9), selectedID(t, m))
	assert.Contains(t, ansi.Strip(m.View()), "Blast: #9")

	m = update(t, m, runeKey('['))
	assert.Equal(t, int64(10), selectedID(t, m))

	m = update(t, m, runeKey(']'))
	m, cmd := updateCmd(t, m, runeKey(']'))
	assert.Equal(t, int64(8), selectedID(t, m))
	assert.NotNil(t, cmd)
	assert.True(t, m.wantOlder)
	assert.True(t, m.InDetail())
}

func TestModel_OpenWithNothingLoaded(t *testing.T) {
	h := newHarness(t, 0)
	m := h.model(3, Options{})
	m = h.pollOnce(m)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.InDetail())
}
