package state

import (
	"github.com/glabrego/conch/internal/blast"
	"github.com/glabrego/conch/internal/feed"
)

// View tracks which blast is selected and how far the list is scrolled. It
// holds a non-owning reference to the window; the window's owner must keep
// it alive while the view uses it.
//
// The selection is a node reference, not an index, so it stays on the same
// blast when newer blasts are prepended in front of it.
type View struct {
	head       *feed.Window
	current    *feed.Node
	offset     int
	stickToTop bool
}

func New(stickToTop bool) *View {
	return &View{stickToTop: stickToTop}
}

// Update points the view at w. The selection is set to w's head only when
// nothing was selected yet, or when w is a different list that does not
// link the selected node; otherwise it is left on the node it already
// referenced. An empty window clears the selection.
func (v *View) Update(w *feed.Window) {
	if w.Head() == nil {
		v.head = nil
		v.current = nil
		v.offset = 0
		return
	}
	if v.current != nil && v.head != w && !w.Contains(v.current) {
		// A different list that does not hold the selected node.
		v.current = nil
	}
	v.head = w
	if v.current == nil {
		v.current = w.Head()
	}
	v.offset = ClampOffset(v.offset, w.Len())
}

// SelectNext moves the selection one blast older. It reports whether the
// selection now sits on the oldest loaded blast.
func (v *View) SelectNext() bool {
	if v.current == nil {
		return false
	}
	if next := v.current.Next(); next != nil {
		v.current = next
	}
	return v.current.Next() == nil
}

// SelectPrev moves the selection one blast newer.
func (v *View) SelectPrev() {
	if v.current == nil {
		return
	}
	if prev := v.current.Prev(); prev != nil {
		v.current = prev
	}
}

// PageDown moves the selection up to n blasts older and reports whether it
// reached the tail.
func (v *View) PageDown(n int) bool {
	atTail := v.current != nil && v.current.Next() == nil
	for i := 0; i < n; i++ {
		if atTail = v.SelectNext(); atTail {
			break
		}
	}
	return atTail
}

// PageUp moves the selection up to n blasts newer.
func (v *View) PageUp(n int) {
	for i := 0; i < n && v.current.Prev() != nil; i++ {
		v.SelectPrev()
	}
}

func (v *View) JumpToTop() {
	if v.head.Head() == nil {
		return
	}
	v.current = v.head.Head()
	v.offset = 0
}

func (v *View) ToggleStickToTop() {
	v.stickToTop = !v.stickToTop
}

// VisibleSlice returns up to height nodes starting offset nodes below the
// head. It does not modify the view.
func (v *View) VisibleSlice(height int) []*feed.Node {
	if height <= 0 || v.head.Head() == nil {
		return nil
	}
	n := v.head.Head()
	for i := 0; i < v.offset && n.Next() != nil; i++ {
		n = n.Next()
	}
	out := make([]*feed.Node, 0, min(height, v.head.Len()))
	for ; n != nil && len(out) < height; n = n.Next() {
		out = append(out, n)
	}
	return out
}

// ScrollIntoView adjusts the offset so the selection is one of the height
// visible nodes.
func (v *View) ScrollIntoView(height int) {
	if v.current == nil || height <= 0 {
		v.offset = 0
		return
	}
	pos := v.head.Position(v.current)
	if pos < 0 {
		return
	}
	if pos < v.offset {
		v.offset = pos
	}
	if pos >= v.offset+height {
		v.offset = pos - height + 1
	}
	v.offset = ClampOffset(v.offset, v.head.Len())
}

// AtTop reports whether the selection is on the newest loaded blast.
func (v *View) AtTop() bool {
	return v.current != nil && v.current == v.head.Head()
}

// NearTail reports whether the selection is within distance blasts of the
// oldest loaded blast, which is when older blasts should be requested.
func (v *View) NearTail(distance int) bool {
	if v.current == nil {
		return false
	}
	n := v.current
	for i := 0; i < distance && n.Next() != nil; i++ {
		n = n.Next()
	}
	return n.Next() == nil
}

// Selected returns the selected blast and whether there is one.
func (v *View) Selected() (blast.Blast, bool) {
	if v.current == nil {
		return blast.Blast{}, false
	}
	return v.current.Blast(), true
}

func (v *View) Current() *feed.Node   { return v.current }
func (v *View) Window() *feed.Window  { return v.head }
func (v *View) Offset() int           { return v.offset }
func (v *View) StickToTop() bool      { return v.stickToTop }
func (v *View) SetStickToTop(on bool) { v.stickToTop = on }

// ClampOffset keeps a scroll offset within [0, size-1].
func ClampOffset(offset, size int) int {
	if size <= 0 {
		return 0
	}
	if offset >= size {
		return size - 1
	}
	if offset < 0 {
		return 0
	}
	return offset
}

// PageStep is how many blasts a page jump moves given the list body height
// and the lines each blast takes.
func PageStep(bodyHeight, linesPerBlast int) int {
	if linesPerBlast < 1 {
		linesPerBlast = 1
	}
	if bodyHeight <= 0 {
		return 10
	}
	step := bodyHeight / linesPerBlast
	if step < 1 {
		step = 1
	}
	return step
}
