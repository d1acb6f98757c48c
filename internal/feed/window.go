// Package feed holds the in-memory window of loaded blasts.
//
// A Window is a doubly linked list ordered newest (head) to oldest (tail).
// Walking from the head via Next visits strictly decreasing ids as long as
// callers only prepend newer batches and append older ones. Nodes are never
// copied or mutated once linked, so a *Node held elsewhere keeps identifying
// the same blast across merges.
//
// A nil *Window is the empty window. Every function and method accepts it.
package feed

import (
	"iter"

	"github.com/glabrego/conch/internal/blast"
)

// Node wraps one blast and its neighbours. Next points toward older blasts,
// Prev toward newer ones.
type Node struct {
	blast blast.Blast
	prev  *Node
	next  *Node
}

func (n *Node) Blast() blast.Blast {
	return n.blast
}

func (n *Node) ID() int64 {
	return n.blast.ID
}

// Next returns the next older node, or nil at the tail.
func (n *Node) Next() *Node {
	if n == nil {
		return nil
	}
	return n.next
}

// Prev returns the next newer node, or nil at the head.
func (n *Node) Prev() *Node {
	if n == nil {
		return nil
	}
	return n.prev
}

// Window is the ordered list of loaded blasts.
type Window struct {
	head   *Node
	tail   *Node
	length int
}

// Empty returns the empty window.
func Empty() *Window {
	return nil
}

// FromBatch links a newest-first batch into a window. The head is batch[0]
// and the tail is the last element. An empty batch yields the empty window.
func FromBatch(batch []blast.Blast) *Window {
	if len(batch) == 0 {
		return nil
	}
	w := &Window{}
	for _, b := range batch {
		n := &Node{blast: b, prev: w.tail}
		if w.tail == nil {
			w.head = n
		} else {
			w.tail.next = n
		}
		w.tail = n
		w.length++
	}
	return w
}

// PrependNewer splices a newest-first batch of newer blasts in front of w.
// Only the batch is walked; w's existing nodes are relinked at the boundary
// and nowhere else. It returns w, or the batch window when w is empty.
func PrependNewer(w *Window, batch []blast.Blast) *Window {
	if len(batch) == 0 {
		return w
	}
	newer := FromBatch(batch)
	if w == nil {
		return newer
	}
	newer.tail.next = w.head
	w.head.prev = newer.tail
	w.head = newer.head
	w.length += newer.length
	newer.head, newer.tail, newer.length = nil, nil, 0
	return w
}

// AppendOlder splices a newest-first batch of older blasts after w's tail.
// It returns w, or the batch window when w is empty.
func AppendOlder(w *Window, batch []blast.Blast) *Window {
	if len(batch) == 0 {
		return w
	}
	return Join(w, FromBatch(batch))
}

// Join links rhs after lhs and returns lhs. rhs's nodes now belong to lhs
// and rhs is left empty. If either side is empty the other is returned
// unchanged. Join does not check ids; lhs must hold the newer blasts.
func Join(lhs, rhs *Window) *Window {
	if lhs == nil || lhs.head == nil {
		return rhs
	}
	if rhs == nil || rhs.head == nil {
		return lhs
	}
	lhs.tail.next = rhs.head
	rhs.head.prev = lhs.tail
	lhs.tail = rhs.tail
	lhs.length += rhs.length
	rhs.head, rhs.tail, rhs.length = nil, nil, 0
	return lhs
}

// Release unlinks every node so stale references cannot walk the list.
func (w *Window) Release() {
	if w == nil {
		return
	}
	for n := w.head; n != nil; {
		next := n.next
		n.prev, n.next = nil, nil
		n = next
	}
	w.head, w.tail, w.length = nil, nil, 0
}

// Head returns the newest loaded node.
func (w *Window) Head() *Node {
	if w == nil {
		return nil
	}
	return w.head
}

// Tail returns the oldest loaded node.
func (w *Window) Tail() *Node {
	if w == nil {
		return nil
	}
	return w.tail
}

func (w *Window) Len() int {
	if w == nil {
		return 0
	}
	return w.length
}

// HeadID returns the id of the head blast and whether one exists.
func (w *Window) HeadID() (int64, bool) {
	if w.Head() == nil {
		return 0, false
	}
	return w.head.blast.ID, true
}

// TailID returns the id of the tail blast and whether one exists.
func (w *Window) TailID() (int64, bool) {
	if w.Tail() == nil {
		return 0, false
	}
	return w.tail.blast.ID, true
}

// Walk yields nodes from head to tail.
func (w *Window) Walk() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for n := w.Head(); n != nil; n = n.next {
			if !yield(n) {
				return
			}
		}
	}
}

// IDs returns the blast ids from head to tail.
func (w *Window) IDs() []int64 {
	ids := make([]int64, 0, w.Len())
	for n := range w.Walk() {
		ids = append(ids, n.blast.ID)
	}
	return ids
}

// Position returns how many nodes separate target from the head, or -1 if
// target is not in w.
func (w *Window) Position(target *Node) int {
	if target == nil {
		return -1
	}
	pos := 0
	for n := range w.Walk() {
		if n == target {
			return pos
		}
		pos++
	}
	return -1
}

// Contains reports whether target is linked into w.
func (w *Window) Contains(target *Node) bool {
	return w.Position(target) >= 0
}
