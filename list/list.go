package list

import "github.com/percona/percona-linkstack/errors"

// ErrConcurrentModification is the panic value raised when a cursor is
// advanced after its source list was structurally modified.
var ErrConcurrentModification = errors.New("list modified during iteration")

// List is a singly linked stack. The zero value is an empty list.
type List[T any] struct {
	head link[T]
	mods uint64
}

// node is a heap cell holding one value and the link to its successor.
type node[T any] struct {
	val  T
	next link[T]
}

// link is either empty or the sole owner of the next node.
type link[T any] struct {
	n *node[T]
}

// take moves the node out of l and leaves l empty.
func (l *link[T]) take() link[T] {
	taken := *l
	l.n = nil

	return taken
}

func (l link[T]) empty() bool {
	return l.n == nil
}

// New returns an empty list.
func New[T any]() *List[T] {
	return &List[T]{}
}

// Push adds val to the front of the list.
func (l *List[T]) Push(val T) {
	n := &node[T]{val: val, next: l.head.take()}
	l.head = link[T]{n: n}
	l.mods++
}

// Pop removes and returns the front value.
// It returns false if the list is empty.
func (l *List[T]) Pop() (T, bool) { //nolint:ireturn
	head := l.head.take()
	if head.empty() {
		var zero T
		return zero, false
	}

	l.head = head.n.next.take()
	l.mods++

	return head.n.val, true
}

// Peek returns the front value without removing it.
func (l *List[T]) Peek() (T, bool) { //nolint:ireturn
	if l.head.empty() {
		var zero T
		return zero, false
	}

	return l.head.n.val, true
}

// PeekMut returns a pointer to the front value for in-place updates, or nil if
// the list is empty. The pointer must not be used after the next Push or Pop.
func (l *List[T]) PeekMut() *T {
	if l.head.empty() {
		return nil
	}

	return &l.head.n.val
}

// IsEmpty checks if the list is empty.
func (l *List[T]) IsEmpty() bool {
	return l.head.empty()
}

// Len walks the list and returns the number of elements.
func (l *List[T]) Len() int {
	count := 0
	for cur := l.head; !cur.empty(); cur = cur.n.next {
		count++
	}

	return count
}

// Drop releases every node of the list one at a time.
//
// Each detached node has its successor link severed before it is discarded,
// so teardown runs in a loop with constant stack depth regardless of length.
// The list is empty and reusable afterwards.
func (l *List[T]) Drop() {
	cur := l.head.take()
	for !cur.empty() {
		cur = cur.n.next.take()
	}

	l.mods++
}

// Clear removes all elements from the list. It is the same as [List.Drop].
func (l *List[T]) Clear() {
	l.Drop()
}
