package list

import "iter"

// IntoIter owns a list and drains it front to back.
type IntoIter[T any] struct {
	list List[T]
}

// IntoIter moves all elements of l into a new consuming iterator.
// l is left empty.
func (l *List[T]) IntoIter() *IntoIter[T] {
	it := &IntoIter[T]{}
	it.list.head = l.head.take()
	l.mods++

	return it
}

// Next pops the next element off the owned list.
func (it *IntoIter[T]) Next() (T, bool) { //nolint:ireturn
	return it.list.Pop()
}

// All returns an iterator that drains the remaining elements.
func (it *IntoIter[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			val, ok := it.Next()
			if !ok || !yield(val) {
				return
			}
		}
	}
}

// Iter is a read-only cursor over a list.
type Iter[T any] struct {
	src  *List[T]
	mods uint64
	next *node[T]
}

// Iter returns a read-only cursor positioned at the front of l.
func (l *List[T]) Iter() *Iter[T] {
	return &Iter[T]{src: l, mods: l.mods, next: l.head.n}
}

// Next returns the current value and advances the cursor.
// It panics with [ErrConcurrentModification] if the list was pushed, popped,
// or dropped since the cursor was created.
func (it *Iter[T]) Next() (T, bool) { //nolint:ireturn
	if it.next == nil {
		var zero T
		return zero, false
	}

	if it.src.mods != it.mods {
		panic(ErrConcurrentModification)
	}

	n := it.next
	it.next = n.next.n

	return n.val, true
}

// IterMut is a cursor yielding one writable element at a time.
type IterMut[T any] struct {
	src  *List[T]
	mods uint64
	next *node[T]
}

// IterMut returns a writable cursor positioned at the front of l.
func (l *List[T]) IterMut() *IterMut[T] {
	return &IterMut[T]{src: l, mods: l.mods, next: l.head.n}
}

// Next returns a pointer to the current value and advances the cursor.
// It returns nil once the list is exhausted.
func (it *IterMut[T]) Next() *T {
	n := it.next
	it.next = nil

	if n == nil {
		return nil
	}

	if it.src.mods != it.mods {
		panic(ErrConcurrentModification)
	}

	it.next = n.next.n

	return &n.val
}

// All returns an iterator over all elements of the list, front to back.
func (l *List[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		it := l.Iter()
		for {
			val, ok := it.Next()
			if !ok || !yield(val) {
				return
			}
		}
	}
}

// Mutable returns an iterator over pointers to all elements of the list,
// front to back.
func (l *List[T]) Mutable() iter.Seq[*T] {
	return func(yield func(*T) bool) {
		it := l.IterMut()
		for p := it.Next(); p != nil; p = it.Next() {
			if !yield(p) {
				return
			}
		}
	}
}
