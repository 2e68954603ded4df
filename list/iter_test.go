package list_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/percona/percona-linkstack/list"
)

func newList(vals ...int) *list.List[int] {
	l := list.New[int]()
	for _, v := range vals {
		l.Push(v)
	}

	return l
}

func TestIntoIter(t *testing.T) {
	t.Parallel()

	t.Run("next", func(t *testing.T) {
		t.Parallel()

		it := newList(1, 2, 3).IntoIter()

		for _, expected := range []int{3, 2, 1} {
			val, ok := it.Next()
			require.True(t, ok)
			assert.Equal(t, expected, val)
		}

		_, ok := it.Next()
		assert.False(t, ok)
	})

	t.Run("source is emptied", func(t *testing.T) {
		t.Parallel()

		l := newList(1, 2, 3)
		it := l.IntoIter()

		assert.True(t, l.IsEmpty())

		l.Push(10)
		assert.Equal(t, []int{3, 2, 1}, slices.Collect(it.All()))
		requirePop(t, l, 10)
	})

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		vals := []int{5, 8, 13, 21, 34, 55}
		got := slices.Collect(newList(vals...).IntoIter().All())

		expected := slices.Clone(vals)
		slices.Reverse(expected)
		assert.Equal(t, expected, got)
	})

	t.Run("early stop keeps the rest", func(t *testing.T) {
		t.Parallel()

		it := newList(1, 2, 3).IntoIter()
		for val := range it.All() {
			if val == 2 {
				break
			}
		}

		val, ok := it.Next()
		require.True(t, ok)
		assert.Equal(t, 1, val)
	})
}

func TestIter(t *testing.T) {
	t.Parallel()

	t.Run("next", func(t *testing.T) {
		t.Parallel()

		l := newList(1, 2, 3)
		it := l.Iter()

		for _, expected := range []int{3, 2, 1} {
			val, ok := it.Next()
			require.True(t, ok)
			assert.Equal(t, expected, val)
		}

		_, ok := it.Next()
		assert.False(t, ok)

		requirePop(t, l, 3)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		_, ok := list.New[int]().Iter().Next()
		assert.False(t, ok)
		assert.Empty(t, slices.Collect(list.New[int]().All()))
	})

	t.Run("concurrent readers", func(t *testing.T) {
		t.Parallel()

		l := newList(1, 2, 3)
		a, b := l.Iter(), l.Iter()

		va, _ := a.Next()
		vb, _ := b.Next()
		assert.Equal(t, va, vb)

		va, _ = a.Next()
		assert.Equal(t, 2, va)

		vb, _ = b.Next()
		assert.Equal(t, 2, vb)
	})

	t.Run("fresh sequence per call", func(t *testing.T) {
		t.Parallel()

		l := newList(1, 2, 3)
		assert.Equal(t, []int{3, 2, 1}, slices.Collect(l.All()))
		assert.Equal(t, []int{3, 2, 1}, slices.Collect(l.All()))
		assert.Equal(t, 3, l.Len())
	})

	t.Run("panics after structural change", func(t *testing.T) {
		t.Parallel()

		l := newList(1, 2, 3)
		it := l.Iter()
		it.Next()

		l.Pop()

		assert.PanicsWithValue(t, list.ErrConcurrentModification, func() { it.Next() })
	})

	t.Run("in-place writes keep cursor valid", func(t *testing.T) {
		t.Parallel()

		l := newList(1, 2, 3)
		it := l.Iter()
		it.Next()

		*l.PeekMut() = 30

		val, ok := it.Next()
		require.True(t, ok)
		assert.Equal(t, 2, val)
	})
}

func TestIterMut(t *testing.T) {
	t.Parallel()

	t.Run("increment all", func(t *testing.T) {
		t.Parallel()

		l := newList(1, 2, 3)

		it := l.IterMut()
		for p := it.Next(); p != nil; p = it.Next() {
			*p++
		}

		assert.Nil(t, it.Next())
		assert.Equal(t, []int{4, 3, 2}, slices.Collect(l.IntoIter().All()))
	})

	t.Run("range", func(t *testing.T) {
		t.Parallel()

		l := newList(10, 20, 30)
		for p := range l.Mutable() {
			*p *= 2
		}

		assert.Equal(t, []int{60, 40, 20}, slices.Collect(l.All()))
	})

	t.Run("early stop", func(t *testing.T) {
		t.Parallel()

		l := newList(1, 2, 3)
		for p := range l.Mutable() {
			*p = 0

			break
		}

		assert.Equal(t, []int{0, 2, 1}, slices.Collect(l.All()))
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		it := list.New[int]().IterMut()
		assert.Nil(t, it.Next())
		assert.Nil(t, it.Next())
	})

	t.Run("panics after structural change", func(t *testing.T) {
		t.Parallel()

		l := newList(1, 2)
		it := l.IterMut()
		it.Next()

		l.Push(3)

		assert.PanicsWithValue(t, list.ErrConcurrentModification, func() { it.Next() })
	})
}
