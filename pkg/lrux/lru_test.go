package lrux

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fill(l *List, ids ...int) {
	for _, id := range ids {
		l.Touch(id)
		l.SetEvictable(id, true)
	}
}

func TestList_LRUOrder(t *testing.T) {
	l := New(4, LRU)
	fill(l, 0, 1, 2)
	require.Equal(t, 3, l.Size())

	// 0 becomes most recent
	l.Touch(0)

	v, ok := l.Evict()
	require.True(t, ok)
	require.Equal(t, 1, v)

	v, ok = l.Evict()
	require.True(t, ok)
	require.Equal(t, 2, v)

	v, ok = l.Evict()
	require.True(t, ok)
	require.Equal(t, 0, v)

	_, ok = l.Evict()
	require.False(t, ok)
	require.Equal(t, 0, l.Len())
}

func TestList_MRUOrder(t *testing.T) {
	l := New(4, MRU)
	fill(l, 0, 1, 2)

	v, ok := l.Evict()
	require.True(t, ok)
	require.Equal(t, 2, v)

	l.Touch(0)
	v, ok = l.Evict()
	require.True(t, ok)
	require.Equal(t, 0, v)
}

func TestList_SkipsPinned(t *testing.T) {
	l := New(3, LRU)
	fill(l, 0, 1)
	l.SetEvictable(0, false)
	require.Equal(t, 1, l.Size())

	v, ok := l.Evict()
	require.True(t, ok)
	require.Equal(t, 1, v)

	_, ok = l.Evict()
	require.False(t, ok)
	require.Equal(t, 1, l.Len())
}

func TestList_RemoveAndBounds(t *testing.T) {
	l := New(2, LRU)
	fill(l, 0, 1)

	l.Remove(0)
	l.Remove(0)
	require.Equal(t, 1, l.Size())

	l.Touch(-1)
	l.Touch(2)
	l.SetEvictable(5, true)
	require.Equal(t, 1, l.Len())
	require.Equal(t, 2, l.Capacity())
}

func TestNew_DefaultCapacity(t *testing.T) {
	l := New(0, LRU)
	require.Equal(t, 1, l.Capacity())
}
