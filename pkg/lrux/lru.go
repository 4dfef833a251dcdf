package lrux

import (
	"container/list"
	"sync"
)

type Mode uint8

const (
	// LRU evicts the least recently touched evictable slot.
	LRU Mode = iota
	// MRU evicts the most recently touched evictable slot.
	MRU
)

type node struct {
	id        int
	evictable bool
}

// List tracks slot IDs [0..capacity) in recency order; front is most recent.
type List struct {
	mu       sync.Mutex
	mode     Mode
	capacity int
	order    *list.List
	elems    map[int]*list.Element
	size     int // number of evictable slots
}

func New(capacity int, mode Mode) *List {
	if capacity <= 0 {
		capacity = 1
	}
	return &List{
		mode:     mode,
		capacity: capacity,
		order:    list.New(),
		elems:    make(map[int]*list.Element, capacity),
	}
}

func (l *List) Capacity() int { return l.capacity }

// Touch moves slot to the front, tracking it if needed.
func (l *List) Touch(id int) {
	if id < 0 || id >= l.capacity {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.elems[id]; ok {
		l.order.MoveToFront(e)
		return
	}
	l.elems[id] = l.order.PushFront(&node{id: id})
}

func (l *List) SetEvictable(id int, evictable bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.elems[id]
	if !ok {
		return
	}
	n := e.Value.(*node)
	if n.evictable == evictable {
		return
	}
	n.evictable = evictable
	if evictable {
		l.size++
	} else {
		l.size--
	}
}

// Evict picks a victim according to the mode and stops tracking it.
func (l *List) Evict() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.size == 0 {
		return -1, false
	}

	e := l.order.Back()
	step := (*list.Element).Prev
	if l.mode == MRU {
		e = l.order.Front()
		step = (*list.Element).Next
	}
	for ; e != nil; e = step(e) {
		n := e.Value.(*node)
		if !n.evictable {
			continue
		}
		l.order.Remove(e)
		delete(l.elems, n.id)
		l.size--
		return n.id, true
	}
	return -1, false
}

func (l *List) Remove(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.elems[id]
	if !ok {
		return
	}
	if e.Value.(*node).evictable {
		l.size--
	}
	l.order.Remove(e)
	delete(l.elems, id)
}

func (l *List) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Len is the number of tracked slots, evictable or not.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}
