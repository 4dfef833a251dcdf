package bufferpool

import (
	"github.com/tuannm99/novaspage/pkg/clockx"
	"github.com/tuannm99/novaspage/pkg/lrux"
)

var (
	_ Replacer = (*clockAdapter)(nil)
	_ Replacer = (*lruAdapter)(nil)
)

type clockAdapter struct {
	c *clockx.Clock
}

func newClockAdapter(capacity int) Replacer {
	return &clockAdapter{c: clockx.New(capacity)}
}

func (a *clockAdapter) RecordAccess(frameID int)         { a.c.Touch(frameID) }
func (a *clockAdapter) SetEvictable(frameID int, e bool) { a.c.SetEvictable(frameID, e) }
func (a *clockAdapter) Evict() (int, bool)               { return a.c.Evict() }
func (a *clockAdapter) Remove(frameID int)               { a.c.Remove(frameID) }
func (a *clockAdapter) Size() int                        { return a.c.Size() }

// lruAdapter serves both LRU and MRU; the list decides which end to evict from.
type lruAdapter struct {
	l *lrux.List
}

func newLRUAdapter(capacity int, mode lrux.Mode) Replacer {
	return &lruAdapter{l: lrux.New(capacity, mode)}
}

func (a *lruAdapter) RecordAccess(frameID int)         { a.l.Touch(frameID) }
func (a *lruAdapter) SetEvictable(frameID int, e bool) { a.l.SetEvictable(frameID, e) }
func (a *lruAdapter) Evict() (int, bool)               { return a.l.Evict() }
func (a *lruAdapter) Remove(frameID int)               { a.l.Remove(frameID) }
func (a *lruAdapter) Size() int                        { return a.l.Size() }
