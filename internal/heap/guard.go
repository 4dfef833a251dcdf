package heap

import (
	"github.com/tuannm99/novaspage/internal/storage"
)

// pageGuard owns one pin. release runs at most once, so a deferred release
// after an explicit one is harmless.
type pageGuard struct {
	pf    PagedFile
	num   int32
	page  *storage.Page
	dirty bool
	held  bool
}

// wrap takes ownership of a pin the caller just obtained on num.
func wrap(pf PagedFile, num int32, buf []byte) (*pageGuard, error) {
	p, err := storage.NewPage(buf)
	if err != nil {
		_ = pf.UnfixPage(num, false)
		return nil, err
	}
	return &pageGuard{pf: pf, num: num, page: p, held: true}, nil
}

func (g *pageGuard) markDirty() {
	g.dirty = true
}

func (g *pageGuard) release() error {
	if !g.held {
		return nil
	}
	g.held = false
	g.page = nil
	return g.pf.UnfixPage(g.num, g.dirty)
}

// releaseInto is meant for defer: the unpin error surfaces only when the
// function is otherwise succeeding.
func (g *pageGuard) releaseInto(errp *error) {
	if err := g.release(); err != nil && *errp == nil {
		*errp = err
	}
}

// pin fetches page num and hands back its guard.
func (f *File) pin(num int32) (*pageGuard, error) {
	buf, err := f.pf.GetThisPage(num)
	if err != nil {
		return nil, err
	}
	return wrap(f.pf, num, buf)
}

// withPage runs fn with page num pinned and always unpins afterwards, dirty
// only when fn succeeded and asked for it.
func (f *File) withPage(num int32, fn func(p *storage.Page) (dirty bool, err error)) (err error) {
	g, err := f.pin(num)
	if err != nil {
		return err
	}
	defer g.releaseInto(&err)

	dirty, err := fn(g.page)
	if err != nil {
		return err
	}
	if dirty {
		g.markDirty()
	}
	return nil
}
