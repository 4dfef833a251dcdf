package heap

import (
	"errors"
	"io"
)

var errNoPageFound = errors.New("heap: no page with enough free space")

// findPageWithSpace walks the file in page order and returns the first
// formatted page with at least req free bytes, still pinned. Rejected pages
// are unpinned clean. Cost is O(pages) per call.
func (f *File) findPageWithSpace(req int) (*pageGuard, error) {
	num, buf, err := f.pf.GetFirstPage()
	for err == nil {
		g, werr := wrap(f.pf, num, buf)
		if werr != nil {
			return nil, werr
		}
		// a zero header is never formatted here; only the insert path does that
		if !g.page.IsUninitialized() && g.page.FreeSpace() >= req {
			return g, nil
		}
		if rerr := g.release(); rerr != nil {
			return nil, rerr
		}
		num, buf, err = f.pf.GetNextPage(num)
	}
	if errors.Is(err, io.EOF) {
		return nil, errNoPageFound
	}
	return nil, err
}

// allocPage grows the file by one formatted page, returned pinned.
func (f *File) allocPage() (*pageGuard, error) {
	num, buf, err := f.pf.AllocPage()
	if err != nil {
		return nil, err
	}
	g, err := wrap(f.pf, num, buf)
	if err != nil {
		return nil, err
	}
	g.page.Init()
	g.markDirty()
	return g, nil
}
