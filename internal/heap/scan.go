package heap

import (
	"errors"
	"fmt"
	"io"
)

const DefaultMaxScans = 16

var (
	ErrEndOfScan     = errors.New("heap: end of scan")
	ErrTooManyScans  = errors.New("heap: too many open scans")
	ErrBadScanHandle = errors.New("heap: invalid scan handle")
)

// ScanHandle addresses a cursor inside its registry. Handles are reused after
// CloseScan.
type ScanHandle int

// Record is one scan result. Data is a private copy.
type Record struct {
	ID   RecordID
	Data []byte
}

// cursor walks pages in file order and slots in directory order.
// curPage == -1 means the scan has not touched any page yet.
type cursor struct {
	inUse   bool
	file    *File
	curPage int32
	curSlot int
	guard   *pageGuard // non-nil while curPage is pinned
}

// ScanRegistry is a fixed arena of scan cursors. One registry may be shared by
// several files of a session; each cursor remembers the file that opened it.
type ScanRegistry struct {
	cursors []cursor
}

func NewScanRegistry(capacity int) *ScanRegistry {
	if capacity <= 0 {
		capacity = DefaultMaxScans
	}
	return &ScanRegistry{cursors: make([]cursor, capacity)}
}

func (r *ScanRegistry) Capacity() int { return len(r.cursors) }

// Open is the number of cursors in use.
func (r *ScanRegistry) Open() int {
	n := 0
	for i := range r.cursors {
		if r.cursors[i].inUse {
			n++
		}
	}
	return n
}

func (r *ScanRegistry) acquire(f *File) (ScanHandle, error) {
	for i := range r.cursors {
		if r.cursors[i].inUse {
			continue
		}
		r.cursors[i] = cursor{inUse: true, file: f, curPage: -1}
		return ScanHandle(i), nil
	}
	return -1, fmt.Errorf("%w: capacity %d", ErrTooManyScans, len(r.cursors))
}

func (r *ScanRegistry) lookup(h ScanHandle, f *File) (*cursor, error) {
	if h < 0 || int(h) >= len(r.cursors) {
		return nil, fmt.Errorf("%w: %d", ErrBadScanHandle, h)
	}
	c := &r.cursors[h]
	if !c.inUse || c.file != f {
		return nil, fmt.Errorf("%w: %d", ErrBadScanHandle, h)
	}
	return c, nil
}

// OpenScan starts a scan over every live record of the file.
func (f *File) OpenScan() (ScanHandle, error) {
	return f.scans.acquire(f)
}

// Next returns the next live record in (page, slot) order. While the scan is
// positioned inside a page that page stays pinned; ErrEndOfScan leaves no pin.
func (f *File) Next(h ScanHandle) (Record, error) {
	c, err := f.scans.lookup(h, f)
	if err != nil {
		return Record{}, err
	}

	for {
		if c.guard == nil {
			if err := c.advancePage(); err != nil {
				return Record{}, err
			}
		}

		p := c.guard.page
		for c.curSlot < p.SlotCount() {
			slot := c.curSlot
			c.curSlot++

			s, err := p.Slot(slot)
			if err != nil {
				return Record{}, fmt.Errorf("scan page %d slot %d: %w", c.curPage, slot, err)
			}
			if !s.Used {
				continue
			}
			data, err := p.ReadRecord(slot)
			if err != nil {
				return Record{}, fmt.Errorf("scan page %d slot %d: %w", c.curPage, slot, err)
			}
			return Record{
				ID:   RecordID{PageNum: c.curPage, SlotNum: int32(slot)},
				Data: data,
			}, nil
		}

		// directory exhausted: move on
		err := c.guard.release()
		c.guard = nil
		if err != nil {
			return Record{}, err
		}
	}
}

// advancePage pins the page after curPage (or the first page).
func (c *cursor) advancePage() error {
	pf := c.file.pf

	var (
		num int32
		buf []byte
		err error
	)
	if c.curPage == -1 {
		num, buf, err = pf.GetFirstPage()
	} else {
		num, buf, err = pf.GetNextPage(c.curPage)
	}
	if errors.Is(err, io.EOF) {
		return ErrEndOfScan
	}
	if err != nil {
		return err
	}

	g, err := wrap(pf, num, buf)
	if err != nil {
		return err
	}
	c.guard = g
	c.curPage = num
	c.curSlot = 0
	return nil
}

// CloseScan releases the cursor and any pin it still holds.
func (f *File) CloseScan(h ScanHandle) error {
	c, err := f.scans.lookup(h, f)
	if err != nil {
		return err
	}
	if c.guard != nil {
		err = c.guard.release()
	}
	*c = cursor{}
	return err
}

// Scan calls fn for every live record, in (page, slot) order. An error from
// fn stops the scan and is returned as is.
func (f *File) Scan(fn func(id RecordID, rec []byte) error) (err error) {
	h, err := f.OpenScan()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.CloseScan(h); err == nil {
			err = cerr
		}
	}()

	for {
		r, err := f.Next(h)
		if errors.Is(err, ErrEndOfScan) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(r.ID, r.Data); err != nil {
			return err
		}
	}
}
