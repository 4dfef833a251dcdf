package heap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tuannm99/novaspage/internal/storage"
)

var (
	ErrInvalidArgument = errors.New("heap: invalid argument")
	ErrOutOfSpace      = errors.New("heap: page out of space")
	ErrInvalidRecord   = errors.New("heap: invalid record id")
	ErrRecordDeleted   = errors.New("heap: record deleted")
)

// PagedFile is what the record layer needs from the paged-file service.
// Every successful Get*/Alloc call leaves the page pinned; UnfixPage releases
// it. GetFirstPage and GetNextPage return io.EOF once the file is exhausted.
type PagedFile interface {
	AllocPage() (int32, []byte, error)
	GetFirstPage() (int32, []byte, error)
	GetNextPage(cur int32) (int32, []byte, error)
	GetThisPage(num int32) ([]byte, error)
	UnfixPage(num int32, dirty bool) error
}

// File stores variable-length records in the slotted pages of one paged file.
type File struct {
	pf    PagedFile
	scans *ScanRegistry
}

// NewFile binds pf to a scan registry. A nil registry gets a private one of
// DefaultMaxScans cursors.
func NewFile(pf PagedFile, scans *ScanRegistry) *File {
	if scans == nil {
		scans = NewScanRegistry(DefaultMaxScans)
	}
	return &File{pf: pf, scans: scans}
}

// Insert stores rec in the first page with room, allocating a page when none
// has any, and returns the new record's id.
func (f *File) Insert(rec []byte) (id RecordID, err error) {
	if len(rec) == 0 || len(rec) > storage.MaxRecordSize {
		return RecordID{}, fmt.Errorf("%w: record length %d (max %d)",
			ErrInvalidArgument, len(rec), storage.MaxRecordSize)
	}
	req := len(rec) + storage.SlotSize

	g, err := f.findPageWithSpace(req)
	if errors.Is(err, errNoPageFound) {
		g, err = f.allocPage()
		if err == nil {
			slog.Debug("heap: allocated page", "page", g.num)
		}
	}
	if err != nil {
		return RecordID{}, err
	}
	defer g.releaseInto(&err)

	p := g.page
	if p.IsUninitialized() {
		p.Init()
	}
	if p.FreeSpace() < req {
		return RecordID{}, fmt.Errorf("%w: page %d has %d bytes, need %d",
			ErrOutOfSpace, g.num, p.FreeSpace(), req)
	}

	slot, err := p.InsertRecord(rec)
	if err != nil {
		return RecordID{}, fmt.Errorf("insert into page %d: %w", g.num, err)
	}
	g.markDirty()

	id = RecordID{PageNum: g.num, SlotNum: int32(slot)}
	slog.Debug("heap: insert", "rid", id, "len", len(rec), "free", p.FreeSpace())
	return id, nil
}

// Get returns a copy of the record; the caller owns it.
func (f *File) Get(id RecordID) ([]byte, error) {
	var out []byte
	err := f.withPage(id.PageNum, func(p *storage.Page) (bool, error) {
		rec, err := p.ReadRecord(int(id.SlotNum))
		if err != nil {
			return false, recordErr(id, err)
		}
		out = rec
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete tombstones the record. Its bytes stay in place and its slot index is
// never handed out again.
func (f *File) Delete(id RecordID) error {
	return f.withPage(id.PageNum, func(p *storage.Page) (bool, error) {
		if err := p.DeleteRecord(int(id.SlotNum)); err != nil {
			return false, recordErr(id, err)
		}
		slog.Debug("heap: delete", "rid", id, "free", p.FreeSpace())
		return true, nil
	})
}

func recordErr(id RecordID, err error) error {
	switch {
	case errors.Is(err, storage.ErrBadSlot):
		return fmt.Errorf("%w: %s", ErrInvalidRecord, id)
	case errors.Is(err, storage.ErrSlotDeleted):
		return fmt.Errorf("%w: %s", ErrRecordDeleted, id)
	default:
		return fmt.Errorf("record %s: %w", id, err)
	}
}

// PageStats describes one page.
type PageStats struct {
	PageNum     int32
	Slots       int
	LiveRecords int
	FreeSpace   int
	UsedBytes   int
	Percent     float64
}

// FileStats aggregates PageStats over the whole file.
type FileStats struct {
	Pages       []PageStats
	LiveRecords int
	DeadSlots   int
	UsedBytes   int
}

// AvgUtilization is used bytes over total page capacity, in percent.
func (s FileStats) AvgUtilization() float64 {
	if len(s.Pages) == 0 {
		return 0
	}
	return float64(s.UsedBytes) / float64(len(s.Pages)*storage.PageSize) * 100
}

func pageStats(num int32, p *storage.Page) PageStats {
	used, pct := p.Utilization()
	live := 0
	for i := 0; i < p.SlotCount(); i++ {
		if s, err := p.Slot(i); err == nil && s.Used {
			live++
		}
	}
	return PageStats{
		PageNum:     num,
		Slots:       p.SlotCount(),
		LiveRecords: live,
		FreeSpace:   p.FreeSpace(),
		UsedBytes:   used,
		Percent:     pct,
	}
}

// PageStats reports utilization of a single page.
func (f *File) PageStats(num int32) (PageStats, error) {
	var st PageStats
	err := f.withPage(num, func(p *storage.Page) (bool, error) {
		st = pageStats(num, p)
		return false, nil
	})
	return st, err
}

// Stats walks every page in file order.
func (f *File) Stats() (FileStats, error) {
	var fs FileStats
	num, buf, err := f.pf.GetFirstPage()
	for err == nil {
		g, werr := wrap(f.pf, num, buf)
		if werr != nil {
			return FileStats{}, werr
		}
		st := pageStats(num, g.page)
		if rerr := g.release(); rerr != nil {
			return FileStats{}, rerr
		}

		fs.Pages = append(fs.Pages, st)
		fs.LiveRecords += st.LiveRecords
		fs.DeadSlots += st.Slots - st.LiveRecords
		fs.UsedBytes += st.UsedBytes
		num, buf, err = f.pf.GetNextPage(num)
	}
	if !errors.Is(err, io.EOF) {
		return FileStats{}, err
	}
	return fs, nil
}

// DumpPage writes a human-readable view of page num.
func (f *File) DumpPage(num int32, w io.Writer) error {
	return f.withPage(num, func(p *storage.Page) (bool, error) {
		return false, p.Debug(w)
	})
}
