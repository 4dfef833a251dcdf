package storage

import (
	"sort"

	"github.com/tuannm99/novaspage/internal/alias/bx"
)

// Header offsets
const (
	offFreeOffset = 0
	offSlotCount  = 2
	offFreeSpace  = 4
	offReserved   = 6
)

// Slot directory entry offsets (relative to the entry)
const (
	slotOffOffset = 0
	slotOffLength = 2
	slotOffUsed   = 4
	slotOffPad    = 5
)

type Slot struct {
	Offset uint16
	Length uint16
	Used   bool
}

// +------------------+ 0
// | Header (8 bytes) |
// | Slot[0..n)       | <-- grows up, 6 bytes each
// +------------------+
// |                  |
// |   Free space     |
// |                  |
// +------------------+ <-- low water (min record offset)
// |  Record Data     |
// |  (grows down)    |
// +------------------+ PageSize (4096)
//
// Page is a view over a buffer owned by the buffer pool. It is only valid
// while the caller holds the page pinned.
type Page struct {
	Buf []byte
}

// NewPage wraps buf without touching its contents.
func NewPage(buf []byte) (*Page, error) {
	if len(buf) != PageSize {
		return nil, ErrWrongSize
	}
	return &Page{Buf: buf}, nil
}

// InitPage wraps buf and formats it as an empty slotted page.
func InitPage(buf []byte) (*Page, error) {
	p, err := NewPage(buf)
	if err != nil {
		return nil, err
	}
	p.Init()
	return p, nil
}

// ---- low-level header getters/setters ----
func (p *Page) freeOffset() uint16 {
	return bx.U16At(p.Buf, offFreeOffset)
}

func (p *Page) setFreeOffset(v uint16) {
	bx.PutU16At(p.Buf, offFreeOffset, v)
}

func (p *Page) slotCount() uint16 {
	return bx.U16At(p.Buf, offSlotCount)
}

func (p *Page) setSlotCount(v uint16) {
	bx.PutU16At(p.Buf, offSlotCount, v)
}

func (p *Page) freeSpace() uint16 {
	return bx.U16At(p.Buf, offFreeSpace)
}

func (p *Page) setFreeSpace(v uint16) {
	bx.PutU16At(p.Buf, offFreeSpace, v)
}

func (p *Page) setReserved(v uint16) {
	bx.PutU16At(p.Buf, offReserved, v)
}

// Init formats the page: empty directory, all space after the header free.
func (p *Page) Init() {
	bx.Zero(p.Buf, HeaderSize, len(p.Buf)-HeaderSize)
	p.setFreeOffset(HeaderSize)
	p.setSlotCount(0)
	p.setFreeSpace(PageSize - HeaderSize)
	p.setReserved(0)
}

// ---- public helpers ----
func (p *Page) SlotCount() int {
	return int(p.slotCount())
}

// FreeSpace is the number of bytes available for a new record plus its slot.
func (p *Page) FreeSpace() int {
	return int(p.freeSpace())
}

// IsUninitialized reports the zero header signature of a page that was
// allocated but never formatted.
func (p *Page) IsUninitialized() bool {
	return p.slotCount() == 0 && p.freeSpace() == 0
}

// maxSlots bounds directory walks so a garbage header cannot run off the buffer.
func (p *Page) maxSlots() int {
	n := p.SlotCount()
	if limit := (PageSize - HeaderSize) / SlotSize; n > limit {
		return limit
	}
	return n
}

// ---- slots ----
func (p *Page) slotOff(idx int) int {
	return HeaderSize + idx*SlotSize
}

func (p *Page) readSlot(i int) Slot {
	o := p.slotOff(i)
	_ = p.Buf[o+slotOffPad]
	return Slot{
		Offset: bx.U16At(p.Buf, o+slotOffOffset),
		Length: bx.U16At(p.Buf, o+slotOffLength),
		Used:   p.Buf[o+slotOffUsed] != 0,
	}
}

func (p *Page) putSlot(i int, s Slot) {
	o := p.slotOff(i)
	bx.PutU16At(p.Buf, o+slotOffOffset, s.Offset)
	bx.PutU16At(p.Buf, o+slotOffLength, s.Length)
	if s.Used {
		p.Buf[o+slotOffUsed] = 1
	} else {
		p.Buf[o+slotOffUsed] = 0
	}
	p.Buf[o+slotOffPad] = 0
}

// Slot returns directory entry i.
func (p *Page) Slot(i int) (Slot, error) {
	if i < 0 || i >= p.maxSlots() {
		return Slot{}, ErrBadSlot
	}
	s := p.readSlot(i)
	if s.Used {
		start, end := int(s.Offset), int(s.Offset)+int(s.Length)
		if s.Length == 0 || start < p.slotOff(p.SlotCount()) || end > PageSize {
			return Slot{}, ErrCorruption
		}
	}
	return s, nil
}

// UsedRecordBytes sums the lengths of live records.
func (p *Page) UsedRecordBytes() int {
	sum := 0
	for i := 0; i < p.maxSlots(); i++ {
		if s := p.readSlot(i); s.Used {
			sum += int(s.Length)
		}
	}
	return sum
}

// lowWater is the lowest byte still claimed by any record, live or tombstoned.
func (p *Page) lowWater() int {
	low := PageSize
	for i := 0; i < p.maxSlots(); i++ {
		s := p.readSlot(i)
		if s.Length != 0 && int(s.Offset) < low {
			low = int(s.Offset)
		}
	}
	return low
}

// repack slides live records to the end of the page and releases the bytes of
// tombstones. Slot indices never change.
func (p *Page) repack() {
	n := p.maxSlots()
	live := make([]int, 0, n)
	for i := 0; i < n; i++ {
		s := p.readSlot(i)
		if s.Used {
			live = append(live, i)
			continue
		}
		p.putSlot(i, Slot{})
	}
	sort.Slice(live, func(a, b int) bool {
		return p.readSlot(live[a]).Offset > p.readSlot(live[b]).Offset
	})

	cursor := PageSize
	for _, i := range live {
		s := p.readSlot(i)
		cursor -= int(s.Length)
		copy(p.Buf[cursor:cursor+int(s.Length)], p.Buf[s.Offset:int(s.Offset)+int(s.Length)])
		s.Offset = uint16(cursor)
		p.putSlot(i, s)
	}
}

// ---- records (payload) ----

// InsertRecord places rec below the lowest claimed byte and appends a slot
// for it. The returned slot index is stable for the life of the page.
func (p *Page) InsertRecord(rec []byte) (slot int, err error) {
	if len(rec) == 0 {
		return -1, ErrEmptyRecord
	}
	if len(rec) > MaxRecordSize {
		return -1, ErrRecordTooLarge
	}
	need := len(rec) + SlotSize
	if p.FreeSpace() < need {
		return -1, ErrNoSpace
	}

	idx := p.SlotCount()
	dirEnd := p.slotOff(idx + 1)
	low := p.lowWater()
	if low-len(rec) < dirEnd {
		p.repack()
		low = p.lowWater()
		if low-len(rec) < dirEnd {
			// freeSpace promised room that the layout does not have
			return -1, ErrCorruption
		}
	}

	pos := low - len(rec)
	copy(p.Buf[pos:], rec)
	p.putSlot(idx, Slot{Offset: uint16(pos), Length: uint16(len(rec)), Used: true})
	p.setSlotCount(uint16(idx + 1))
	p.setFreeSpace(uint16(p.FreeSpace() - need))
	return idx, nil
}

// ReadRecord returns a copy of the record in slot. The copy outlives the pin.
func (p *Page) ReadRecord(slot int) ([]byte, error) {
	s, err := p.Slot(slot)
	if err != nil {
		return nil, err
	}
	if !s.Used {
		return nil, ErrSlotDeleted
	}
	out := make([]byte, s.Length)
	copy(out, p.Buf[s.Offset:int(s.Offset)+int(s.Length)])
	return out, nil
}

// DeleteRecord tombstones slot. Record bytes stay where they are until a later
// insert needs the room.
func (p *Page) DeleteRecord(slot int) error {
	s, err := p.Slot(slot)
	if err != nil {
		return err
	}
	if !s.Used {
		return ErrSlotDeleted
	}
	s.Used = false
	p.putSlot(slot, s)
	// the directory entry itself stays allocated
	p.setFreeSpace(uint16(p.FreeSpace() + int(s.Length)))
	return nil
}

// Utilization reports bytes in use (header, directory, live records) and the
// share of the page they occupy.
func (p *Page) Utilization() (usedBytes int, percent float64) {
	usedBytes = HeaderSize + p.maxSlots()*SlotSize + p.UsedRecordBytes()
	if usedBytes > PageSize {
		usedBytes = PageSize
	}
	return usedBytes, float64(usedBytes) / float64(PageSize) * 100
}
