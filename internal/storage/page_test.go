package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	rec10 = bytes.Repeat([]byte{'a'}, 10)
	rec20 = bytes.Repeat([]byte{'b'}, 20)
	rec30 = bytes.Repeat([]byte{'c'}, 30)
)

// expectedFree recomputes freeSpace from the directory.
func expectedFree(p *Page) int {
	return PageSize - HeaderSize - p.SlotCount()*SlotSize - p.UsedRecordBytes()
}

func newPage(t *testing.T) *Page {
	t.Helper()

	p, err := InitPage(make([]byte, PageSize))
	require.NoError(t, err)

	// default after init page
	assert.Equal(t, 0, p.SlotCount())
	assert.Equal(t, PageSize-HeaderSize, p.FreeSpace())
	assert.Equal(t, uint16(HeaderSize), p.freeOffset())
	assert.False(t, p.IsUninitialized())

	return p
}

func TestNewPage_WrongSize(t *testing.T) {
	_, err := NewPage(make([]byte, 100))
	require.ErrorIs(t, err, ErrWrongSize)

	_, err = InitPage(make([]byte, PageSize+1))
	require.ErrorIs(t, err, ErrWrongSize)
}

func TestPage_ZeroBufferIsUninitialized(t *testing.T) {
	p, err := NewPage(make([]byte, PageSize))
	require.NoError(t, err)
	assert.True(t, p.IsUninitialized())

	p.Init()
	assert.False(t, p.IsUninitialized())
}

func TestPage_ThreeRecordsScenario(t *testing.T) {
	p := newPage(t)

	for i, rec := range [][]byte{rec10, rec20, rec30} {
		slot, err := p.InsertRecord(rec)
		require.NoError(t, err)
		assert.Equal(t, i, slot)
	}

	assert.Equal(t, 3, p.SlotCount())
	assert.Equal(t, 4010, p.FreeSpace())

	// back-to-front placement
	s0, err := p.Slot(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(PageSize-10), s0.Offset)
	s1, err := p.Slot(1)
	require.NoError(t, err)
	assert.Equal(t, uint16(PageSize-30), s1.Offset)
	s2, err := p.Slot(2)
	require.NoError(t, err)
	assert.Equal(t, uint16(PageSize-60), s2.Offset)

	// bit-exact header
	assert.Equal(t, []byte{HeaderSize, 0, 3, 0, 0xAA, 0x0F, 0, 0}, p.Buf[:HeaderSize])
	assert.Equal(t, []byte{0xF6, 0x0F, 10, 0, 1, 0}, p.Buf[HeaderSize:HeaderSize+SlotSize])
}

func TestPage_FreeSpaceAccounting(t *testing.T) {
	p := newPage(t)

	for i := 1; i <= 50; i++ {
		_, err := p.InsertRecord(bytes.Repeat([]byte{byte(i)}, i))
		require.NoError(t, err)
		require.Equal(t, expectedFree(p), p.FreeSpace())
	}

	require.NoError(t, p.DeleteRecord(7))
	require.NoError(t, p.DeleteRecord(21))
	assert.Equal(t, expectedFree(p), p.FreeSpace())
	assert.Equal(t, 50, p.SlotCount())
}

func TestCRUDRecord(t *testing.T) {
	p := newPage(t)

	_, err := p.InsertRecord(rec10)
	require.NoError(t, err)
	_, err = p.InsertRecord(rec20)
	require.NoError(t, err)

	data, err := p.ReadRecord(1)
	require.NoError(t, err)
	assert.Equal(t, rec20, data)

	// returned bytes are a copy
	data[0] = 'z'
	again, err := p.ReadRecord(1)
	require.NoError(t, err)
	assert.Equal(t, rec20, again)

	// bad slot
	_, err = p.ReadRecord(-1)
	require.ErrorIs(t, err, ErrBadSlot)
	_, err = p.ReadRecord(2)
	require.ErrorIs(t, err, ErrBadSlot)

	// deleted
	require.NoError(t, p.DeleteRecord(0))
	_, err = p.ReadRecord(0)
	require.ErrorIs(t, err, ErrSlotDeleted)
	require.ErrorIs(t, p.DeleteRecord(0), ErrSlotDeleted)
	assert.Equal(t, 2, p.SlotCount())
}

func TestPage_InsertValidation(t *testing.T) {
	p := newPage(t)

	_, err := p.InsertRecord(nil)
	require.ErrorIs(t, err, ErrEmptyRecord)

	_, err = p.InsertRecord(make([]byte, MaxRecordSize+1))
	require.ErrorIs(t, err, ErrRecordTooLarge)

	slot, err := p.InsertRecord(make([]byte, MaxRecordSize))
	require.NoError(t, err)
	assert.Equal(t, 0, slot)
	assert.Equal(t, 0, p.FreeSpace())

	_, err = p.InsertRecord([]byte{1})
	require.ErrorIs(t, err, ErrNoSpace)
}

func TestPage_InsertAfterDeleteDoesNotOverlap(t *testing.T) {
	p := newPage(t)

	big := bytes.Repeat([]byte{'x'}, 1000)
	var ids []int
	for i := 0; i < 4; i++ {
		rec := bytes.Repeat([]byte{byte('A' + i)}, 1000)
		slot, err := p.InsertRecord(rec)
		require.NoError(t, err)
		ids = append(ids, slot)
	}
	// page now has 4088 - 4*1006 = 64 bytes free
	require.Equal(t, 64, p.FreeSpace())

	// free the first (highest) record, then insert something that only fits
	// once its bytes are reclaimed
	require.NoError(t, p.DeleteRecord(ids[0]))
	slot, err := p.InsertRecord(big)
	require.NoError(t, err)
	assert.Equal(t, 4, slot)

	for i := 1; i < 4; i++ {
		data, err := p.ReadRecord(ids[i])
		require.NoError(t, err)
		assert.Equal(t, bytes.Repeat([]byte{byte('A' + i)}, 1000), data)
	}
	data, err := p.ReadRecord(slot)
	require.NoError(t, err)
	assert.Equal(t, big, data)

	_, err = p.ReadRecord(ids[0])
	require.ErrorIs(t, err, ErrSlotDeleted)
	assert.Equal(t, expectedFree(p), p.FreeSpace())
}

func TestPage_SmallInsertAfterDeleteUsesGap(t *testing.T) {
	p := newPage(t)

	_, err := p.InsertRecord(rec30)
	require.NoError(t, err)
	_, err = p.InsertRecord(rec20)
	require.NoError(t, err)
	require.NoError(t, p.DeleteRecord(0))

	slot, err := p.InsertRecord(rec10)
	require.NoError(t, err)

	s, err := p.Slot(slot)
	require.NoError(t, err)
	// placed below the tombstoned bytes, nothing moved
	assert.Equal(t, uint16(PageSize-60), s.Offset)

	data, err := p.ReadRecord(1)
	require.NoError(t, err)
	assert.Equal(t, rec20, data)
}

func TestPage_Utilization(t *testing.T) {
	p := newPage(t)

	used, pct := p.Utilization()
	assert.Equal(t, HeaderSize, used)
	assert.InDelta(t, float64(HeaderSize)/PageSize*100, pct, 1e-9)

	for _, rec := range [][]byte{rec10, rec20, rec30} {
		_, err := p.InsertRecord(rec)
		require.NoError(t, err)
	}
	used, _ = p.Utilization()
	assert.Equal(t, HeaderSize+3*SlotSize+60, used)

	require.NoError(t, p.DeleteRecord(2))
	used, _ = p.Utilization()
	assert.Equal(t, HeaderSize+3*SlotSize+30, used)
}

func TestPage_UtilizationBoundedOnGarbage(t *testing.T) {
	buf := bytes.Repeat([]byte{0xFF}, PageSize)
	p, err := NewPage(buf)
	require.NoError(t, err)

	used, pct := p.Utilization()
	assert.LessOrEqual(t, used, PageSize)
	assert.GreaterOrEqual(t, pct, 0.0)
	assert.LessOrEqual(t, pct, 100.0)
}

func TestPage_DebugString(t *testing.T) {
	p := newPage(t)
	_, err := p.InsertRecord([]byte("hello slotted page"))
	require.NoError(t, err)
	_, err = p.InsertRecord(rec10)
	require.NoError(t, err)
	require.NoError(t, p.DeleteRecord(1))

	out := p.DebugString()
	assert.Contains(t, out, "slotCount=2")
	assert.Contains(t, out, "[0] LIVE")
	assert.Contains(t, out, "[1] DEAD")
	assert.Contains(t, out, `preview(utf8)="hello slotted page"`)
}
