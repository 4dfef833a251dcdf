package heap

import "fmt"

// RecordID (record identity inside a slotted file):
// PageNum: page number in file order
// SlotNum: index into that page's slot directory
//
// A RecordID stays valid until its record is deleted; slot indices are never
// reused, so a stale id reports ErrRecordDeleted instead of aliasing.
type RecordID struct {
	PageNum int32
	SlotNum int32
}

func (id RecordID) String() string {
	return fmt.Sprintf("(%d,%d)", id.PageNum, id.SlotNum)
}

// Pack squeezes the id into 32 bits for index structures that store a single
// integer: page in the high 16 bits, slot in the low 16 bits. Pages or slots
// above 0xFFFF do not survive the round trip.
func (id RecordID) Pack() uint32 {
	return uint32(id.PageNum&0xFFFF)<<16 | uint32(id.SlotNum&0xFFFF)
}

func UnpackRecordID(v uint32) RecordID {
	return RecordID{PageNum: int32(v >> 16), SlotNum: int32(v & 0xFFFF)}
}
