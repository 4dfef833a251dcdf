package storage

import (
	"errors"
)

const (
	OneB  = 1 << 0  // 1
	OneKB = 1 << 10 // 1,024
	OneMB = 1 << 20 // 1,048,576
	OneGB = 1 << 30 // 1,073,741,824

	SegmentSize       = 1 << 30                // 1,073,741,824 (1 GiB)
	PageSize          = 1 << 12                // 4,096 (4 KiB)
	MaxPagePerSegment = SegmentSize / PageSize // 262,144 pages/segment
	HeaderSize        = 8                      // 4 * uint16: freeOffset, slotCount, freeSpace, reserved
	SlotSize          = 6                      // offset u16, length u16, used u8, pad u8
	MaxRecordSize     = PageSize - HeaderSize - SlotSize
)

const (
	FileMode0644 = 0o644
	FileMode0664 = 0o664
	FileMode0755 = 0o755
)

var (
	ErrRecordTooLarge = errors.New("page: record too large for a single page")
	ErrEmptyRecord    = errors.New("page: empty record")
	ErrNoSpace        = errors.New("page: not enough free space")
	ErrBadSlot        = errors.New("page: invalid slot")
	ErrSlotDeleted    = errors.New("page: slot is deleted")
	ErrCorruption     = errors.New("page: corrupt slot or record bounds")
	ErrWrongSize      = errors.New("page: buffer size != PageSize")
)
