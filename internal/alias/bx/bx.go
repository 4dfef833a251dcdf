// stand for bytes helper: fixed-width little-endian fields inside a page
package bx

import "encoding/binary"

var LE = binary.LittleEndian

func U16At(b []byte, off int) uint16       { return LE.Uint16(b[off:]) }
func PutU16At(b []byte, off int, v uint16) { LE.PutUint16(b[off:], v) }

// Zero clears b[off : off+n].
func Zero(b []byte, off, n int) { clear(b[off : off+n]) }
