package storage

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"unicode"
	"unicode/utf8"
)

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Fprintf(format string, a ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, a...)
}

func (e *errWriter) Fprintln(a ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintln(e.w, a...)
}

func slotStateName(s Slot) string {
	switch {
	case s.Used:
		return "LIVE"
	case s.Length == 0:
		return "FREE"
	default:
		return "DEAD"
	}
}

func utf8Preview(b []byte) string {
	if !utf8.Valid(b) {
		return ""
	}
	var buf bytes.Buffer
	for _, r := range string(b) { // iterate by rune
		if unicode.IsPrint(r) && r != '\n' && r != '\r' && r != '\t' {
			buf.WriteRune(r)
		} else {
			buf.WriteByte('.')
		}
	}
	return buf.String()
}

// ASCII preview: printable -> itself, else '.'
func asciiPreview(b []byte) string {
	var buf bytes.Buffer
	for _, c := range b {
		r := rune(c)
		if unicode.IsPrint(r) && r != '\n' && r != '\r' && r != '\t' {
			buf.WriteRune(r)
		} else {
			buf.WriteByte('.')
		}
	}
	return buf.String()
}

// Debug prints header, slot directory, and record previews to the writer.
func (p *Page) Debug(w io.Writer) error {
	ew := &errWriter{w: w}

	used, pct := p.Utilization()
	ew.Fprintf("=== Page Debug ===\n")
	ew.Fprintf("freeOffset=%d slotCount=%d freeSpace=%d lowWater=%d\n",
		p.freeOffset(), p.SlotCount(), p.FreeSpace(), p.lowWater())
	ew.Fprintf("pageSize=%d used=%d (%.2f%%)\n", PageSize, used, pct)

	ew.Fprintln("\n-- Slots --")
	if p.SlotCount() == 0 {
		ew.Fprintln("(none)")
	}
	for i := 0; i < p.maxSlots(); i++ {
		if ew.err != nil {
			break
		}
		s := p.readSlot(i)
		ew.Fprintf("[%d] %s off=%d len=%d\n", i, slotStateName(s), s.Offset, s.Length)
	}

	ew.Fprintln("\n-- Records (preview) --")
	const maxPreview = 32
	if p.SlotCount() == 0 {
		ew.Fprintln("(none)")
	}
	for i := 0; i < p.maxSlots(); i++ {
		if ew.err != nil {
			break
		}
		data, err := p.ReadRecord(i)
		if err != nil {
			ew.Fprintf("[%d] (read) %v\n", i, err)
			continue
		}
		preview := data
		if len(preview) > maxPreview {
			preview = preview[:maxPreview]
		}
		ew.Fprintf("[%d] len=%d preview(hex)=%s\n", i, len(data), hex.EncodeToString(preview))

		if s := utf8Preview(preview); s != "" {
			ew.Fprintf("     preview(utf8)=\"%s\"\n", s)
		} else {
			ew.Fprintf("     preview(ascii)=\"%s\"\n", asciiPreview(preview))
		}
	}

	dirEnd := p.slotOff(p.maxSlots())
	ew.Fprintf("\n-- Gap --\nrange: [%d .. %d) size=%d bytes\n",
		dirEnd, p.lowWater(), p.lowWater()-dirEnd)

	ew.Fprintln("=== End Page Debug ===")
	return ew.err
}

func (p *Page) DebugString() string {
	var b bytes.Buffer
	if err := p.Debug(&b); err != nil {
		// best-effort: surface the error in the output so callers see it
		_, _ = b.WriteString("\n<debug write error: " + err.Error() + ">\n")
	}
	return b.String()
}
