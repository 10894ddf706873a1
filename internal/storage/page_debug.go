package storage

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
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

func utf8Preview(b []byte) string {
	if !utf8.Valid(b) {
		return ""
	}
	var buf bytes.Buffer
	for _, r := range string(b) {
		if unicode.IsPrint(r) && r != '\n' && r != '\r' && r != '\t' {
			buf.WriteRune(r)
		} else {
			buf.WriteByte('.')
		}
	}
	return buf.String()
}

// Check verifies the layout invariants: every live record lies inside the
// data area and no two live records overlap.
func (p *SlottedPage) Check() error {
	dirEnd := headerSize + slotSize*int(p.numRecords)
	if dirEnd > int(p.endFree)+1 {
		return fmt.Errorf("%w: directory end %d past end_free %d", ErrCorruptBlock, dirEnd, p.endFree)
	}

	type span struct{ id, lo, hi int }
	var spans []span
	for _, id := range p.IDs() {
		size, loc, err := p.slot(id)
		if err != nil {
			return err
		}
		if loc <= int(p.endFree) || loc+size > len(p.buf) {
			return fmt.Errorf("%w: record %d [%d,%d) outside data area (end_free=%d)",
				ErrCorruptBlock, id, loc, loc+size, p.endFree)
		}
		spans = append(spans, span{int(id), loc, loc + size})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].lo < spans[j].lo })
	for i := 1; i < len(spans); i++ {
		if spans[i].lo < spans[i-1].hi {
			return fmt.Errorf("%w: records %d and %d overlap", ErrCorruptBlock, spans[i-1].id, spans[i].id)
		}
	}
	return nil
}

// Debug prints the header, directory, and record previews to the writer.
func (p *SlottedPage) Debug(w io.Writer) error {
	ew := &errWriter{w: w}

	ew.Fprintf("=== Block Debug ===\n")
	ew.Fprintf("block=%d size=%d num_records=%d end_free=%d free=%d\n",
		p.id, len(p.buf), p.numRecords, p.endFree, p.FreeSpace())

	ew.Fprintln("\n-- Directory --")
	if p.numRecords == 0 {
		ew.Fprintln("(none)")
	}
	for i := 1; i <= int(p.numRecords); i++ {
		if ew.err != nil {
			break
		}
		size, loc, err := p.getHeader(RecordID(i))
		if err != nil {
			ew.Fprintf("[%d] <error: %v>\n", i, err)
			continue
		}
		if loc == 0 {
			ew.Fprintf("[%d] deleted\n", i)
			continue
		}
		ew.Fprintf("[%d] loc=%d size=%d\n", i, loc, size)
	}

	ew.Fprintln("\n-- Records (preview) --")
	const maxPreview = 32
	for _, id := range p.IDs() {
		if ew.err != nil {
			break
		}
		data, err := p.Get(id)
		if err != nil {
			ew.Fprintf("[%d] (read) %v\n", id, err)
			continue
		}
		preview := data
		if len(preview) > maxPreview {
			preview = preview[:maxPreview]
		}
		ew.Fprintf("[%d] len=%d hex=%s\n", id, len(data), hex.EncodeToString(preview))
		if s := utf8Preview(preview); s != "" {
			ew.Fprintf("     utf8=\"%s\"\n", s)
		}
	}

	ew.Fprintln("=== End Block Debug ===")
	return ew.err
}

func (p *SlottedPage) DebugString() string {
	var b bytes.Buffer
	if err := p.Debug(&b); err != nil {
		_, _ = b.WriteString("\n<debug write error: " + err.Error() + ">\n")
	}
	return b.String()
}
