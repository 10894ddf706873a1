package record

import (
	"errors"
	"fmt"
	"math"

	"github.com/tuannm99/novaheap/internal/alias/bx"
)

var (
	ErrMissingColumn   = errors.New("rowcodec: column has no value")
	ErrUnknownColumn   = errors.New("rowcodec: unknown column")
	ErrTypeMismatch    = errors.New("rowcodec: value type does not match column")
	ErrUnsupportedType = errors.New("rowcodec: unsupported type")
	ErrVarTooLong      = errors.New("rowcodec: variable length exceeds u16")
	ErrBadBuffer       = errors.New("rowcodec: buffer underflow/overflow")
)

// ColumnError ties a codec failure to the column that caused it.
type ColumnError struct {
	Column string
	Err    error
}

func (e *ColumnError) Error() string { return fmt.Sprintf("%v: %s", e.Err, e.Column) }
func (e *ColumnError) Unwrap() error { return e.Err }

// Marshal encodes row in schema order:
// INT: 4 bytes LE; TEXT: u16 LE length + raw bytes; BOOLEAN: 1 byte.
func Marshal(s Schema, row Row) ([]byte, error) {
	out := make([]byte, 0, 8*len(s.Cols))
	for _, col := range s.Cols {
		v, ok := row[col.Name]
		if !ok {
			return nil, &ColumnError{Column: col.Name, Err: ErrMissingColumn}
		}
		if v.Type != col.Type {
			return nil, &ColumnError{Column: col.Name, Err: ErrTypeMismatch}
		}

		switch col.Type {
		case ColInt:
			var b [4]byte
			bx.PutI32(b[:], v.N)
			out = append(out, b[:]...)

		case ColText:
			if len(v.S) > math.MaxUint16 {
				return nil, &ColumnError{Column: col.Name, Err: ErrVarTooLong}
			}
			var l [2]byte
			bx.PutU16(l[:], uint16(len(v.S)))
			out = append(out, l[:]...)
			out = append(out, v.S...)

		case ColBool:
			if v.Bool() {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}

		default:
			return nil, &ColumnError{Column: col.Name, Err: ErrUnsupportedType}
		}
	}
	return out, nil
}

// Unmarshal is the exact inverse of Marshal for the same schema.
func Unmarshal(s Schema, buf []byte) (Row, error) {
	out := make(Row, len(s.Cols))
	i := 0
	for _, col := range s.Cols {
		switch col.Type {
		case ColInt:
			if i+4 > len(buf) {
				return nil, &ColumnError{Column: col.Name, Err: ErrBadBuffer}
			}
			out[col.Name] = IntValue(bx.I32(buf[i : i+4]))
			i += 4

		case ColText:
			if i+2 > len(buf) {
				return nil, &ColumnError{Column: col.Name, Err: ErrBadBuffer}
			}
			l := int(bx.U16(buf[i : i+2]))
			i += 2
			if i+l > len(buf) {
				return nil, &ColumnError{Column: col.Name, Err: ErrBadBuffer}
			}
			out[col.Name] = TextValue(string(buf[i : i+l]))
			i += l

		case ColBool:
			if i+1 > len(buf) {
				return nil, &ColumnError{Column: col.Name, Err: ErrBadBuffer}
			}
			out[col.Name] = BoolValue(buf[i] != 0)
			i++

		default:
			return nil, &ColumnError{Column: col.Name, Err: ErrUnsupportedType}
		}
	}
	if i != len(buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadBuffer, len(buf)-i)
	}
	return out, nil
}
