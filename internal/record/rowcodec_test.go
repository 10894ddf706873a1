package record

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeTestSchema builds a simple schema used across tests.
func makeTestSchema() Schema {
	return NewSchema(
		Column{Name: "id", Type: ColInt},
		Column{Name: "name", Type: ColText},
		Column{Name: "active", Type: ColBool},
	)
}

func TestMarshalUnmarshal_RoundTrip(t *testing.T) {
	schema := makeTestSchema()
	row := Row{
		"id":     IntValue(-42),
		"name":   TextValue("hello"),
		"active": BoolValue(true),
	}

	buf, err := Marshal(schema, row)
	require.NoError(t, err)
	require.Len(t, buf, 4+2+5+1)

	got, err := Unmarshal(schema, buf)
	require.NoError(t, err)
	require.Equal(t, row, got)
}

func TestMarshal_WireFormat(t *testing.T) {
	schema := NewSchema(Column{Name: "a", Type: ColInt}, Column{Name: "b", Type: ColText})

	buf, err := Marshal(schema, Row{"a": IntValue(12), "b": TextValue("Hello!")})
	require.NoError(t, err)
	require.Equal(t, []byte{12, 0, 0, 0, 6, 0, 'H', 'e', 'l', 'l', 'o', '!'}, buf)
}

func TestMarshal_EmptyText(t *testing.T) {
	schema := NewSchema(Column{Name: "s", Type: ColText})

	buf, err := Marshal(schema, Row{"s": TextValue("")})
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0}, buf)

	got, err := Unmarshal(schema, buf)
	require.NoError(t, err)
	require.Equal(t, "", got["s"].S)
}

func TestMarshal_Errors(t *testing.T) {
	schema := makeTestSchema()

	_, err := Marshal(schema, Row{"id": IntValue(1), "name": TextValue("x")})
	require.ErrorIs(t, err, ErrMissingColumn)
	var ce *ColumnError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "active", ce.Column)

	_, err = Marshal(schema, Row{"id": TextValue("1"), "name": TextValue("x"), "active": BoolValue(false)})
	require.ErrorIs(t, err, ErrTypeMismatch)

	long := NewSchema(Column{Name: "s", Type: ColText})
	_, err = Marshal(long, Row{"s": TextValue(strings.Repeat("x", math.MaxUint16+1))})
	require.ErrorIs(t, err, ErrVarTooLong)

	odd := NewSchema(Column{Name: "f", Type: ColumnType(99)})
	_, err = Marshal(odd, Row{"f": {Type: ColumnType(99)}})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestUnmarshal_Corrupt(t *testing.T) {
	schema := makeTestSchema()
	buf, err := Marshal(schema, Row{
		"id":     IntValue(7),
		"name":   TextValue("abc"),
		"active": BoolValue(false),
	})
	require.NoError(t, err)

	for _, cut := range []int{0, 3, 5, 8, len(buf) - 1} {
		_, err := Unmarshal(schema, buf[:cut])
		require.ErrorIs(t, err, ErrBadBuffer, "cut=%d", cut)
	}

	_, err = Unmarshal(schema, append(buf, 0xFF))
	require.ErrorIs(t, err, ErrBadBuffer)
}

func TestValue_String(t *testing.T) {
	require.Equal(t, "-3", IntValue(-3).String())
	require.Equal(t, "hi", TextValue("hi").String())
	require.Equal(t, "true", BoolValue(true).String())
	require.Equal(t, "false", BoolValue(false).String())
}

func TestRow_RestrictAndMatches(t *testing.T) {
	row := Row{"a": IntValue(1), "b": TextValue("x"), "c": BoolValue(true)}

	sub, err := row.Restrict([]string{"c", "a"})
	require.NoError(t, err)
	require.Equal(t, Row{"a": IntValue(1), "c": BoolValue(true)}, sub)

	_, err = row.Restrict([]string{"zzz"})
	require.ErrorIs(t, err, ErrUnknownColumn)

	require.True(t, row.Matches(Row{"a": IntValue(1)}))
	require.True(t, row.Matches(Row{}))
	require.False(t, row.Matches(Row{"a": IntValue(2)}))
	require.False(t, row.Matches(Row{"zzz": IntValue(1)}))
}

func TestSchema_Helpers(t *testing.T) {
	s := makeTestSchema()
	require.Equal(t, []string{"id", "name", "active"}, s.Names())
	require.Equal(t, 1, s.Index("name"))
	require.Equal(t, -1, s.Index("nope"))

	p, err := s.Project([]string{"active", "id"})
	require.NoError(t, err)
	require.Equal(t, []ColumnType{ColBool, ColInt}, p.Types())

	ct, err := ParseColumnType("integer")
	require.NoError(t, err)
	require.Equal(t, ColInt, ct)
	_, err = ParseColumnType("DOUBLE")
	require.Error(t, err)
}
