package relation

import (
	"errors"
	"fmt"
)

// ErrRelation matches every *Error via errors.Is.
var ErrRelation = errors.New("relation error")

// Error is a schema or state violation on a relation.
// Table and Column are filled in when known.
type Error struct {
	Table  string
	Column string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	s := "relation"
	if e.Table != "" {
		s += " " + e.Table
	}
	if e.Column != "" {
		s += fmt.Sprintf(" column %s", e.Column)
	}
	s += ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrRelation }

func Errorf(table, column, format string, args ...any) *Error {
	return &Error{Table: table, Column: column, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches relation context to a lower-level failure.
func Wrap(table, column, msg string, err error) *Error {
	return &Error{Table: table, Column: column, Msg: msg, Err: err}
}
