package executor

import (
	"strings"

	"github.com/tuannm99/novaheap/internal/record"
)

// Result is the generic query result returned to the caller. ColumnNames
// and Rows are nil for statements that produce no result set.
type Result struct {
	ColumnNames      []string
	ColumnAttributes []record.ColumnType
	Rows             []record.Row
	Message          string
}

func message(msg string) *Result { return &Result{Message: msg} }

// String renders the result as a plain text table followed by the message.
func (r *Result) String() string {
	var b strings.Builder
	if r.ColumnNames != nil {
		b.WriteString(strings.Join(r.ColumnNames, " "))
		b.WriteString("\n+")
		b.WriteString(strings.Repeat("----------+", len(r.ColumnNames)))
		b.WriteString("\n")
		for _, row := range r.Rows {
			vals := make([]string, 0, len(r.ColumnNames))
			for _, c := range r.ColumnNames {
				v := row[c]
				if v.Type == record.ColText {
					vals = append(vals, `"`+v.S+`"`)
				} else {
					vals = append(vals, v.String())
				}
			}
			b.WriteString(strings.Join(vals, " "))
			b.WriteString("\n")
		}
	}
	b.WriteString(r.Message)
	return b.String()
}
