package table

import (
	"strings"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
)

// Filter keeps the rows where any column's string form contains text,
// ignoring case. An empty text keeps every row.
func Filter(rows []api.Record, text string) []api.Record {
	term := strings.ToLower(text)
	if term == "" {
		return rows
	}
	out := make([]api.Record, 0, len(rows))
	for _, r := range rows {
		if Matches(r, term) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether any field of r contains the lower-cased term.
func Matches(r api.Record, term string) bool {
	for _, f := range r.Fields {
		if strings.Contains(strings.ToLower(Stringify(f.Value)), term) {
			return true
		}
	}
	return false
}

// ColumnFilter restricts rows to those whose column equals Value once
// stringified. Column names match case-insensitively.
type ColumnFilter struct {
	Column string
	Value  string
}

func (c ColumnFilter) Active() bool { return c.Column != "" }

// Apply returns the matching subset; an inactive filter keeps every row.
func (c ColumnFilter) Apply(rows []api.Record) []api.Record {
	if !c.Active() {
		return rows
	}
	out := make([]api.Record, 0, len(rows))
	for _, r := range rows {
		for _, f := range r.Fields {
			if strings.EqualFold(f.Name, c.Column) && strings.EqualFold(Stringify(f.Value), c.Value) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
