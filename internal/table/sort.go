package table

import (
	"cmp"
	"slices"
	"strings"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
)

// Direction of a column sort.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// ParseDirection accepts "asc"/"desc" (case-insensitive); anything else is Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, "desc") {
		return Desc
	}
	return Asc
}

// SortState is the active sort column and direction. The zero value means
// rows keep the order they were loaded in.
type SortState struct {
	Column    string
	Direction Direction
}

func (s SortState) Active() bool { return s.Column != "" }

// Toggle returns the state after a click on col's header: the same column
// flips between ascending and descending, a different column starts ascending.
func (s SortState) Toggle(col string) SortState {
	if s.Column == col && s.Direction == Asc {
		return SortState{Column: col, Direction: Desc}
	}
	return SortState{Column: col, Direction: Asc}
}

// Indicator is the header arrow for col.
func (s SortState) Indicator(col string) string {
	if s.Column != col {
		return "↕"
	}
	if s.Direction == Desc {
		return "↓"
	}
	return "↑"
}

// Sort returns a sorted copy of rows. The sort is stable, so rows with equal
// keys keep their loaded order in both directions.
func Sort(rows []api.Record, s SortState) []api.Record {
	out := slices.Clone(rows)
	if !s.Active() {
		return out
	}
	slices.SortStableFunc(out, func(a, b api.Record) int {
		av, _ := a.Get(s.Column)
		bv, _ := b.Get(s.Column)
		c := Compare(av, bv)
		if s.Direction == Desc {
			return -c
		}
		return c
	})
	return out
}

// Compare orders two cell values: missing values first, then booleans,
// numbers and strings. Values of the same kind compare naturally.
func Compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch ra {
	case 1:
		return cmp.Compare(boolInt(a.(bool)), boolInt(b.(bool)))
	case 2:
		x, _ := number(a)
		y, _ := number(b)
		return cmp.Compare(x, y)
	case 3:
		return strings.Compare(Stringify(a), Stringify(b))
	}
	return 0
}

func rank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64, int:
		if _, ok := number(v); !ok {
			return 0
		}
		return 2
	}
	return 3
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
