package table

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func rec(kv ...any) api.Record {
	var r api.Record
	for i := 0; i+1 < len(kv); i += 2 {
		r.Fields = append(r.Fields, api.Field{Name: kv[i].(string), Value: kv[i+1]})
	}
	return r
}

func passengers() []api.Record {
	return []api.Record{
		rec("PassengerId", 1.0, "Name", "Braund, Mr. Owen Harris", "Survived", 0.0, "Age", 22.0, "Fare", 7.25),
		rec("PassengerId", 2.0, "Name", "Cumings, Mrs. John Bradley", "Survived", 1.0, "Age", 38.0, "Fare", 71.2833),
		rec("PassengerId", 3.0, "Name", "Heikkinen, Miss. Laina", "Survived", 1.0, "Age", 26.0, "Fare", 7.925),
		rec("PassengerId", 4.0, "Name", "Futrelle, Mrs. Jacques Heath", "Survived", 1.0, "Age", 35.0, "Fare", 53.1),
		rec("PassengerId", 5.0, "Name", "Allen, Mr. William Henry", "Survived", 0.0, "Age", 35.0, "Fare", 8.05),
	}
}

func ids(rows []api.Record) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = PassengerID(r)
	}
	return out
}

func TestToggleSemantics(t *testing.T) {
	var s SortState
	s = s.Toggle("Age")
	assert.Equal(t, SortState{"Age", Asc}, s)
	s = s.Toggle("Age")
	assert.Equal(t, SortState{"Age", Desc}, s)
	s = s.Toggle("Age")
	assert.Equal(t, SortState{"Age", Asc}, s)

	s = s.Toggle("Age").Toggle("Fare")
	assert.Equal(t, SortState{"Fare", Asc}, s, "a different header starts ascending")

	assert.Equal(t, "↑", s.Indicator("Fare"))
	assert.Equal(t, "↕", s.Indicator("Age"))
}

func TestSortTwiceReversesOnce(t *testing.T) {
	rows := passengers()
	once := SortState{}.Toggle("Fare")
	twice := once.Toggle("Fare")

	asc := Sort(rows, once)
	desc := Sort(rows, twice)
	assert.Equal(t, []string{"1", "3", "5", "4", "2"}, ids(asc))
	for i := range asc {
		assert.Equal(t, PassengerID(asc[i]), PassengerID(desc[len(desc)-1-i]))
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(rows), "input must not be reordered")
}

func TestSortIsStableForTies(t *testing.T) {
	rows := passengers()
	asc := Sort(rows, SortState{Column: "Age", Direction: Asc})
	assert.Equal(t, []string{"1", "3", "4", "5", "2"}, ids(asc))
	desc := Sort(rows, SortState{Column: "Age", Direction: Desc})
	assert.Equal(t, []string{"2", "4", "5", "3", "1"}, ids(desc))
}

func TestCompareMixedValues(t *testing.T) {
	assert.Equal(t, -1, Compare(nil, 1.0))
	assert.Equal(t, 1, Compare("S", 3.0))
	assert.Equal(t, -1, Compare(2.0, 10.0), "numbers compare numerically")
	assert.Equal(t, -1, Compare("C", "Q"))
	assert.Equal(t, 0, Compare(nil, nil))
}

func TestFilterSubsetAndCaseInsensitive(t *testing.T) {
	rows := passengers()
	got := Filter(rows, "MRS.")
	assert.Equal(t, []string{"2", "4"}, ids(got))

	got = Filter(rows, "7.25")
	assert.Equal(t, []string{"1"}, ids(got))

	assert.Len(t, Filter(rows, ""), len(rows))
	assert.Empty(t, Filter(rows, "zzz"))

	for _, term := range []string{"mr", "3", "heath", "0"} {
		sub := Filter(rows, term)
		for _, r := range sub {
			assert.True(t, Matches(r, term))
		}
		for _, r := range rows {
			if Matches(r, term) {
				assert.Contains(t, ids(sub), PassengerID(r))
			}
		}
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "✅ Survived", Format("Survived", 1.0))
	assert.Equal(t, "❌ Perished", Format("Survived", 0.0))
	assert.Equal(t, "❌ Perished", Format("Survived", nil))
	assert.Equal(t, "$7.25", Format("Fare", 7.25))
	assert.Equal(t, "$71.28", Format("Fare", 71.2833))
	assert.Equal(t, "22 yrs", Format("Age", 22.9))
	assert.Equal(t, "0 yrs", Format("Age", 0.42))
	assert.Equal(t, "S", Format("Embarked", "S"))
	assert.Equal(t, "3", Format("Pclass", 3.0))
}

func TestPagination(t *testing.T) {
	p := Pagination{Page: 3, PageSize: 10, Total: 25}
	assert.Equal(t, 3, p.Pages())
	first, last := p.Range()
	assert.Equal(t, 21, first)
	assert.Equal(t, 25, last)
	assert.Equal(t, "Showing 21-25 of 25 passengers", p.Label())
	assert.False(t, p.HasNext())
	assert.Equal(t, 3, p.Next().Page)
	assert.Equal(t, 2, p.Prev().Page)
	assert.Equal(t, 1, p.Goto(-4).Page)
	assert.Equal(t, 3, p.Goto(99).Page)

	empty := Pagination{Page: 1, PageSize: 10}
	assert.Equal(t, 0, empty.Pages())
	assert.Equal(t, 1, empty.Clamp(5))
	f, l := empty.Range()
	assert.Zero(t, f)
	assert.Zero(t, l)
}

func TestWindow(t *testing.T) {
	describe := func(w []PageButton) string {
		var parts []string
		for _, b := range w {
			switch {
			case b.Ellipsis:
				parts = append(parts, "…")
			case b.Current:
				parts = append(parts, fmt.Sprintf("[%d]", b.Page))
			default:
				parts = append(parts, fmt.Sprint(b.Page))
			}
		}
		return strings.Join(parts, " ")
	}
	p := Pagination{PageSize: 10, Total: 891}
	assert.Equal(t, "[1] 2 … 90", describe(p.Goto(1).Window()))
	assert.Equal(t, "1 … 4 [5] 6 … 90", describe(p.Goto(5).Window()))
	assert.Equal(t, "1 … 89 [90]", describe(p.Goto(90).Window()))
	assert.Equal(t, "1 [2] 3", describe(Pagination{Page: 2, PageSize: 10, Total: 25}.Window()))
	assert.Nil(t, Pagination{Page: 1, PageSize: 10, Total: 7}.Window())
}

func TestComputePageStats(t *testing.T) {
	ps := ComputePageStats(passengers(), 891)
	assert.Equal(t, 891, ps.Total)
	assert.Equal(t, 5, ps.Features)
	require.True(t, ps.HasSurvival)
	assert.InDelta(t, 60.0, ps.SurvivalRate, 1e-9)
	require.True(t, ps.HasAge)
	assert.InDelta(t, 31.2, ps.MeanAge, 1e-9)

	rows := []api.Record{rec("PassengerId", 9.0, "Age", nil)}
	ps = ComputePageStats(rows, 1)
	assert.False(t, ps.HasAge)
	assert.False(t, ps.HasSurvival)
}

func TestExportCSVAndXLSX(t *testing.T) {
	cols := []string{"PassengerId", "Name", "Survived", "Age", "Fare"}
	rows := Filter(passengers(), "mrs")

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, "csv", cols, rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "PassengerId,Name,Survived,Age,Fare", lines[0])
	assert.Equal(t, `2,"Cumings, Mrs. John Bradley",1,38,71.2833`, lines[1])

	buf.Reset()
	require.NoError(t, Export(&buf, "xlsx", cols, rows))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	got, err := f.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Name", got[0][1])
	assert.Equal(t, "Futrelle, Mrs. Jacques Heath", got[2][1])

	_, err = ExportFormatFor("out.json")
	assert.Error(t, err)
	format, err := ExportFormatFor("OUT.XLSX")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", format)
}

func TestColumnFilter(t *testing.T) {
	rows := passengers()
	got := ColumnFilter{Column: "survived", Value: "1"}.Apply(rows)
	assert.Equal(t, []string{"2", "3", "4"}, ids(got))
	assert.Len(t, ColumnFilter{}.Apply(rows), len(rows))
	assert.Empty(t, ColumnFilter{Column: "Deck", Value: "A"}.Apply(rows))
}
