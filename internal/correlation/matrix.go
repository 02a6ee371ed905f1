// Package correlation presents the feature-by-feature coefficient matrix:
// cell text, colour bands, strength labels and the hover inspector.
package correlation

import (
	"fmt"
	"math"
	"sync"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
)

// Matrix is an ordered, square view over the /correlation payload.
type Matrix struct {
	features []string
	index    map[string]int
	rows     []api.CorrelationRow
}

// New builds a Matrix. Features keep payload order.
func New(m api.CorrelationMatrix) *Matrix {
	mx := &Matrix{features: m.Features(), index: make(map[string]int, len(m)), rows: m}
	for i, f := range mx.features {
		mx.index[f] = i
	}
	return mx
}

// Features are the row and column labels in order.
func (m *Matrix) Features() []string { return m.features }

func (m *Matrix) Len() int { return len(m.features) }

// Has reports whether f is one of the matrix features.
func (m *Matrix) Has(f string) bool {
	_, ok := m.index[f]
	return ok
}

// Value returns the raw coefficient for (row, col). ok is false when either
// feature is unknown or the payload has no finite value for the pair.
func (m *Matrix) Value(row, col string) (float64, bool) {
	i, ok := m.index[row]
	if !ok {
		return 0, false
	}
	v, ok := m.rows[i].Values.Get(col)
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Cell is one rendered grid cell.
type Cell struct {
	Row, Col string
	Value    float64
	Text     string
	Band     Band
	Diagonal bool
	Missing  bool
}

// Cell renders (row, col). The diagonal always reads "1.000".
func (m *Matrix) Cell(row, col string) Cell {
	c := Cell{Row: row, Col: col, Diagonal: row == col}
	v, ok := m.Value(row, col)
	c.Value = v
	switch {
	case c.Diagonal:
		c.Text = "1.000"
		c.Band = Band{Family: Diagonal}
	case !ok:
		c.Missing = true
		c.Text = "—"
		c.Band = Band{Family: Neutral}
	default:
		c.Text = fmt.Sprintf("%.3f", v)
		c.Band = BandFor(v)
	}
	return c
}

// Grid renders every cell, row-major in feature order.
func (m *Matrix) Grid() [][]Cell {
	out := make([][]Cell, len(m.features))
	for i, r := range m.features {
		out[i] = make([]Cell, len(m.features))
		for j, c := range m.features {
			out[i][j] = m.Cell(r, c)
		}
	}
	return out
}

// Inspector holds the single currently inspected pair. It is safe for
// concurrent use.
type Inspector struct {
	mu     sync.Mutex
	m      *Matrix
	sel    Selection
	active bool
}

// Selection is the detail shown for an inspected pair.
type Selection struct {
	Row, Col string
	Value    float64
	Strength string
}

// Coefficient is the raw value with three decimals.
func (s Selection) Coefficient() string { return fmt.Sprintf("%.3f", s.Value) }

func (s Selection) String() string {
	return fmt.Sprintf("%s × %s: %s (%s)", s.Row, s.Col, s.Coefficient(), s.Strength)
}

// NewInspector returns an inspector with nothing selected.
func NewInspector(m *Matrix) *Inspector { return &Inspector{m: m} }

// Hover replaces the inspected pair. Unknown features leave the selection
// unchanged and return false.
func (in *Inspector) Hover(row, col string) bool {
	if !in.m.Has(row) || !in.m.Has(col) {
		return false
	}
	v, ok := in.m.Value(row, col)
	if !ok && row == col {
		v, ok = 1, true
	}
	if !ok {
		return false
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.sel = Selection{Row: row, Col: col, Value: v, Strength: Strength(v)}
	in.active = true
	return true
}

// Selected returns the inspected pair, if any.
func (in *Inspector) Selected() (Selection, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.sel, in.active
}
