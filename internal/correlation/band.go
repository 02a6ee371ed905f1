package correlation

import (
	"math"
	"sort"
)

// Family is the colour family of a cell.
type Family string

const (
	Positive Family = "positive"
	Negative Family = "negative"
	Neutral  Family = "neutral"
	Diagonal Family = "diagonal"
)

// Band is a cell's colour bucket. Level runs 0 (neutral) to 3 (strongest).
type Band struct {
	Family Family
	Level  int
}

// BandFor buckets a coefficient by |v|: >0.7, >0.5, >0.3, else neutral.
func BandFor(v float64) Band {
	a := math.Abs(v)
	level := 0
	switch {
	case a > 0.7:
		level = 3
	case a > 0.5:
		level = 2
	case a > 0.3:
		level = 1
	}
	if level == 0 {
		return Band{Family: Neutral}
	}
	if v < 0 {
		return Band{Family: Negative, Level: level}
	}
	return Band{Family: Positive, Level: level}
}

var palette = map[Family][4]string{
	Positive: {"#f3f4f6", "#bbf7d0", "#4ade80", "#16a34a"},
	Negative: {"#f3f4f6", "#fecaca", "#f87171", "#dc2626"},
	Neutral:  {"#f3f4f6", "#f3f4f6", "#f3f4f6", "#f3f4f6"},
	Diagonal: {"#bfdbfe", "#bfdbfe", "#bfdbfe", "#bfdbfe"},
}

// Color is the background colour for the band.
func (b Band) Color() string {
	p, ok := palette[b.Family]
	if !ok || b.Level < 0 || b.Level > 3 {
		return palette[Neutral][0]
	}
	return p[b.Level]
}

// Class is a CSS class name, e.g. "corr-positive-2".
func (b Band) Class() string {
	if b.Family == Neutral || b.Family == Diagonal {
		return "corr-" + string(b.Family)
	}
	return "corr-" + string(b.Family) + "-" + string(rune('0'+b.Level))
}

// Strength labels |v|.
func Strength(v float64) string {
	a := math.Abs(v)
	switch {
	case a > 0.7:
		return "Very Strong"
	case a > 0.5:
		return "Strong"
	case a > 0.3:
		return "Moderate"
	case a > 0.1:
		return "Weak"
	}
	return "Very Weak"
}

// LegendEntry is one swatch in the colour key.
type LegendEntry struct {
	Label string
	Band  Band
}

// Legend lists the colour key from strong positive to strong negative.
func Legend() []LegendEntry {
	return []LegendEntry{
		{"Strong Positive", Band{Positive, 3}},
		{"Moderate Positive", Band{Positive, 2}},
		{"Weak/No Correlation", Band{Family: Neutral}},
		{"Moderate Negative", Band{Negative, 2}},
		{"Strong Negative", Band{Negative, 3}},
	}
}

// Pair is an off-diagonal feature pair with its coefficient.
type Pair struct {
	A, B  string
	Value float64
}

// StrongestPairs returns the n off-diagonal pairs with the largest |v|,
// each unordered pair once, ties kept in matrix order.
func (m *Matrix) StrongestPairs(n int) []Pair {
	var pairs []Pair
	for i, a := range m.features {
		for _, b := range m.features[i+1:] {
			if v, ok := m.Value(a, b); ok {
				pairs = append(pairs, Pair{a, b, v})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].Value) > math.Abs(pairs[j].Value)
	})
	if n >= 0 && len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

// Against returns every other feature's coefficient with target, strongest
// first. Used for "what drives survival" summaries.
func (m *Matrix) Against(target string) []Pair {
	if !m.Has(target) {
		return nil
	}
	var out []Pair
	for _, f := range m.features {
		if f == target {
			continue
		}
		if v, ok := m.Value(f, target); ok {
			out = append(out, Pair{f, target, v})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Value) > math.Abs(out[j].Value)
	})
	return out
}
