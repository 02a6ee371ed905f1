// Package mlresults presents the survival model's output: ranked feature
// importance, performance cards, sample predictions and per-feature analysis.
package mlresults

import (
	"math"
	"sort"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
)

// DefaultTopN is how many features the importance chart shows.
const DefaultTopN = 8

const (
	labelMax  = 12
	labelKeep = 10
)

// Direction is the sign of a feature's influence on survival.
type Direction string

const (
	Positive Direction = "Positive"
	Negative Direction = "Negative"
)

// Feature is one ranked importance entry.
type Feature struct {
	Name       string
	Label      string
	Importance float64
	Direction  Direction
}

// Magnitude is |Importance|; ranking uses it.
func (f Feature) Magnitude() float64 { return math.Abs(f.Importance) }

// Label shortens long feature names for chart axes.
func Label(name string) string {
	r := []rune(name)
	if len(r) > labelMax {
		return string(r[:labelKeep]) + "..."
	}
	return name
}

// TopFeatures ranks importance by magnitude, keeping payload order for ties,
// and returns at most n entries. n <= 0 returns all.
func TopFeatures(importance api.OrderedFloats, n int) []Feature {
	out := make([]Feature, 0, len(importance))
	for _, kv := range importance {
		if math.IsNaN(kv.Value) {
			continue
		}
		d := Negative
		if kv.Value > 0 {
			d = Positive
		}
		out = append(out, Feature{Name: kv.Key, Label: Label(kv.Key), Importance: kv.Value, Direction: d})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Magnitude() > out[j].Magnitude() })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Influences splits ranked features into the top k positive and top k
// negative entries.
func Influences(ranked []Feature, k int) (pos, neg []Feature) {
	for _, f := range ranked {
		switch {
		case f.Direction == Positive && len(pos) < k:
			pos = append(pos, f)
		case f.Direction == Negative && len(neg) < k:
			neg = append(neg, f)
		}
	}
	return pos, neg
}
