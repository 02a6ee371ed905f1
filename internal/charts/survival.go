// Package charts turns survival-rate and summary payloads into labelled,
// coloured series and renders them as SVG bar charts.
package charts

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
)

// Point is one bar: a display label, a value and its fill colour.
type Point struct {
	Label string
	Value float64
	Color string
}

// Series is one breakdown chart. Values are percentages.
type Series struct {
	Key         string
	Title       string
	Description string
	Points      []Point
}

// Breakdown keys, in selector order.
const (
	ByClass    = "class"
	BySex      = "sex"
	ByEmbarked = "embarked"
	ByTitle    = "title"
)

// Keys lists the breakdowns in the order the selector shows them.
var Keys = []string{ByClass, BySex, ByEmbarked, ByTitle}

var meta = map[string]struct{ title, description string }{
	ByClass:    {"Passenger Class", "Survival rates by ticket class"},
	BySex:      {"Gender", "Survival rates by gender"},
	ByEmbarked: {"Embarkation Port", "Survival rates by boarding location"},
	ByTitle:    {"Passenger Title", "Survival rates by social title"},
}

// ValidKey reports whether key names a breakdown.
func ValidKey(key string) bool {
	_, ok := meta[key]
	return ok
}

// SurvivalSeries builds the four breakdown series from the payload, in Keys order.
func SurvivalSeries(r *api.SurvivalRates) []Series {
	if r == nil {
		return nil
	}
	out := make([]Series, 0, len(Keys))
	for _, k := range Keys {
		s, _ := Breakdown(r, k)
		out = append(out, s)
	}
	return out
}

// Breakdown builds one series by key.
func Breakdown(r *api.SurvivalRates, key string) (Series, error) {
	m, ok := meta[key]
	if !ok {
		return Series{}, fmt.Errorf("unknown breakdown %q (use %s)", key, strings.Join(Keys, ", "))
	}
	s := Series{Key: key, Title: m.title, Description: m.description}
	if r == nil {
		return s, nil
	}
	var src api.OrderedFloats
	var label func(string) (string, string)
	switch key {
	case ByClass:
		src, label = r.ByClass, classLabel
	case BySex:
		src, label = r.BySex, sexLabel
	case ByEmbarked:
		src, label = r.ByEmbarked, portLabel
	case ByTitle:
		src, label = r.ByTitle, titleLabel
	}
	for _, kv := range src {
		if math.IsNaN(kv.Value) {
			continue
		}
		l, c := label(kv.Key)
		s.Points = append(s.Points, Point{Label: l, Value: kv.Value * 100, Color: c})
	}
	return s, nil
}

func classLabel(k string) (string, string) {
	// pandas may serialise the class key as "1" or "1.0"
	k = strings.TrimSuffix(k, ".0")
	color := "#ec4899"
	switch k {
	case "1":
		color = "#6366f1"
	case "2":
		color = "#8b5cf6"
	}
	return "Class " + k, color
}

func sexLabel(k string) (string, string) {
	color := "#6366f1"
	if k == "female" {
		color = "#ec4899"
	}
	return capitalize(k), color
}

func portLabel(k string) (string, string) {
	switch k {
	case "C":
		return "Cherbourg", "#10b981"
	case "Q":
		return "Queenstown", "#f59e0b"
	}
	return "Southampton", "#6366f1"
}

func titleLabel(k string) (string, string) {
	switch k {
	case "Mrs":
		return k, "#ec4899"
	case "Miss":
		return k, "#f472b6"
	case "Master":
		return k, "#60a5fa"
	}
	return k, "#6b7280"
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// Highest returns the largest value in the series; ok is false when empty.
func (s Series) Highest() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	best := s.Points[0]
	for _, p := range s.Points[1:] {
		if p.Value > best.Value {
			best = p
		}
	}
	return best, true
}

// HighestLabel is the "Highest Survival Rate" headline, e.g. "62.9%".
func (s Series) HighestLabel() string {
	p, ok := s.Highest()
	if !ok {
		return "N/A"
	}
	return Percent(p.Value)
}

// Percent formats a percentage with one decimal.
func Percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}
