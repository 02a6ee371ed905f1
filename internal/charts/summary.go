package charts

import (
	"fmt"
	"math"
	"strconv"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
)

// Card is a headline metric on the dashboard.
type Card struct {
	Icon        string
	Title       string
	Value       string
	Description string
}

// SummaryCards derives the four dataset overview cards from /summary.
// Any card whose column is missing shows "N/A".
func SummaryCards(s api.Summary) []Card {
	cards := []Card{
		{Icon: "👥", Title: "Total Passengers", Value: "N/A", Description: "Dataset size"},
		{Icon: "🎂", Title: "Average Age", Value: "N/A", Description: "Mean passenger age"},
		{Icon: "💰", Title: "Average Fare", Value: "N/A", Description: "Mean ticket price"},
		{Icon: "🛟", Title: "Survival Rate", Value: "N/A", Description: "Overall survival rate"},
	}
	if age, ok := s.Column("Age"); ok {
		if valid(age.Count) && age.Count > 0 {
			cards[0].Value = strconv.Itoa(int(age.Count))
		}
		if valid(age.Mean) {
			cards[1].Value = fmt.Sprintf("%.1f yrs", age.Mean)
		}
	}
	if fare, ok := s.Column("Fare"); ok && valid(fare.Mean) {
		cards[2].Value = fmt.Sprintf("$%.2f", fare.Mean)
	}
	if surv, ok := s.Column("Survived"); ok && valid(surv.Mean) {
		cards[3].Value = Percent(surv.Mean * 100)
	}
	return cards
}

func valid(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Insight is a one-line observation derived from the breakdowns.
type Insight struct {
	Icon        string
	Title       string
	Description string
}

// Insights derives headline observations from the survival breakdowns,
// skipping any whose inputs are missing.
func Insights(r *api.SurvivalRates) []Insight {
	if r == nil {
		return nil
	}
	var out []Insight
	first, ok1 := lookup(r.ByClass, "1", "1.0")
	third, ok3 := lookup(r.ByClass, "3", "3.0")
	if ok1 && ok3 {
		out = append(out, Insight{"👑", "First Class Advantage",
			fmt.Sprintf("%.0f%% of 1st class passengers survived vs %.0f%% in 3rd class", first*100, third*100)})
	}
	female, okF := r.BySex.Get("female")
	male, okM := r.BySex.Get("male")
	if okF && okM {
		out = append(out, Insight{"🚺", "Gender Gap",
			fmt.Sprintf("%.0f%% of females survived vs only %.0f%% of males", female*100, male*100)})
	}
	if s, err := Breakdown(r, ByEmbarked); err == nil {
		if p, ok := s.Highest(); ok {
			out = append(out, Insight{"⚓", "Port Impact",
				fmt.Sprintf("%s had highest survival rate at %.0f%%", p.Label, p.Value)})
		}
	}
	if s, err := Breakdown(r, ByTitle); err == nil {
		if p, ok := s.Highest(); ok {
			out = append(out, Insight{"👶", "Social Status",
				fmt.Sprintf("Passengers titled %s fared best at %.0f%%", p.Label, p.Value)})
		}
	}
	return out
}

func lookup(o api.OrderedFloats, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := o.Get(k); ok && valid(v) {
			return v, true
		}
	}
	return 0, false
}
