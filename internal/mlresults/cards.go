package mlresults

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/KaramelBytes/titanic-analytics/internal/table"
)

// Tabs of the model view, in display order.
var Tabs = []string{"performance", "features", "predictions", "analysis"}

// ValidTab reports whether t is one of Tabs.
func ValidTab(t string) bool {
	for _, x := range Tabs {
		if x == t {
			return true
		}
	}
	return false
}

// Metric is one performance card.
type Metric struct {
	Title       string
	Value       string
	Description string
}

// Performance shows the backend's numbers as reported.
func Performance(p api.ModelPerformance) []Metric {
	acc := "N/A"
	if p.Accuracy != 0 {
		acc = fmt.Sprintf("%.1f%%", p.Accuracy*100)
	}
	return []Metric{
		{"Accuracy", acc, "Accuracy Score"},
		{"Training Samples", fmt.Sprint(p.TrainingSamples), "Rows used to fit"},
		{"Testing Samples", fmt.Sprint(p.TestingSamples), "Held-out rows"},
		{"Features Used", fmt.Sprint(p.FeatureCount), "Engineered inputs"},
	}
}

// Interpretation is the one-paragraph model summary.
func Interpretation(p api.ModelPerformance) string {
	model := p.ModelType
	if model == "" {
		model = "model"
	}
	return fmt.Sprintf("The %s achieves %.1f%% accuracy in predicting passenger survival using %d engineered features.",
		model, p.Accuracy*100, p.FeatureCount)
}

// Card is one sample prediction as displayed.
type Card struct {
	PassengerID string
	Name        string
	Predicted   bool
	Actual      bool
	Correct     bool
	Probability string
	Class       string
	Age         string
	Gender      string
	Fare        string
}

func (c Card) PredictedBadge() string {
	if c.Predicted {
		return "✅ Predicted: Survived"
	}
	return "❌ Predicted: Perished"
}

func (c Card) ActualBadge() string {
	if c.Actual {
		return "Actual: Survived"
	}
	return "Actual: Perished"
}

// Verdict is the card footer: correct or incorrect prediction.
func (c Card) Verdict() string {
	if c.Correct {
		return "✓ Correct Prediction"
	}
	return "✗ Incorrect Prediction"
}

// Cards builds the prediction cards. Correct is recomputed from predicted
// and actual; the backend's own flag is ignored.
func Cards(samples []api.SamplePrediction) []Card {
	out := make([]Card, 0, len(samples))
	for _, s := range samples {
		c := Card{
			PassengerID: table.PassengerID(s.PassengerData),
			Predicted:   s.PredictedSurvival != 0,
			Actual:      s.ActualSurvival != 0,
			Probability: fmt.Sprintf("%d%%", int(math.Round(s.SurvivalProbability*100))),
			Class:       "N/A",
			Age:         "N/A yrs",
			Gender:      "N/A",
			Fare:        "$N/A",
		}
		c.Correct = c.Predicted == c.Actual
		if v, ok := s.PassengerData.Get("Name"); ok && v != nil {
			c.Name = table.Stringify(v)
		}
		if v, ok := s.PassengerData.Get("Pclass"); ok && v != nil {
			c.Class = table.Stringify(v)
		}
		if v, ok := number(s.PassengerData, "Age"); ok {
			c.Age = fmt.Sprintf("%d yrs", int(math.Round(v)))
		}
		if v, ok := s.PassengerData.Get("Sex"); ok && v != nil {
			c.Gender = table.Stringify(v)
		}
		if v, ok := number(s.PassengerData, "Fare"); ok {
			c.Fare = fmt.Sprintf("$%.2f", v)
		}
		out = append(out, c)
	}
	return out
}

func number(r api.Record, col string) (float64, bool) {
	v, ok := r.Get(col)
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok && !math.IsNaN(f)
}
