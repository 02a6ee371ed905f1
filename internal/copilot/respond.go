package copilot

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
)

// Stats feeds the local responder. Rates are percentages.
type Stats struct {
	OverallSurvival     float64
	TotalPassengers     int
	FemaleSurvival      float64
	MaleSurvival        float64
	FirstClassSurvival  float64
	SecondClassSurvival float64
	ThirdClassSurvival  float64
	ModelAccuracy       float64
	AverageAge          float64
	AverageFare         float64
	ModelType           string
	TrainingSamples     int
	TestingSamples      int
}

// DefaultStats are the figures used when nothing has been loaded.
func DefaultStats() Stats {
	return Stats{
		OverallSurvival:     38.4,
		TotalPassengers:     891,
		FemaleSurvival:      74.2,
		MaleSurvival:        18.9,
		FirstClassSurvival:  62.9,
		SecondClassSurvival: 47.3,
		ThirdClassSurvival:  24.2,
		ModelAccuracy:       84.3,
		AverageAge:          29.7,
		AverageFare:         32.2,
		ModelType:           "Random Forest",
		TrainingSamples:     712,
		TestingSamples:      179,
	}
}

// StatsFrom overlays whatever dataset slices are available onto the
// defaults. Any argument may be nil.
func StatsFrom(info *api.DatasetInfo, summary api.Summary, rates *api.SurvivalRates, model *api.RegressionResult) Stats {
	s := DefaultStats()
	if info != nil && info.Rows() > 0 {
		s.TotalPassengers = info.Rows()
	}
	if c, ok := summary.Column("Survived"); ok && finite(c.Mean) {
		s.OverallSurvival = round1(c.Mean * 100)
	}
	if c, ok := summary.Column("Age"); ok && finite(c.Mean) {
		s.AverageAge = round1(c.Mean)
	}
	if c, ok := summary.Column("Fare"); ok && finite(c.Mean) {
		s.AverageFare = round1(c.Mean)
	}
	if rates != nil {
		set := func(dst *float64, o api.OrderedFloats, keys ...string) {
			for _, k := range keys {
				if v, ok := o.Get(k); ok && finite(v) {
					*dst = round1(v * 100)
					return
				}
			}
		}
		set(&s.FemaleSurvival, rates.BySex, "female")
		set(&s.MaleSurvival, rates.BySex, "male")
		set(&s.FirstClassSurvival, rates.ByClass, "1", "1.0")
		set(&s.SecondClassSurvival, rates.ByClass, "2", "2.0")
		set(&s.ThirdClassSurvival, rates.ByClass, "3", "3.0")
	}
	if model != nil && model.Performance.Accuracy > 0 {
		p := model.Performance
		s.ModelAccuracy = round1(p.Accuracy * 100)
		if p.ModelType != "" {
			s.ModelType = p.ModelType
		}
		if p.TrainingSamples > 0 {
			s.TrainingSamples = p.TrainingSamples
		}
		if p.TestingSamples > 0 {
			s.TestingSamples = p.TestingSamples
		}
	}
	return s
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func round1(f float64) float64 { return math.Round(f*10) / 10 }

// num prints the shortest representation, so 38.4 stays "38.4" and 84 "84".
func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// Reply is a normalised assistant answer.
type Reply struct {
	Text        string
	Type        string
	Suggestions []Suggestion
}

const (
	fallbackNote = "*Note: Using fallback data - API connection issue*"
)

// Respond answers question locally from stats. The first matching keyword
// group wins; it never fails and never touches the network.
func Respond(question, view string, st Stats) Reply {
	q := strings.ToLower(question)
	has := func(s string) bool { return strings.Contains(q, s) }

	switch {
	case has("accuracy") || has("model"):
		return Reply{Type: "model_info", Text: fmt.Sprintf(
			"**Model Accuracy:** %s%%\n\n**Details:**\n• Model Type: %s\n• Training Samples: %d passengers\n• Testing Samples: %d passengers\n• Top Features: Pclass, Sex, Fare, Age, Title\n\n%s",
			num(st.ModelAccuracy), st.ModelType, st.TrainingSamples, st.TestingSamples, fallbackNote)}
	case has("survival") && has("overall"):
		survivors := int(math.Round(float64(st.TotalPassengers) * st.OverallSurvival / 100))
		return Reply{Type: "statistics", Text: fmt.Sprintf(
			"**Overall Survival Rate:** %s%%\n\nThat's **%d survivors** out of %d total passengers.\n\n%s",
			num(st.OverallSurvival), survivors, st.TotalPassengers, fallbackNote)}
	case has("female") && has("survival"):
		return Reply{Type: "statistics", Text: fmt.Sprintf(
			"**Female Survival Rate:** %s%%\n**Male Survival Rate:** %s%%\n\nFemale passengers were much more likely to survive.\n\n%s",
			num(st.FemaleSurvival), num(st.MaleSurvival), fallbackNote)}
	case has("class") && has("survival"):
		return Reply{Type: "statistics", Text: fmt.Sprintf(
			"**Survival by Passenger Class:**\n\n• **First Class:** %s%%\n• **Second Class:** %s%%\n• **Third Class:** %s%%\n\nFirst class passengers had the highest survival rates.\n\n%s",
			num(st.FirstClassSurvival), num(st.SecondClassSurvival), num(st.ThirdClassSurvival), fallbackNote)}
	case has("average age"):
		return Reply{Type: "statistics", Text: fmt.Sprintf(
			"The **average age** of passengers was **%s years**.\n\n%s", num(st.AverageAge), fallbackNote)}
	case has("help") || has("what can"):
		return Reply{Type: "navigation", Text: fmt.Sprintf(
			"**You're in the %s section!**\n\nI can help you with:\n• Survival statistics and rates\n• Passenger demographics\n• Model accuracy and predictions\n• Data analysis insights\n\nTry asking specific questions about the Titanic data!\n\n*Note: In fallback mode - Some features limited*",
			view)}
	}
	return Reply{Type: TypeFallback, Text: fmt.Sprintf(
		"I can help analyze Titanic data! Here's what I know:\n\n• Overall survival: %s%%\n• Female survival: %s%%\n• Model accuracy: %s%%\n• Average age: %s years\n\nTry asking about specific survival rates or passenger statistics!\n\n*Note: Using fallback mode - Backend connection issue*",
		num(st.OverallSurvival), num(st.FemaleSurvival), num(st.ModelAccuracy), num(st.AverageAge))}
}
