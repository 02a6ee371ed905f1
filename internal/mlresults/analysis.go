package mlresults

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
)

const (
	analysisCards = 6
	groupsShown   = 2
)

// Group is one category's survival rate within a feature.
type Group struct {
	Label   string
	Rate    float64
	Percent string
}

// FeatureCard summarises one analysed feature.
type FeatureCard struct {
	Name        string
	Type        string
	Failed      bool
	Correlation string
	// Sign is +1, -1 or 0 for colouring the correlation.
	Sign         int
	Groups       []Group
	MeanSurvived string
	MeanDied     string
}

// AnalysisCards builds cards for the first six analysed features, each
// showing its first two groups.
func AnalysisCards(fa api.FeatureAnalysis) []FeatureCard {
	n := min(len(fa), analysisCards)
	out := make([]FeatureCard, 0, n)
	for _, st := range fa[:n] {
		c := FeatureCard{Name: st.Feature, Type: st.Type, Correlation: "N/A", MeanSurvived: "N/A", MeanDied: "N/A"}
		if st.Type == "error" {
			c.Failed = true
			out = append(out, c)
			continue
		}
		if st.Correlation != nil && !math.IsNaN(*st.Correlation) {
			c.Correlation = fmt.Sprintf("%.2f", *st.Correlation)
			switch {
			case *st.Correlation > 0:
				c.Sign = 1
			case *st.Correlation < 0:
				c.Sign = -1
			}
		}
		for i, kv := range st.SurvivalByGroup {
			if i == groupsShown {
				break
			}
			rate := kv.Value
			if math.IsNaN(rate) {
				rate = 0
			}
			c.Groups = append(c.Groups, Group{
				Label:   kv.Key,
				Rate:    rate,
				Percent: fmt.Sprintf("%d%%", int(math.Round(rate*100))),
			})
		}
		if st.MeanSurvived != nil {
			c.MeanSurvived = fmt.Sprintf("%.2f", *st.MeanSurvived)
		}
		if st.MeanDied != nil {
			c.MeanDied = fmt.Sprintf("%.2f", *st.MeanDied)
		}
		out = append(out, c)
	}
	return out
}
