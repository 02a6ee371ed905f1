package charts

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ratesJSON = `{
  "by_class": {"1": 0.6296296296, "2": 0.4728260870, "3": 0.2423625255},
  "by_sex": {"female": 0.7420382166, "male": 0.1889081456},
  "by_embarked": {"C": 0.5535714286, "Q": 0.3896103896, "S": 0.3369565217},
  "by_title": {"Master": 0.575, "Miss": 0.7027, "Mr": 0.1567, "Mrs": 0.792, "Rare": 0.3478}
}`

func rates(t *testing.T) *api.SurvivalRates {
	t.Helper()
	var r api.SurvivalRates
	require.NoError(t, json.Unmarshal([]byte(ratesJSON), &r))
	return &r
}

func TestClassBreakdown(t *testing.T) {
	s, err := Breakdown(rates(t), ByClass)
	require.NoError(t, err)
	require.Len(t, s.Points, 3)
	assert.Equal(t, "Class 1", s.Points[0].Label)
	assert.Equal(t, "#6366f1", s.Points[0].Color)
	assert.Equal(t, "#ec4899", s.Points[2].Color)
	assert.Equal(t, "63.0%", s.HighestLabel(), "one decimal, rounded")
	assert.Equal(t, "Passenger Class", s.Title)
}

func TestLabelsAndColors(t *testing.T) {
	r := rates(t)
	sex, _ := Breakdown(r, BySex)
	assert.Equal(t, []string{"Female", "Male"}, []string{sex.Points[0].Label, sex.Points[1].Label})
	assert.Equal(t, "#ec4899", sex.Points[0].Color)

	port, _ := Breakdown(r, ByEmbarked)
	assert.Equal(t, "Cherbourg", port.Points[0].Label)
	assert.Equal(t, "#10b981", port.Points[0].Color)
	assert.Equal(t, "Southampton", port.Points[2].Label)

	title, _ := Breakdown(r, ByTitle)
	assert.Equal(t, "#6b7280", title.Points[2].Color, "Mr uses the neutral colour")
	assert.Equal(t, "79.2%", title.HighestLabel())

	_, err := Breakdown(r, "deck")
	assert.Error(t, err)
	assert.False(t, ValidKey("deck"))
}

func TestClassKeyAsFloat(t *testing.T) {
	var r api.SurvivalRates
	require.NoError(t, json.Unmarshal([]byte(`{"by_class":{"1.0":0.5,"3.0":0.25}}`), &r))
	s, _ := Breakdown(&r, ByClass)
	assert.Equal(t, "Class 1", s.Points[0].Label)
	assert.Equal(t, "Class 3", s.Points[1].Label)
}

func TestEmptySeries(t *testing.T) {
	s, err := Breakdown(&api.SurvivalRates{}, BySex)
	require.NoError(t, err)
	assert.Equal(t, "N/A", s.HighestLabel())
	assert.True(t, errors.Is(RenderSVG(&bytes.Buffer{}, s), ErrEmptySeries))
	assert.Len(t, SurvivalSeries(&api.SurvivalRates{}), 4)
	assert.Nil(t, SurvivalSeries(nil))
}

func TestRenderSVG(t *testing.T) {
	s, _ := Breakdown(rates(t), BySex)
	var buf bytes.Buffer
	require.NoError(t, RenderSVG(&buf, s))
	assert.Contains(t, buf.String(), "<svg")

	buf.Reset()
	require.NoError(t, RenderImportanceSVG(&buf, "Feature Importance", []Bar{
		{"Sex_male", -2.5}, {"Pclass", -1.1}, {"Fare", 0.4},
	}))
	assert.Contains(t, buf.String(), "<svg")
}

func TestSummaryCards(t *testing.T) {
	var s api.Summary
	require.NoError(t, json.Unmarshal([]byte(`{
	  "Survived": {"count": 891, "mean": 0.3838383838},
	  "Age": {"count": 714, "mean": 29.6991176471},
	  "Fare": {"count": 891, "mean": 32.2042079686}
	}`), &s))
	cards := SummaryCards(s)
	require.Len(t, cards, 4)
	assert.Equal(t, "714", cards[0].Value)
	assert.Equal(t, "29.7 yrs", cards[1].Value)
	assert.Equal(t, "$32.20", cards[2].Value)
	assert.Equal(t, "38.4%", cards[3].Value)

	empty := SummaryCards(nil)
	for _, c := range empty {
		assert.Equal(t, "N/A", c.Value)
	}
}

func TestInsights(t *testing.T) {
	in := Insights(rates(t))
	require.Len(t, in, 4)
	assert.Equal(t, "63% of 1st class passengers survived vs 24% in 3rd class", in[0].Description)
	assert.Equal(t, "74% of females survived vs only 19% of males", in[1].Description)
	assert.Equal(t, "Cherbourg had highest survival rate at 55%", in[2].Description)
	assert.Contains(t, in[3].Description, "Mrs")

	assert.Empty(t, Insights(&api.SurvivalRates{}))
}
