package mlresults

import (
	"encoding/json"
	"testing"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func importance(t *testing.T, raw string) api.OrderedFloats {
	t.Helper()
	var o api.OrderedFloats
	require.NoError(t, json.Unmarshal([]byte(raw), &o))
	return o
}

func names(fs []Feature) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}

func TestTopFeaturesRanksByMagnitude(t *testing.T) {
	imp := importance(t, `{"Pclass": -0.9, "Sex_male": -2.5, "Fare": 0.4, "Age": -0.4, "Title_Mrs": 1.2}`)
	top := TopFeatures(imp, 3)
	assert.Equal(t, []string{"Sex_male", "Title_Mrs", "Pclass"}, names(top))
	assert.Equal(t, Negative, top[0].Direction)
	assert.Equal(t, Positive, top[1].Direction)

	all := TopFeatures(imp, 0)
	assert.Equal(t, []string{"Sex_male", "Title_Mrs", "Pclass", "Fare", "Age"}, names(all), "ties keep payload order")
}

func TestTopFeaturesSignInvariant(t *testing.T) {
	a := TopFeatures(importance(t, `{"a": 0.5, "b": -0.7, "c": 0.1}`), DefaultTopN)
	b := TopFeatures(importance(t, `{"a": -0.5, "b": 0.7, "c": -0.1}`), DefaultTopN)
	assert.Equal(t, names(a), names(b))
}

func TestTopFeaturesCapsAtEight(t *testing.T) {
	imp := importance(t, `{"f1":1,"f2":2,"f3":3,"f4":4,"f5":5,"f6":6,"f7":7,"f8":8,"f9":9,"f10":10}`)
	top := TopFeatures(imp, DefaultTopN)
	require.Len(t, top, 8)
	assert.Equal(t, "f10", top[0].Name)
	assert.Equal(t, "f3", top[7].Name)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "FamilySize", Label("FamilySize"))
	assert.Equal(t, "Embarked_QQ", Label("Embarked_QQ"))
	assert.Equal(t, "IsAlone_Yes_", Label("IsAlone_Yes_"), "twelve characters fit")
	assert.Equal(t, "Embarked_Q...", Label("Embarked_Queenstown"))
}

func TestInfluences(t *testing.T) {
	imp := importance(t, `{"a": 0.9, "b": -0.8, "c": 0.7, "d": 0.6, "e": 0.5, "f": -0.4, "g": 0}`)
	pos, neg := Influences(TopFeatures(imp, DefaultTopN), 3)
	assert.Equal(t, []string{"a", "c", "d"}, names(pos))
	assert.Equal(t, []string{"b", "f", "g"}, names(neg), "zero counts as negative")
}

func TestCardsDeriveCorrectness(t *testing.T) {
	var res api.RegressionResult
	require.NoError(t, json.Unmarshal([]byte(`{
	  "model_performance": {"accuracy": 0.8212, "training_samples": 712, "testing_samples": 179, "model_type": "Logistic Regression", "feature_count": 14},
	  "feature_importance": {"Sex_male": -2.5},
	  "sample_predictions": [
	    {"passenger_data": {"PassengerId": 1, "Pclass": 3, "Sex": "male", "Age": 22.6, "Fare": 7.25},
	     "predicted_survival": 0, "actual_survival": 0, "survival_probability": 0.084, "correct": false},
	    {"passenger_data": {"PassengerId": 2, "Pclass": 1, "Sex": "female", "Age": null, "Fare": 71.2833},
	     "predicted_survival": 1, "actual_survival": 0, "survival_probability": 0.917, "correct": true}
	  ],
	  "status": "success"
	}`), &res))

	cards := Cards(res.SamplePredictions)
	require.Len(t, cards, 2)
	assert.True(t, cards[0].Correct, "backend flag is ignored")
	assert.Equal(t, "✓ Correct Prediction", cards[0].Verdict())
	assert.Equal(t, "8%", cards[0].Probability)
	assert.Equal(t, "23 yrs", cards[0].Age)
	assert.Equal(t, "$7.25", cards[0].Fare)
	assert.Equal(t, "3", cards[0].Class)
	assert.Equal(t, "❌ Predicted: Perished", cards[0].PredictedBadge())

	assert.False(t, cards[1].Correct)
	assert.Equal(t, "✗ Incorrect Prediction", cards[1].Verdict())
	assert.Equal(t, "N/A yrs", cards[1].Age)
	assert.Equal(t, "92%", cards[1].Probability)
	assert.Equal(t, "Actual: Perished", cards[1].ActualBadge())

	perf := Performance(res.Performance)
	assert.Equal(t, "82.1%", perf[0].Value)
	assert.Equal(t, "712", perf[1].Value)
	assert.Equal(t, "14", perf[3].Value)
	assert.Contains(t, Interpretation(res.Performance), "82.1% accuracy")
	assert.Equal(t, "N/A", Performance(api.ModelPerformance{})[0].Value)
}

func TestAnalysisCards(t *testing.T) {
	var fa api.FeatureAnalysis
	require.NoError(t, json.Unmarshal([]byte(`{
	  "Sex": {"survival_by_group": {"female": 0.742, "male": 0.189}, "correlation_with_survival": "N/A", "mean_survival": "N/A", "feature_type": "categorical"},
	  "Pclass": {"survival_by_group": {"1": 0.63, "2": 0.473, "3": 0.242}, "correlation_with_survival": -0.338, "mean_survival": {"survived": 1.95, "died": 2.53}, "feature_type": "discrete"},
	  "Broken": {"feature_type": "error"},
	  "a": {"feature_type": "continuous"}, "b": {"feature_type": "continuous"},
	  "c": {"feature_type": "continuous"}, "d": {"feature_type": "continuous"}
	}`), &fa))

	cards := AnalysisCards(fa)
	require.Len(t, cards, 6)
	assert.Equal(t, "N/A", cards[0].Correlation)
	assert.Equal(t, []Group{{"female", 0.742, "74%"}, {"male", 0.189, "19%"}}, cards[0].Groups)

	assert.Equal(t, "-0.34", cards[1].Correlation)
	assert.Equal(t, -1, cards[1].Sign)
	assert.Len(t, cards[1].Groups, 2)
	assert.Equal(t, "1.95", cards[1].MeanSurvived)

	assert.True(t, cards[2].Failed)
	assert.Equal(t, "c", cards[5].Name)
}

func TestValidTab(t *testing.T) {
	assert.True(t, ValidTab("predictions"))
	assert.False(t, ValidTab("raw"))
}
