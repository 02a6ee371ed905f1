package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
)

// Keyed JSON objects coming from the backend carry meaningful order (feature
// order in the correlation matrix, insertion order for importance ties), so
// they are decoded with gjson into slices instead of Go maps.

var errNotObject = errors.New("expected JSON object")

// KeyValue is one entry of an ordered numeric object. Null values decode as NaN.
type KeyValue struct {
	Key   string
	Value float64
}

// OrderedFloats is a JSON object of numbers with its wire order preserved.
type OrderedFloats []KeyValue

func (o *OrderedFloats) UnmarshalJSON(b []byte) error {
	res := gjson.ParseBytes(b)
	if !res.IsObject() {
		return errNotObject
	}
	out := OrderedFloats{}
	var err error
	res.ForEach(func(k, v gjson.Result) bool {
		f, ferr := toFloat(v)
		if ferr != nil {
			err = fmt.Errorf("key %q: %w", k.String(), ferr)
			return false
		}
		out = append(out, KeyValue{Key: k.String(), Value: f})
		return true
	})
	if err != nil {
		return err
	}
	*o = out
	return nil
}

func (o OrderedFloats) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, kv := range o {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, _ := json.Marshal(kv.Key)
		buf = append(buf, k...)
		buf = append(buf, ':')
		if math.IsNaN(kv.Value) || math.IsInf(kv.Value, 0) {
			buf = append(buf, "null"...)
		} else {
			buf = strconv.AppendFloat(buf, kv.Value, 'g', -1, 64)
		}
	}
	return append(buf, '}'), nil
}

// Get returns the value stored under key.
func (o OrderedFloats) Get(key string) (float64, bool) {
	for _, kv := range o {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return 0, false
}

func (o OrderedFloats) Keys() []string {
	keys := make([]string, len(o))
	for i, kv := range o {
		keys[i] = kv.Key
	}
	return keys
}

func toFloat(v gjson.Result) (float64, error) {
	switch v.Type {
	case gjson.Number:
		return v.Float(), nil
	case gjson.Null:
		return math.NaN(), nil
	case gjson.True:
		return 1, nil
	case gjson.False:
		return 0, nil
	}
	return 0, fmt.Errorf("expected number, got %s", v.Type)
}

// DatasetInfo is the /info payload.
type DatasetInfo struct {
	Columns       []string          `json:"columns" yaml:"columns"`
	Shape         []int             `json:"shape" yaml:"shape"`
	MissingValues map[string]int    `json:"missing_values" yaml:"missing_values"`
	DataTypes     map[string]string `json:"data_types" yaml:"data_types"`
}

// Rows is shape[0], or 0 when the shape is missing.
func (d *DatasetInfo) Rows() int {
	if d == nil || len(d.Shape) == 0 {
		return 0
	}
	return d.Shape[0]
}

// Cols is shape[1], falling back to the column list.
func (d *DatasetInfo) Cols() int {
	if d == nil || len(d.Shape) < 2 {
		return len(d.safeColumns())
	}
	return d.Shape[1]
}

func (d *DatasetInfo) safeColumns() []string {
	if d == nil {
		return nil
	}
	return d.Columns
}

// ColumnStats is one column of a describe() style summary.
type ColumnStats struct {
	Count float64
	Mean  float64
	Std   float64
	Min   float64
	P25   float64
	P50   float64
	P75   float64
	Max   float64
}

type ColumnSummary struct {
	Name  string
	Stats ColumnStats
}

// Summary is the /summary payload in column order.
type Summary []ColumnSummary

func (s *Summary) UnmarshalJSON(b []byte) error {
	res := gjson.ParseBytes(b)
	if !res.IsObject() {
		return errNotObject
	}
	out := Summary{}
	var err error
	res.ForEach(func(k, v gjson.Result) bool {
		if !v.IsObject() {
			err = fmt.Errorf("column %q: %w", k.String(), errNotObject)
			return false
		}
		st := ColumnStats{
			Count: numOrNaN(v.Get("count")),
			Mean:  numOrNaN(v.Get("mean")),
			Std:   numOrNaN(v.Get("std")),
			Min:   numOrNaN(v.Get("min")),
			P25:   numOrNaN(v.Get("25%")),
			P50:   numOrNaN(v.Get("50%")),
			P75:   numOrNaN(v.Get("75%")),
			Max:   numOrNaN(v.Get("max")),
		}
		out = append(out, ColumnSummary{Name: k.String(), Stats: st})
		return true
	})
	if err != nil {
		return err
	}
	*s = out
	return nil
}

func (s Summary) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, c := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, _ := json.Marshal(c.Name)
		buf = append(buf, k...)
		inner, err := OrderedFloats{
			{"count", c.Stats.Count}, {"mean", c.Stats.Mean}, {"std", c.Stats.Std},
			{"min", c.Stats.Min}, {"25%", c.Stats.P25}, {"50%", c.Stats.P50},
			{"75%", c.Stats.P75}, {"max", c.Stats.Max},
		}.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf = append(buf, ':')
		buf = append(buf, inner...)
	}
	return append(buf, '}'), nil
}

// Column returns the stats for name.
func (s Summary) Column(name string) (ColumnStats, bool) {
	for _, c := range s {
		if c.Name == name {
			return c.Stats, true
		}
	}
	return ColumnStats{}, false
}

func numOrNaN(v gjson.Result) float64 {
	if v.Type != gjson.Number {
		return math.NaN()
	}
	return v.Float()
}

// CorrelationRow holds one feature's coefficients against every feature.
type CorrelationRow struct {
	Feature string
	Values  OrderedFloats
}

// CorrelationMatrix is the /correlation payload in feature order.
type CorrelationMatrix []CorrelationRow

func (m *CorrelationMatrix) UnmarshalJSON(b []byte) error {
	res := gjson.ParseBytes(b)
	if !res.IsObject() {
		return errNotObject
	}
	out := CorrelationMatrix{}
	var err error
	res.ForEach(func(k, v gjson.Result) bool {
		var row OrderedFloats
		if uerr := row.UnmarshalJSON([]byte(v.Raw)); uerr != nil {
			err = fmt.Errorf("feature %q: %w", k.String(), uerr)
			return false
		}
		out = append(out, CorrelationRow{Feature: k.String(), Values: row})
		return true
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

func (m CorrelationMatrix) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, r := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, _ := json.Marshal(r.Feature)
		inner, err := r.Values.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, inner...)
	}
	return append(buf, '}'), nil
}

// Features lists the row labels in backend order.
func (m CorrelationMatrix) Features() []string {
	out := make([]string, len(m))
	for i, r := range m {
		out[i] = r.Feature
	}
	return out
}

// SurvivalRates is the /survival_rates payload; values are fractions in [0,1].
type SurvivalRates struct {
	ByClass    OrderedFloats `json:"by_class"`
	BySex      OrderedFloats `json:"by_sex"`
	ByEmbarked OrderedFloats `json:"by_embarked"`
	ByTitle    OrderedFloats `json:"by_title"`
}

// Field is a single column value of a passenger record. Value is one of
// float64, string, bool or nil.
type Field struct {
	Name  string
	Value any
}

// Record is one passenger row with its column order preserved.
type Record struct {
	Fields []Field
}

func (r *Record) UnmarshalJSON(b []byte) error {
	res := gjson.ParseBytes(b)
	if !res.IsObject() {
		return errNotObject
	}
	fields := []Field{}
	res.ForEach(func(k, v gjson.Result) bool {
		fields = append(fields, Field{Name: k.String(), Value: scalar(v)})
		return true
	})
	r.Fields = fields
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, f := range r.Fields {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, _ := json.Marshal(f.Name)
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}'), nil
}

// Get returns the value of column name.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Columns lists the field names in backend order.
func (r Record) Columns() []string {
	out := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = f.Name
	}
	return out
}

func scalar(v gjson.Result) any {
	switch v.Type {
	case gjson.Number:
		return v.Float()
	case gjson.String:
		return v.String()
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Null:
		return nil
	}
	return v.Raw
}

// DataPage is the /data payload.
type DataPage struct {
	Data         []Record `json:"data"`
	TotalRecords int      `json:"total_records"`
	Page         int      `json:"page"`
	PerPage      int      `json:"per_page"`
	TotalPages   int      `json:"total_pages"`
}

type ModelPerformance struct {
	Accuracy        float64 `json:"accuracy"`
	TrainingSamples int     `json:"training_samples"`
	TestingSamples  int     `json:"testing_samples"`
	ModelType       string  `json:"model_type"`
	FeatureCount    int     `json:"feature_count"`
}

type SamplePrediction struct {
	PassengerData       Record  `json:"passenger_data"`
	PredictedSurvival   int     `json:"predicted_survival"`
	ActualSurvival      int     `json:"actual_survival"`
	SurvivalProbability float64 `json:"survival_probability"`
	// Correct is reported by the backend but never trusted for display.
	Correct bool `json:"correct"`
}

// RegressionResult is the /regression/survival payload.
type RegressionResult struct {
	Performance       ModelPerformance   `json:"model_performance"`
	FeatureImportance OrderedFloats      `json:"feature_importance"`
	SamplePredictions []SamplePrediction `json:"sample_predictions"`
	Status            string             `json:"status"`
}

// FeatureStat is one entry of /regression/feature_analysis. Correlation and
// the survived/died means are nil when the backend reports "N/A".
type FeatureStat struct {
	Feature         string
	Type            string
	SurvivalByGroup OrderedFloats
	Correlation     *float64
	MeanSurvived    *float64
	MeanDied        *float64
}

// FeatureAnalysis keeps the backend's feature order.
type FeatureAnalysis []FeatureStat

func (fa *FeatureAnalysis) UnmarshalJSON(b []byte) error {
	res := gjson.ParseBytes(b)
	if !res.IsObject() {
		return errNotObject
	}
	out := FeatureAnalysis{}
	var err error
	res.ForEach(func(k, v gjson.Result) bool {
		st := FeatureStat{Feature: k.String(), Type: v.Get("feature_type").String()}
		if g := v.Get("survival_by_group"); g.Exists() {
			if uerr := st.SurvivalByGroup.UnmarshalJSON([]byte(g.Raw)); uerr != nil {
				err = fmt.Errorf("feature %q: %w", k.String(), uerr)
				return false
			}
		}
		st.Correlation = optFloat(v.Get("correlation_with_survival"))
		ms := v.Get("mean_survival")
		if ms.IsObject() {
			st.MeanSurvived = optFloat(ms.Get("survived"))
			st.MeanDied = optFloat(ms.Get("died"))
		}
		out = append(out, st)
		return true
	})
	if err != nil {
		return err
	}
	*fa = out
	return nil
}

func (fa FeatureAnalysis) MarshalJSON() ([]byte, error) {
	type mean struct {
		Survived *float64 `json:"survived"`
		Died     *float64 `json:"died"`
	}
	buf := []byte{'{'}
	for i, st := range fa {
		if i > 0 {
			buf = append(buf, ',')
		}
		groups, err := st.SurvivalByGroup.MarshalJSON()
		if err != nil {
			return nil, err
		}
		var corr any = "N/A"
		if st.Correlation != nil {
			corr = *st.Correlation
		}
		var ms any = "N/A"
		if st.MeanSurvived != nil || st.MeanDied != nil {
			ms = mean{Survived: st.MeanSurvived, Died: st.MeanDied}
		}
		entry, err := json.Marshal(struct {
			SurvivalByGroup json.RawMessage `json:"survival_by_group"`
			Correlation     any             `json:"correlation_with_survival"`
			MeanSurvival    any             `json:"mean_survival"`
			FeatureType     string          `json:"feature_type"`
		}{groups, corr, ms, st.Type})
		if err != nil {
			return nil, err
		}
		k, _ := json.Marshal(st.Feature)
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, entry...)
	}
	return append(buf, '}'), nil
}

func optFloat(v gjson.Result) *float64 {
	if v.Type != gjson.Number {
		return nil
	}
	f := v.Float()
	return &f
}

// Health is the /copilot/health payload.
type Health struct {
	Status        string `json:"status"`
	HuggingFace   string `json:"huggingface"`
	KnowledgeBase string `json:"knowledge_base"`
	Context       string `json:"context"`
	DatasetSize   int    `json:"dataset_size"`
}

// Healthy reports whether the assistant backend declared itself active.
func (h *Health) Healthy() bool {
	return h != nil && h.Status == "active"
}

// QuickAction is a server- or fallback-provided shortcut button.
type QuickAction struct {
	Icon   string `json:"icon" yaml:"icon"`
	Label  string `json:"label" yaml:"label"`
	Action string `json:"action" yaml:"action"`
}

type TourStep struct {
	Step        int    `json:"step" yaml:"step"`
	Section     string `json:"section" yaml:"section"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}
