package table

import (
	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/montanaflynn/stats"
)

// PageStats are the summary cards above the data browser. Rates and means
// cover only the loaded page; Total is the dataset-wide record count.
type PageStats struct {
	Total        int
	Features     int
	SurvivalRate float64 // percent
	HasSurvival  bool
	MeanAge      float64
	HasAge       bool
}

// ComputePageStats summarises rows. Missing ages are skipped.
func ComputePageStats(rows []api.Record, total int) PageStats {
	ps := PageStats{Total: total}
	if len(rows) > 0 {
		ps.Features = len(rows[0].Fields)
	}
	var survived, ages stats.Float64Data
	for _, r := range rows {
		if v, ok := r.Get("Survived"); ok {
			if n, ok := number(v); ok {
				survived = append(survived, n)
			}
		}
		if v, ok := r.Get("Age"); ok {
			if n, ok := number(v); ok {
				ages = append(ages, n)
			}
		}
	}
	if m, err := stats.Mean(survived); err == nil {
		ps.SurvivalRate = m * 100
		ps.HasSurvival = true
	}
	if m, err := ages.Mean(); err == nil {
		ps.MeanAge = m
		ps.HasAge = true
	}
	return ps
}
