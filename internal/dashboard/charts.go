package dashboard

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/KaramelBytes/titanic-analytics/internal/charts"
	"github.com/KaramelBytes/titanic-analytics/internal/mlresults"
)

func (s *Server) handleSurvivalChart(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !charts.ValidKey(key) {
		http.NotFound(w, r)
		return
	}
	rates, err := s.src.SurvivalRates(r.Context())
	if err != nil {
		s.logger.Warn("survival rates unavailable", "error", err)
		http.Error(w, "survival rates unavailable", http.StatusBadGateway)
		return
	}
	series, err := charts.Breakdown(rates, key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	s.writeSVG(w, &buf, charts.RenderSVG(&buf, series))
}

func (s *Server) handleImportanceChart(w http.ResponseWriter, r *http.Request) {
	res, err := s.src.Regression(r.Context())
	if err != nil {
		s.logger.Warn("regression results unavailable", "error", err)
		http.Error(w, "regression results unavailable", http.StatusBadGateway)
		return
	}
	top := mlresults.TopFeatures(res.FeatureImportance, mlresults.DefaultTopN)
	bars := make([]charts.Bar, len(top))
	for i, f := range top {
		bars[i] = charts.Bar{Label: f.Label, Value: f.Importance}
	}
	var buf bytes.Buffer
	s.writeSVG(w, &buf, charts.RenderImportanceSVG(&buf, "Feature Importance", bars))
}

func (s *Server) writeSVG(w http.ResponseWriter, buf *bytes.Buffer, err error) {
	switch {
	case errors.Is(err, charts.ErrEmptySeries):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		s.logger.Error("chart rendering failed", "error", err)
		http.Error(w, "chart rendering failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = buf.WriteTo(w)
}
