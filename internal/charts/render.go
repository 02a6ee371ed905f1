package charts

import (
	"errors"
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrEmptySeries is returned when there is nothing to draw.
var ErrEmptySeries = errors.New("charts: series has no points")

const (
	chartWidth  = 640
	chartHeight = 360
)

// RenderSVG draws a breakdown series as a bar chart with a fixed 0-100% axis.
func RenderSVG(w io.Writer, s Series) error {
	if len(s.Points) == 0 {
		return ErrEmptySeries
	}
	bc := chart.BarChart{
		Title:      s.Title,
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   barWidth(len(s.Points)),
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 24}},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: 100},
			ValueFormatter: func(v any) string { return fmt.Sprintf("%.0f%%", v) },
		},
	}
	for _, p := range s.Points {
		col := drawing.ColorFromHex(p.Color)
		bc.Bars = append(bc.Bars, chart.Value{
			Label: p.Label,
			Value: p.Value,
			Style: chart.Style{FillColor: col, StrokeColor: col, StrokeWidth: 1},
		})
	}
	if err := bc.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render %s chart: %w", s.Key, err)
	}
	return nil
}

// Importance colours: green pushes toward survival, red away from it.
const (
	PositiveColor = "#10b981"
	NegativeColor = "#ef4444"
)

// Bar is one signed feature-importance bar.
type Bar struct {
	Label string
	Value float64
}

// RenderImportanceSVG draws signed coefficients around a zero baseline.
func RenderImportanceSVG(w io.Writer, title string, bars []Bar) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}
	lo, hi := 0.0, 0.0
	for _, b := range bars {
		lo = math.Min(lo, b.Value)
		hi = math.Max(hi, b.Value)
	}
	if lo == hi {
		hi = lo + 1
	}
	pad := (hi - lo) * 0.1
	bc := chart.BarChart{
		Title:        title,
		Width:        chartWidth,
		Height:       chartHeight,
		BarWidth:     barWidth(len(bars)),
		UseBaseValue: true,
		BaseValue:    0,
		Background:   chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 24}},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: lo - pad, Max: hi + pad},
			ValueFormatter: func(v any) string { return fmt.Sprintf("%.2f", v) },
		},
	}
	for _, b := range bars {
		col := drawing.ColorFromHex(PositiveColor)
		if b.Value < 0 {
			col = drawing.ColorFromHex(NegativeColor)
		}
		bc.Bars = append(bc.Bars, chart.Value{
			Label: b.Label,
			Value: b.Value,
			Style: chart.Style{FillColor: col, StrokeColor: col, StrokeWidth: 1},
		})
	}
	if err := bc.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("render importance chart: %w", err)
	}
	return nil
}

func barWidth(n int) int {
	if n <= 0 {
		return 40
	}
	return max(16, min(80, (chartWidth-80)/(n*2)))
}
