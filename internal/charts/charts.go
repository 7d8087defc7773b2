// Package charts turns analysis results into renderer-agnostic chart
// configurations. The frontend consumes ChartConfig as-is; nothing here
// draws pixels.
package charts

import (
	"fmt"
	"strings"

	"github.com/cotlens/cotlens/internal/analysis"
	"github.com/cotlens/cotlens/pkg/models"
)

// Fixed palette per trader category, stable across every chart so a
// category keeps its color from one view to the next.
var categoryColors = map[string]string{
	"Commercial":        "#d62728",
	"Large Speculator":  "#1f77b4",
	"Small Speculator":  "#B8860B",
	"Other Reportables": "#9467bd",
	"Swap Dealer":       "#ff7f0e",
}

// Fallback palette for series outside the category map.
var defaultColors = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// Build produces the chart configuration for an analysis result. The title
// carries the instrument's display name when known, otherwise the contract
// code. Insufficient results still render; the placeholder text tells the
// frontend to overlay the reason.
func Build(result models.AnalysisResult, instrumentName string) models.ChartConfig {
	name := instrumentName
	if name == "" {
		name = result.ContractCode
	}

	var cfg models.ChartConfig
	switch result.Kind {
	case analysis.KindTimeSeries:
		cfg = buildLines(result, name+" Net Positions", "Contracts")
	case analysis.KindPercentile:
		cfg = buildLines(result, name+" Net Position Percentile", "Percentile")
		cfg.YMin = models.Float(0)
		cfg.YMax = models.Float(100)
	case analysis.KindSeasonal:
		cfg = buildSeasonal(result, name)
	case analysis.KindMomentum:
		cfg = buildLines(result, name+" Net Position Momentum", "Contracts / Z-Score")
	case analysis.KindParticipation:
		cfg = buildLines(result, name+" Market Participation", "Contracts / Traders")
	case analysis.KindShareOfOI:
		cfg = buildLines(result, name+" Share of Open Interest", "% of OI")
		cfg.YMin = models.Float(0)
	default:
		cfg = buildLines(result, name, "")
	}

	if result.Insufficient {
		cfg.Placeholder = placeholderText(result)
	}
	return cfg
}

func buildLines(result models.AnalysisResult, title, yAxis string) models.ChartConfig {
	cfg := models.ChartConfig{
		ChartType:  "line",
		Title:      title,
		XAxis:      "Report Date",
		YAxis:      yAxis,
		ShowLegend: true,
	}
	for i, s := range result.Series {
		cfg.Series = append(cfg.Series, models.ChartSeries{
			Name:  s.Name,
			Color: colorFor(s.Name, i),
			Data:  seriesPoints(s),
		})
	}
	if cfg.YMin == nil && cfg.YMax == nil {
		cfg.YMin, cfg.YMax = adaptiveRange(cfg.Series)
	}
	return cfg
}

// buildSeasonal labels points by ISO week instead of date so the current
// year and the lookback average share an x axis. The average line renders
// dashed.
func buildSeasonal(result models.AnalysisResult, name string) models.ChartConfig {
	cfg := models.ChartConfig{
		ChartType:  "line",
		Title:      name + " Seasonal Net Position",
		XAxis:      "Week of Year",
		YAxis:      "Contracts",
		ShowLegend: true,
	}
	for i, s := range result.Series {
		cs := models.ChartSeries{
			Name:   s.Name,
			Color:  colorFor(s.Name, i),
			Dashed: strings.Contains(s.Name, "Avg"),
		}
		for _, p := range s.Points {
			_, week := p.Date.ISOWeek()
			cs.Data = append(cs.Data, models.ChartPoint{
				Label: fmt.Sprintf("W%02d", week),
				Value: p.Value,
			})
		}
		cfg.Series = append(cfg.Series, cs)
	}
	cfg.YMin, cfg.YMax = adaptiveRange(cfg.Series)
	return cfg
}

func seriesPoints(s models.Series) []models.ChartPoint {
	out := make([]models.ChartPoint, 0, len(s.Points))
	for _, p := range s.Points {
		out = append(out, models.ChartPoint{
			Label: p.Date.Format("2006-01-02"),
			Value: p.Value,
		})
	}
	return out
}

// colorFor assigns the category color when the series name starts with a
// known category label, otherwise cycles the default palette.
func colorFor(seriesName string, idx int) string {
	for label, color := range categoryColors {
		if strings.HasPrefix(seriesName, label) {
			return color
		}
	}
	return defaultColors[idx%len(defaultColors)]
}

// adaptiveRange pads the observed value range by 5% on each side so lines
// never hug the frame. Nil when no values exist.
func adaptiveRange(series []models.ChartSeries) (*float64, *float64) {
	var min, max float64
	seen := false
	for _, s := range series {
		for _, p := range s.Data {
			if p.Value == nil {
				continue
			}
			v := *p.Value
			if !seen {
				min, max = v, v
				seen = true
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	if !seen {
		return nil, nil
	}
	pad := (max - min) * 0.05
	if pad == 0 {
		pad = 1
	}
	return models.Float(min - pad), models.Float(max + pad)
}

func placeholderText(result models.AnalysisResult) string {
	if result.Reason != "" {
		return "Insufficient data: " + result.Reason
	}
	return "Insufficient data for this view"
}
