package analysis

import "github.com/cotlens/cotlens/pkg/models"

// TimeSeriesOptions parameterizes the net-position time series transformer.
type TimeSeriesOptions struct {
	// Categories limits the output; empty means all legacy categories.
	Categories []models.TraderCategory
	// IncludeChanges adds week-over-week percent-change series.
	IncludeChanges bool
}

// TimeSeries produces net-position series per trader category, optionally
// with week-over-week percent changes. The first observation of a change
// series is nil (no prior week).
func TimeSeries(reports []models.Report, opts TimeSeriesOptions) models.AnalysisResult {
	result := models.AnalysisResult{
		Kind:         KindTimeSeries,
		ContractCode: contractCode(reports),
	}
	if len(reports) == 0 {
		result.Insufficient = true
		result.Reason = "no reports in range"
		return result
	}

	for _, cat := range sortedCategories(opts.Categories) {
		nets := netValues(reports, cat)

		series := models.Series{Name: DisplayName(cat) + " Net"}
		for i, r := range reports {
			series.Points = append(series.Points, models.Point{
				Date:  r.Date,
				Value: models.Float(nets[i]),
			})
		}
		result.Series = append(result.Series, series)

		if !opts.IncludeChanges {
			continue
		}
		changes := models.Series{Name: DisplayName(cat) + " Net WoW %"}
		for i, r := range reports {
			p := models.Point{Date: r.Date}
			if i > 0 && nets[i-1] != 0 {
				p.Value = models.Float(round1((nets[i] - nets[i-1]) / abs(nets[i-1]) * 100))
			}
			changes.Points = append(changes.Points, p)
		}
		result.Series = append(result.Series, changes)
	}
	return result
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
