package analysis

import (
	"fmt"

	"github.com/cotlens/cotlens/pkg/models"
)

// DefaultPercentileWindows are the rolling windows in weeks: one, two, and
// five years of weekly reports.
var DefaultPercentileWindows = []int{52, 104, 260}

// PercentileOptions parameterizes the rolling percentile transformer.
type PercentileOptions struct {
	Category models.TraderCategory // default: non-commercial
	Windows  []int                 // rolling windows in weeks; default DefaultPercentileWindows
}

// Percentile computes the rolling percentile rank of a category's net
// position over each configured window. Points before a window has filled
// are nil. When not even the shortest window can ever fill, the result is
// flagged insufficient.
func Percentile(reports []models.Report, opts PercentileOptions) models.AnalysisResult {
	if opts.Category == "" {
		opts.Category = models.CategoryNonCommercial
	}
	windows := opts.Windows
	if len(windows) == 0 {
		windows = DefaultPercentileWindows
	}

	result := models.AnalysisResult{
		Kind:         KindPercentile,
		ContractCode: contractCode(reports),
	}
	if len(reports) == 0 {
		result.Insufficient = true
		result.Reason = "no reports in range"
		return result
	}

	nets := netValues(reports, opts.Category)
	label := DisplayName(opts.Category)

	shortest := windows[0]
	for _, w := range windows {
		if w < shortest {
			shortest = w
		}
	}
	if len(reports) < shortest {
		result.Insufficient = true
		result.Reason = fmt.Sprintf("%d reports, shortest window needs %d", len(reports), shortest)
	}

	for _, w := range windows {
		series := models.Series{Name: fmt.Sprintf("%s Net Percentile (%dw)", label, w)}
		for i, r := range reports {
			p := models.Point{Date: r.Date}
			if i+1 >= w {
				p.Value = models.Float(round1(percentileRank(nets[i+1-w : i+1])))
			}
			series.Points = append(series.Points, p)
		}
		result.Series = append(result.Series, series)
	}

	// Year-to-date rank within the calendar year of each report.
	ytd := models.Series{Name: label + " Net Percentile (YTD)"}
	yearStart := 0
	for i, r := range reports {
		if i > 0 && r.Date.Year() != reports[i-1].Date.Year() {
			yearStart = i
		}
		p := models.Point{Date: r.Date}
		if i > yearStart {
			p.Value = models.Float(round1(percentileRank(nets[yearStart : i+1])))
		}
		ytd.Points = append(ytd.Points, p)
	}
	result.Series = append(result.Series, ytd)

	return result
}
