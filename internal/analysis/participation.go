package analysis

import "github.com/cotlens/cotlens/pkg/models"

// Participation produces the open interest and total trader count series.
// Reports whose vintage never published a trader count yield nil points in
// that series; open interest is always present.
func Participation(reports []models.Report) models.AnalysisResult {
	result := models.AnalysisResult{
		Kind:         KindParticipation,
		ContractCode: contractCode(reports),
	}
	if len(reports) == 0 {
		result.Insufficient = true
		result.Reason = "no reports in range"
		return result
	}

	oi := models.Series{Name: "Open Interest"}
	traders := models.Series{Name: "Total Traders"}

	for _, r := range reports {
		oi.Points = append(oi.Points, models.Point{
			Date:  r.Date,
			Value: models.Float(float64(r.OpenInterest)),
		})

		tp := models.Point{Date: r.Date}
		if r.TraderCount != nil {
			tp.Value = models.Float(float64(*r.TraderCount))
		}
		traders.Points = append(traders.Points, tp)
	}

	result.Series = append(result.Series, oi, traders)
	return result
}

// ShareOfOIOptions parameterizes the share-of-open-interest transformer.
type ShareOfOIOptions struct {
	// Categories limits the output; empty means all legacy categories.
	Categories []models.TraderCategory
}

// ShareOfOI expresses each category's long and short positions as a percent
// of open interest. Reports with zero open interest yield nil points.
func ShareOfOI(reports []models.Report, opts ShareOfOIOptions) models.AnalysisResult {
	result := models.AnalysisResult{
		Kind:         KindShareOfOI,
		ContractCode: contractCode(reports),
	}
	if len(reports) == 0 {
		result.Insufficient = true
		result.Reason = "no reports in range"
		return result
	}

	for _, cat := range sortedCategories(opts.Categories) {
		long := models.Series{Name: DisplayName(cat) + " Long % OI"}
		short := models.Series{Name: DisplayName(cat) + " Short % OI"}

		for _, r := range reports {
			lp := models.Point{Date: r.Date}
			sp := models.Point{Date: r.Date}
			if r.OpenInterest > 0 {
				oi := float64(r.OpenInterest)
				lp.Value = models.Float(round2(float64(r.Longs(cat)) / oi * 100))
				sp.Value = models.Float(round2(float64(r.Shorts(cat)) / oi * 100))
			}
			long.Points = append(long.Points, lp)
			short.Points = append(short.Points, sp)
		}
		result.Series = append(result.Series, long, short)
	}
	return result
}
