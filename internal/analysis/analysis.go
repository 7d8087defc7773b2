// Package analysis implements the pure transformers that reshape COT report
// records into per-chart structures: net-position time series, rolling
// percentile ranks, seasonal alignment, momentum, market participation, and
// share of open interest.
//
// Every transformer is deterministic: identical records and options always
// produce identical results. Thin history never silently truncates a
// window; results carry an Insufficient flag instead.
package analysis

import (
	"math"
	"sort"

	"github.com/cotlens/cotlens/pkg/models"
)

// Kind names for AnalysisResult.Kind.
const (
	KindTimeSeries    = "timeseries"
	KindPercentile    = "percentile"
	KindSeasonal      = "seasonal"
	KindMomentum      = "momentum"
	KindParticipation = "participation"
	KindShareOfOI     = "shareofoi"
)

// DisplayName returns the dashboard label for a trader category.
func DisplayName(cat models.TraderCategory) string {
	switch cat {
	case models.CategoryNonCommercial:
		return "Large Speculator"
	case models.CategoryCommercial:
		return "Commercial"
	case models.CategoryNonReportable:
		return "Small Speculator"
	}
	return string(cat)
}

// contractCode returns the contract code of the first record, the result's
// instrument identity.
func contractCode(reports []models.Report) string {
	if len(reports) == 0 {
		return ""
	}
	return reports[0].ContractCode
}

// netValues extracts the per-report net position for one category.
func netValues(reports []models.Report, cat models.TraderCategory) []float64 {
	out := make([]float64, len(reports))
	for i := range reports {
		out[i] = float64(reports[i].Net(cat))
	}
	return out
}

// mean returns the arithmetic mean of vs.
func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// stddev returns the population standard deviation of vs.
func stddev(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	m := mean(vs)
	var ss float64
	for _, v := range vs {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vs)))
}

// percentileRank returns the percentile (0–100) of the last element of
// window within the whole window, using average ranks for ties.
func percentileRank(window []float64) float64 {
	n := len(window)
	if n == 0 {
		return 0
	}
	x := window[n-1]
	below, ties := 0, 0
	for _, v := range window {
		switch {
		case v < x:
			below++
		case v == x:
			ties++
		}
	}
	rank := float64(below) + (float64(ties)+1)/2
	return rank / float64(n) * 100
}

// round1 rounds to one decimal place, matching the dashboard's display
// precision so repeated runs stay byte-identical.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// round2 rounds to two decimal places (z-scores and OI shares).
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// sortedCategories returns the requested categories in canonical order, or
// all legacy categories when none are given.
func sortedCategories(cats []models.TraderCategory) []models.TraderCategory {
	if len(cats) == 0 {
		return models.Categories()
	}
	order := map[models.TraderCategory]int{
		models.CategoryNonCommercial: 0,
		models.CategoryCommercial:    1,
		models.CategoryNonReportable: 2,
	}
	out := make([]models.TraderCategory, len(cats))
	copy(out, cats)
	sort.SliceStable(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })
	return out
}
