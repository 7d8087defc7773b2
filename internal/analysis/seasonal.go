package analysis

import (
	"fmt"
	"sort"

	"github.com/cotlens/cotlens/pkg/models"
)

// SeasonalOptions parameterizes the seasonal alignment transformer.
type SeasonalOptions struct {
	Category models.TraderCategory // default: non-commercial
	// LookbackYears is the number of prior calendar years averaged per
	// ISO week. Weeks with fewer years of history yield nil points and
	// flag the result.
	LookbackYears int // default 5
}

// Seasonal aligns a category's net position by ISO calendar week. It emits
// the latest year's observations plus the lookback average per week. A week
// whose history has fewer than LookbackYears prior observations is nil in
// the average series, never an average over a silently shorter window.
func Seasonal(reports []models.Report, opts SeasonalOptions) models.AnalysisResult {
	if opts.Category == "" {
		opts.Category = models.CategoryNonCommercial
	}
	if opts.LookbackYears <= 0 {
		opts.LookbackYears = 5
	}

	result := models.AnalysisResult{
		Kind:         KindSeasonal,
		ContractCode: contractCode(reports),
	}
	if len(reports) == 0 {
		result.Insufficient = true
		result.Reason = "no reports in range"
		return result
	}

	label := DisplayName(opts.Category)
	currentYear := reports[len(reports)-1].Date.Year()

	// Group prior-year nets by ISO week.
	history := make(map[int][]float64) // week → nets from years before currentYear
	for _, r := range reports {
		_, week := r.Date.ISOWeek()
		if r.Date.Year() < currentYear {
			history[week] = append(history[week], float64(r.Net(opts.Category)))
		}
	}

	current := models.Series{Name: fmt.Sprintf("%s Net %d", label, currentYear)}
	average := models.Series{Name: fmt.Sprintf("%s Net %d-Year Avg", label, opts.LookbackYears)}

	shortWeeks := 0
	for _, r := range reports {
		if r.Date.Year() != currentYear {
			continue
		}
		_, week := r.Date.ISOWeek()
		current.Points = append(current.Points, models.Point{
			Date:  r.Date,
			Value: models.Float(float64(r.Net(opts.Category))),
		})

		avg := models.Point{Date: r.Date}
		if past := history[week]; len(past) >= opts.LookbackYears {
			// Only the most recent LookbackYears observations count.
			recent := past[len(past)-opts.LookbackYears:]
			avg.Value = models.Float(round1(mean(recent)))
		} else {
			shortWeeks++
		}
		average.Points = append(average.Points, avg)
	}

	if shortWeeks > 0 {
		result.Insufficient = true
		result.Reason = fmt.Sprintf("%d of %d weeks lack %d years of history",
			shortWeeks, len(average.Points), opts.LookbackYears)
	}

	result.Series = append(result.Series, current, average)
	return result
}

// SeasonalYears lists the distinct calendar years present in reports,
// ascending. Exposed for the dashboard's range hints.
func SeasonalYears(reports []models.Report) []int {
	seen := make(map[int]bool)
	for _, r := range reports {
		seen[r.Date.Year()] = true
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
