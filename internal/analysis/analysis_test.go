package analysis

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/cotlens/cotlens/pkg/models"
)

// makeReports builds n weekly reports starting at start. Each report's
// positions are derived from its index through f so tests can shape the net
// series precisely.
func makeReports(start time.Time, n int, f func(i int) models.Report) []models.Report {
	out := make([]models.Report, n)
	for i := 0; i < n; i++ {
		r := f(i)
		r.Date = start.AddDate(0, 0, 7*i)
		if r.ContractCode == "" {
			r.ContractCode = "088691"
		}
		out[i] = r
	}
	return out
}

// flatReports returns n weekly reports with constant positions.
func flatReports(start time.Time, n int) []models.Report {
	return makeReports(start, n, func(i int) models.Report {
		return models.Report{
			OpenInterest: 100000,
			NonCommLong:  60000,
			NonCommShort: 20000,
			CommLong:     30000,
			CommShort:    65000,
			NonReptLong:  10000,
			NonReptShort: 15000,
		}
	})
}

func pt(s models.Series, i int) *float64 { return s.Points[i].Value }

func TestTimeSeriesNets(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	reports := makeReports(start, 3, func(i int) models.Report {
		spread := int64(1000)
		return models.Report{
			OpenInterest:  100000,
			NonCommLong:   int64(50000 + 1000*i),
			NonCommShort:  20000,
			NonCommSpread: &spread,
			CommLong:      30000,
			CommShort:     60000,
			NonReptLong:   12000,
			NonReptShort:  10000,
		}
	})

	res := TimeSeries(reports, TimeSeriesOptions{})
	if res.Insufficient {
		t.Fatalf("unexpected insufficient: %s", res.Reason)
	}
	if res.ContractCode != "088691" {
		t.Errorf("contract code = %q", res.ContractCode)
	}
	if len(res.Series) != 3 {
		t.Fatalf("series count = %d, want 3", len(res.Series))
	}

	// Canonical order: large speculator, commercial, small speculator.
	wantNames := []string{"Large Speculator Net", "Commercial Net", "Small Speculator Net"}
	for i, s := range res.Series {
		if s.Name != wantNames[i] {
			t.Errorf("series[%d] = %q, want %q", i, s.Name, wantNames[i])
		}
	}

	// Large speculator net subtracts the spreading leg: 50000-20000-1000.
	if got := *pt(res.Series[0], 0); got != 29000 {
		t.Errorf("large spec net[0] = %v, want 29000", got)
	}
	if got := *pt(res.Series[1], 0); got != -30000 {
		t.Errorf("commercial net[0] = %v, want -30000", got)
	}
	if got := *pt(res.Series[2], 0); got != 2000 {
		t.Errorf("small spec net[0] = %v, want 2000", got)
	}
}

func TestTimeSeriesChanges(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	reports := makeReports(start, 3, func(i int) models.Report {
		// Nets: 1000, 1500, 1500 for the commercial category.
		return models.Report{
			OpenInterest: 50000,
			CommLong:     int64([]int{11000, 11500, 11500}[i]),
			CommShort:    10000,
		}
	})

	res := TimeSeries(reports, TimeSeriesOptions{
		Categories:     []models.TraderCategory{models.CategoryCommercial},
		IncludeChanges: true,
	})
	if len(res.Series) != 2 {
		t.Fatalf("series count = %d, want 2", len(res.Series))
	}
	changes := res.Series[1]
	if changes.Name != "Commercial Net WoW %" {
		t.Fatalf("change series = %q", changes.Name)
	}
	if pt(changes, 0) != nil {
		t.Error("first change point should be nil")
	}
	if got := *pt(changes, 1); got != 50 {
		t.Errorf("change[1] = %v, want 50", got)
	}
	if got := *pt(changes, 2); got != 0 {
		t.Errorf("change[2] = %v, want 0", got)
	}
}

func TestTimeSeriesEmpty(t *testing.T) {
	res := TimeSeries(nil, TimeSeriesOptions{})
	if !res.Insufficient {
		t.Fatal("empty input should be flagged insufficient")
	}
	if res.Reason == "" {
		t.Error("insufficient result should carry a reason")
	}
}

func TestTransformersDeterministic(t *testing.T) {
	start := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	reports := makeReports(start, 60, func(i int) models.Report {
		return models.Report{
			OpenInterest: int64(90000 + 500*i),
			NonCommLong:  int64(40000 + 900*(i%7)),
			NonCommShort: int64(25000 + 400*(i%5)),
			CommLong:     int64(35000 + 300*(i%3)),
			CommShort:    int64(48000 + 200*(i%4)),
			NonReptLong:  9000,
			NonReptShort: 8000,
		}
	})

	runs := []func() models.AnalysisResult{
		func() models.AnalysisResult { return TimeSeries(reports, TimeSeriesOptions{IncludeChanges: true}) },
		func() models.AnalysisResult {
			return Percentile(reports, PercentileOptions{Windows: []int{26, 52}})
		},
		func() models.AnalysisResult { return Seasonal(reports, SeasonalOptions{LookbackYears: 1}) },
		func() models.AnalysisResult { return Momentum(reports, MomentumOptions{Weeks: 13}) },
		func() models.AnalysisResult { return Participation(reports) },
		func() models.AnalysisResult { return ShareOfOI(reports, ShareOfOIOptions{}) },
	}
	for i, run := range runs {
		first, second := run(), run()
		if !reflect.DeepEqual(first, second) {
			t.Errorf("run %d: repeated transform differs", i)
		}
	}
}

func TestPercentileWindows(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	// Strictly increasing net, so the latest value is always the maximum.
	reports := makeReports(start, 10, func(i int) models.Report {
		return models.Report{
			OpenInterest: 50000,
			NonCommLong:  int64(20000 + 1000*i),
			NonCommShort: 10000,
		}
	})

	res := Percentile(reports, PercentileOptions{Windows: []int{4}})
	if res.Insufficient {
		t.Fatalf("unexpected insufficient: %s", res.Reason)
	}
	win := res.Series[0]
	if win.Name != "Large Speculator Net Percentile (4w)" {
		t.Fatalf("series name = %q", win.Name)
	}
	for i := 0; i < 3; i++ {
		if pt(win, i) != nil {
			t.Errorf("point %d before window filled should be nil", i)
		}
	}
	// Max of a strictly increasing 4-wide window ranks 4/4 = 100? Average
	// rank of the single max is (3 + 1) = 4, 4/4*100 = 100.
	if got := *pt(win, 4); got != 100 {
		t.Errorf("percentile at filled window = %v, want 100", got)
	}
}

func TestPercentileTies(t *testing.T) {
	// All equal values: average rank of n ties is (n+1)/2.
	got := percentileRank([]float64{5, 5, 5, 5})
	if got != 62.5 {
		t.Errorf("tied rank = %v, want 62.5", got)
	}
	got = percentileRank([]float64{1, 2, 3, 4})
	if got != 100 {
		t.Errorf("max rank = %v, want 100", got)
	}
	got = percentileRank([]float64{4, 3, 2, 1})
	if got != 25 {
		t.Errorf("min rank = %v, want 25", got)
	}
}

func TestPercentileYTDResets(t *testing.T) {
	// Cross a year boundary; the YTD series must restart its window.
	start := time.Date(2023, 12, 5, 0, 0, 0, 0, time.UTC)
	reports := makeReports(start, 8, func(i int) models.Report {
		return models.Report{
			OpenInterest: 50000,
			NonCommLong:  int64(20000 + 1000*i),
			NonCommShort: 10000,
		}
	})

	res := Percentile(reports, PercentileOptions{Windows: []int{4}})
	ytd := res.Series[len(res.Series)-1]
	if ytd.Name != "Large Speculator Net Percentile (YTD)" {
		t.Fatalf("ytd series = %q", ytd.Name)
	}

	// Find the first report of the new year; its YTD point restarts nil.
	for i, p := range ytd.Points {
		if p.Date.Year() == 2024 {
			if p.Value != nil {
				t.Errorf("first point of new year should be nil, got %v", *p.Value)
			}
			if i+1 < len(ytd.Points) && ytd.Points[i+1].Value == nil {
				t.Error("second point of new year should have a value")
			}
			break
		}
	}
}

func TestPercentileInsufficient(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	res := Percentile(flatReports(start, 10), PercentileOptions{})
	if !res.Insufficient {
		t.Fatal("10 reports against a 52-week shortest window should be flagged")
	}
	// Flagged, but the series are still emitted with nil points.
	if len(res.Series) == 0 {
		t.Error("insufficient result should still carry its series")
	}
}

func TestSeasonalAverage(t *testing.T) {
	// Three full years of weekly history plus a partial current year. With a
	// 2-year lookback every current-year week has enough history.
	start := time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC)
	reports := makeReports(start, 170, func(i int) models.Report {
		return models.Report{
			OpenInterest: 50000,
			NonCommLong:  int64(20000 + 100*i),
			NonCommShort: 10000,
		}
	})

	res := Seasonal(reports, SeasonalOptions{LookbackYears: 2})
	if res.Insufficient {
		t.Fatalf("unexpected insufficient: %s", res.Reason)
	}
	if len(res.Series) != 2 {
		t.Fatalf("series count = %d, want 2", len(res.Series))
	}
	current, average := res.Series[0], res.Series[1]
	if len(current.Points) != len(average.Points) {
		t.Fatalf("series lengths differ: %d vs %d", len(current.Points), len(average.Points))
	}
	for i := range average.Points {
		if average.Points[i].Value == nil {
			t.Errorf("average point %d is nil with full history", i)
		}
	}
}

func TestSeasonalThinHistory(t *testing.T) {
	// One year of prior history against a 3-year lookback: every week of
	// the current year lacks history, so the result is flagged and the
	// average series is entirely nil.
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	reports := makeReports(start, 70, func(i int) models.Report {
		return models.Report{
			OpenInterest: 50000,
			NonCommLong:  int64(20000 + 100*i),
			NonCommShort: 10000,
		}
	})

	res := Seasonal(reports, SeasonalOptions{LookbackYears: 3})
	if !res.Insufficient {
		t.Fatal("3-year lookback over 1 year of history should be flagged")
	}
	if res.Reason == "" {
		t.Error("insufficient result should carry a reason")
	}
	average := res.Series[1]
	for i := range average.Points {
		if average.Points[i].Value != nil {
			t.Errorf("average point %d should be nil, got %v", i, *average.Points[i].Value)
		}
	}
	// The current-year series still renders.
	current := res.Series[0]
	if len(current.Points) == 0 {
		t.Error("current-year series should not be empty")
	}
	for i := range current.Points {
		if current.Points[i].Value == nil {
			t.Errorf("current point %d should have a value", i)
		}
	}
}

func TestSeasonalYears(t *testing.T) {
	start := time.Date(2022, 11, 1, 0, 0, 0, 0, time.UTC)
	reports := makeReports(start, 70, func(i int) models.Report {
		return models.Report{OpenInterest: 1000}
	})
	got := SeasonalYears(reports)
	want := []int{2022, 2023, 2024}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("years = %v, want %v", got, want)
	}
}

func TestMomentum(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	// Net increases by 500 per week, so the 4-week change is always 2000.
	reports := makeReports(start, 10, func(i int) models.Report {
		return models.Report{
			OpenInterest: 50000,
			NonCommLong:  int64(20000 + 500*i),
			NonCommShort: 10000,
		}
	})

	res := Momentum(reports, MomentumOptions{Weeks: 4})
	if res.Insufficient {
		t.Fatalf("unexpected insufficient: %s", res.Reason)
	}
	change, zscore := res.Series[0], res.Series[1]
	if change.Name != "Large Speculator Net Change (4w)" {
		t.Fatalf("change series = %q", change.Name)
	}
	for i := 0; i < 4; i++ {
		if pt(change, i) != nil || pt(zscore, i) != nil {
			t.Errorf("point %d before window filled should be nil", i)
		}
	}
	if got := *pt(change, 4); got != 2000 {
		t.Errorf("change[4] = %v, want 2000", got)
	}
	if pt(zscore, 4) == nil {
		t.Fatal("z-score at filled window should have a value")
	}
	// Linear ramp: latest value sits sqrt(2) standard deviations above the
	// window mean. Spot-check sign and rough magnitude only.
	if z := *pt(zscore, 4); z <= 0 || z > 3 {
		t.Errorf("z-score = %v, want small positive", z)
	}
}

func TestMomentumFlatSeries(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	res := Momentum(flatReports(start, 20), MomentumOptions{Weeks: 4})
	zscore := res.Series[1]
	// Zero variance collapses the z-score to zero, not NaN.
	if got := *pt(zscore, 10); got != 0 {
		t.Errorf("flat z-score = %v, want 0", got)
	}
}

func TestMomentumInsufficient(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	res := Momentum(flatReports(start, 5), MomentumOptions{Weeks: 13})
	if !res.Insufficient {
		t.Fatal("5 reports against a 13-week window should be flagged")
	}
}

func TestParticipation(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	count := int64(350)
	reports := makeReports(start, 3, func(i int) models.Report {
		r := models.Report{OpenInterest: int64(100000 + 1000*i)}
		if i != 1 {
			r.TraderCount = &count
		}
		return r
	})

	res := Participation(reports)
	if len(res.Series) != 2 {
		t.Fatalf("series count = %d, want 2", len(res.Series))
	}
	oi, traders := res.Series[0], res.Series[1]
	if got := *pt(oi, 2); got != 102000 {
		t.Errorf("open interest[2] = %v, want 102000", got)
	}
	if pt(traders, 1) != nil {
		t.Error("missing trader count should yield a nil point, not zero")
	}
	if got := *pt(traders, 0); got != 350 {
		t.Errorf("traders[0] = %v, want 350", got)
	}
}

func TestShareOfOI(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	reports := makeReports(start, 2, func(i int) models.Report {
		r := models.Report{
			OpenInterest: 80000,
			NonCommLong:  20000,
			NonCommShort: 40000,
			CommLong:     30000,
			CommShort:    10000,
			NonReptLong:  5000,
			NonReptShort: 6000,
		}
		if i == 1 {
			r.OpenInterest = 0
		}
		return r
	})

	res := ShareOfOI(reports, ShareOfOIOptions{
		Categories: []models.TraderCategory{models.CategoryNonCommercial},
	})
	if len(res.Series) != 2 {
		t.Fatalf("series count = %d, want 2", len(res.Series))
	}
	long, short := res.Series[0], res.Series[1]
	if got := *pt(long, 0); got != 25 {
		t.Errorf("long share = %v, want 25", got)
	}
	if got := *pt(short, 0); got != 50 {
		t.Errorf("short share = %v, want 50", got)
	}
	if pt(long, 1) != nil || pt(short, 1) != nil {
		t.Error("zero open interest should yield nil shares")
	}
}

func TestDisplayNames(t *testing.T) {
	cases := []struct {
		cat  models.TraderCategory
		want string
	}{
		{models.CategoryNonCommercial, "Large Speculator"},
		{models.CategoryCommercial, "Commercial"},
		{models.CategoryNonReportable, "Small Speculator"},
	}
	for _, tc := range cases {
		t.Run(string(tc.cat), func(t *testing.T) {
			if got := DisplayName(tc.cat); got != tc.want {
				t.Errorf("DisplayName(%s) = %q, want %q", tc.cat, got, tc.want)
			}
		})
	}
}

func TestKindsOnResults(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	reports := flatReports(start, 20)
	cases := []struct {
		kind string
		res  models.AnalysisResult
	}{
		{KindTimeSeries, TimeSeries(reports, TimeSeriesOptions{})},
		{KindPercentile, Percentile(reports, PercentileOptions{Windows: []int{4}})},
		{KindSeasonal, Seasonal(reports, SeasonalOptions{})},
		{KindMomentum, Momentum(reports, MomentumOptions{Weeks: 4})},
		{KindParticipation, Participation(reports)},
		{KindShareOfOI, ShareOfOI(reports, ShareOfOIOptions{})},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			if tc.res.Kind != tc.kind {
				t.Errorf("kind = %q, want %q", tc.res.Kind, tc.kind)
			}
			if tc.res.ContractCode != "088691" {
				t.Errorf("contract code = %q", tc.res.ContractCode)
			}
		})
	}
}

func ExampleDisplayName() {
	fmt.Println(DisplayName(models.CategoryNonCommercial))
	// Output: Large Speculator
}
