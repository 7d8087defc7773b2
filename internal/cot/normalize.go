package cot

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cotlens/cotlens/pkg/models"
)

// socrataRow mirrors one row of the legacy dataset. Socrata serves every
// value as a JSON string; fields the vintage omits decode to "".
type socrataRow struct {
	ReportDate    string `json:"report_date_as_yyyy_mm_dd"`
	MarketName    string `json:"market_and_exchange_names"`
	ContractCode  string `json:"cftc_contract_market_code"`
	OpenInterest  string `json:"open_interest_all"`
	NonCommLong   string `json:"noncomm_positions_long_all"`
	NonCommShort  string `json:"noncomm_positions_short_all"`
	NonCommSpread string `json:"noncomm_postions_spread_all"`
	CommLong      string `json:"comm_positions_long_all"`
	CommShort     string `json:"comm_positions_short_all"`
	TotReptLong   string `json:"tot_rept_positions_long_all"`
	TotReptShort  string `json:"tot_rept_positions_short"`
	NonReptLong   string `json:"nonrept_positions_long_all"`
	NonReptShort  string `json:"nonrept_positions_short_all"`
	TraderCount   string `json:"traders_tot_all"`
}

// normalize converts raw rows into report records: ascending by report date,
// duplicate (date, contract) pairs collapsed keeping the later-fetched row.
// Rows without a parsable date or contract code have no identity and are
// skipped; every other parse failure defaults the field instead of dropping
// the row.
func normalize(rows []socrataRow) []models.Report {
	reports := make([]models.Report, 0, len(rows))
	index := make(map[string]int, len(rows))

	for _, row := range rows {
		date, ok := parseDate(row.ReportDate)
		if !ok || row.ContractCode == "" {
			continue
		}

		r := models.Report{
			Date:          date,
			ContractCode:  row.ContractCode,
			MarketName:    row.MarketName,
			OpenInterest:  parseCount(row.OpenInterest),
			NonCommLong:   parseCount(row.NonCommLong),
			NonCommShort:  parseCount(row.NonCommShort),
			NonCommSpread: parseOptCount(row.NonCommSpread),
			CommLong:      parseCount(row.CommLong),
			CommShort:     parseCount(row.CommShort),
			TotReptLong:   parseCount(row.TotReptLong),
			TotReptShort:  parseCount(row.TotReptShort),
			NonReptLong:   parseCount(row.NonReptLong),
			NonReptShort:  parseCount(row.NonReptShort),
			TraderCount:   parseOptCount(row.TraderCount),
		}

		key := r.Date.Format("2006-01-02") + ":" + r.ContractCode
		if i, seen := index[key]; seen {
			reports[i] = r // later-fetched duplicate wins
			continue
		}
		index[key] = len(reports)
		reports = append(reports, r)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Date.Before(reports[j].Date)
	})
	return reports
}

// parseDate accepts Socrata floating timestamps ("2020-01-07T00:00:00.000")
// and bare dates.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02T15:04:05.000", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(24 * time.Hour), true
		}
	}
	return time.Time{}, false
}

// parseCount parses a position count, tolerating decimal suffixes and
// thousands separators. Unparsable input defaults to 0.
func parseCount(s string) int64 {
	v, _ := parseCountOK(s)
	return v
}

// parseOptCount returns nil for absent or unparsable values, preserving the
// distinction between "zero" and "not published for this vintage".
func parseOptCount(s string) *int64 {
	v, ok := parseCountOK(s)
	if !ok {
		return nil
	}
	return &v
}

func parseCountOK(s string) (int64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, false
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
