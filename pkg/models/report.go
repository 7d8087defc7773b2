// Package models defines the standard data models shared across cotlens:
// COT report records, instruments, analysis results, and chart specs.
package models

import "time"

// ReportType selects which CFTC legacy dataset a query targets.
type ReportType string

const (
	// ReportFuturesOnly is the legacy futures-only report (published since 1968).
	ReportFuturesOnly ReportType = "futures_only"
	// ReportCombined is the legacy futures-and-options-combined report.
	ReportCombined ReportType = "combined"
)

// Report is a single row of legacy COT data for one market and report date.
// Identity is (Date, ContractCode); records are immutable once fetched.
//
// Fields that older report vintages omit are pointer-typed and stay nil when
// the API response lacks them. A sparse row is retained, never dropped.
type Report struct {
	Date         time.Time `json:"date"`
	ContractCode string    `json:"contract_code"`
	MarketName   string    `json:"market_name"`

	OpenInterest int64 `json:"open_interest"`

	// Non-commercial (large speculator) positions.
	NonCommLong   int64  `json:"noncomm_long"`
	NonCommShort  int64  `json:"noncomm_short"`
	NonCommSpread *int64 `json:"noncomm_spread,omitempty"`

	// Commercial (hedger) positions.
	CommLong  int64 `json:"comm_long"`
	CommShort int64 `json:"comm_short"`

	// Total reportable positions.
	TotReptLong  int64 `json:"tot_rept_long"`
	TotReptShort int64 `json:"tot_rept_short"`

	// Non-reportable (small trader) positions.
	NonReptLong  int64 `json:"nonrept_long"`
	NonReptShort int64 `json:"nonrept_short"`

	// TraderCount is the total number of reportable traders, when published.
	TraderCount *int64 `json:"trader_count,omitempty"`
}

// NonCommNet returns the non-commercial net position. When the spreading
// figure is present it is subtracted, matching the dashboard's definition of
// the outright speculator net.
func (r *Report) NonCommNet() int64 {
	net := r.NonCommLong - r.NonCommShort
	if r.NonCommSpread != nil {
		net -= *r.NonCommSpread
	}
	return net
}

// CommNet returns the commercial net position.
func (r *Report) CommNet() int64 {
	return r.CommLong - r.CommShort
}

// NonReptNet returns the non-reportable (small trader) net position.
func (r *Report) NonReptNet() int64 {
	return r.NonReptLong - r.NonReptShort
}

// TotReptNet returns the total reportable net position.
func (r *Report) TotReptNet() int64 {
	return r.TotReptLong - r.TotReptShort
}

// TraderCategory identifies a class of position holders in the legacy report.
type TraderCategory string

const (
	CategoryNonCommercial TraderCategory = "noncommercial"
	CategoryCommercial    TraderCategory = "commercial"
	CategoryNonReportable TraderCategory = "nonreportable"
)

// Categories lists the legacy trader categories in display order.
func Categories() []TraderCategory {
	return []TraderCategory{CategoryNonCommercial, CategoryCommercial, CategoryNonReportable}
}

// Net returns the net position for the given category.
func (r *Report) Net(cat TraderCategory) int64 {
	switch cat {
	case CategoryNonCommercial:
		return r.NonCommNet()
	case CategoryCommercial:
		return r.CommNet()
	case CategoryNonReportable:
		return r.NonReptNet()
	}
	return 0
}

// Longs returns the long position count for the given category.
func (r *Report) Longs(cat TraderCategory) int64 {
	switch cat {
	case CategoryNonCommercial:
		return r.NonCommLong
	case CategoryCommercial:
		return r.CommLong
	case CategoryNonReportable:
		return r.NonReptLong
	}
	return 0
}

// Shorts returns the short position count for the given category.
func (r *Report) Shorts(cat TraderCategory) int64 {
	switch cat {
	case CategoryNonCommercial:
		return r.NonCommShort
	case CategoryCommercial:
		return r.CommShort
	case CategoryNonReportable:
		return r.NonReptShort
	}
	return 0
}
