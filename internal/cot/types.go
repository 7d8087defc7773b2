// Package cot implements the CFTC Commitments of Traders data client.
// It queries the Socrata API at publicreporting.cftc.gov, decodes the
// tabular JSON response with tolerant per-field parsing, and normalizes
// the rows into ordered, deduplicated report records.
package cot

import (
	"fmt"
	"time"

	"github.com/cotlens/cotlens/pkg/models"
)

// datasets maps report types to their Socrata dataset identifiers.
var datasets = map[models.ReportType]string{
	models.ReportFuturesOnly: "6dca-aqww",
	models.ReportCombined:    "jun7-fc8e",
}

// Query describes one fetch against the COT API. Date-range filtering is
// applied server-side in the SoQL where clause, never after download.
type Query struct {
	ContractCode string
	Start        time.Time
	End          time.Time
	Type         models.ReportType
	Limit        int
}

// normalized returns the query with defaults applied.
func (q Query) normalized(defaultLimit int) Query {
	if q.Type == "" {
		q.Type = models.ReportFuturesOnly
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	return q
}

// CacheKey returns a canonical string identity for the query, used by the
// dashboard's session cache.
func (q Query) CacheKey() string {
	start, end := "", ""
	if !q.Start.IsZero() {
		start = q.Start.Format("2006-01-02")
	}
	if !q.End.IsZero() {
		end = q.End.Format("2006-01-02")
	}
	return fmt.Sprintf("cot:%s:%s:%s:%s:%d", q.Type, q.ContractCode, start, end, q.Limit)
}

// ErrKind classifies fetch failures.
type ErrKind string

const (
	ErrNetwork   ErrKind = "network"
	ErrAuth      ErrKind = "auth"
	ErrMalformed ErrKind = "malformed"
	ErrBadQuery  ErrKind = "bad_query"
)

// FetchError is the error type returned by Client.Fetch. An empty result
// set is not an error; callers receive an empty slice instead.
type FetchError struct {
	Kind ErrKind
	Msg  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cot fetch (%s): %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("cot fetch (%s): %s", e.Kind, e.Msg)
}

func (e *FetchError) Unwrap() error { return e.Err }

func fetchErr(kind ErrKind, msg string, err error) *FetchError {
	return &FetchError{Kind: kind, Msg: msg, Err: err}
}
