package cot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cotlens/cotlens/internal/infra"
	"github.com/cotlens/cotlens/pkg/models"
)

// selectColumns is the column set requested from the legacy datasets.
// Keeping the select explicit caps response size and pins the schema the
// decoder expects.
var selectColumns = []string{
	"report_date_as_yyyy_mm_dd",
	"market_and_exchange_names",
	"cftc_contract_market_code",
	"open_interest_all",
	"noncomm_positions_long_all",
	"noncomm_positions_short_all",
	"noncomm_postions_spread_all", // sic: the dataset column is misspelled upstream
	"comm_positions_long_all",
	"comm_positions_short_all",
	"tot_rept_positions_long_all",
	"tot_rept_positions_short",
	"nonrept_positions_long_all",
	"nonrept_positions_short_all",
	"traders_tot_all",
}

const defaultRowLimit = 3000

// Options configures a Client.
type Options struct {
	BaseURL  string
	AppToken string        // optional; absent means unauthenticated mode
	Timeout  time.Duration // per-fetch deadline
	RowLimit int           // default $limit when a query does not set one
}

// Client fetches legacy COT reports from the Socrata API.
type Client struct {
	baseURL  string
	token    string
	timeout  time.Duration
	rowLimit int
	limiter  *infra.RateLimiter
}

// NewClient creates a COT client. Zero-valued options fall back to the
// public endpoint with conservative defaults.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://publicreporting.cftc.gov"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RowLimit <= 0 {
		opts.RowLimit = defaultRowLimit
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.AppToken,
		timeout:  opts.Timeout,
		rowLimit: opts.RowLimit,
		limiter:  infra.NewRateLimiter(5, time.Second),
	}
}

// Authenticated reports whether an app token is configured.
func (c *Client) Authenticated() bool { return c.token != "" }

// Ping verifies connectivity by fetching a single row from the futures-only
// dataset.
func (c *Client) Ping(ctx context.Context) error {
	u := fmt.Sprintf("%s/resource/%s.json?%s", c.baseURL, datasets[models.ReportFuturesOnly],
		url.Values{"$limit": {"1"}}.Encode())
	body, status, err := infra.DoGet(ctx, u, c.headers())
	if err != nil {
		return fetchErr(ErrNetwork, "ping", err)
	}
	defer body.Close()
	if status >= 400 {
		return httpError(status, body)
	}
	return nil
}

// Fetch retrieves the report records matching q, ordered ascending by report
// date with duplicate (date, contract) pairs collapsed. An empty match is
// returned as an empty slice, not an error.
func (c *Client) Fetch(ctx context.Context, q Query) ([]models.Report, error) {
	q = q.normalized(c.rowLimit)
	if q.ContractCode == "" {
		return nil, fetchErr(ErrBadQuery, "contract code is required", nil)
	}
	dataset, ok := datasets[q.Type]
	if !ok {
		return nil, fetchErr(ErrBadQuery, fmt.Sprintf("unknown report type %q", q.Type), nil)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fetchErr(ErrNetwork, "rate limit wait", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/resource/%s.json?%s", c.baseURL, dataset, c.queryValues(q).Encode())
	body, status, err := infra.DoGet(ctx, u, c.headers())
	if err != nil {
		return nil, fetchErr(ErrNetwork, "request failed", err)
	}
	defer body.Close()
	if status >= 400 {
		return nil, httpError(status, body)
	}

	var rows []socrataRow
	if err := json.NewDecoder(body).Decode(&rows); err != nil {
		return nil, fetchErr(ErrMalformed, "decoding response", err)
	}

	return normalize(rows), nil
}

// queryValues builds the SoQL parameters for q. Filtering happens in the
// $where clause so the API never ships a full historical dump.
func (c *Client) queryValues(q Query) url.Values {
	where := []string{fmt.Sprintf("cftc_contract_market_code='%s'", escapeSoQL(q.ContractCode))}
	if !q.Start.IsZero() {
		where = append(where, fmt.Sprintf("report_date_as_yyyy_mm_dd>='%s'", q.Start.Format("2006-01-02")))
	}
	if !q.End.IsZero() {
		where = append(where, fmt.Sprintf("report_date_as_yyyy_mm_dd<='%s'", q.End.Format("2006-01-02")))
	}

	v := url.Values{}
	v.Set("$select", strings.Join(selectColumns, ","))
	v.Set("$where", strings.Join(where, " AND "))
	v.Set("$order", "report_date_as_yyyy_mm_dd ASC")
	v.Set("$limit", fmt.Sprintf("%d", q.Limit))
	return v
}

// headers returns the request headers, including the app token when set.
func (c *Client) headers() map[string]string {
	h := map[string]string{"Accept": "application/json"}
	if c.token != "" {
		h["X-App-Token"] = c.token
	}
	return h
}

// escapeSoQL doubles single quotes inside a SoQL string literal.
func escapeSoQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// httpError maps an HTTP error status to a FetchError.
func httpError(status int, body io.Reader) *FetchError {
	b, _ := io.ReadAll(io.LimitReader(body, 512))
	kind := ErrMalformed
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = ErrAuth
	case status >= 500 || status == http.StatusTooManyRequests:
		kind = ErrNetwork
	}
	return fetchErr(kind, fmt.Sprintf("HTTP %d: %s", status, strings.TrimSpace(string(b))), nil)
}
