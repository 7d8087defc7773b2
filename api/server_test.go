package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cotlens/cotlens/internal/config"
	"github.com/cotlens/cotlens/internal/news"
	"github.com/cotlens/cotlens/internal/schedule"
)

// stubRows renders n weekly Socrata rows for the given contract code,
// oldest first, in the string-typed shape the real API serves.
func stubRows(code string, n int) string {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		date := start.AddDate(0, 0, 7*i)
		rows = append(rows, map[string]string{
			"report_date_as_yyyy_mm_dd":   date.Format("2006-01-02T15:04:05.000"),
			"market_and_exchange_names":   "GOLD - COMMODITY EXCHANGE INC.",
			"cftc_contract_market_code":   code,
			"open_interest_all":           fmt.Sprintf("%d", 400000+1000*i),
			"noncomm_positions_long_all":  fmt.Sprintf("%d", 200000+500*i),
			"noncomm_positions_short_all": "80000",
			"noncomm_postions_spread_all": "30000",
			"comm_positions_long_all":     "100000",
			"comm_positions_short_all":    "190000",
			"tot_rept_positions_long_all": "330000",
			"tot_rept_positions_short":    "300000",
			"nonrept_positions_long_all":  "70000",
			"nonrept_positions_short_all": "100000",
			"traders_tot_all":             "310",
		})
	}
	b, _ := json.Marshal(rows)
	return string(b)
}

// testServer wires a full server against a stub Socrata endpoint. The news
// and schedule feeds are stubbed too so no test touches the network.
func testServer(t *testing.T) (*Server, *atomic.Int64) {
	t.Helper()

	var upstreamHits atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamHits.Add(1)
		code := "088691"
		if where := r.URL.Query().Get("$where"); strings.Contains(where, "067651") {
			code = "067651"
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, stubRows(code, 30))
	}))
	t.Cleanup(upstream.Close)

	feeds := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/rss"):
			fmt.Fprint(w, `<?xml version="1.0"?><rss version="2.0"><channel><title>t</title>
<item><title>Report Released</title><link>https://example.gov/1</link>
<pubDate>Fri, 21 Aug 2026 19:30:00 GMT</pubDate></item></channel></rss>`)
		default:
			fmt.Fprint(w, `<table><tr><td>June 1, 2099</td><td>June 4, 2099</td></tr></table>`)
		}
	}))
	t.Cleanup(feeds.Close)

	cfg := &config.Config{
		CFTC: config.CFTCConfig{
			BaseURL:    upstream.URL,
			TimeoutSec: 5,
			RowLimit:   500,
		},
		API:      config.APIConfig{Host: "127.0.0.1", Port: 0},
		Cache:    config.CacheConfig{TTLSec: 60},
		Analysis: config.AnalysisConfig{SeasonalYears: 5, MomentumWeeks: 13},
		Logging:  config.LoggingConfig{Level: "error", Format: "text"},
	}

	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.news = news.NewReaderWithSources([]news.Source{{Name: "Stub", URL: feeds.URL + "/rss"}})
	srv.schedule = schedule.NewWithURL(feeds.URL + "/calendar")
	go srv.wsHub.Run()

	return srv, &upstreamHits
}

func doGet(t *testing.T, srv *Server, path string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response for %s: %v (body %q)", path, err, rec.Body.String())
	}
	return rec, resp
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	rec, resp := doGet(t, srv, "/health")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("health: code=%d success=%v", rec.Code, resp.Success)
	}
	data := resp.Data.(map[string]interface{})
	if data["status"] != "ok" {
		t.Errorf("status = %v", data["status"])
	}
	if data["instruments"].(float64) == 0 {
		t.Error("instrument count missing")
	}
}

func TestInstruments(t *testing.T) {
	srv, _ := testServer(t)

	_, resp := doGet(t, srv, "/api/v1/instruments")
	all := resp.Data.([]interface{})
	if len(all) == 0 {
		t.Fatal("no instruments returned")
	}

	_, resp = doGet(t, srv, "/api/v1/instruments/search?q=gold")
	results := resp.Data.([]interface{})
	if len(results) == 0 {
		t.Fatal("search for gold returned nothing")
	}

	rec, resp := doGet(t, srv, "/api/v1/instruments/088691")
	if rec.Code != http.StatusOK {
		t.Fatalf("by code: %d", rec.Code)
	}
	inst := resp.Data.(map[string]interface{})
	if inst["contract_code"] != "088691" {
		t.Errorf("contract_code = %v", inst["contract_code"])
	}

	rec, resp = doGet(t, srv, "/api/v1/instruments/zzzzzz")
	if rec.Code != http.StatusNotFound || resp.Success {
		t.Errorf("unknown code: %d success=%v", rec.Code, resp.Success)
	}
}

func TestReports(t *testing.T) {
	srv, _ := testServer(t)
	rec, resp := doGet(t, srv, "/api/v1/reports/088691?start=2024-01-01&end=2024-12-31")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("reports: code=%d err=%s", rec.Code, resp.Error)
	}
	rows := resp.Data.([]interface{})
	if len(rows) != 30 {
		t.Fatalf("rows = %d, want 30", len(rows))
	}
	first := rows[0].(map[string]interface{})
	if first["contract_code"] != "088691" {
		t.Errorf("contract_code = %v", first["contract_code"])
	}
}

func TestReportsBadParams(t *testing.T) {
	srv, _ := testServer(t)
	cases := []string{
		"/api/v1/reports/088691?start=notadate",
		"/api/v1/reports/088691?type=disaggregated",
		"/api/v1/reports/088691?limit=-5",
		"/api/v1/reports/088691?start=2024-06-01&end=2024-01-01",
	}
	for _, path := range cases {
		rec, resp := doGet(t, srv, path)
		if rec.Code != http.StatusBadRequest || resp.Success {
			t.Errorf("%s: code=%d success=%v", path, rec.Code, resp.Success)
		}
	}
}

func TestReportsCached(t *testing.T) {
	srv, hits := testServer(t)
	doGet(t, srv, "/api/v1/reports/088691")
	doGet(t, srv, "/api/v1/reports/088691")
	if hits.Load() != 1 {
		t.Errorf("upstream hit %d times, want 1", hits.Load())
	}
	// A different range is a different cache entry.
	doGet(t, srv, "/api/v1/reports/088691?start=2024-02-01")
	if hits.Load() != 2 {
		t.Errorf("upstream hit %d times after new range, want 2", hits.Load())
	}
}

func TestAnalysisChart(t *testing.T) {
	srv, _ := testServer(t)
	rec, resp := doGet(t, srv, "/api/v1/analysis/timeseries/088691?changes=true")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("analysis: code=%d err=%s", rec.Code, resp.Error)
	}

	data := resp.Data.(map[string]interface{})
	chart := data["chart"].(map[string]interface{})
	if chart["chart_type"] != "line" {
		t.Errorf("chart_type = %v", chart["chart_type"])
	}
	if !strings.Contains(chart["title"].(string), "Gold") {
		t.Errorf("title = %v, want instrument name", chart["title"])
	}
	series := chart["series"].([]interface{})
	if len(series) != 6 {
		t.Errorf("series = %d, want 3 nets + 3 change series", len(series))
	}

	result := data["analysis"].(map[string]interface{})
	if result["kind"] != "timeseries" {
		t.Errorf("kind = %v", result["kind"])
	}
}

func TestAnalysisMomentumParams(t *testing.T) {
	srv, _ := testServer(t)
	rec, resp := doGet(t, srv, "/api/v1/analysis/momentum/088691?weeks=4&category=commercial")
	if rec.Code != http.StatusOK {
		t.Fatalf("momentum: code=%d err=%s", rec.Code, resp.Error)
	}
	data := resp.Data.(map[string]interface{})
	result := data["analysis"].(map[string]interface{})
	series := result["series"].([]interface{})
	name := series[0].(map[string]interface{})["name"].(string)
	if !strings.HasPrefix(name, "Commercial") {
		t.Errorf("series name = %q, want commercial series", name)
	}
}

func TestAnalysisInsufficientStillRenders(t *testing.T) {
	srv, _ := testServer(t)
	// 30 weekly rows cannot fill the default 52-week percentile window.
	rec, resp := doGet(t, srv, "/api/v1/analysis/percentile/088691")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("percentile: code=%d err=%s", rec.Code, resp.Error)
	}
	data := resp.Data.(map[string]interface{})
	chart := data["chart"].(map[string]interface{})
	if chart["placeholder"] == nil || chart["placeholder"] == "" {
		t.Error("thin history should set a chart placeholder")
	}
}

func TestAnalysisBadKind(t *testing.T) {
	srv, _ := testServer(t)
	rec, resp := doGet(t, srv, "/api/v1/analysis/regression/088691")
	if rec.Code != http.StatusBadRequest || resp.Success {
		t.Errorf("bad kind: code=%d success=%v", rec.Code, resp.Success)
	}
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	cfg := &config.Config{
		CFTC:    config.CFTCConfig{BaseURL: broken.URL, TimeoutSec: 5, RowLimit: 100},
		Cache:   config.CacheConfig{TTLSec: 60},
		Logging: config.LoggingConfig{Level: "error"},
	}
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	rec, resp := doGet(t, srv, "/api/v1/reports/088691")
	if rec.Code != http.StatusBadGateway || resp.Success {
		t.Errorf("upstream failure: code=%d success=%v", rec.Code, resp.Success)
	}
}

func TestOverview(t *testing.T) {
	srv, _ := testServer(t)
	rec, resp := doGet(t, srv, "/api/v1/overview?codes=088691,067651")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("overview: code=%d err=%s", rec.Code, resp.Error)
	}
	entries := resp.Data.([]interface{})
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	first := entries[0].(map[string]interface{})
	nets := first["nets"].(map[string]interface{})
	if _, ok := nets["Large Speculator"]; !ok {
		t.Error("overview entry missing Large Speculator net")
	}
	change := first["week_change"].(map[string]interface{})
	if _, ok := change["Commercial"]; !ok {
		t.Error("overview entry missing Commercial week change")
	}
}

func TestOverviewUnknownCodes(t *testing.T) {
	srv, _ := testServer(t)
	rec, resp := doGet(t, srv, "/api/v1/overview?codes=nope")
	if rec.Code != http.StatusBadRequest || resp.Success {
		t.Errorf("unknown codes: code=%d success=%v", rec.Code, resp.Success)
	}
}

func TestNewsAndSchedule(t *testing.T) {
	srv, _ := testServer(t)

	rec, resp := doGet(t, srv, "/api/v1/news?limit=5")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("news: code=%d err=%s", rec.Code, resp.Error)
	}
	articles := resp.Data.([]interface{})
	if len(articles) != 1 {
		t.Errorf("articles = %d, want 1", len(articles))
	}

	rec, resp = doGet(t, srv, "/api/v1/schedule")
	if rec.Code != http.StatusOK || !resp.Success {
		t.Fatalf("schedule: code=%d err=%s", rec.Code, resp.Error)
	}
	releases := resp.Data.([]interface{})
	if len(releases) != 1 {
		t.Errorf("releases = %d, want 1", len(releases))
	}
}

func TestConfigNeverLeaksToken(t *testing.T) {
	srv, _ := testServer(t)
	srv.cfg.CFTC.AppToken = "SuperSecretToken123"

	rec, _ := doGet(t, srv, "/api/v1/config")
	if strings.Contains(rec.Body.String(), "SuperSecretToken123") {
		t.Fatal("config endpoint leaked the app token")
	}

	rec, resp := doGet(t, srv, "/api/v1/config/token")
	if strings.Contains(rec.Body.String(), "SuperSecretToken123") {
		t.Fatal("token status endpoint leaked the app token")
	}
	status := resp.Data.(map[string]interface{})
	if status["is_set"] != true {
		t.Error("token should report as set")
	}
	masked := status["masked"].(string)
	if !strings.Contains(masked, "...") {
		t.Errorf("masked token = %q", masked)
	}
}

func TestWSHubBroadcast(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	client := &WSClient{hub: hub, send: make(chan WSMessage, 4)}
	hub.Register(client)

	// Registration is async; give the hub loop a beat.
	deadline := time.After(2 * time.Second)
	for hub.ClientCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("client never registered")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	hub.Broadcast(WSMessage{Type: "data_refreshed"})
	select {
	case msg := <-client.send:
		if msg.Type != "data_refreshed" {
			t.Errorf("message type = %q", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never delivered")
	}

	hub.Unregister(client)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("client never unregistered")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestWSTrySendAfterEviction(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	client := &WSClient{hub: hub, send: make(chan WSMessage, 1)}
	hub.Register(client)

	deadline := time.After(2 * time.Second)
	for hub.ClientCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("client never registered")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// Evicting a client closes its send channel. A reply racing the
	// eviction must be dropped, not panic the read pump.
	hub.Unregister(client)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("client never unregistered")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	client.trySend(WSMessage{Type: "pong"})
}

func TestWSTrySendFullBufferDoesNotBlock(t *testing.T) {
	hub := NewWSHub()
	go hub.Run()

	client := &WSClient{hub: hub, send: make(chan WSMessage, 1)}
	hub.Register(client)

	deadline := time.After(2 * time.Second)
	for hub.ClientCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("client never registered")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	client.trySend(WSMessage{Type: "pong"})
	done := make(chan struct{})
	go func() {
		client.trySend(WSMessage{Type: "pong"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("trySend blocked on a full buffer")
	}
}
