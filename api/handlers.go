package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/cotlens/cotlens/internal/analysis"
	"github.com/cotlens/cotlens/internal/charts"
	"github.com/cotlens/cotlens/internal/config"
	"github.com/cotlens/cotlens/internal/cot"
	"github.com/cotlens/cotlens/internal/schedule"
	"github.com/cotlens/cotlens/pkg/models"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":        "ok",
			"version":       s.version,
			"instruments":   s.catalog.Len(),
			"authenticated": s.client.Authenticated(),
			"time":          time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// ============================================================
// Instrument catalog handlers
// ============================================================

func (s *Server) handleInstruments(w http.ResponseWriter, r *http.Request) {
	if class := r.URL.Query().Get("asset_class"); class != "" {
		writeJSON(w, http.StatusOK, APIResponse{
			Success: true,
			Data:    s.catalog.ByAssetClass(models.AssetClass(class)),
		})
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.catalog.All(),
	})
}

func (s *Server) handleSearchInstruments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: []models.Instrument{}})
		return
	}
	results := s.catalog.Search(q)
	if results == nil {
		results = []models.Instrument{}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: results})
}

func (s *Server) handleInstrumentByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	inst, ok := s.catalog.ByCode(code)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown contract code %q", code))
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: inst})
}

// ============================================================
// Report handlers
// ============================================================

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reports, err := s.fetchCached(r.Context(), q)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: reports})
}

// ============================================================
// Analysis handlers
// ============================================================

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reports, err := s.fetchCached(r.Context(), q)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	result, err := s.runAnalysis(kind, reports, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	instrumentName := ""
	if inst, ok := s.catalog.ByCode(q.ContractCode); ok {
		instrumentName = inst.Name
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"chart":    charts.Build(result, instrumentName),
			"analysis": result,
		},
	})
}

// runAnalysis dispatches to the transformer named by kind, applying request
// parameters over the configured defaults.
func (s *Server) runAnalysis(kind string, reports []models.Report, r *http.Request) (models.AnalysisResult, error) {
	params := r.URL.Query()
	category := parseCategory(params.Get("category"))

	switch kind {
	case analysis.KindTimeSeries:
		opts := analysis.TimeSeriesOptions{IncludeChanges: params.Get("changes") == "true"}
		if category != "" {
			opts.Categories = []models.TraderCategory{category}
		}
		return analysis.TimeSeries(reports, opts), nil

	case analysis.KindPercentile:
		opts := analysis.PercentileOptions{Category: category}
		if ws := params.Get("windows"); ws != "" {
			for _, part := range strings.Split(ws, ",") {
				n, err := strconv.Atoi(strings.TrimSpace(part))
				if err != nil || n <= 0 {
					return models.AnalysisResult{}, fmt.Errorf("invalid window %q", part)
				}
				opts.Windows = append(opts.Windows, n)
			}
		}
		return analysis.Percentile(reports, opts), nil

	case analysis.KindSeasonal:
		opts := analysis.SeasonalOptions{
			Category:      category,
			LookbackYears: s.cfg.Analysis.SeasonalYears,
		}
		if ys := params.Get("years"); ys != "" {
			n, err := strconv.Atoi(ys)
			if err != nil || n <= 0 {
				return models.AnalysisResult{}, fmt.Errorf("invalid years %q", ys)
			}
			opts.LookbackYears = n
		}
		return analysis.Seasonal(reports, opts), nil

	case analysis.KindMomentum:
		opts := analysis.MomentumOptions{
			Category: category,
			Weeks:    s.cfg.Analysis.MomentumWeeks,
		}
		if ws := params.Get("weeks"); ws != "" {
			n, err := strconv.Atoi(ws)
			if err != nil || n <= 0 {
				return models.AnalysisResult{}, fmt.Errorf("invalid weeks %q", ws)
			}
			opts.Weeks = n
		}
		return analysis.Momentum(reports, opts), nil

	case analysis.KindParticipation:
		return analysis.Participation(reports), nil

	case analysis.KindShareOfOI:
		opts := analysis.ShareOfOIOptions{}
		if category != "" {
			opts.Categories = []models.TraderCategory{category}
		}
		return analysis.ShareOfOI(reports, opts), nil
	}

	return models.AnalysisResult{}, fmt.Errorf("unknown analysis kind %q", kind)
}

// ============================================================
// Overview handler
// ============================================================

// OverviewEntry summarizes one instrument's latest report.
type OverviewEntry struct {
	ContractCode string            `json:"contract_code"`
	Name         string            `json:"name"`
	AssetClass   models.AssetClass `json:"asset_class"`
	Date         string            `json:"date"`
	OpenInterest int64             `json:"open_interest"`
	Nets         map[string]int64  `json:"nets"`
	WeekChange   map[string]int64  `json:"week_change"`
}

// handleOverview fetches the recent history of several instruments
// concurrently and reduces each to its latest net positions.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	codes := overviewCodes(r.URL.Query().Get("codes"), s)
	if len(codes) == 0 {
		writeError(w, http.StatusBadRequest, "no known contract codes requested")
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(0, -3, 0)

	// One slow or broken instrument must not blank the whole overview, so
	// per-instrument failures are logged and skipped.
	entries := make([]*OverviewEntry, len(codes))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(4)
	for i, code := range codes {
		g.Go(func() error {
			reports, err := s.fetchCached(ctx, cot.Query{
				ContractCode: code,
				Start:        start,
				End:          end,
			})
			if err != nil {
				s.log.Warn("overview fetch failed", "code", code, "err", err)
				return nil
			}
			entries[i] = s.overviewEntry(code, reports)
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	out := make([]OverviewEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: out})
}

func (s *Server) overviewEntry(code string, reports []models.Report) *OverviewEntry {
	if len(reports) == 0 {
		return nil
	}
	latest := reports[len(reports)-1]

	entry := &OverviewEntry{
		ContractCode: code,
		Name:         latest.MarketName,
		Date:         latest.Date.Format("2006-01-02"),
		OpenInterest: latest.OpenInterest,
		Nets:         make(map[string]int64),
		WeekChange:   make(map[string]int64),
	}
	if inst, ok := s.catalog.ByCode(code); ok {
		entry.Name = inst.Name
		entry.AssetClass = inst.AssetClass
	}

	for _, cat := range models.Categories() {
		label := analysis.DisplayName(cat)
		entry.Nets[label] = latest.Net(cat)
		if len(reports) > 1 {
			prior := reports[len(reports)-2]
			entry.WeekChange[label] = latest.Net(cat) - prior.Net(cat)
		}
	}
	return entry
}

// overviewCodes resolves the requested code list, falling back to the whole
// catalog when none is given. Unknown codes are dropped.
func overviewCodes(param string, s *Server) []string {
	if param == "" {
		all := s.catalog.All()
		codes := make([]string, 0, len(all))
		for _, inst := range all {
			codes = append(codes, inst.ContractCode)
		}
		return codes
	}

	var codes []string
	for _, code := range strings.Split(param, ",") {
		code = strings.TrimSpace(code)
		if _, ok := s.catalog.ByCode(code); ok {
			codes = append(codes, code)
		}
	}
	return codes
}

// ============================================================
// Sidebar feed handlers
// ============================================================

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if n, err := strconv.Atoi(ls); err == nil && n > 0 {
			limit = n
		}
	}

	articles, err := s.news.Latest(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: articles})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	releases := s.schedule.Upcoming(r.Context())
	if releases == nil {
		releases = []schedule.Release{}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: releases})
}

// ============================================================
// Configuration handlers
// ============================================================

// handleGetConfig returns the running configuration. The app token is
// excluded via its json:"-" tag; only its masked status is exposed.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"config": s.cfg,
			"token":  config.CheckToken(s.cfg),
		},
	})
}

func (s *Server) handleTokenStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckToken(s.cfg),
	})
}

// ============================================================
// Helpers
// ============================================================

// fetchCached serves report fetches through the session cache. A miss hits
// the upstream API and broadcasts a refresh event to WebSocket clients.
func (s *Server) fetchCached(ctx context.Context, q cot.Query) ([]models.Report, error) {
	key := q.CacheKey()
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]models.Report), nil
	}

	reports, err := s.client.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, reports)

	s.wsHub.Broadcast(WSMessage{
		Type: "data_refreshed",
		Data: map[string]interface{}{
			"contract_code": q.ContractCode,
			"rows":          len(reports),
		},
	})
	return reports, nil
}

// queryFromRequest builds a COT query from the {code} path parameter and
// the shared query-string filters.
func queryFromRequest(r *http.Request) (cot.Query, error) {
	q := cot.Query{ContractCode: chi.URLParam(r, "code")}
	params := r.URL.Query()

	switch t := params.Get("type"); t {
	case "", string(models.ReportFuturesOnly):
		q.Type = models.ReportFuturesOnly
	case string(models.ReportCombined):
		q.Type = models.ReportCombined
	default:
		return q, fmt.Errorf("unknown report type %q", t)
	}

	var err error
	if q.Start, err = parseDateParam(params.Get("start")); err != nil {
		return q, err
	}
	if q.End, err = parseDateParam(params.Get("end")); err != nil {
		return q, err
	}
	if !q.Start.IsZero() && !q.End.IsZero() && q.End.Before(q.Start) {
		return q, fmt.Errorf("end date %s precedes start date %s",
			q.End.Format("2006-01-02"), q.Start.Format("2006-01-02"))
	}

	if ls := params.Get("limit"); ls != "" {
		n, err := strconv.Atoi(ls)
		if err != nil || n <= 0 {
			return q, fmt.Errorf("invalid limit %q", ls)
		}
		q.Limit = n
	}
	return q, nil
}

func parseDateParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q; use YYYY-MM-DD", s)
	}
	return t.UTC(), nil
}

func parseCategory(s string) models.TraderCategory {
	switch s {
	case string(models.CategoryCommercial):
		return models.CategoryCommercial
	case string(models.CategoryNonReportable):
		return models.CategoryNonReportable
	case string(models.CategoryNonCommercial):
		return models.CategoryNonCommercial
	}
	return ""
}
