// Package schedule scrapes the CFTC release calendar so the dashboard can
// show when the next Commitments of Traders report lands. The calendar is
// decorative; every scrape failure degrades to an empty schedule.
package schedule

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/cotlens/cotlens/internal/infra"
)

// DefaultURL is the CFTC release schedule page.
const DefaultURL = "https://www.cftc.gov/MarketReports/CommitmentsofTraders/ReleaseSchedule/index.htm"

// Release pairs a report's as-of date with its publication date.
type Release struct {
	ReportDate  time.Time `json:"report_date"`
	ReleaseDate time.Time `json:"release_date"`
}

// Scraper fetches and parses the release calendar.
type Scraper struct {
	url   string
	cache *infra.Cache
}

// New creates a scraper against the CFTC site.
func New() *Scraper {
	return NewWithURL(DefaultURL)
}

// NewWithURL creates a scraper against a custom page, used in tests.
func NewWithURL(url string) *Scraper {
	return &Scraper{
		url:   url,
		cache: infra.NewCache(6 * time.Hour),
	}
}

// Upcoming returns releases dated today or later, soonest first. A page
// that cannot be fetched or parsed yields an empty slice, never an error;
// the dashboard renders without a calendar.
func (s *Scraper) Upcoming(ctx context.Context) []Release {
	all := s.all(ctx)
	today := time.Now().UTC().Truncate(24 * time.Hour)

	var upcoming []Release
	for _, r := range all {
		if !r.ReleaseDate.Before(today) {
			upcoming = append(upcoming, r)
		}
	}
	return upcoming
}

// Next returns the soonest upcoming release, or false when the calendar is
// unavailable or exhausted.
func (s *Scraper) Next(ctx context.Context) (Release, bool) {
	upcoming := s.Upcoming(ctx)
	if len(upcoming) == 0 {
		return Release{}, false
	}
	return upcoming[0], true
}

func (s *Scraper) all(ctx context.Context) []Release {
	const cacheKey = "schedule:releases"
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]Release)
	}

	body, status, err := infra.DoGet(ctx, s.url, nil)
	if err != nil || status != 200 {
		if body != nil {
			body.Close()
		}
		return nil
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil
	}

	releases := parseCalendar(doc)
	s.cache.Set(cacheKey, releases)
	return releases
}

// parseCalendar walks every table row and keeps the ones whose first two
// cells parse as dates. The CFTC page's markup shifts from year to year;
// matching on cell content is sturdier than matching on class names.
func parseCalendar(doc *goquery.Document) []Release {
	var releases []Release
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		report, ok1 := parseCalendarDate(cells.Eq(0).Text())
		release, ok2 := parseCalendarDate(cells.Eq(1).Text())
		if !ok1 || !ok2 {
			return
		}
		releases = append(releases, Release{ReportDate: report, ReleaseDate: release})
	})
	return releases
}

var calendarLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"2006-01-02",
}

func parseCalendarDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	// Drop a leading weekday name ("Friday, January 2, 2026").
	if i := strings.Index(s, ", "); i > 0 && !strings.ContainsAny(s[:i], "0123456789") {
		s = s[i+2:]
	}
	for _, layout := range calendarLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
