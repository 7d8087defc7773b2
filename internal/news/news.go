// Package news aggregates CFTC press releases and market headlines from RSS
// feeds for the dashboard's sidebar.
package news

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/cotlens/cotlens/internal/infra"
)

// Source names an RSS feed.
type Source struct {
	Name string
	URL  string
}

// DefaultSources lists the configured feeds: the CFTC's own press releases
// plus its events calendar.
var DefaultSources = []Source{
	{Name: "CFTC Press Releases", URL: "https://www.cftc.gov/RSS/RSSGP/rssgp.xml"},
	{Name: "CFTC Events", URL: "https://www.cftc.gov/RSS/RSSENR/rssenr.xml"},
}

// Article is a single headline.
type Article struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Reader fetches and merges the configured feeds.
type Reader struct {
	sources []Source
	cache   *infra.Cache
	limiter *infra.RateLimiter
	parser  *gofeed.Parser
}

// NewReader creates a reader over the default CFTC feeds.
func NewReader() *Reader {
	return NewReaderWithSources(DefaultSources)
}

// NewReaderWithSources creates a reader over custom feeds, used in tests.
func NewReaderWithSources(sources []Source) *Reader {
	return &Reader{
		sources: sources,
		cache:   infra.NewCache(10 * time.Minute),
		limiter: infra.NewRateLimiter(2, time.Second),
		parser:  gofeed.NewParser(),
	}
}

// Latest returns recent articles across all sources, newest first. A source
// that fails to fetch or parse is skipped; only a total blackout returns an
// error.
func (r *Reader) Latest(ctx context.Context, limit int) ([]Article, error) {
	cacheKey := fmt.Sprintf("news:latest:%d", limit)
	if cached, ok := r.cache.Get(cacheKey); ok {
		return cached.([]Article), nil
	}

	var all []Article
	var lastErr error
	for _, src := range r.sources {
		articles, err := r.fetchFeed(ctx, src)
		if err != nil {
			lastErr = err
			continue
		}
		all = append(all, articles...)
	}
	if len(all) == 0 && lastErr != nil {
		return nil, fmt.Errorf("all news sources failed: %w", lastErr)
	}

	sortByDate(all)
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	r.cache.Set(cacheKey, all)
	return all, nil
}

func (r *Reader) fetchFeed(ctx context.Context, src Source) ([]Article, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := r.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.Name, err)
	}

	articles := make([]Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := Article{
			Title:   strings.TrimSpace(item.Title),
			URL:     item.Link,
			Source:  src.Name,
			Summary: stripHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// stripHTML flattens feed descriptions to plain text.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// sortByDate orders newest first, keeping feed order for equal timestamps.
func sortByDate(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
}
