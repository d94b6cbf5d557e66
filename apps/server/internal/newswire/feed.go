// Package newswire implements the RSS headlines filter: when a chat turn
// looks like a news question it fetches the configured feeds, merges and
// deduplicates their articles and injects the headlines as a system message.
package newswire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

const (
	userAgent       = "quill-newswire/1.0"
	perFeedTimeout  = 10 * time.Second
	defaultCacheTTL = 3 * time.Minute
	defaultWorkers  = 4
)

// Article is one normalized feed item.
type Article struct {
	Title     string
	Link      string
	Source    string
	Summary   string
	Published time.Time
}

// cachedFeed is one per-URL cache slot. Kept on error so a flapping feed can
// serve its last good articles.
type cachedFeed struct {
	articles  []Article
	fetchedAt time.Time
}

// feedSet fetches a fixed list of feed URLs with bounded concurrency and a
// per-feed TTL cache.
type feedSet struct {
	urls       []string
	parser     *gofeed.Parser
	httpClient *http.Client
	cacheTTL   time.Duration
	workers    int

	mu    sync.Mutex
	cache map[string]cachedFeed

	now func() time.Time
}

func newFeedSet(urls []string, cacheTTL time.Duration, workers int) *feedSet {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &feedSet{
		urls:       urls,
		parser:     gofeed.NewParser(),
		httpClient: &http.Client{Timeout: perFeedTimeout},
		cacheTTL:   cacheTTL,
		workers:    workers,
		cache:      make(map[string]cachedFeed),
		now:        time.Now,
	}
}

// fetchAll returns the merged article list across every feed, deduplicated
// by link and sorted newest first. Feeds that fail and have no cached copy
// are reported in errs; the merge proceeds with whatever succeeded.
func (fs *feedSet) fetchAll(ctx context.Context) (articles []Article, errs []error) {
	results := make([][]Article, len(fs.urls))
	failures := make([]error, len(fs.urls))

	g := new(errgroup.Group)
	g.SetLimit(fs.workers)
	for i, url := range fs.urls {
		g.Go(func() error {
			results[i], failures[i] = fs.fetchFeed(ctx, url)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // per-feed failures are collected, not returned

	seen := make(map[string]bool)
	for _, batch := range results {
		for _, a := range batch {
			if a.Link != "" && seen[a.Link] {
				continue
			}
			seen[a.Link] = true
			articles = append(articles, a)
		}
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Published.After(articles[j].Published)
	})

	for _, err := range failures {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return articles, errs
}

// fetchFeed returns the articles for one URL, serving the cache while fresh
// and falling back to a stale copy when the fetch fails.
func (fs *feedSet) fetchFeed(ctx context.Context, url string) ([]Article, error) {
	fs.mu.Lock()
	slot, cached := fs.cache[url]
	fs.mu.Unlock()

	if cached && fs.now().Sub(slot.fetchedAt) < fs.cacheTTL {
		return slot.articles, nil
	}

	articles, err := fs.download(ctx, url)
	if err != nil {
		if cached {
			return slot.articles, nil
		}
		return nil, err
	}

	fs.mu.Lock()
	fs.cache[url] = cachedFeed{articles: articles, fetchedAt: fs.now()}
	fs.mu.Unlock()
	return articles, nil
}

func (fs *feedSet) download(ctx context.Context, url string) ([]Article, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := fs.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer func() { //nolint:errcheck // response body close errors are non-actionable after reading
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned %d", url, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	feed, err := fs.parser.ParseString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}

	articles := make([]Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := Article{
			Title:   item.Title,
			Link:    item.Link,
			Source:  feed.Title,
			Summary: item.Description,
		}
		if item.PublishedParsed != nil {
			a.Published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			a.Published = *item.UpdatedParsed
		}
		articles = append(articles, a)
	}
	return articles, nil
}
