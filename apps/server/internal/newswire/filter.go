package newswire

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mwestphal/quill/apps/server/internal/plugin"
	"github.com/mwestphal/quill/pkg/api"
)

// FilterID is the plugin ID the host addresses this filter by.
const FilterID = "newswire"

const (
	defaultMaxArticles = 20
	defaultMaxAge      = 2 * 24 * time.Hour
)

// newsKeywords trigger the filter when any appears in the latest user
// message (case-insensitive substring match).
var newsKeywords = []string{
	"news",
	"headlines",
	"latest",
	"breaking",
	"happening",
	"what's new",
	"updates",
	"current events",
	"story",
	"stories",
}

// Options configures a Filter. Zero values select the defaults.
type Options struct {
	Feeds       []string
	CacheTTL    time.Duration
	MaxArticles int
	MaxAge      time.Duration // drop articles older than this; 0 selects the default
	Workers     int
}

// Filter injects current headlines when the user asks about the news.
type Filter struct {
	plugin.PassthroughOutlet

	opts  Options
	feeds *feedSet
	log   *slog.Logger
}

var _ plugin.Filter = (*Filter)(nil)

// NewFilter creates a Filter over the configured feed URLs.
func NewFilter(opts Options, log *slog.Logger) *Filter {
	if opts.MaxArticles <= 0 {
		opts.MaxArticles = defaultMaxArticles
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = defaultMaxAge
	}
	return &Filter{
		opts:  opts,
		feeds: newFeedSet(opts.Feeds, opts.CacheTTL, opts.Workers),
		log:   log,
	}
}

// ID implements plugin.Filter.
func (f *Filter) ID() string { return FilterID }

// Inlet fetches and injects headlines when the latest user message is a
// news question. Non-news turns pass through untouched, as do turns where
// every feed failed with nothing cached.
func (f *Filter) Inlet(ctx context.Context, body *api.ChatBody, emit plugin.Emit) error {
	if body.User != nil {
		if enabled, ok := body.User.Filters[FilterID]; ok && !enabled {
			return nil
		}
	}
	if len(f.opts.Feeds) == 0 || !isNewsQuestion(body.LastUserMessage()) {
		return nil
	}

	emit(api.StatusEvent(fmt.Sprintf("Fetching headlines from %d feeds", len(f.opts.Feeds)), api.StatusInProgress, false))

	articles, errs := f.feeds.fetchAll(ctx)
	for _, err := range errs {
		f.log.Warn("feed fetch failed", "error", err)
	}
	articles = f.recent(articles)
	if len(articles) == 0 {
		emit(api.StatusEvent("No recent headlines available", api.StatusWarning, true))
		return nil
	}
	if len(articles) > f.opts.MaxArticles {
		articles = articles[:f.opts.MaxArticles]
	}

	body.Messages = append([]api.Message{{Role: api.RoleSystem, Content: headlinesBlock(articles)}}, body.Messages...)
	emit(api.StatusEvent(fmt.Sprintf("Injected %d headlines", len(articles)), api.StatusComplete, true))
	return nil
}

// recent drops articles older than MaxAge; undated articles are kept so a
// feed without timestamps still contributes.
func (f *Filter) recent(articles []Article) []Article {
	cutoff := time.Now().Add(-f.opts.MaxAge)
	kept := articles[:0]
	for _, a := range articles {
		if a.Published.IsZero() || a.Published.After(cutoff) {
			kept = append(kept, a)
		}
	}
	return kept
}

func headlinesBlock(articles []Article) string {
	var b strings.Builder
	b.WriteString("CURRENT HEADLINES (fetched from RSS feeds; answer news questions from these articles only, do not invent stories):\n")
	for _, a := range articles {
		b.WriteString("\n- ")
		b.WriteString(a.Title)
		if a.Source != "" {
			fmt.Fprintf(&b, " (%s", a.Source)
			if !a.Published.IsZero() {
				fmt.Fprintf(&b, ", %s", a.Published.Format("2006-01-02 15:04"))
			}
			b.WriteString(")")
		}
		if a.Link != "" {
			b.WriteString("\n  ")
			b.WriteString(a.Link)
		}
	}
	return b.String()
}

func isNewsQuestion(msg string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range newsKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
