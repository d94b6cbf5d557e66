package repocontext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mwestphal/quill/apps/server/internal/plugin"
	"github.com/mwestphal/quill/pkg/api"
)

// FilterID is the plugin ID the host addresses this filter by.
const FilterID = "github-context"

type intent int

const (
	intentOrdinary intent = iota
	intentPurge
	intentReload
)

// Options configures a Filter.
type Options struct {
	Ref             RepositoryRef
	TTL             time.Duration
	MaxContextChars int
}

// Filter injects a snapshot of the configured repository as a leading
// system message on every inbound turn. Snapshots are cached; a refresh
// only happens when the cache is absent, stale, or explicitly forced.
type Filter struct {
	plugin.PassthroughOutlet

	opts    Options
	fetcher Snapshotter
	store   Store
	log     *slog.Logger
	metrics *filterMetrics

	// group collapses concurrent refreshes of the same ref into one fetch;
	// late callers wait for and share the in-flight result.
	group singleflight.Group

	// now is swappable for tests.
	now func() time.Time
}

var _ plugin.Filter = (*Filter)(nil)

// NewFilter creates a Filter backed by the given fetcher and store.
func NewFilter(opts Options, fetcher Snapshotter, store Store, log *slog.Logger) *Filter {
	return &Filter{
		opts:    opts,
		fetcher: fetcher,
		store:   store,
		log:     log,
		metrics: newFilterMetrics(),
		now:     time.Now,
	}
}

// ID implements plugin.Filter.
func (f *Filter) ID() string { return FilterID }

// Inlet resolves the user's intent, refreshes the snapshot when needed and
// prepends the rendered context block. It never returns an error for a
// failed refresh: every failure path degrades to a status event so the
// conversation can continue.
func (f *Filter) Inlet(ctx context.Context, body *api.ChatBody, emit plugin.Emit) error {
	if body.User != nil {
		if enabled, ok := body.User.Filters[FilterID]; ok && !enabled {
			return nil
		}
	}

	ref := f.opts.Ref
	last := body.LastUserMessage()

	switch detectIntent(last) {
	case intentPurge:
		if err := f.store.Purge(ctx, ref); err != nil {
			return fmt.Errorf("purge %q: %w", ref, err)
		}
		f.log.Info("repository cache purged", "ref", ref.String())
		emit(api.StatusEvent(fmt.Sprintf("Repository cache cleared for %s", ref), api.StatusComplete, true))
		return nil

	case intentReload:
		entry, err := f.refresh(ctx, ref, emit)
		if err != nil {
			return nil
		}
		f.inject(body, entry, emit, false)
		return nil
	}

	entry, err := f.store.Get(ctx, ref)
	if err != nil {
		return fmt.Errorf("read cache for %q: %w", ref, err)
	}
	if entry != nil && !entry.IsStale(f.now(), f.opts.TTL) {
		f.metrics.cacheHits.Add(ctx, 1)
		f.inject(body, entry, emit, false)
		return nil
	}
	f.metrics.cacheMisses.Add(ctx, 1)

	fresh, err := f.refresh(ctx, ref, emit)
	if err == nil {
		f.inject(body, fresh, emit, false)
		return nil
	}
	if entry != nil && isTransient(err) {
		// Transient failure with a usable previous snapshot: degrade to it.
		f.inject(body, entry, emit, true)
	}
	return nil
}

// isTransient reports whether a refresh failure may be papered over with
// stale data. Bad credentials and bad refs are configuration problems and
// stay fatal for the turn.
func isTransient(err error) bool {
	var authErr AuthError
	var notFoundErr NotFoundError
	return !errors.As(err, &authErr) && !errors.As(err, &notFoundErr)
}

// refresh fetches a new snapshot, collapsing concurrent callers for the
// same ref onto one in-flight fetch. On failure it emits a status event
// and returns the classified error; classification decides the wording.
func (f *Filter) refresh(ctx context.Context, ref RepositoryRef, emit plugin.Emit) (*CacheEntry, error) {
	emit(api.StatusEvent(fmt.Sprintf("Fetching repository %s", ref), api.StatusInProgress, false))

	start := f.now()
	v, err, _ := f.group.Do(ref.String(), func() (any, error) {
		entry, err := f.fetcher.Snapshot(ctx, ref)
		if err != nil {
			return nil, err
		}
		if err := f.store.Put(ctx, entry); err != nil {
			return nil, fmt.Errorf("store snapshot %q: %w", ref, err)
		}
		return entry, nil
	})
	elapsed := f.now().Sub(start)

	if err != nil {
		f.metrics.recordRefresh(ctx, "failure", elapsed, 0)
		f.log.Error("repository refresh failed", "ref", ref.String(), "error", err)
		emit(api.StatusEvent(refreshFailureNotice(ref, err), api.StatusError, true))
		return nil, err
	}

	entry := v.(*CacheEntry)
	f.metrics.recordRefresh(ctx, "success", elapsed, entry.Stats.Files)
	f.log.Info("repository refreshed",
		"ref", ref.String(),
		"files", entry.Stats.Files,
		"excluded", len(entry.Excluded),
		"bytes", entry.Stats.Bytes,
		"elapsed", elapsed)
	return entry, nil
}

// inject replaces any context block from an earlier turn and prepends the
// rendered snapshot as a leading system message.
func (f *Filter) inject(body *api.ChatBody, entry *CacheEntry, emit plugin.Emit, stale bool) {
	kept := body.Messages[:0]
	for _, m := range body.Messages {
		if m.Role == api.RoleSystem && IsContextMessage(m.Content) {
			continue
		}
		kept = append(kept, m)
	}
	block := ContextBlock(entry, f.opts.MaxContextChars)
	body.Messages = append([]api.Message{{Role: api.RoleSystem, Content: block}}, kept...)

	if stale {
		emit(api.StatusEvent(
			fmt.Sprintf("Repository refresh failed, using stale data from %s", entry.FetchedAt.Format(time.RFC3339)),
			api.StatusWarning, true))
		return
	}
	emit(api.StatusEvent(
		fmt.Sprintf("Repository context loaded: %d files (%d bytes)", entry.Stats.Files, entry.Stats.Bytes),
		api.StatusComplete, true))
}

func refreshFailureNotice(ref RepositoryRef, err error) string {
	var authErr AuthError
	var notFoundErr NotFoundError
	switch {
	case errors.As(err, &authErr):
		return fmt.Sprintf("GitHub authentication failed for %s (status %d): check the configured token", ref, authErr.Status)
	case errors.As(err, &notFoundErr):
		return fmt.Sprintf("Repository %s not found: check the configured repository and branch", ref)
	default:
		return fmt.Sprintf("Repository %s is unavailable: %v", ref, err)
	}
}

// detectIntent matches the trigger phrases in the latest user message.
// Matching is a case-insensitive substring check: purge or clear combined
// with cache or context purges; reload or refresh combined with repo
// forces a fresh fetch.
func detectIntent(msg string) intent {
	lower := strings.ToLower(msg)
	verb := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
	if verb("purge", "clear") && verb("cache", "context") {
		return intentPurge
	}
	if verb("reload", "refresh") && verb("repo") {
		return intentReload
	}
	return intentOrdinary
}
