package repocontext

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v75/github"
	"golang.org/x/sync/errgroup"

	"github.com/mwestphal/quill/pkg/logging"
)

// defaultWorkers bounds the parallel content fetches within one refresh.
const defaultWorkers = 4

// Snapshotter produces a fresh repository snapshot. The Filter depends on
// this port; Fetcher is the go-github implementation.
type Snapshotter interface {
	Snapshot(ctx context.Context, ref RepositoryRef) (*CacheEntry, error)
}

// Fetcher retrieves the recursive tree listing and the contents of every
// included file from the GitHub API. One Snapshot call is one refresh pass;
// per-file failures become exclusions and never abort the batch.
type Fetcher struct {
	gh      *github.Client
	rules   Rules
	workers int
	log     *slog.Logger
	now     func() time.Time
}

// NewFetcher creates a Fetcher. workers <= 0 selects the default bound.
func NewFetcher(gh *github.Client, rules Rules, workers int, log *slog.Logger) *Fetcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Fetcher{gh: gh, rules: rules, workers: workers, log: log, now: time.Now}
}

// Snapshot fetches the tree, partitions it through the inclusion rules, and
// retrieves included file contents with bounded parallelism. The returned
// entry preserves tree discovery order. Partial success is the normal
// outcome for large repositories; only a tree-level failure is an error.
func (f *Fetcher) Snapshot(ctx context.Context, ref RepositoryRef) (*CacheEntry, error) {
	tree, _, err := f.gh.Git.GetTree(ctx, ref.Owner, ref.Repo, ref.Branch, true)
	if err != nil {
		return nil, classifyAPIError(ref, err)
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, te := range tree.Entries {
		entries = append(entries, TreeEntry{
			Path: te.GetPath(),
			Type: te.GetType(),
			Size: int64(te.GetSize()),
		})
	}

	included, excluded := f.rules.Partition(entries)

	// Slot per included index keeps discovery order stable regardless of
	// which worker finishes first.
	files := make([]*CachedFile, len(included))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(f.workers)
	for i, entry := range included {
		g.Go(func() error {
			cf, err := f.fetchFile(ctx, ref, entry)
			if err != nil {
				f.log.Debug("file skipped during refresh",
					"repo", ref.String(), "path", entry.Path, "error", err)
				mu.Lock()
				excluded = append(excluded, Exclusion{Path: entry.Path, Reason: fetchReason(err)})
				mu.Unlock()
				return nil
			}
			files[i] = cf
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors; failures become exclusions

	entry := &CacheEntry{Ref: ref, Excluded: excluded, FetchedAt: f.now().UTC()}
	for _, cf := range files {
		if cf == nil {
			continue
		}
		entry.Files = append(entry.Files, *cf)
		entry.Stats.Files++
		entry.Stats.Bytes += cf.Size
		entry.Stats.Lines += cf.Lines
	}
	return entry, nil
}

// fetchFile retrieves and decodes one file. The contents API returns the
// payload base64-encoded or raw depending on size; blobs the API declares
// binary ("none" encoding) are rejected before the text decoders run.
func (f *Fetcher) fetchFile(ctx context.Context, ref RepositoryRef, entry TreeEntry) (*CachedFile, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref.Branch}
	fc, _, _, err := f.gh.Repositories.GetContents(ctx, ref.Owner, ref.Repo, entry.Path, opts)
	if err != nil {
		return nil, classifyAPIError(ref, err)
	}
	if fc == nil {
		// Path resolved to a directory listing; tree said blob. Treat as a
		// fetch failure rather than guessing.
		return nil, NetworkError{Ref: ref, Err: errors.New("contents API returned a directory for " + entry.Path)}
	}

	if fc.GetEncoding() == "none" {
		return nil, DecodeError{Path: entry.Path}
	}
	raw, err := fc.GetContent()
	if err != nil {
		return nil, DecodeError{Path: entry.Path}
	}

	if limit := f.rules.MaxFileSize(); limit > 0 && int64(len(raw)) > limit {
		return nil, SizeExceededError{Path: entry.Path, Size: int64(len(raw)), Limit: limit}
	}

	text, encoding, err := decodeText(entry.Path, []byte(raw))
	if err != nil {
		return nil, err
	}

	return &CachedFile{
		Path:     entry.Path,
		Content:  text,
		Size:     int64(len(raw)),
		Lines:    strings.Count(text, "\n") + 1,
		Chars:    len([]rune(text)),
		Encoding: encoding,
		SHA:      fc.GetSHA(),
	}, nil
}

// fetchReason maps a per-file error onto its exclusion reason.
func fetchReason(err error) ExclusionReason {
	var de DecodeError
	if errors.As(err, &de) {
		return ReasonDecodeFailed
	}
	var se SizeExceededError
	if errors.As(err, &se) {
		return ReasonSizeExceeded
	}
	return ReasonFetchFailed
}

// classifyAPIError maps a go-github error onto the package taxonomy:
// 401/403 credential rejection, 404 bad owner/repo/branch, everything else
// (transport, timeout, 5xx) a transient NetworkError.
func classifyAPIError(ref RepositoryRef, err error) error {
	var er *github.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		switch er.Response.StatusCode {
		case 401, 403:
			return AuthError{Ref: ref, Status: er.Response.StatusCode}
		case 404:
			return NotFoundError{Ref: ref}
		}
	}
	return NetworkError{Ref: ref, Err: err}
}
