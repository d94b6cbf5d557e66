// Package repocontext implements the repository-context filter: it snapshots
// a GitHub repository (tree listing, per-file contents), caches the snapshot
// with a time-based expiry, and prepends a deterministic context block to the
// chat message list on each turn.
package repocontext

import (
	"fmt"
	"time"
)

// RepositoryRef identifies one cached repository snapshot. Immutable.
type RepositoryRef struct {
	Owner  string
	Repo   string
	Branch string
}

// String renders the ref as "owner/repo@branch".
func (r RepositoryRef) String() string {
	return fmt.Sprintf("%s/%s@%s", r.Owner, r.Repo, r.Branch)
}

// TreeEntry is one row of the recursive tree listing.
type TreeEntry struct {
	Path string
	Type string // "blob" or "tree"
	Size int64
}

// CachedFile is a fully fetched and decoded repository file. Created during
// a fetch pass and replaced wholesale on the next refresh, never mutated.
type CachedFile struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Size     int64  `json:"size"`
	Lines    int    `json:"lines"`
	Chars    int    `json:"chars"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha,omitempty"`
}

// ExclusionReason says why a path was kept out of the snapshot.
type ExclusionReason string

// Exclusion reasons, in filter decision order. The fetch-stage reasons
// (fetch/decode/oversized) are recorded for files that passed the static
// filter but failed during retrieval.
const (
	ReasonExcludedDir       ExclusionReason = "excluded-dir"
	ReasonExcludedExtension ExclusionReason = "excluded-extension"
	ReasonSizeExceeded      ExclusionReason = "size-exceeded"
	ReasonFetchFailed       ExclusionReason = "fetch-failed"
	ReasonDecodeFailed      ExclusionReason = "decode-failed"
)

// Exclusion records a path that is not content-loaded, and why.
type Exclusion struct {
	Path   string          `json:"path"`
	Reason ExclusionReason `json:"reason"`
}

// Stats are the aggregate totals over the included files of a snapshot.
type Stats struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
	Lines int   `json:"lines"`
}

// CacheEntry is one immutable repository snapshot. Files preserves discovery
// order; paths are unique within an entry. Replacement is atomic: in-flight
// readers holding the old entry keep a consistent view.
type CacheEntry struct {
	Ref       RepositoryRef `json:"ref"`
	Files     []CachedFile  `json:"files"`
	Excluded  []Exclusion   `json:"excluded"`
	Stats     Stats         `json:"stats"`
	FetchedAt time.Time     `json:"fetchedAt"`
}

// IsStale reports whether the entry's age exceeds ttl at the given instant.
// An entry aged exactly ttl is still fresh; the comparison is strict so
// repeated checks under a fixed clock always agree.
func (e *CacheEntry) IsStale(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) > ttl
}
