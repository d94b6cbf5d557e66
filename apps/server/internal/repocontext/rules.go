package repocontext

import (
	"path"
	"strings"
)

// Rules is the static inclusion filter applied to a tree listing before any
// content is fetched. Matching is case-insensitive.
type Rules struct {
	excludedDirs map[string]struct{}
	excludedExts map[string]struct{}
	maxFileSize  int64
}

// NewRules builds a Rules from directory names, extensions (with or without
// the leading dot) and a size ceiling in bytes. A ceiling <= 0 means no limit.
func NewRules(dirs, exts []string, maxFileSize int64) Rules {
	r := Rules{
		excludedDirs: make(map[string]struct{}, len(dirs)),
		excludedExts: make(map[string]struct{}, len(exts)),
		maxFileSize:  maxFileSize,
	}
	for _, d := range dirs {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			r.excludedDirs[d] = struct{}{}
		}
	}
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		r.excludedExts[e] = struct{}{}
	}
	return r
}

// MaxFileSize returns the configured size ceiling (<= 0 means unlimited).
func (r Rules) MaxFileSize() int64 { return r.maxFileSize }

// Partition splits a tree listing into included blob entries and exclusions.
// Only blob entries are considered; their union with the exclusions is the
// full set of blobs and the two sets are disjoint. Decision order per path:
// directory segment, then extension, then size ceiling; the first match is
// the reported reason. Pure: no I/O, deterministic for a given input.
func (r Rules) Partition(tree []TreeEntry) (included []TreeEntry, excluded []Exclusion) {
	for _, entry := range tree {
		if entry.Type != "blob" {
			continue
		}
		if reason, ok := r.exclude(entry); ok {
			excluded = append(excluded, Exclusion{Path: entry.Path, Reason: reason})
			continue
		}
		included = append(included, entry)
	}
	return included, excluded
}

func (r Rules) exclude(entry TreeEntry) (ExclusionReason, bool) {
	segments := strings.Split(entry.Path, "/")
	for _, seg := range segments[:len(segments)-1] {
		if _, found := r.excludedDirs[strings.ToLower(seg)]; found {
			return ReasonExcludedDir, true
		}
	}
	ext := strings.ToLower(path.Ext(entry.Path))
	if _, found := r.excludedExts[ext]; found {
		return ReasonExcludedExtension, true
	}
	if r.maxFileSize > 0 && entry.Size > r.maxFileSize {
		return ReasonSizeExceeded, true
	}
	return "", false
}
