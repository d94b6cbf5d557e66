package repocontext

import (
	"fmt"
	"sort"
	"strings"
)

// contextMarker is the first line of every injected context block. The
// filter uses it to recognise (and replace) a block it injected on an
// earlier turn, so repeated turns never stack snapshots.
const contextMarker = "REPOSITORY CONTEXT"

const truncationNotice = "\n[context truncated: repository exceeds the configured context size]\n"

// ContextBlock renders a cache entry as the system-message payload. The
// output is deterministic for a given entry: the file tree is sorted by
// path, file contents follow the order files were discovered in the tree,
// and no timestamps or counters outside the entry itself are included.
// maxChars bounds the rendered size; zero means unbounded.
func ContextBlock(entry *CacheEntry, maxChars int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s: %s\n", contextMarker, entry.Ref)
	fmt.Fprintf(&b, "Files: %d | Bytes: %d | Lines: %d\n\n", entry.Stats.Files, entry.Stats.Bytes, entry.Stats.Lines)

	b.WriteString("FILE TREE:\n")
	sorted := make([]CachedFile, len(entry.Files))
	copy(sorted, entry.Files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	for _, f := range sorted {
		fmt.Fprintf(&b, "  %s (%d bytes, %d lines, %d chars, %s)\n", f.Path, f.Size, f.Lines, f.Chars, f.Encoding)
	}
	if len(entry.Excluded) > 0 {
		b.WriteString("\nEXCLUDED:\n")
		excluded := make([]Exclusion, len(entry.Excluded))
		copy(excluded, entry.Excluded)
		sort.Slice(excluded, func(i, j int) bool { return excluded[i].Path < excluded[j].Path })
		for _, ex := range excluded {
			fmt.Fprintf(&b, "  %s (%s)\n", ex.Path, ex.Reason)
		}
	}

	b.WriteString("\nFILE CONTENTS:\n")
	for _, f := range entry.Files {
		header := fmt.Sprintf("\n=== %s ===\n", f.Path)
		if maxChars > 0 && b.Len()+len(header)+len(f.Content) > maxChars-len(truncationNotice) {
			b.WriteString(truncationNotice)
			return b.String()
		}
		b.WriteString(header)
		b.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// IsContextMessage reports whether content is a block previously produced
// by ContextBlock.
func IsContextMessage(content string) bool {
	return strings.HasPrefix(content, contextMarker+": ")
}
