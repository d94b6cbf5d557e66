package repocontext

import "fmt"

// AuthError is returned when the GitHub API rejects our credential (401/403).
// Fatal for the turn; no cache mutation.
type AuthError struct {
	Ref    RepositoryRef
	Status int
}

// Error implements the error interface.
func (e AuthError) Error() string {
	return fmt.Sprintf("github rejected credentials for %s (HTTP %d)", e.Ref, e.Status)
}

// NotFoundError is returned for a bad owner/repo/branch (404).
type NotFoundError struct {
	Ref RepositoryRef
}

// Error implements the error interface.
func (e NotFoundError) Error() string {
	return fmt.Sprintf("repository %s not found", e.Ref)
}

// NetworkError wraps transport-level failures (connect, timeout). Transient:
// the injector falls back to a stale snapshot when one exists.
type NetworkError struct {
	Ref RepositoryRef
	Err error
}

// Error implements the error interface.
func (e NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.Ref, e.Err)
}

// Unwrap returns the transport error.
func (e NetworkError) Unwrap() error { return e.Err }

// DecodeError is a per-file failure: none of the candidate text decoders
// produced usable text. Non-fatal, recorded as an exclusion.
type DecodeError struct {
	Path string
}

// Error implements the error interface.
func (e DecodeError) Error() string {
	return fmt.Sprintf("could not decode %s as text", e.Path)
}

// SizeExceededError is a per-file failure: the fetched content turned out
// larger than the configured ceiling. Non-fatal, recorded as an exclusion.
type SizeExceededError struct {
	Path  string
	Size  int64
	Limit int64
}

// Error implements the error interface.
func (e SizeExceededError) Error() string {
	return fmt.Sprintf("%s is %d bytes, limit %d", e.Path, e.Size, e.Limit)
}
