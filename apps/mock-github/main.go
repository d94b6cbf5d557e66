// mock-github serves the two GitHub API endpoints quill reads (the
// recursive tree listing and file contents) so the server can be run
// locally without a token or network access. Point GITHUB_BASE_URL at it.
package main

import (
	"crypto/sha1" //nolint:gosec // git object IDs are SHA-1 by definition
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// treeEntry is one row of the git trees API response.
type treeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"` // "blob" or "tree"
	SHA  string `json:"sha"`
	Size *int64 `json:"size,omitempty"` // blobs only
}

// store holds file content keyed by "owner/repo", one branch per repo.
type store struct {
	mu       sync.RWMutex
	branches map[string]string            // repo key → branch name
	files    map[string]map[string][]byte // repo key → path → content
}

func newStore() *store {
	return &store{
		branches: make(map[string]string),
		files:    make(map[string]map[string][]byte),
	}
}

func (s *store) seed(key, branch string, files map[string][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches[key] = branch
	s.files[key] = files
}

// tree returns the recursive listing for the repo: every file as a blob
// entry plus a tree entry for each intermediate directory, sorted by path
// the way git emits them.
func (s *store) tree(owner, repo, branch string) ([]treeEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := owner + "/" + repo
	files, ok := s.files[key]
	if !ok || s.branches[key] != branch {
		return nil, false
	}

	dirs := map[string]bool{}
	entries := make([]treeEntry, 0, len(files))
	for path, content := range files {
		size := int64(len(content))
		entries = append(entries, treeEntry{
			Path: path,
			Mode: "100644",
			Type: "blob",
			SHA:  blobSHA(content),
			Size: &size,
		})
		for dir := parent(path); dir != ""; dir = parent(dir) {
			dirs[dir] = true
		}
	}
	for dir := range dirs {
		entries = append(entries, treeEntry{
			Path: dir,
			Mode: "040000",
			Type: "tree",
			SHA:  blobSHA([]byte(dir)),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, true
}

func (s *store) file(owner, repo, branch, path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := owner + "/" + repo
	if branch != "" && s.branches[key] != branch {
		return nil, false
	}
	content, ok := s.files[key][path]
	return content, ok
}

func parent(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx == -1 {
		return ""
	}
	return path[:idx]
}

// blobSHA computes the git object ID for a blob.
func blobSHA(content []byte) string {
	h := sha1.New() //nolint:gosec // git object IDs are SHA-1 by definition
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	s := newStore()

	seedRepos(s)
	log.Info("seeded repos", "repos", len(s.files))

	r := gin.Default()
	registerRoutes(r, s, log)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	log.Info("mock-github starting", "port", port)
	if err := r.Run(":" + port); err != nil {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func registerRoutes(r *gin.Engine, s *store, log *slog.Logger) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Recursive tree listing (GitHub-compatible shape). Only recursive
	// requests are served; quill never asks for a single level.
	r.GET("/repos/:owner/:repo/git/trees/:branch", func(c *gin.Context) {
		owner := c.Param("owner")
		repo := c.Param("repo")
		branch := c.Param("branch")

		entries, ok := s.tree(owner, repo, branch)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"message": fmt.Sprintf("branch %q not found in %s/%s", branch, owner, repo),
			})
			return
		}
		log.Info("tree listed", "owner", owner, "repo", repo, "branch", branch, "entries", len(entries))
		c.JSON(http.StatusOK, gin.H{
			"sha":       blobSHA([]byte(branch)),
			"tree":      entries,
			"truncated": false,
		})
	})

	// File content endpoint (GitHub-compatible shape). Content is always
	// base64, matching what the real API returns for blobs under 1MB.
	r.GET("/repos/:owner/:repo/contents/*path", func(c *gin.Context) {
		owner := c.Param("owner")
		repo := c.Param("repo")
		path := strings.TrimPrefix(c.Param("path"), "/")
		ref := c.Query("ref")

		content, ok := s.file(owner, repo, ref, path)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"message": fmt.Sprintf("path %q not found in %s/%s", path, owner, repo),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"path":     path,
			"sha":      blobSHA(content),
			"size":     len(content),
			"content":  base64.StdEncoding.EncodeToString(content),
			"encoding": "base64",
		})
	})
}
