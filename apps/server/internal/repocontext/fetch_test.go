package repocontext_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformgh "github.com/mwestphal/quill/apps/server/internal/platform/github"
	"github.com/mwestphal/quill/apps/server/internal/repocontext"
	"github.com/mwestphal/quill/pkg/logging"
)

// fakeRepo serves just enough of the GitHub REST API for the fetcher: the
// recursive tree endpoint and per-path contents with base64 payloads.
type fakeRepo struct {
	files map[string][]byte // path -> raw bytes
	order []string          // tree listing order
}

func (f *fakeRepo) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		fmt.Fprint(w, `{"sha":"treesha","truncated":false,"tree":[`)
		for i, p := range f.order {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"path":%q,"type":"blob","size":%d}`, p, len(f.files[p]))
		}
		fmt.Fprint(w, `]}`)
	})
	mux.HandleFunc("GET /repos/acme/widgets/contents/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path[len("/repos/acme/widgets/contents/"):]
		raw, ok := f.files[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message":"Not Found"}`)
			return
		}
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		fmt.Fprintf(w, `{"type":"file","path":%q,"sha":"sha-%s","size":%d,"encoding":"base64","content":%q}`,
			path, path, len(raw), base64.StdEncoding.EncodeToString(raw))
	})
	return mux
}

func newFetcher(t *testing.T, srvURL string, rules repocontext.Rules) *repocontext.Fetcher {
	t.Helper()
	gh := platformgh.NewTokenClient("test-token", srvURL)
	return repocontext.NewFetcher(gh, rules, 2, logging.Discard())
}

// ─── Snapshot happy path ──────────────────────────────────────────────────────

func TestSnapshot_FetchesIncludedFiles(t *testing.T) {
	repo := &fakeRepo{
		files: map[string][]byte{
			"a.py":              []byte("print('hi')\n"),
			"src/b.py":          []byte("x = 1\n"),
			"node_modules/x.js": []byte("ignored"),
		},
		order: []string{"a.py", "src/b.py", "node_modules/x.js"},
	}
	srv := httptest.NewServer(repo.handler(t))
	t.Cleanup(srv.Close)

	f := newFetcher(t, srv.URL, repocontext.NewRules([]string{"node_modules"}, nil, 0))
	entry, err := f.Snapshot(context.Background(), testRef)
	require.NoError(t, err)

	require.Len(t, entry.Files, 2)
	assert.Equal(t, "a.py", entry.Files[0].Path, "discovery order is preserved")
	assert.Equal(t, "src/b.py", entry.Files[1].Path)
	assert.Equal(t, "print('hi')\n", entry.Files[0].Content)
	assert.Equal(t, "utf-8", entry.Files[0].Encoding)
	assert.Equal(t, "sha-a.py", entry.Files[0].SHA)

	require.Len(t, entry.Excluded, 1)
	assert.Equal(t, repocontext.ReasonExcludedDir, entry.Excluded[0].Reason)

	assert.Equal(t, 2, entry.Stats.Files)
	assert.Equal(t, int64(len("print('hi')\n")+len("x = 1\n")), entry.Stats.Bytes)
	assert.False(t, entry.FetchedAt.IsZero())
}

func TestSnapshot_DecodesLatin1Fallback(t *testing.T) {
	repo := &fakeRepo{
		files: map[string][]byte{"notes.txt": {'c', 'a', 'f', 0xE9, '\n'}}, // "café" in Latin-1
		order: []string{"notes.txt"},
	}
	srv := httptest.NewServer(repo.handler(t))
	t.Cleanup(srv.Close)

	f := newFetcher(t, srv.URL, repocontext.NewRules(nil, nil, 0))
	entry, err := f.Snapshot(context.Background(), testRef)
	require.NoError(t, err)

	require.Len(t, entry.Files, 1)
	assert.Equal(t, "café\n", entry.Files[0].Content)
	assert.Equal(t, "latin-1", entry.Files[0].Encoding)
}

// ─── Per-file failures ────────────────────────────────────────────────────────

func TestSnapshot_BinaryFileBecomesExclusion(t *testing.T) {
	repo := &fakeRepo{
		files: map[string][]byte{
			"a.py":    []byte("print('hi')\n"),
			"blob.so": {0x7f, 'E', 'L', 'F', 0x00, 0x01},
		},
		order: []string{"a.py", "blob.so"},
	}
	srv := httptest.NewServer(repo.handler(t))
	t.Cleanup(srv.Close)

	f := newFetcher(t, srv.URL, repocontext.NewRules(nil, nil, 0))
	entry, err := f.Snapshot(context.Background(), testRef)
	require.NoError(t, err, "per-file decode failures never abort the batch")

	require.Len(t, entry.Files, 1)
	assert.Equal(t, "a.py", entry.Files[0].Path)
	require.Len(t, entry.Excluded, 1)
	assert.Equal(t, "blob.so", entry.Excluded[0].Path)
	assert.Equal(t, repocontext.ReasonDecodeFailed, entry.Excluded[0].Reason)
}

func TestSnapshot_OversizedContentBecomesExclusion(t *testing.T) {
	repo := &fakeRepo{
		files: map[string][]byte{"gen.sql": []byte("select 1;\n")},
		order: []string{"gen.sql"},
	}
	srv := httptest.NewServer(repo.handler(t))
	t.Cleanup(srv.Close)

	f := newFetcher(t, srv.URL, repocontext.NewRules(nil, nil, 4))
	entry, err := f.Snapshot(context.Background(), testRef)
	require.NoError(t, err)

	assert.Empty(t, entry.Files)
	require.Len(t, entry.Excluded, 1)
	assert.Equal(t, repocontext.ReasonSizeExceeded, entry.Excluded[0].Reason)
}

func TestSnapshot_FailedContentFetchBecomesExclusion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/widgets/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"sha":"s","tree":[
			{"path":"ok.py","type":"blob","size":3},
			{"path":"broken.py","type":"blob","size":3}]}`)
	})
	mux.HandleFunc("GET /repos/acme/widgets/contents/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/acme/widgets/contents/broken.py" {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"message":"boom"}`)
			return
		}
		fmt.Fprintf(w, `{"type":"file","path":"ok.py","encoding":"base64","content":%q}`,
			base64.StdEncoding.EncodeToString([]byte("x=1")))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f := newFetcher(t, srv.URL, repocontext.NewRules(nil, nil, 0))
	entry, err := f.Snapshot(context.Background(), testRef)
	require.NoError(t, err)

	require.Len(t, entry.Files, 1)
	assert.Equal(t, "ok.py", entry.Files[0].Path)
	require.Len(t, entry.Excluded, 1)
	assert.Equal(t, "broken.py", entry.Excluded[0].Path)
	assert.Equal(t, repocontext.ReasonFetchFailed, entry.Excluded[0].Reason)
}

// ─── Tree-level failures ──────────────────────────────────────────────────────

func errorHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"message":"status %d"}`, status)
	})
}

func TestSnapshot_NotFound(t *testing.T) {
	srv := httptest.NewServer(errorHandler(http.StatusNotFound))
	t.Cleanup(srv.Close)

	f := newFetcher(t, srv.URL, repocontext.NewRules(nil, nil, 0))
	_, err := f.Snapshot(context.Background(), testRef)

	var nf repocontext.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, testRef, nf.Ref)
}

func TestSnapshot_AuthRejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			srv := httptest.NewServer(errorHandler(status))
			t.Cleanup(srv.Close)

			f := newFetcher(t, srv.URL, repocontext.NewRules(nil, nil, 0))
			_, err := f.Snapshot(context.Background(), testRef)

			var ae repocontext.AuthError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, status, ae.Status)
		})
	}
}

func TestSnapshot_UnreachableServerIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	f := newFetcher(t, url, repocontext.NewRules(nil, nil, 0))
	_, err := f.Snapshot(context.Background(), testRef)

	var ne repocontext.NetworkError
	require.ErrorAs(t, err, &ne)
}

func TestSnapshot_ServerErrorIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(errorHandler(http.StatusBadGateway))
	t.Cleanup(srv.Close)

	f := newFetcher(t, srv.URL, repocontext.NewRules(nil, nil, 0))
	_, err := f.Snapshot(context.Background(), testRef)

	var ne repocontext.NetworkError
	require.ErrorAs(t, err, &ne)
}
