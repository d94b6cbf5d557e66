package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOllama serves /api/ps and /api/generate, dropping a model from the
// running set when a zero keep-alive generate arrives for it.
type fakeOllama struct {
	mu      sync.Mutex
	running map[string]bool
	evicts  int
}

func newFakeOllama(models ...string) *fakeOllama {
	f := &fakeOllama{running: map[string]bool{}}
	for _, m := range models {
		f.running[m] = true
	}
	return f
}

func (f *fakeOllama) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ps", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		models := []Model{}
		for name := range f.running {
			models = append(models, Model{Name: name, Model: name})
		}
		json.NewEncoder(w).Encode(map[string]any{"models": models}) //nolint:errcheck
	})
	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model     string `json:"model"`
			KeepAlive int    `json:"keep_alive"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.evicts++
		if req.KeepAlive == 0 {
			delete(f.running, req.Model)
		}
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeOllama) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL)
	c.settle = 0
	return c
}

// ─── Client ───────────────────────────────────────────────────────────────────

func TestRunningModels(t *testing.T) {
	c := newTestClient(t, newFakeOllama("llama3:8b", "mistral:7b"))

	models, err := c.RunningModels(context.Background())

	require.NoError(t, err)
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Model
	}
	assert.ElementsMatch(t, []string{"llama3:8b", "mistral:7b"}, names)
}

func TestRunningModels_Empty(t *testing.T) {
	c := newTestClient(t, newFakeOllama())

	models, err := c.RunningModels(context.Background())

	require.NoError(t, err)
	assert.Empty(t, models)
}

func TestUnload_EvictsAndVerifies(t *testing.T) {
	fake := newFakeOllama("llama3:8b")
	c := newTestClient(t, fake)

	ok, err := c.Unload(context.Background(), "llama3:8b")

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, fake.evicts)
}

func TestUnload_ModelNotRunning(t *testing.T) {
	fake := newFakeOllama("mistral:7b")
	c := newTestClient(t, fake)

	ok, err := c.Unload(context.Background(), "llama3:8b")

	require.NoError(t, err)
	assert.False(t, ok, "unloading a model that is not running is not a success")
	assert.Equal(t, 0, fake.evicts, "no eviction request for a model that is not running")
}

func TestUnload_ReportsFailureWhenModelStaysLoaded(t *testing.T) {
	// A server that accepts the generate call but never evicts.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ps", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"models": []Model{{Name: "stubborn", Model: "stubborn"}},
		})
	})
	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL)
	c.settle = 0

	ok, err := c.Unload(context.Background(), "stubborn")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunningModels_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL)

	_, err := c.RunningModels(context.Background())

	assert.Error(t, err)
}
