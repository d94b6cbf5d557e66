package summarize_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwestphal/quill/apps/server/internal/summarize"
	"github.com/mwestphal/quill/pkg/api"
	"github.com/mwestphal/quill/pkg/logging"
)

func newFilter(t *testing.T, opts summarize.Options) *summarize.Filter {
	t.Helper()
	return summarize.NewFilter(opts, logging.Discard())
}

func conversation(pairs int, last string) *api.ChatBody {
	body := &api.ChatBody{Model: "llama3"}
	for i := 0; i < pairs; i++ {
		body.Messages = append(body.Messages,
			api.Message{Role: api.RoleUser, Content: "question " + string(rune('a'+i))},
			api.Message{Role: api.RoleAssistant, Content: "answer " + string(rune('a'+i))},
		)
	}
	body.Messages = append(body.Messages, api.Message{Role: api.RoleUser, Content: last})
	return body
}

func noopEmit(api.Event) {}

// ─── Command detection ────────────────────────────────────────────────────────

func TestInlet_OrdinaryMessagePassesThrough(t *testing.T) {
	f := newFilter(t, summarize.Options{})
	body := conversation(2, "what is a goroutine?")

	require.NoError(t, f.Inlet(context.Background(), body, noopEmit))

	assert.Equal(t, "what is a goroutine?", body.Messages[len(body.Messages)-1].Content)
}

func TestInlet_CommandRewritesLastMessage(t *testing.T) {
	f := newFilter(t, summarize.Options{})
	body := conversation(2, "!summarize")

	require.NoError(t, f.Inlet(context.Background(), body, noopEmit))

	got := body.Messages[len(body.Messages)-1].Content
	assert.Contains(t, got, "### Conversation Summary")
	assert.Contains(t, got, "User: question a")
	assert.Contains(t, got, "Assistant: answer b")
}

func TestInlet_CommandIsCaseInsensitive(t *testing.T) {
	f := newFilter(t, summarize.Options{})
	body := conversation(1, "  !SUMMARIZE  ")

	require.NoError(t, f.Inlet(context.Background(), body, noopEmit))

	assert.Contains(t, body.Messages[len(body.Messages)-1].Content, "### Conversation Summary")
}

func TestInlet_CommandMustBeAPrefixWithBoundary(t *testing.T) {
	f := newFilter(t, summarize.Options{})

	for _, content := range []string{
		"can you !summarize this?", // not at the start
		"!summarizes",              // no word boundary
		"summarize",                // missing prefix
	} {
		body := conversation(1, content)
		require.NoError(t, f.Inlet(context.Background(), body, noopEmit))
		assert.Equal(t, content, body.Messages[len(body.Messages)-1].Content, "content %q", content)
	}
}

func TestInlet_CustomPrefixAndKeyword(t *testing.T) {
	f := newFilter(t, summarize.Options{Prefix: "/", Keyword: "recap"})
	body := conversation(1, "/recap")

	require.NoError(t, f.Inlet(context.Background(), body, noopEmit))

	assert.Contains(t, body.Messages[len(body.Messages)-1].Content, "### Conversation Summary")
}

// ─── History selection ────────────────────────────────────────────────────────

func TestInlet_NoHistory(t *testing.T) {
	f := newFilter(t, summarize.Options{})
	body := &api.ChatBody{Messages: []api.Message{{Role: api.RoleUser, Content: "!summarize"}}}

	var events []api.Event
	require.NoError(t, f.Inlet(context.Background(), body, func(e api.Event) { events = append(events, e) }))

	assert.Equal(t, "There is no prior conversation history available to summarize.",
		body.Messages[0].Content)
	var sawWarning bool
	for _, e := range events {
		if e.Data.Status == api.StatusWarning {
			sawWarning = true
		}
	}
	assert.True(t, sawWarning)
}

func TestInlet_OnlyLastNTurnsIncluded(t *testing.T) {
	f := newFilter(t, summarize.Options{PastTurns: 2})
	body := conversation(4, "!summarize")

	require.NoError(t, f.Inlet(context.Background(), body, noopEmit))

	got := body.Messages[len(body.Messages)-1].Content
	assert.NotContains(t, got, "question a")
	assert.NotContains(t, got, "question b")
	assert.Contains(t, got, "question c")
	assert.Contains(t, got, "question d")
}

func TestInlet_AbandonedTurnsExcluded(t *testing.T) {
	f := newFilter(t, summarize.Options{})
	body := &api.ChatBody{Messages: []api.Message{
		{Role: api.RoleUser, Content: "first try"}, // no assistant reply
		{Role: api.RoleUser, Content: "second try"},
		{Role: api.RoleAssistant, Content: "an answer"},
		{Role: api.RoleUser, Content: "!summarize"},
	}}

	require.NoError(t, f.Inlet(context.Background(), body, noopEmit))

	got := body.Messages[len(body.Messages)-1].Content
	assert.NotContains(t, got, "first try", "a user message without a reply is not a completed turn")
	assert.Contains(t, got, "second try")
	assert.Contains(t, got, "an answer")
}

func TestInlet_SystemMessagesExcludedFromHistory(t *testing.T) {
	f := newFilter(t, summarize.Options{})
	body := &api.ChatBody{Messages: []api.Message{
		{Role: api.RoleSystem, Content: "You are a helpful assistant."},
		{Role: api.RoleUser, Content: "hello"},
		{Role: api.RoleAssistant, Content: "hi there"},
		{Role: api.RoleUser, Content: "!summarize"},
	}}

	require.NoError(t, f.Inlet(context.Background(), body, noopEmit))

	got := body.Messages[len(body.Messages)-1].Content
	snippet := got[strings.Index(got, "--- BEGIN"):]
	assert.NotContains(t, snippet, "helpful assistant")
}

// ─── Per-user toggle ──────────────────────────────────────────────────────────

func TestInlet_DisabledForUser(t *testing.T) {
	f := newFilter(t, summarize.Options{})
	body := conversation(2, "!summarize")
	body.User = &api.User{Id: "u1", Filters: map[string]bool{summarize.FilterID: false}}

	require.NoError(t, f.Inlet(context.Background(), body, noopEmit))

	assert.Equal(t, "!summarize", body.Messages[len(body.Messages)-1].Content)
}
