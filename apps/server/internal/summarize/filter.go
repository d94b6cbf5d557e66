// Package summarize implements the on-demand conversation summarizer: a
// filter that rewrites a "!summarize" command into an instruction asking the
// model to summarize the recent conversation history.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mwestphal/quill/apps/server/internal/plugin"
	"github.com/mwestphal/quill/pkg/api"
)

// FilterID is the plugin ID the host addresses this filter by.
const FilterID = "summarizer"

const (
	defaultPrefix    = "!"
	defaultKeyword   = "summarize"
	defaultPastTurns = 5

	// maxHistoryMessages bounds how far back turn extraction looks.
	maxHistoryMessages = 100
)

const instructionTemplate = "Please provide a concise summary of the key points from the following " +
	"conversation history. Focus on the main topics, decisions, and questions. " +
	"Present the summary clearly under a '### Conversation Summary' heading.\n\n" +
	"--- BEGIN CONVERSATION HISTORY TO SUMMARIZE ---\n" +
	"%s\n" +
	"--- END CONVERSATION HISTORY TO SUMMARIZE ---"

const noHistoryReply = "There is no prior conversation history available to summarize."

// Options configures a Filter. Zero values select the defaults.
type Options struct {
	Prefix    string // command prefix, default "!"
	Keyword   string // command keyword, default "summarize"
	PastTurns int    // completed turns included in the summary, default 5
}

// turn is one user message and, when the assistant answered, its response.
type turn struct {
	user      api.Message
	assistant api.Message
	complete  bool
}

// Filter rewrites a summary command into a summarization instruction built
// from the most recent completed turns.
type Filter struct {
	plugin.PassthroughOutlet

	opts    Options
	command *regexp.Regexp
	log     *slog.Logger
}

var _ plugin.Filter = (*Filter)(nil)

// NewFilter creates a Filter.
func NewFilter(opts Options, log *slog.Logger) *Filter {
	if opts.Prefix == "" {
		opts.Prefix = defaultPrefix
	}
	if opts.Keyword == "" {
		opts.Keyword = defaultKeyword
	}
	if opts.PastTurns <= 0 {
		opts.PastTurns = defaultPastTurns
	}
	command := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(opts.Prefix+opts.Keyword) + `\b\s*`)
	return &Filter{opts: opts, command: command, log: log}
}

// ID implements plugin.Filter.
func (f *Filter) ID() string { return FilterID }

// Inlet rewrites the last message when it is a summary command. Ordinary
// messages pass through untouched.
func (f *Filter) Inlet(_ context.Context, body *api.ChatBody, emit plugin.Emit) error {
	if body.User != nil {
		if enabled, ok := body.User.Filters[FilterID]; ok && !enabled {
			return nil
		}
	}
	if len(body.Messages) == 0 {
		return nil
	}
	last := &body.Messages[len(body.Messages)-1]
	if !f.isCommand(last.Content) {
		return nil
	}

	emit(api.StatusEvent("Preparing summary", api.StatusInProgress, false))

	// The command message itself is not part of the history.
	history := f.recentHistory(body.Messages[:len(body.Messages)-1])
	if len(history) == 0 {
		f.log.Debug("summary command with no completed turns")
		emit(api.StatusEvent("No history to summarize", api.StatusWarning, true))
		last.Content = noHistoryReply
		return nil
	}

	last.Content = fmt.Sprintf(instructionTemplate, formatHistory(history))
	emit(api.StatusEvent("Summary request prepared", api.StatusComplete, true))
	return nil
}

func (f *Filter) isCommand(content string) bool {
	return f.command.MatchString(strings.TrimSpace(content))
}

// recentHistory returns the messages of the last PastTurns completed turns,
// flattened back into user/assistant order.
func (f *Filter) recentHistory(messages []api.Message) []api.Message {
	turns := extractTurns(messages)

	completed := turns[:0]
	for _, t := range turns {
		if t.complete {
			completed = append(completed, t)
		}
	}
	if len(completed) > f.opts.PastTurns {
		completed = completed[len(completed)-f.opts.PastTurns:]
	}

	history := make([]api.Message, 0, 2*len(completed))
	for _, t := range completed {
		history = append(history, t.user, t.assistant)
	}
	return history
}

// extractTurns pairs each user message with the assistant message that
// follows it. A user message immediately followed by another user message
// is discarded as an abandoned turn; system and tool messages are skipped.
func extractTurns(messages []api.Message) []turn {
	if len(messages) > maxHistoryMessages {
		messages = messages[len(messages)-maxHistoryMessages:]
	}

	var turns []turn
	var current *turn
	for _, m := range messages {
		switch m.Role {
		case api.RoleUser:
			current = &turn{user: m}
		case api.RoleAssistant:
			if current != nil {
				current.assistant = m
				current.complete = true
				turns = append(turns, *current)
				current = nil
			}
		}
	}
	if current != nil {
		turns = append(turns, *current)
	}
	return turns
}

func formatHistory(messages []api.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := strings.ToUpper(m.Role[:1]) + m.Role[1:]
		parts = append(parts, role+": "+content)
	}
	return strings.Join(parts, "\n")
}
