// Package api defines the wire types exchanged between the host chat
// application and the quill plugin server. The host POSTs the chat request
// body to a filter's inlet hook before the model sees it, and the response
// body to the outlet hook after; both return a possibly-modified body plus
// status events the host UI may render.
package api

// RoleSystem, RoleUser and RoleAssistant are the message roles quill cares about.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// User identifies the person behind a chat turn. Filters may be toggled
// per-user; a missing entry in Filters means the server default applies.
type User struct {
	Id      string          `json:"id,omitempty"`
	Name    string          `json:"name,omitempty"`
	Filters map[string]bool `json:"filters,omitempty"`
}

// ChatBody is the chat completion request (or response) body passed through
// filter hooks. Filters mutate Messages in place and hand the body back.
type ChatBody struct {
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
	User     *User     `json:"user,omitempty"`
}

// LastUserMessage returns the content of the most recent user-role message,
// or "" if there is none.
func (b *ChatBody) LastUserMessage() string {
	for i := len(b.Messages) - 1; i >= 0; i-- {
		if b.Messages[i].Role == RoleUser {
			return b.Messages[i].Content
		}
	}
	return ""
}

// Event statuses reported to the host UI.
const (
	StatusInProgress = "in_progress"
	StatusComplete   = "complete"
	StatusWarning    = "warning"
	StatusError      = "error"
)

// Event is a progress/status update emitted by a plugin while it runs.
// It mirrors the host's event-emitter payload shape.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData carries the displayable part of an Event.
type EventData struct {
	Description string `json:"description"`
	Status      string `json:"status,omitempty"`
	Done        bool   `json:"done"`
}

// StatusEvent builds a status Event in one call.
func StatusEvent(description, status string, done bool) Event {
	return Event{
		Type: "status",
		Data: EventData{Description: description, Status: status, Done: done},
	}
}

// FilterResult is the response of an inlet or outlet call: the transformed
// body plus any events the filter emitted along the way.
type FilterResult struct {
	Body   ChatBody `json:"body"`
	Events []Event  `json:"events,omitempty"`
}

// ActionBody is the request body for a tool-style plugin invocation.
// Input carries plugin-specific parameters.
type ActionBody struct {
	User  *User             `json:"user,omitempty"`
	Input map[string]string `json:"input,omitempty"`
}

// ActionResult is what an action hands back to the host: an optional reply
// message to show in the chat, plus progress events.
type ActionResult struct {
	Reply  *Message `json:"reply,omitempty"`
	Events []Event  `json:"events,omitempty"`
}
