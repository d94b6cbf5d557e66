// Package plugin defines the ports every quill plugin implements and the
// registry the HTTP layer resolves them from. Two plugin kinds exist:
// filters, which transform the chat body on its way into (inlet) and out of
// (outlet) the model, and actions, which the host invokes directly.
package plugin

import (
	"context"

	"github.com/mwestphal/quill/pkg/api"
)

// Emit delivers a progress event to the host UI. Implementations must be
// safe to call from the goroutine running the plugin; plugins may call it
// zero or more times per invocation.
type Emit func(api.Event)

// Filter is a message-list transformer hooked into the host's turn pipeline.
// Inlet and Outlet mutate the body in place. Returned errors are reserved
// for unexpected internal failures; expected degradations (remote outage,
// stale data) are reported through emit and leave the body usable.
type Filter interface {
	ID() string
	Inlet(ctx context.Context, body *api.ChatBody, emit Emit) error
	Outlet(ctx context.Context, body *api.ChatBody, emit Emit) error
}

// Action is a tool-style plugin invoked on demand rather than per-message.
type Action interface {
	ID() string
	Run(ctx context.Context, body api.ActionBody, emit Emit) (*api.ActionResult, error)
}

// PassthroughOutlet can be embedded by filters that only act on the inlet side.
type PassthroughOutlet struct{}

// Outlet returns the body unchanged.
func (PassthroughOutlet) Outlet(context.Context, *api.ChatBody, Emit) error { return nil }
