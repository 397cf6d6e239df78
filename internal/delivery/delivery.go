// Package delivery defines the boundary to external notification
// channels. The gateway formats messages; a Notifier carries them the
// rest of the way.
package delivery

import (
	"context"

	"github.com/lei/build-notify/internal/models"
)

// Notifier delivers a rendered notification onto an external channel.
// Implementations perform a single delivery attempt; retry policy is out
// of scope for the gateway.
type Notifier interface {
	// Name returns the unique identifier for this channel (e.g. "webhook")
	Name() string

	// Send delivers a notification
	Send(ctx context.Context, n *Notification) error
}

// Notification couples a rendered message with routing metadata
type Notification struct {
	// ID is the gateway-assigned notification id
	ID string `json:"id"`

	// Event names what happened: "build-finished" or "worker-missing"
	Event string `json:"event"`

	// Builder is set for build events
	Builder string `json:"builder,omitempty"`

	// Worker is set for worker-missing events
	Worker string `json:"worker,omitempty"`

	// Message is the rendered body/subject/type
	Message *models.Message `json:"message"`
}

// Nop is a no-op notifier useful in tests and dry runs
type Nop struct{}

// Name implements Notifier
func (Nop) Name() string { return "nop" }

// Send implements Notifier
func (Nop) Send(context.Context, *Notification) error { return nil }
