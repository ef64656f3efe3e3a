// Package broadcast provides the ephemeral room-scoped publish/subscribe
// transport used for low-latency message delivery. Delivery is
// best-effort: unordered, at-most-once, lost if the subscriber is not
// connected at publish time. Durability is the message store's job.
package broadcast

import (
	"context"
	"sync/atomic"

	"linkup-chat/internal/domain"
)

// State is the connectivity state of a subscription handle.
type State int32

const (
	StateConnecting State = iota
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// MessageFunc is invoked asynchronously for every message delivered on
// a subscription, including the subscriber's own echo.
type MessageFunc func(domain.ChatMessage)

// Handle is one live subscription to a room.
type Handle interface {
	// Publish broadcasts a message to every current subscriber of the
	// room, the caller included. Fire-and-forget: a nil return means the
	// message was handed to the transport, not that any peer received it.
	Publish(ctx context.Context, message domain.ChatMessage) error

	// State reports current connectivity. Publish is only meaningful
	// while StateConnected.
	State() State

	// Disconnect releases the subscription. Idempotent; calling it more
	// than once is a no-op.
	Disconnect()
}

// Channel opens room-scoped subscriptions. The room identifier is an
// opaque string; the channel does not interpret it.
type Channel interface {
	Connect(ctx context.Context, roomID string, onMessage MessageFunc) (Handle, error)
}

// state is the shared atomic connectivity tracker embedded by backends.
type state struct {
	v atomic.Int32
}

func (s *state) set(st State)  { s.v.Store(int32(st)) }
func (s *state) get() State    { return State(s.v.Load()) }
func (s *state) is(st State) bool { return s.get() == st }
