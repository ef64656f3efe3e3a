package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"linkup-chat/internal/domain"
	"linkup-chat/internal/observability"
)

// ErrHubClosed is returned by Connect after the hub has shut down.
var ErrHubClosed = errors.New("broadcast hub is closed")

const handleBuffer = 256

// Hub is the in-process Channel backend. All subscriptions live in one
// process; the hub fans every published message out to every handle
// subscribed to the same room, the publisher's own handle included.
type Hub struct {
	// Subscriptions by room
	handles map[string]map[*hubHandle]bool

	// Broadcast channel
	broadcast chan domain.ChatMessage

	// Register subscription
	register chan *hubHandle

	// Unregister subscription
	unregister chan *hubHandle

	// Shutdown signal
	done chan struct{}
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		handles:    make(map[string]map[*hubHandle]bool),
		broadcast:  make(chan domain.ChatMessage, 256),
		register:   make(chan *hubHandle),
		unregister: make(chan *hubHandle),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			slog.Info("broadcast hub shutting down gracefully")
			return ctx.Err()

		case hh := <-h.register:
			if h.handles[hh.roomID] == nil {
				h.handles[hh.roomID] = make(map[*hubHandle]bool)
			}
			h.handles[hh.roomID][hh] = true
			hh.state.set(StateConnected)
			observability.BroadcastSubscriptionsActive.WithLabelValues(hh.roomID).Inc()
			slog.Debug("subscription registered", slog.String("room_id", hh.roomID))

		case hh := <-h.unregister:
			h.unregisterHandle(hh)

		case msg := <-h.broadcast:
			// Deliver to every subscriber of the room; a full buffer
			// means the delivery is dropped, not blocked on. Loss here
			// is recoverable through the durable store.
			for hh := range h.handles[msg.RoomID] {
				select {
				case hh.recv <- msg:
					observability.BroadcastDeliveries.WithLabelValues(msg.RoomID, "hub").Inc()
				default:
					observability.BroadcastDropped.WithLabelValues(msg.RoomID, "hub").Inc()
				}
			}
		}
	}
}

// Connect opens a subscription for roomID. The handle is connected once
// the hub loop has registered it.
func (h *Hub) Connect(ctx context.Context, roomID string, onMessage MessageFunc) (Handle, error) {
	hh := &hubHandle{
		hub:       h,
		roomID:    roomID,
		onMessage: onMessage,
		recv:      make(chan domain.ChatMessage, handleBuffer),
	}
	hh.state.set(StateConnecting)

	select {
	case h.register <- hh:
	case <-h.done:
		hh.state.set(StateDisconnected)
		return nil, ErrHubClosed
	case <-ctx.Done():
		hh.state.set(StateDisconnected)
		return nil, ctx.Err()
	}

	go hh.deliverLoop()
	return hh, nil
}

// unregisterHandle safely removes a subscription from the hub
func (h *Hub) unregisterHandle(hh *hubHandle) {
	if handles, ok := h.handles[hh.roomID]; ok {
		if _, ok := handles[hh]; ok {
			delete(handles, hh)
			close(hh.recv)
			observability.BroadcastSubscriptionsActive.WithLabelValues(hh.roomID).Dec()
			slog.Debug("subscription unregistered", slog.String("room_id", hh.roomID))

			// Clean up empty room
			if len(handles) == 0 {
				delete(h.handles, hh.roomID)
			}
		}
	}
}

// shutdown performs graceful cleanup of all subscriptions
func (h *Hub) shutdown() {
	close(h.done)

	for roomID, handles := range h.handles {
		for hh := range handles {
			hh.state.set(StateDisconnected)
			close(hh.recv)
		}
		slog.Info("closed room subscriptions", slog.String("room_id", roomID))
	}

	slog.Info("broadcast hub shutdown complete")
}

// hubHandle is one subscription registered with a Hub.
type hubHandle struct {
	hub       *Hub
	roomID    string
	onMessage MessageFunc
	recv      chan domain.ChatMessage
	state     state
	closeOnce sync.Once
}

func (hh *hubHandle) deliverLoop() {
	for msg := range hh.recv {
		hh.onMessage(msg)
	}
	hh.state.set(StateDisconnected)
}

func (hh *hubHandle) Publish(ctx context.Context, message domain.ChatMessage) error {
	if !hh.state.is(StateConnected) {
		return domain.ErrNotConnected
	}

	select {
	case hh.hub.broadcast <- message:
		observability.BroadcastPublished.WithLabelValues(message.RoomID, "hub").Inc()
		return nil
	case <-hh.hub.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (hh *hubHandle) State() State {
	return hh.state.get()
}

func (hh *hubHandle) Disconnect() {
	hh.closeOnce.Do(func() {
		hh.state.set(StateDisconnected)
		select {
		case hh.hub.unregister <- hh:
		case <-hh.hub.done:
		}
	})
}
