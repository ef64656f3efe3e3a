package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"linkup-chat/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector gathers asynchronous deliveries for assertions.
type collector struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
}

func (c *collector) receive(msg domain.ChatMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *collector) all() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ChatMessage(nil), c.messages...)
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func testMessage(roomID, id string) domain.ChatMessage {
	return domain.ChatMessage{
		ID:         id,
		RoomID:     roomID,
		SenderName: "alice",
		Content:    "hello",
		CreatedAt:  time.Now().UTC(),
	}
}

func TestHub_Connect(t *testing.T) {
	t.Run("handle_becomes_connected", func(t *testing.T) {
		hub, _ := startHub(t)

		handle, err := hub.Connect(context.Background(), "room-1", func(domain.ChatMessage) {})
		require.NoError(t, err)
		defer handle.Disconnect()

		assert.Equal(t, StateConnected, handle.State())
	})

	t.Run("connect_after_shutdown_fails", func(t *testing.T) {
		hub := NewHub()
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			hub.Run(ctx)
			close(done)
		}()
		cancel()
		<-done

		_, err := hub.Connect(context.Background(), "room-1", func(domain.ChatMessage) {})
		assert.ErrorIs(t, err, ErrHubClosed)
	})
}

func TestHub_Fanout(t *testing.T) {
	t.Run("delivers_to_all_room_subscribers_including_publisher", func(t *testing.T) {
		hub, _ := startHub(t)

		alice := &collector{}
		bob := &collector{}

		ha, err := hub.Connect(context.Background(), "room-1", alice.receive)
		require.NoError(t, err)
		defer ha.Disconnect()
		hb, err := hub.Connect(context.Background(), "room-1", bob.receive)
		require.NoError(t, err)
		defer hb.Disconnect()

		msg := testMessage("room-1", "msg-1")
		require.NoError(t, ha.Publish(context.Background(), msg))

		require.Eventually(t, func() bool { return alice.count() == 1 && bob.count() == 1 },
			time.Second, 5*time.Millisecond)
		assert.Equal(t, "msg-1", alice.all()[0].ID)
		assert.Equal(t, "msg-1", bob.all()[0].ID)
	})

	t.Run("rooms_are_isolated", func(t *testing.T) {
		hub, _ := startHub(t)

		room1 := &collector{}
		room2 := &collector{}

		h1, err := hub.Connect(context.Background(), "room-1", room1.receive)
		require.NoError(t, err)
		defer h1.Disconnect()
		h2, err := hub.Connect(context.Background(), "room-2", room2.receive)
		require.NoError(t, err)
		defer h2.Disconnect()

		require.NoError(t, h1.Publish(context.Background(), testMessage("room-1", "msg-1")))

		require.Eventually(t, func() bool { return room1.count() == 1 }, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, 0, room2.count())
	})

	t.Run("publish_to_empty_room_is_not_an_error", func(t *testing.T) {
		hub, _ := startHub(t)

		handle, err := hub.Connect(context.Background(), "room-1", func(domain.ChatMessage) {})
		require.NoError(t, err)
		defer handle.Disconnect()

		assert.NoError(t, handle.Publish(context.Background(), testMessage("room-9", "msg-1")))
	})

	t.Run("disconnected_subscriber_stops_receiving", func(t *testing.T) {
		hub, _ := startHub(t)

		gone := &collector{}
		stays := &collector{}

		hg, err := hub.Connect(context.Background(), "room-1", gone.receive)
		require.NoError(t, err)
		hs, err := hub.Connect(context.Background(), "room-1", stays.receive)
		require.NoError(t, err)
		defer hs.Disconnect()

		hg.Disconnect()
		require.Eventually(t, func() bool { return hg.State() == StateDisconnected },
			time.Second, 5*time.Millisecond)

		require.NoError(t, hs.Publish(context.Background(), testMessage("room-1", "msg-1")))

		require.Eventually(t, func() bool { return stays.count() == 1 }, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, 0, gone.count())
	})
}

func TestHubHandle_Publish(t *testing.T) {
	t.Run("rejects_when_disconnected", func(t *testing.T) {
		hub, _ := startHub(t)

		handle, err := hub.Connect(context.Background(), "room-1", func(domain.ChatMessage) {})
		require.NoError(t, err)
		handle.Disconnect()

		err = handle.Publish(context.Background(), testMessage("room-1", "msg-1"))
		assert.ErrorIs(t, err, domain.ErrNotConnected)
	})
}

func TestHubHandle_Disconnect(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		hub, _ := startHub(t)

		handle, err := hub.Connect(context.Background(), "room-1", func(domain.ChatMessage) {})
		require.NoError(t, err)

		assert.NotPanics(t, func() {
			handle.Disconnect()
			handle.Disconnect()
		})
		assert.Equal(t, StateDisconnected, handle.State())
	})

	t.Run("disconnect_after_hub_shutdown_does_not_block", func(t *testing.T) {
		hub := NewHub()
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			hub.Run(ctx)
			close(done)
		}()

		handle, err := hub.Connect(context.Background(), "room-1", func(domain.ChatMessage) {})
		require.NoError(t, err)

		cancel()
		<-done

		finished := make(chan struct{})
		go func() {
			handle.Disconnect()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(time.Second):
			t.Fatal("Disconnect blocked after hub shutdown")
		}
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "unknown", State(99).String())
}
