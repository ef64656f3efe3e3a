package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"linkup-chat/internal/broadcast"
	"linkup-chat/internal/domain"
	"linkup-chat/internal/observability"
	"linkup-chat/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // Must be less than pongWait
	maxMessageSize = 4096
	statusInterval = 2 * time.Second
)

// ClientFrame is what the browser sends: a plain outbound message.
type ClientFrame struct {
	Content string `json:"content"`
}

// ServerFrame is what the gateway pushes to the browser.
type ServerFrame struct {
	Type      string               `json:"type"` // timeline, status, error
	Messages  []domain.ChatMessage `json:"messages,omitempty"`
	Connected *bool                `json:"connected,omitempty"`
	State     string               `json:"state,omitempty"`
	Message   string               `json:"message,omitempty"`
}

// wsClient ties one websocket connection to one chat session: timeline
// recomputations flow out, send frames flow in.
type wsClient struct {
	conn    *websocket.Conn
	roomID  string
	profile *domain.Profile
	sess    *session.Session

	send    chan ServerFrame
	writeMu sync.Mutex
	once    sync.Once
}

func newWSClient(conn *websocket.Conn, roomID string, profile *domain.Profile, store domain.MessageStore, channel broadcast.Channel) *wsClient {
	c := &wsClient{
		conn:    conn,
		roomID:  roomID,
		profile: profile,
		send:    make(chan ServerFrame, 64),
	}

	c.sess = session.New(roomID, profile.ID, profile.Handle, store, channel,
		session.WithTimelineFunc(c.onTimeline),
		session.WithErrorFunc(c.onError),
	)
	return c
}

// run activates the session and pumps frames until the connection or
// the context ends. Always tears the session down on the way out.
func (c *wsClient) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	observability.WebSocketConnectionsActive.WithLabelValues(c.roomID).Inc()
	defer observability.WebSocketConnectionsActive.WithLabelValues(c.roomID).Dec()

	defer c.sess.Deactivate()

	if err := c.sess.Activate(ctx); err != nil {
		slog.Warn("session activation failed",
			slog.String("room_id", c.roomID),
			slog.String("error", err.Error()))
		c.closeConnection()
		return
	}

	go c.writePump(ctx, cancel)
	c.readPump(ctx, cancel)
}

func (c *wsClient) onTimeline(timeline []domain.ChatMessage) {
	c.enqueue(ServerFrame{Type: "timeline", Messages: timeline})
}

func (c *wsClient) onError(err error) {
	c.enqueue(ServerFrame{Type: "error", Message: err.Error()})
}

// enqueue drops the frame when the buffer is full; the next timeline
// push supersedes anything dropped.
func (c *wsClient) enqueue(frame ServerFrame) {
	select {
	case c.send <- frame:
	default:
	}
}

func (c *wsClient) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer func() {
		cancel()
		c.closeConnection()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket error",
					slog.String("room_id", c.roomID),
					slog.String("error", err.Error()))
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.enqueue(ServerFrame{Type: "error", Message: "invalid frame"})
			continue
		}

		sendCtx, sendCancel := context.WithTimeout(ctx, 5*time.Second)
		_, err = c.sess.Send(sendCtx, frame.Content)
		sendCancel()

		if err != nil {
			// Validation and connectivity rejections go back to the
			// client; the session itself is unaffected.
			switch {
			case errors.Is(err, domain.ErrEmptyContent):
				c.enqueue(ServerFrame{Type: "error", Message: "message is empty"})
			case errors.Is(err, domain.ErrNotConnected):
				c.enqueue(ServerFrame{Type: "error", Message: "not connected"})
			default:
				slog.Error("send failed",
					slog.String("room_id", c.roomID),
					slog.String("error", err.Error()))
				c.enqueue(ServerFrame{Type: "error", Message: "send failed"})
			}
		}
	}
}

func (c *wsClient) writePump(ctx context.Context, cancel context.CancelFunc) {
	pingTicker := time.NewTicker(pingPeriod)
	statusTicker := time.NewTicker(statusInterval)
	defer func() {
		pingTicker.Stop()
		statusTicker.Stop()
		cancel()
		c.closeConnection()
	}()

	lastConnected := false
	c.pushStatus(&lastConnected, true)

	for {
		select {
		case <-ctx.Done():
			_ = c.writeMessage(websocket.CloseMessage, []byte{})
			return

		case frame := <-c.send:
			data, err := json.Marshal(frame)
			if err != nil {
				slog.Error("failed to marshal server frame", slog.String("error", err.Error()))
				continue
			}
			if err := c.writeMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-statusTicker.C:
			// Connectivity drives the send affordance in the UI; push
			// transitions as they happen.
			if err := c.pushStatus(&lastConnected, false); err != nil {
				return
			}

		case <-pingTicker.C:
			if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) pushStatus(last *bool, force bool) error {
	connected := c.sess.Connected()
	if !force && connected == *last {
		return nil
	}
	*last = connected

	frame := ServerFrame{
		Type:      "status",
		Connected: &connected,
		State:     c.channelState(),
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return c.writeMessage(websocket.TextMessage, data)
}

func (c *wsClient) channelState() string {
	if c.sess.Connected() {
		return broadcast.StateConnected.String()
	}
	if c.sess.Status() == session.StatusTornDown {
		return broadcast.StateDisconnected.String()
	}
	return broadcast.StateConnecting.String()
}

func (c *wsClient) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

func (c *wsClient) closeConnection() {
	c.once.Do(func() {
		_ = c.conn.Close()
	})
}
