package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"linkup-chat/internal/domain"
	"linkup-chat/internal/observability"
)

const broadcastExchange = "chat.broadcast"

// ErrConnectionClosed reports a lost broker connection.
var ErrConnectionClosed = errors.New("amqp connection closed")

// AMQPChannel is the Channel backend over RabbitMQ. Messages flow
// through one topic exchange with the room id as routing key; each
// subscription gets an exclusive auto-delete queue, so deliveries stop
// existing the moment the subscriber goes away. Publishes are transient.
type AMQPChannel struct {
	conn *amqp.Connection
}

// NewAMQPChannel connects to RabbitMQ and declares the broadcast exchange.
func NewAMQPChannel(url string) (*AMQPChannel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		broadcastExchange, // name
		"topic",           // type
		false,             // durable
		true,              // auto-deleted
		false,             // internal
		false,             // no-wait
		nil,               // arguments
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare broadcast exchange: %w", err)
	}

	return &AMQPChannel{conn: conn}, nil
}

// NewAMQPChannelWithRetry retries the initial connection until it
// succeeds or ctx expires. Used at startup while the broker comes up.
func NewAMQPChannelWithRetry(ctx context.Context, url string) (*AMQPChannel, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		c, err := NewAMQPChannel(url)
		if err == nil {
			return c, nil
		}
		lastErr = err
		slog.Warn("rabbitmq not ready, retrying",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("giving up connecting to rabbitmq: %w", lastErr)
		case <-time.After(2 * time.Second):
		}
	}
}

// Connect binds a fresh exclusive queue to the room's routing key and
// starts consuming from it.
func (c *AMQPChannel) Connect(ctx context.Context, roomID string, onMessage MessageFunc) (Handle, error) {
	ah := &amqpHandle{roomID: roomID}
	ah.state.set(StateConnecting)

	ch, err := c.conn.Channel()
	if err != nil {
		ah.state.set(StateDisconnected)
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	ah.ch = ch

	queue, err := ch.QueueDeclare(
		"",    // auto-generated name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		ah.state.set(StateDisconnected)
		return nil, fmt.Errorf("failed to declare subscription queue: %w", err)
	}

	if err := ch.QueueBind(
		queue.Name,        // queue name
		roomID,            // routing key
		broadcastExchange, // exchange
		false,
		nil,
	); err != nil {
		ch.Close()
		ah.state.set(StateDisconnected)
		return nil, fmt.Errorf("failed to bind subscription queue: %w", err)
	}

	deliveries, err := ch.Consume(
		queue.Name,
		"",   // consumer tag
		true, // auto-ack: this transport never redelivers
		true, // exclusive
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		ah.state.set(StateDisconnected)
		return nil, fmt.Errorf("failed to start consumer: %w", err)
	}

	ah.state.set(StateConnected)
	go ah.readLoop(deliveries, onMessage)
	return ah, nil
}

type amqpHandle struct {
	ch        *amqp.Channel
	roomID    string
	state     state
	closeOnce sync.Once
}

func (ah *amqpHandle) readLoop(deliveries <-chan amqp.Delivery, onMessage MessageFunc) {
	for d := range deliveries {
		var msg domain.ChatMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			slog.Warn("discarding malformed broadcast payload",
				slog.String("room_id", ah.roomID),
				slog.String("error", err.Error()))
			continue
		}
		if msg.RoomID != ah.roomID {
			continue
		}
		observability.BroadcastDeliveries.WithLabelValues(ah.roomID, "amqp").Inc()
		onMessage(msg)
	}
	ah.state.set(StateDisconnected)
}

func (ah *amqpHandle) Publish(ctx context.Context, message domain.ChatMessage) error {
	if !ah.state.is(StateConnected) {
		return domain.ErrNotConnected
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = ah.ch.PublishWithContext(
		ctx,
		broadcastExchange,
		ah.roomID,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Transient,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	observability.BroadcastPublished.WithLabelValues(ah.roomID, "amqp").Inc()
	return nil
}

func (ah *amqpHandle) State() State {
	return ah.state.get()
}

func (ah *amqpHandle) Disconnect() {
	ah.closeOnce.Do(func() {
		ah.state.set(StateDisconnected)
		if err := ah.ch.Close(); err != nil {
			slog.Warn("error closing amqp subscription",
				slog.String("room_id", ah.roomID),
				slog.String("error", err.Error()))
		}
	})
}

// Close tears down the underlying connection.
func (c *AMQPChannel) Close() error {
	return c.conn.Close()
}

// IsClosed reports whether the underlying connection is gone.
func (c *AMQPChannel) IsClosed() bool {
	return c.conn == nil || c.conn.IsClosed()
}
