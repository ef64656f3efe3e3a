package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"linkup-chat/internal/domain"
	"linkup-chat/internal/observability"
)

// MessageStore implements domain.MessageStore for PostgreSQL. The
// messages table is the durable, authoritative record: ids and
// timestamps come from the client and are stored as-is.
type MessageStore struct {
	db *sql.DB
}

// NewMessageStore creates a new PostgreSQL message store
func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

// Append persists one message. Idempotent with respect to the message
// id: re-appending an id that already exists is a no-op, never a
// duplicate row.
func (s *MessageStore) Append(ctx context.Context, message domain.ChatMessage) error {
	if err := message.Validate(); err != nil {
		return fmt.Errorf("rejecting message for append: %w", err)
	}

	query := `
		INSERT INTO messages (id, room, sender_id, sender_name, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	start := time.Now()
	_, err := s.db.ExecContext(ctx, query,
		message.ID,
		message.RoomID,
		nullable(message.SenderID),
		nullable(message.SenderName),
		message.Content,
		message.CreatedAt,
	)
	observability.DBQueryDuration.WithLabelValues("append", "messages").Observe(time.Since(start).Seconds())

	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// ListByRoom retrieves all persisted messages for a room, ascending by
// creation time with the id as tiebreak. Rows are reconstructed into
// the strict ChatMessage shape at this boundary: missing sender fields
// are defaulted, rows without an id are skipped.
func (s *MessageStore) ListByRoom(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	query := `
		SELECT id, room, sender_id, sender_name, content, created_at
		FROM messages
		WHERE room = $1
		ORDER BY created_at ASC, id ASC
	`

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, roomID)
	observability.DBQueryDuration.WithLabelValues("list_by_room", "messages").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]domain.ChatMessage, 0, 64)
	for rows.Next() {
		var (
			msg        domain.ChatMessage
			senderID   sql.NullString
			senderName sql.NullString
		)
		err := rows.Scan(
			&msg.ID,
			&msg.RoomID,
			&senderID,
			&senderName,
			&msg.Content,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.SenderID = senderID.String
		msg.SenderName = senderName.String
		if msg.SenderName == "" {
			msg.SenderName = "Unknown"
		}

		if msg.ID == "" {
			slog.Warn("skipping stored message without id",
				slog.String("room", roomID))
			continue
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
