package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one entry in a room's timeline. Identity is the
// client-assigned ID; two messages sharing an ID are the same logical
// message regardless of which source delivered them.
type ChatMessage struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	SenderID   string    `json:"sender_id,omitempty"` // empty for system messages
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewChatMessage constructs an outbound message. The ID and timestamp
// are assigned here, on the sending side, never by the store.
func NewChatMessage(roomID, senderID, senderName, content string) ChatMessage {
	return ChatMessage{
		ID:         uuid.NewString(),
		RoomID:     roomID,
		SenderID:   senderID,
		SenderName: senderName,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
}

// Validate reports whether the message is complete enough to enter a
// timeline. Records failing this are rejected at the store boundary.
func (m ChatMessage) Validate() error {
	if m.ID == "" {
		return ErrMissingID
	}
	if m.RoomID == "" {
		return ErrMissingRoom
	}
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// MessageStore is the durable log consumed by the chat core. Append is
// idempotent with respect to the message ID, and ListByRoom returns the
// full room history ascending by CreatedAt (ID as tiebreak).
type MessageStore interface {
	Append(ctx context.Context, message ChatMessage) error
	ListByRoom(ctx context.Context, roomID string) ([]ChatMessage, error)
}
