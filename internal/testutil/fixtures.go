package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"linkup-chat/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%03d", prefix, idCounter.Add(1))
}

// BaseTime is the anchor timestamp fixtures count from; deterministic
// fixtures make ordering assertions readable.
var BaseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// MessageOptions allows customizing message fixture creation
type MessageOptions struct {
	ID         string
	RoomID     string
	SenderID   string
	SenderName string
	Content    string
	CreatedAt  time.Time
}

// NewTestMessage creates a test message with sensible defaults.
// Pass options to override specific fields.
func NewTestMessage(opts ...func(*MessageOptions)) domain.ChatMessage {
	o := &MessageOptions{
		ID:         nextID("msg"),
		RoomID:     "chat_u1_u2",
		SenderID:   "u1",
		SenderName: "alice",
		Content:    "hello",
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.CreatedAt.IsZero() {
		o.CreatedAt = BaseTime.Add(time.Duration(idCounter.Load()) * time.Second)
	}

	return domain.ChatMessage{
		ID:         o.ID,
		RoomID:     o.RoomID,
		SenderID:   o.SenderID,
		SenderName: o.SenderName,
		Content:    o.Content,
		CreatedAt:  o.CreatedAt,
	}
}

// Message option functions

func WithMessageID(id string) func(*MessageOptions) {
	return func(o *MessageOptions) { o.ID = id }
}

func WithRoom(roomID string) func(*MessageOptions) {
	return func(o *MessageOptions) { o.RoomID = roomID }
}

func WithSender(id, name string) func(*MessageOptions) {
	return func(o *MessageOptions) { o.SenderID = id; o.SenderName = name }
}

func WithContent(content string) func(*MessageOptions) {
	return func(o *MessageOptions) { o.Content = content }
}

func WithCreatedAt(t time.Time) func(*MessageOptions) {
	return func(o *MessageOptions) { o.CreatedAt = t }
}

// ProfileOptions allows customizing profile fixture creation
type ProfileOptions struct {
	ID           string
	Handle       string
	Email        string
	PasswordHash string
}

// NewTestProfile creates a test profile with sensible defaults
func NewTestProfile(opts ...func(*ProfileOptions)) *domain.Profile {
	o := &ProfileOptions{
		ID:           nextID("profile"),
		Handle:       fmt.Sprintf("tester%d", idCounter.Load()),
		PasswordHash: "$2a$10$test.hash.for.testing.purposes.only", // bcrypt hash placeholder
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.Email == "" {
		o.Email = o.Handle + "@example.com"
	}

	return &domain.Profile{
		ID:           o.ID,
		Handle:       o.Handle,
		Email:        o.Email,
		PasswordHash: o.PasswordHash,
		CreatedAt:    time.Now(),
	}
}

func WithProfileID(id string) func(*ProfileOptions) {
	return func(o *ProfileOptions) { o.ID = id }
}

func WithHandle(handle string) func(*ProfileOptions) {
	return func(o *ProfileOptions) { o.Handle = handle }
}
