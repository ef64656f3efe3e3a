// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the linkup-chat application.
package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"linkup-chat/internal/broadcast"
	"linkup-chat/internal/domain"
)

// Common test errors
var (
	ErrMockNotImplemented = errors.New("mock function not implemented")
	ErrMockNotFound       = errors.New("mock: not found")
)

// MockMessageStore implements domain.MessageStore for testing
type MockMessageStore struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	AppendFunc     func(ctx context.Context, message domain.ChatMessage) error
	ListByRoomFunc func(ctx context.Context, roomID string) ([]domain.ChatMessage, error)

	// In-memory storage for simple tests, keyed by message id
	Messages map[string]domain.ChatMessage
}

// NewMockMessageStore creates a new MockMessageStore with initialized maps
func NewMockMessageStore() *MockMessageStore {
	return &MockMessageStore{
		Messages: make(map[string]domain.ChatMessage),
	}
}

func (m *MockMessageStore) Append(ctx context.Context, message domain.ChatMessage) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, message)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Messages == nil {
		m.Messages = make(map[string]domain.ChatMessage)
	}

	// Idempotent on id, matching the durable store contract
	if _, exists := m.Messages[message.ID]; exists {
		return nil
	}
	m.Messages[message.ID] = message
	return nil
}

func (m *MockMessageStore) ListByRoom(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	if m.ListByRoomFunc != nil {
		return m.ListByRoomFunc(ctx, roomID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []domain.ChatMessage{}
	for _, msg := range m.Messages {
		if msg.RoomID == roomID {
			result = append(result, msg)
		}
	}

	// Store contract: ascending by CreatedAt, id tiebreak
	for i := 1; i < len(result); i++ {
		for j := i; j > 0; j-- {
			a, b := result[j-1], result[j]
			if a.CreatedAt.Before(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && a.ID < b.ID) {
				break
			}
			result[j-1], result[j] = b, a
		}
	}
	return result, nil
}

// Stored returns the number of durably recorded messages.
func (m *MockMessageStore) Stored() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Messages)
}

// MockChannel implements broadcast.Channel for testing. Every handle it
// hands out shares the channel's in-memory room fanout, including
// self-echo, so tests exercise the same delivery shape as production.
type MockChannel struct {
	mu sync.Mutex

	// Function override
	ConnectFunc func(ctx context.Context, roomID string, onMessage broadcast.MessageFunc) (broadcast.Handle, error)

	// ConnectErr, when set, fails every Connect
	ConnectErr error

	// InitialState applied to new handles (StateConnected by default)
	InitialState *broadcast.State

	handles map[string][]*MockHandle
}

// NewMockChannel creates a connected-by-default mock channel.
func NewMockChannel() *MockChannel {
	return &MockChannel{
		handles: make(map[string][]*MockHandle),
	}
}

func (c *MockChannel) Connect(ctx context.Context, roomID string, onMessage broadcast.MessageFunc) (broadcast.Handle, error) {
	if c.ConnectFunc != nil {
		return c.ConnectFunc(ctx, roomID, onMessage)
	}
	if c.ConnectErr != nil {
		return nil, c.ConnectErr
	}

	h := &MockHandle{
		channel:   c,
		RoomID:    roomID,
		OnMessage: onMessage,
		state:     broadcast.StateConnected,
	}
	if c.InitialState != nil {
		h.state = *c.InitialState
	}

	c.mu.Lock()
	c.handles[roomID] = append(c.handles[roomID], h)
	c.mu.Unlock()
	return h, nil
}

// Deliver injects a message to every subscriber of its room, as if a
// peer broadcast it. Callbacks run on their own goroutine, matching
// the asynchronous delivery of the real transports.
func (c *MockChannel) Deliver(msg domain.ChatMessage) {
	c.mu.Lock()
	subs := append([]*MockHandle(nil), c.handles[msg.RoomID]...)
	c.mu.Unlock()

	for _, h := range subs {
		if h.State() == broadcast.StateConnected {
			go h.OnMessage(msg)
		}
	}
}

// MockHandle implements broadcast.Handle for testing
type MockHandle struct {
	channel   *MockChannel
	RoomID    string
	OnMessage broadcast.MessageFunc

	mu          sync.Mutex
	state       broadcast.State
	published   []domain.ChatMessage
	disconnects int

	// PublishErr, when set, fails every Publish
	PublishErr error
}

func (h *MockHandle) Publish(ctx context.Context, message domain.ChatMessage) error {
	h.mu.Lock()
	if h.state != broadcast.StateConnected {
		h.mu.Unlock()
		return domain.ErrNotConnected
	}
	if h.PublishErr != nil {
		err := h.PublishErr
		h.mu.Unlock()
		return err
	}
	h.published = append(h.published, message)
	h.mu.Unlock()

	if h.channel != nil {
		h.channel.Deliver(message)
	}
	return nil
}

func (h *MockHandle) State() broadcast.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// SetState forces a connectivity state for testing guards.
func (h *MockHandle) SetState(s broadcast.State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

func (h *MockHandle) Disconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == broadcast.StateDisconnected {
		return
	}
	h.state = broadcast.StateDisconnected
	h.disconnects++
}

// Published returns a copy of everything published through this handle.
func (h *MockHandle) Published() []domain.ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.ChatMessage(nil), h.published...)
}

// Disconnects returns how many effective disconnects happened.
func (h *MockHandle) Disconnects() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disconnects
}

// MockProfileRepository implements domain.ProfileRepository for testing
type MockProfileRepository struct {
	mu sync.RWMutex

	CreateFunc      func(ctx context.Context, profile *domain.Profile) error
	GetByIDFunc     func(ctx context.Context, id string) (*domain.Profile, error)
	GetByHandleFunc func(ctx context.Context, handle string) (*domain.Profile, error)
	GetByEmailFunc  func(ctx context.Context, email string) (*domain.Profile, error)

	Profiles map[string]*domain.Profile
}

// NewMockProfileRepository creates a new MockProfileRepository with initialized maps
func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{
		Profiles: make(map[string]*domain.Profile),
	}
}

func (m *MockProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, profile)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.Profiles {
		if p.Handle == profile.Handle {
			return domain.ErrHandleExists
		}
		if p.Email == profile.Email {
			return domain.ErrEmailExists
		}
	}

	if profile.ID == "" {
		profile.ID = "profile-" + profile.Handle
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now()
	}
	m.Profiles[profile.ID] = profile
	return nil
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if profile, ok := m.Profiles[id]; ok {
		return profile, nil
	}
	return nil, domain.ErrProfileNotFound
}

func (m *MockProfileRepository) GetByHandle(ctx context.Context, handle string) (*domain.Profile, error) {
	if m.GetByHandleFunc != nil {
		return m.GetByHandleFunc(ctx, handle)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, profile := range m.Profiles {
		if profile.Handle == handle {
			return profile, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

func (m *MockProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, profile := range m.Profiles {
		if profile.Email == email {
			return profile, nil
		}
	}
	return nil, domain.ErrProfileNotFound
}

// MockAuthTokenRepository implements domain.AuthTokenRepository for testing
type MockAuthTokenRepository struct {
	mu sync.RWMutex

	CreateFunc     func(ctx context.Context, token *domain.AuthToken) error
	GetByTokenFunc func(ctx context.Context, token string) (*domain.AuthToken, error)

	Tokens map[string]*domain.AuthToken
}

// NewMockAuthTokenRepository creates a new MockAuthTokenRepository with initialized maps
func NewMockAuthTokenRepository() *MockAuthTokenRepository {
	return &MockAuthTokenRepository{
		Tokens: make(map[string]*domain.AuthToken),
	}
}

func (m *MockAuthTokenRepository) Create(ctx context.Context, token *domain.AuthToken) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if token.ID == "" {
		token.ID = "token-" + token.Token
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	m.Tokens[token.Token] = token
	return nil
}

func (m *MockAuthTokenRepository) GetByToken(ctx context.Context, tokenValue string) (*domain.AuthToken, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, tokenValue)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.Tokens[tokenValue]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	if time.Now().After(token.ExpiresAt) {
		return nil, domain.ErrTokenExpired
	}
	return token, nil
}

func (m *MockAuthTokenRepository) Delete(ctx context.Context, tokenValue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Tokens, tokenValue)
	return nil
}

func (m *MockAuthTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	now := time.Now()
	for key, token := range m.Tokens {
		if now.After(token.ExpiresAt) {
			delete(m.Tokens, key)
			count++
		}
	}
	return count, nil
}
