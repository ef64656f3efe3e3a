// Package session owns the lifecycle of one active conversation: the
// history fetch, the broadcast subscription, the live buffer, and the
// merged timeline derived from them. One Session per room; switching
// rooms means tearing the session down and building a new one.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"linkup-chat/internal/broadcast"
	"linkup-chat/internal/domain"
	"linkup-chat/internal/merge"
	"linkup-chat/internal/observability"
)

// Status is the lifecycle state of a Session.
type Status int

const (
	StatusInactive Status = iota
	StatusLoadingHistory
	StatusActive
	StatusTornDown
)

func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusLoadingHistory:
		return "loading_history"
	case StatusActive:
		return "active"
	case StatusTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}

// TimelineFunc receives the merged timeline after every recomputation.
type TimelineFunc func([]domain.ChatMessage)

// ErrorFunc receives recoverable session failures (see Failure). None
// of them end the session.
type ErrorFunc func(error)

// Session is the controller for one room. The room id, identity and
// display name are fixed at construction time.
type Session struct {
	store   domain.MessageStore
	channel broadcast.Channel

	roomID      string
	selfID      string
	displayName string

	mu       sync.Mutex
	status   Status
	handle   broadcast.Handle
	history  []domain.ChatMessage
	seeded   []domain.ChatMessage
	live     []domain.ChatMessage
	timeline []domain.ChatMessage

	onTimeline TimelineFunc
	onError    ErrorFunc
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithSeed pre-populates the timeline with messages the caller already
// holds, e.g. from a server-rendered page. Collapsed by id against
// history and live deliveries.
func WithSeed(messages []domain.ChatMessage) Option {
	return func(s *Session) {
		s.seeded = append([]domain.ChatMessage(nil), messages...)
	}
}

// WithTimelineFunc registers the change notification callback.
func WithTimelineFunc(fn TimelineFunc) Option {
	return func(s *Session) { s.onTimeline = fn }
}

// WithErrorFunc registers the recoverable-failure callback.
func WithErrorFunc(fn ErrorFunc) Option {
	return func(s *Session) { s.onError = fn }
}

// New constructs an inactive Session for roomID on behalf of the given
// identity.
func New(roomID, selfID, displayName string, store domain.MessageStore, channel broadcast.Channel, opts ...Option) *Session {
	s := &Session{
		store:       store,
		channel:     channel,
		roomID:      roomID,
		selfID:      selfID,
		displayName: displayName,
		status:      StatusInactive,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Activate fetches the room history and opens the broadcast
// subscription. The two run concurrently: the subscription does not
// wait for history, and live messages arriving before the history
// response are handled by the merge's dedup. Activate returns once the
// session is active; a failed history fetch degrades to an empty
// history (reported through the error callback) rather than blocking.
func (s *Session) Activate(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusInactive {
		status := s.status
		s.mu.Unlock()
		if status == StatusTornDown {
			return domain.ErrSessionClosed
		}
		return nil
	}
	s.status = StatusLoadingHistory
	s.mu.Unlock()

	observability.ChatSessionsActive.Inc()

	go s.connectChannel(ctx)

	history, err := s.store.ListByRoom(ctx, s.roomID)

	s.mu.Lock()
	if s.status == StatusTornDown {
		// Torn down while the fetch was in flight; the response is stale.
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if err != nil {
		s.history = nil
	} else {
		s.history = history
	}
	s.status = StatusActive
	notify := s.recomputeLocked()
	s.mu.Unlock()
	notify()

	if err != nil {
		s.report(&Failure{Kind: FailureHistoryFetch, Err: err})
	}
	return nil
}

// connectChannel opens the subscription. A connect failure leaves the
// session without a connected handle: messages still display, sending
// stays rejected until connectivity exists.
func (s *Session) connectChannel(ctx context.Context) {
	handle, err := s.channel.Connect(ctx, s.roomID, s.ingest)
	if err != nil {
		slog.Warn("broadcast connect failed",
			slog.String("room_id", s.roomID),
			slog.String("error", err.Error()))
		s.report(&Failure{Kind: FailureTransport, Err: err})
		return
	}

	s.mu.Lock()
	if s.status == StatusTornDown {
		s.mu.Unlock()
		handle.Disconnect()
		return
	}
	s.handle = handle
	s.mu.Unlock()
}

// ingest is the subscription callback: every live delivery lands in the
// live buffer, in arrival order, and triggers a recompute. Deliveries
// for other rooms or after teardown are discarded.
func (s *Session) ingest(msg domain.ChatMessage) {
	if msg.RoomID != s.roomID {
		return
	}

	s.mu.Lock()
	if s.status == StatusTornDown {
		s.mu.Unlock()
		return
	}
	s.live = append(s.live, msg)
	notify := s.recomputeLocked()
	s.mu.Unlock()

	observability.LiveMessagesIngested.WithLabelValues(s.roomID).Inc()
	notify()
}

// Send constructs, broadcasts and persists an outbound message.
// Validation failures and a non-connected channel reject synchronously
// with no partial state change. The broadcast and the durable write are
// deliberately independent: a failed write is reported but the already
// broadcast message stays visible for the rest of the session.
func (s *Session) Send(ctx context.Context, content string) (domain.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return domain.ChatMessage{}, domain.ErrEmptyContent
	}

	s.mu.Lock()
	if s.status == StatusTornDown {
		s.mu.Unlock()
		return domain.ChatMessage{}, domain.ErrSessionClosed
	}
	handle := s.handle
	s.mu.Unlock()

	if handle == nil || handle.State() != broadcast.StateConnected {
		return domain.ChatMessage{}, domain.ErrNotConnected
	}

	msg := domain.NewChatMessage(s.roomID, s.selfID, s.displayName, content)

	// Publish without holding s.mu: the transport may block, and its
	// self-echo re-enters ingest, which takes the same lock.
	if err := handle.Publish(ctx, msg); err != nil {
		return domain.ChatMessage{}, err
	}

	s.mu.Lock()
	if s.status == StatusTornDown {
		// Torn down while publishing. Nothing left to display, but the
		// message is already on the wire, so it still gets persisted.
		s.mu.Unlock()
	} else {
		// Local injection guarantees prompt visibility even when the
		// transport's self-echo lags; the echo collapses by id.
		s.live = append(s.live, msg)
		notify := s.recomputeLocked()
		s.mu.Unlock()
		notify()
	}

	if err := s.store.Append(ctx, msg); err != nil {
		observability.PersistenceFailures.WithLabelValues(s.roomID).Inc()
		s.report(&Failure{Kind: FailurePersistence, Err: err})
	}

	return msg, nil
}

// Deactivate disconnects the subscription exactly once, discards the
// in-memory buffers and moves the session to torn_down. Idempotent.
func (s *Session) Deactivate() {
	s.mu.Lock()
	if s.status == StatusTornDown {
		s.mu.Unlock()
		return
	}
	active := s.status != StatusInactive
	s.status = StatusTornDown
	handle := s.handle
	s.handle = nil
	s.history = nil
	s.seeded = nil
	s.live = nil
	s.timeline = nil
	s.mu.Unlock()

	if handle != nil {
		handle.Disconnect()
	}
	if active {
		observability.ChatSessionsActive.Dec()
	}
	slog.Debug("chat session torn down", slog.String("room_id", s.roomID))
}

// Timeline returns a copy of the current merged sequence.
func (s *Session) Timeline() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChatMessage(nil), s.timeline...)
}

// Status returns the lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Connected reports whether sending is currently possible.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil && s.handle.State() == broadcast.StateConnected
}

// RoomID returns the room this session is bound to.
func (s *Session) RoomID() string {
	return s.roomID
}

// recomputeLocked rebuilds the merged timeline. Callers hold s.mu; the
// returned func delivers the notification and must be called after the
// lock is released so the callback can call back into the session.
func (s *Session) recomputeLocked() func() {
	s.timeline = merge.Timeline(s.history, s.seeded, s.live)
	observability.MergeRecomputations.WithLabelValues(s.roomID).Inc()

	if s.onTimeline == nil {
		return func() {}
	}
	snapshot := append([]domain.ChatMessage(nil), s.timeline...)
	fn := s.onTimeline
	return func() { fn(snapshot) }
}

func (s *Session) report(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}
