package session

import (
	"sync"

	"linkup-chat/internal/domain"
)

// AutoScroll is the presentation trigger for a chat view: it observes
// merged timelines and fires the scroll func whenever the sequence
// grew or its last entry changed. It owns no conversation state beyond
// the last observed (length, tail id).
type AutoScroll struct {
	mu       sync.Mutex
	lastLen  int
	lastTail string
	scroll   func()
}

// NewAutoScroll wires the func that advances the view to the newest entry.
func NewAutoScroll(scroll func()) *AutoScroll {
	return &AutoScroll{scroll: scroll}
}

// Observe is intended as the session's TimelineFunc.
func (a *AutoScroll) Observe(timeline []domain.ChatMessage) {
	a.mu.Lock()
	var tail string
	if len(timeline) > 0 {
		tail = timeline[len(timeline)-1].ID
	}
	changed := len(timeline) > a.lastLen || tail != a.lastTail
	a.lastLen = len(timeline)
	a.lastTail = tail
	a.mu.Unlock()

	if changed && a.scroll != nil {
		a.scroll()
	}
}
