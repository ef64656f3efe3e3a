// Package merge combines the message sources feeding a chat timeline
// (durable history, pre-seeded messages, live broadcast deliveries)
// into one deduplicated, time-ordered sequence.
package merge

import (
	"sort"

	"linkup-chat/internal/domain"
)

// Timeline unifies the three sources into a single ordered sequence.
// Duplicate IDs collapse to one entry with precedence history > seeded >
// live, since the durable copy is the authoritative record. The result
// is sorted ascending by CreatedAt with the ID as a deterministic
// tiebreak. Inputs are never mutated, and identical inputs always
// produce a structurally identical result.
func Timeline(history, seeded, live []domain.ChatMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(history)+len(seeded)+len(live))
	seen := make(map[string]struct{}, cap(out))

	for _, src := range [][]domain.ChatMessage{history, seeded, live} {
		for _, msg := range src {
			if _, dup := seen[msg.ID]; dup {
				continue
			}
			seen[msg.ID] = struct{}{}
			out = append(out, msg)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out
}
