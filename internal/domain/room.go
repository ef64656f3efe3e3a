package domain

import "strings"

const roomNamespace = "chat"

// DirectRoomID derives the room identifier for a two-party conversation.
// The pair is sorted lexically before joining so both participants
// compute the same room regardless of argument order.
func DirectRoomID(a, b string) string {
	lo, hi := a, b
	if strings.Compare(lo, hi) > 0 {
		lo, hi = hi, lo
	}
	return roomNamespace + "_" + lo + "_" + hi
}
