package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectRoomID(t *testing.T) {
	t.Run("sorted_pair", func(t *testing.T) {
		assert.Equal(t, "chat_u1_u2", DirectRoomID("u1", "u2"))
	})

	t.Run("argument_order_does_not_matter", func(t *testing.T) {
		assert.Equal(t, DirectRoomID("u1", "u2"), DirectRoomID("u2", "u1"))
	})

	t.Run("lexical_not_numeric_ordering", func(t *testing.T) {
		// "u10" sorts before "u2" lexically
		assert.Equal(t, "chat_u10_u2", DirectRoomID("u2", "u10"))
	})

	t.Run("same_participant_twice", func(t *testing.T) {
		assert.Equal(t, "chat_u1_u1", DirectRoomID("u1", "u1"))
	})
}
