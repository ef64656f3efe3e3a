package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"linkup-chat/internal/domain"
	"linkup-chat/internal/middleware"
	"linkup-chat/internal/observability"
)

// RoomHandler serves room history and the room-naming convention.
type RoomHandler struct {
	store domain.MessageStore
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(store domain.MessageStore) *RoomHandler {
	return &RoomHandler{store: store}
}

// GetMessages returns the full durable history for a room, ascending by
// creation time.
func (h *RoomHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "room")
	if roomID == "" {
		http.Error(w, `{"error":"Room required"}`, http.StatusBadRequest)
		return
	}

	messages, err := h.store.ListByRoom(r.Context(), roomID)
	if err != nil {
		observability.FromContext(r.Context()).Error("history fetch failed",
			slog.String("room_id", roomID),
			slog.String("error", err.Error()))
		http.Error(w, `{"error":"Failed to load messages"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"room_id":  roomID,
		"messages": messages,
	})
}

// DirectRoomResponse carries the derived two-party room id.
type DirectRoomResponse struct {
	RoomID string `json:"room_id"`
}

// DirectRoom derives the deterministic room id for the authenticated
// profile and a peer. Both sides of a conversation obtain the same id
// regardless of who asks.
func (h *RoomHandler) DirectRoom(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.GetProfile(r.Context())
	if !ok {
		http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
		return
	}

	peer := r.URL.Query().Get("peer")
	if peer == "" {
		http.Error(w, `{"error":"peer query parameter required"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DirectRoomResponse{
		RoomID: domain.DirectRoomID(profile.ID, peer),
	})
}
