package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"linkup-chat/internal/broadcast"
	"linkup-chat/internal/domain"
	"linkup-chat/internal/identity"
	"linkup-chat/internal/middleware"
)

// WebSocketHandler bridges browser connections to chat sessions: one
// upgraded connection owns one Session for one room.
type WebSocketHandler struct {
	store    domain.MessageStore
	channel  broadcast.Channel
	identity *identity.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler. allowedOrigins is
// the comma-separated origin allowlist from config.
func NewWebSocketHandler(store domain.MessageStore, channel broadcast.Channel, ident *identity.Service, allowedOrigins string) *WebSocketHandler {
	origins := middleware.ParseOrigins(allowedOrigins)

	return &WebSocketHandler{
		store:    store,
		channel:  channel,
		identity: ident,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// Non-browser client
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		for _, o := range allowed {
			if o == "*" || o == origin || strings.EqualFold(o, u.Scheme+"://"+u.Host) {
				return true
			}
		}
		return false
	}
}

// HandleConnection authenticates, upgrades, and runs a chat session for
// the requested room until the connection closes.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	// Auth handled here rather than middleware so browser clients can
	// pass the token as a query parameter.
	token := middleware.ExtractToken(r)
	if token == "" {
		http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
		return
	}
	profile, err := h.identity.Identify(r.Context(), token)
	if err != nil {
		http.Error(w, `{"error":"Invalid or expired token"}`, http.StatusUnauthorized)
		return
	}

	roomID := chi.URLParam(r, "room")
	if roomID == "" {
		http.Error(w, `{"error":"Room required"}`, http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed",
			slog.String("room_id", roomID),
			slog.String("error", err.Error()))
		return
	}

	client := newWSClient(conn, roomID, profile, h.store, h.channel)
	client.run(r.Context())
}
