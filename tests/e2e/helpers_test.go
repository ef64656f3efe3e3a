//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"linkup-chat/internal/handler"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var accountCounter int

// registerAndLogin creates a unique account and returns its session
// token and profile id.
func registerAndLogin(t *testing.T) (token string, profileID string) {
	t.Helper()
	accountCounter++
	handle := fmt.Sprintf("user%d_%d", accountCounter, time.Now().UnixNano()%1000000)
	email := handle + "@example.com"

	registerBody, _ := json.Marshal(map[string]string{
		"handle":   handle,
		"email":    email,
		"password": "password123",
	})
	resp, err := testClient.Post(baseURL+"/api/v1/auth/register", "application/json", bytes.NewReader(registerBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var profile handler.ProfileResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))

	loginBody, _ := json.Marshal(map[string]string{
		"email":    email,
		"password": "password123",
	})
	resp, err = testClient.Post(baseURL+"/api/v1/auth/login", "application/json", bytes.NewReader(loginBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == "session_token" {
			token = c.Value
		}
	}
	require.NotEmpty(t, token, "login did not set a session cookie")

	return token, profile.ID
}

// authedGet issues a GET with a bearer token.
func authedGet(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := testClient.Do(req)
	require.NoError(t, err)
	return resp
}

// dialWS opens an authenticated websocket connection to a room.
func dialWS(t *testing.T, roomID, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(
		fmt.Sprintf("%s/ws/rooms/%s?token=%s", wsURL, roomID, token), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrameUntil reads server frames until one matches or the deadline hits.
func readFrameUntil(t *testing.T, conn *websocket.Conn, timeout time.Duration, match func(handler.ServerFrame) bool) handler.ServerFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(timeout)))
	for {
		var frame handler.ServerFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if match(frame) {
			return frame
		}
	}
}

// waitForSendReady blocks until the server reports a connected channel.
func waitForSendReady(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	readFrameUntil(t, conn, 10*time.Second, func(f handler.ServerFrame) bool {
		return f.Type == "status" && f.Connected != nil && *f.Connected
	})
}
