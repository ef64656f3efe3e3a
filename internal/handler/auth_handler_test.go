package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"linkup-chat/internal/identity"
	"linkup-chat/internal/middleware"
	"linkup-chat/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthHandler() (*AuthHandler, *identity.Service) {
	svc := identity.NewService(testutil.NewMockProfileRepository(), testutil.NewMockAuthTokenRepository())
	return NewAuthHandler(svc), svc
}

func registerProfile(t *testing.T, svc *identity.Service) {
	t.Helper()
	_, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123")
	require.NoError(t, err)
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("successful_registration", func(t *testing.T) {
		h, _ := newAuthHandler()

		body := `{"handle":"alice","email":"alice@example.com","password":"password123"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.Register(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp ProfileResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, "alice", resp.Handle)
		assert.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("invalid_json", func(t *testing.T) {
		h, _ := newAuthHandler()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()

		h.Register(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid_input", func(t *testing.T) {
		h, _ := newAuthHandler()

		body := `{"handle":"x","email":"alice@example.com","password":"password123"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.Register(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate_handle_conflicts", func(t *testing.T) {
		h, svc := newAuthHandler()
		registerProfile(t, svc)

		body := `{"handle":"alice","email":"other@example.com","password":"password123"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.Register(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("successful_login_sets_cookie", func(t *testing.T) {
		h, svc := newAuthHandler()
		registerProfile(t, svc)

		body := `{"email":"alice@example.com","password":"password123"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.Login(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "alice", resp.Profile.Handle)

		cookies := rec.Result().Cookies()
		require.NotEmpty(t, cookies)
		var sessionCookie *http.Cookie
		for _, c := range cookies {
			if c.Name == "session_token" {
				sessionCookie = c
			}
		}
		require.NotNil(t, sessionCookie)
		assert.NotEmpty(t, sessionCookie.Value)
		assert.True(t, sessionCookie.HttpOnly)
	})

	t.Run("wrong_password", func(t *testing.T) {
		h, svc := newAuthHandler()
		registerProfile(t, svc)

		body := `{"email":"alice@example.com","password":"wrong-password"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.Login(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid_json", func(t *testing.T) {
		h, _ := newAuthHandler()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{"))
		rec := httptest.NewRecorder()

		h.Login(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Run("invalidates_token_and_clears_cookie", func(t *testing.T) {
		h, svc := newAuthHandler()
		registerProfile(t, svc)
		token, _, err := svc.Login(context.Background(), "alice@example.com", "password123")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: token.Token})
		rec := httptest.NewRecorder()

		h.Logout(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		_, err = svc.Identify(context.Background(), token.Token)
		assert.Error(t, err)

		cookies := rec.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})

	t.Run("logout_without_token_still_succeeds", func(t *testing.T) {
		h, _ := newAuthHandler()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		rec := httptest.NewRecorder()

		h.Logout(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	t.Run("returns_authenticated_profile", func(t *testing.T) {
		h, _ := newAuthHandler()
		profile := testutil.NewTestProfile(testutil.WithHandle("alice"))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req = req.WithContext(middleware.WithProfile(req.Context(), profile))
		rec := httptest.NewRecorder()

		h.Me(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp ProfileResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, profile.ID, resp.ID)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		h, _ := newAuthHandler()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		rec := httptest.NewRecorder()

		h.Me(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
