package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"linkup-chat/internal/domain"
	"linkup-chat/internal/identity"
	"linkup-chat/internal/middleware"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	identity *identity.Service
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(ident *identity.Service) *AuthHandler {
	return &AuthHandler{
		identity: ident,
	}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileResponse represents the public view of a profile
type ProfileResponse struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents login response
type LoginResponse struct {
	Success bool            `json:"success"`
	Profile ProfileResponse `json:"profile"`
}

func profileResponse(p *domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:     p.ID,
		Handle: p.Handle,
		Email:  p.Email,
		Avatar: p.Avatar,
	}
}

// Register handles profile registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	profile, err := h.identity.Register(r.Context(), req.Handle, req.Email, req.Password)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, identity.ErrInvalidInput):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrHandleExists), errors.Is(err, domain.ErrEmailExists):
			status = http.StatusConflict
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(profileResponse(profile))
}

// Login handles login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"Invalid request body"}`, http.StatusBadRequest)
		return
	}

	token, profile, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    token.Token,
		Path:     "/",
		MaxAge:   86400, // 24 hours
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: http.SameSiteStrictMode,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(LoginResponse{
		Success: true,
		Profile: profileResponse(profile),
	})
}

// Logout invalidates the current token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractToken(r)
	if token != "" {
		if err := h.identity.Logout(r.Context(), token); err != nil {
			http.Error(w, `{"error":"Logout failed"}`, http.StatusInternalServerError)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session_token",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// Me returns the authenticated profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, ok := middleware.GetProfile(r.Context())
	if !ok {
		http.Error(w, `{"error":"Not authenticated"}`, http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profileResponse(profile))
}
