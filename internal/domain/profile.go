package domain

import (
	"context"
	"time"
)

// Profile is the identity record behind a chat participant. The handle
// doubles as the display name stamped on outbound messages.
type Profile struct {
	ID           string    `json:"id"`
	Handle       string    `json:"handle"`
	Email        string    `json:"email"`
	Avatar       string    `json:"avatar,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProfileRepository defines the interface for profile data access
type ProfileRepository interface {
	Create(ctx context.Context, profile *Profile) error
	GetByID(ctx context.Context, id string) (*Profile, error)
	GetByHandle(ctx context.Context, handle string) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
}

// AuthToken is a login session token issued by the identity provider.
type AuthToken struct {
	ID        string    `json:"id"`
	ProfileID string    `json:"profile_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthTokenRepository defines the interface for auth token data access
type AuthTokenRepository interface {
	Create(ctx context.Context, token *AuthToken) error
	GetByToken(ctx context.Context, token string) (*AuthToken, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
