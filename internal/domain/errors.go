package domain

import "errors"

var (
	// Message validation
	ErrMissingID    = errors.New("message has no id")
	ErrMissingRoom  = errors.New("message has no room")
	ErrEmptyContent = errors.New("message content is empty")

	// Session lifecycle
	ErrNotConnected  = errors.New("broadcast channel is not connected")
	ErrSessionClosed = errors.New("chat session is torn down")
	ErrRoomMismatch  = errors.New("message belongs to a different room")

	// Identity
	ErrProfileNotFound = errors.New("profile not found")
	ErrHandleExists    = errors.New("handle already taken")
	ErrEmailExists     = errors.New("email already registered")
	ErrInvalidLogin    = errors.New("invalid email or password")
	ErrTokenNotFound   = errors.New("auth token not found")
	ErrTokenExpired    = errors.New("auth token expired")
)
