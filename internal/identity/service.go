// Package identity is the auth provider consumed by the chat core: it
// supplies the profile id and display handle stamped on outbound
// messages. The core itself never authenticates anyone.
package identity

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"linkup-chat/internal/domain"
)

var (
	ErrInvalidInput = errors.New("invalid input")

	handleRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

const tokenTTL = 24 * time.Hour

type Service struct {
	profileRepo domain.ProfileRepository
	tokenRepo   domain.AuthTokenRepository
}

func NewService(profileRepo domain.ProfileRepository, tokenRepo domain.AuthTokenRepository) *Service {
	return &Service{
		profileRepo: profileRepo,
		tokenRepo:   tokenRepo,
	}
}

func (s *Service) Register(ctx context.Context, handle, email, password string) (*domain.Profile, error) {
	if len(handle) < 3 || len(handle) > 50 {
		return nil, ErrInvalidInput
	}
	if !handleRegex.MatchString(handle) {
		return nil, ErrInvalidInput
	}
	if !emailRegex.MatchString(email) || len(email) > 255 {
		return nil, ErrInvalidInput
	}
	if len(password) < 8 || len(password) > 100 {
		return nil, ErrInvalidInput
	}

	if _, err := s.profileRepo.GetByHandle(ctx, handle); err == nil {
		return nil, domain.ErrHandleExists
	}

	if _, err := s.profileRepo.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, err
	}

	profile := &domain.Profile{
		Handle:       handle,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, err
	}

	return profile, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*domain.AuthToken, *domain.Profile, error) {
	profile, err := s.profileRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, domain.ErrInvalidLogin
	}

	if err := bcrypt.CompareHashAndPassword(
		[]byte(profile.PasswordHash), []byte(password),
	); err != nil {
		return nil, nil, domain.ErrInvalidLogin
	}

	token := &domain.AuthToken{
		ProfileID: profile.ID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(tokenTTL),
	}

	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, nil, err
	}

	return token, profile, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokenRepo.Delete(ctx, token)
}

// Identify resolves a token to the profile behind it.
func (s *Service) Identify(ctx context.Context, token string) (*domain.Profile, error) {
	authToken, err := s.tokenRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.profileRepo.GetByID(ctx, authToken.ProfileID)
}

func (s *Service) GetProfileByID(ctx context.Context, id string) (*domain.Profile, error) {
	return s.profileRepo.GetByID(ctx, id)
}

func (s *Service) GetProfileByHandle(ctx context.Context, handle string) (*domain.Profile, error) {
	return s.profileRepo.GetByHandle(ctx, handle)
}
