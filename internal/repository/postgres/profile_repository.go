package postgres

import (
	"context"
	"database/sql"
	"errors"

	"linkup-chat/internal/domain"
)

// ProfileRepository implements domain.ProfileRepository for PostgreSQL
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new PostgreSQL profile repository
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a new profile into the database
func (r *ProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO profiles (handle, email, avatar, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		profile.Handle,
		profile.Email,
		profile.Avatar,
		profile.PasswordHash,
	).Scan(&profile.ID, &profile.CreatedAt)

	if err != nil {
		if IsUniqueViolation(err, "profiles_handle_key") {
			return domain.ErrHandleExists
		}
		if IsUniqueViolation(err, "profiles_email_key") {
			return domain.ErrEmailExists
		}
		return err
	}

	return nil
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.getOne(ctx, `
		SELECT id, handle, email, avatar, password_hash, created_at
		FROM profiles
		WHERE id = $1
	`, id)
}

// GetByHandle retrieves a profile by handle
func (r *ProfileRepository) GetByHandle(ctx context.Context, handle string) (*domain.Profile, error) {
	return r.getOne(ctx, `
		SELECT id, handle, email, avatar, password_hash, created_at
		FROM profiles
		WHERE handle = $1
	`, handle)
}

// GetByEmail retrieves a profile by email
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.getOne(ctx, `
		SELECT id, handle, email, avatar, password_hash, created_at
		FROM profiles
		WHERE email = $1
	`, email)
}

func (r *ProfileRepository) getOne(ctx context.Context, query, arg string) (*domain.Profile, error) {
	profile := &domain.Profile{}
	var avatar sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&profile.ID,
		&profile.Handle,
		&profile.Email,
		&avatar,
		&profile.PasswordHash,
		&profile.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	profile.Avatar = avatar.String
	return profile, nil
}
