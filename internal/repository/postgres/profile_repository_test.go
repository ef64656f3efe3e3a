package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"linkup-chat/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileInsertQuery = `
		INSERT INTO profiles (handle, email, avatar, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

func TestProfileRepository_Create(t *testing.T) {
	t.Run("successful_creation", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewProfileRepository(db)
		createdAt := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta(profileInsertQuery)).
			WithArgs("alice", "alice@example.com", "", "hashed-password").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).
				AddRow("profile-1", createdAt))

		profile := &domain.Profile{
			Handle:       "alice",
			Email:        "alice@example.com",
			PasswordHash: "hashed-password",
		}
		err = repo.Create(context.Background(), profile)
		require.NoError(t, err)
		assert.Equal(t, "profile-1", profile.ID)
		assert.Equal(t, createdAt, profile.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate_handle", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewProfileRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(profileInsertQuery)).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "profiles_handle_key"})

		err = repo.Create(context.Background(), &domain.Profile{Handle: "alice", Email: "alice@example.com"})
		assert.ErrorIs(t, err, domain.ErrHandleExists)
	})

	t.Run("duplicate_email", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewProfileRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(profileInsertQuery)).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "profiles_email_key"})

		err = repo.Create(context.Background(), &domain.Profile{Handle: "alice", Email: "alice@example.com"})
		assert.ErrorIs(t, err, domain.ErrEmailExists)
	})

	t.Run("database_error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewProfileRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(profileInsertQuery)).
			WillReturnError(errors.New("connection refused"))

		err = repo.Create(context.Background(), &domain.Profile{Handle: "alice", Email: "alice@example.com"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrHandleExists)
	})
}

func TestProfileRepository_Get(t *testing.T) {
	columns := []string{"id", "handle", "email", "avatar", "password_hash", "created_at"}

	t.Run("get_by_id", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewProfileRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, handle, email, avatar, password_hash, created_at
		FROM profiles
		WHERE id = $1
	`)).
			WithArgs("profile-1").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("profile-1", "alice", "alice@example.com", "https://cdn/avatar.png", "hash", time.Now()))

		profile, err := repo.GetByID(context.Background(), "profile-1")
		require.NoError(t, err)
		assert.Equal(t, "alice", profile.Handle)
		assert.Equal(t, "https://cdn/avatar.png", profile.Avatar)
	})

	t.Run("get_by_handle", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewProfileRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, handle, email, avatar, password_hash, created_at
		FROM profiles
		WHERE handle = $1
	`)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("profile-1", "alice", "alice@example.com", nil, "hash", time.Now()))

		profile, err := repo.GetByHandle(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, "profile-1", profile.ID)
		assert.Equal(t, "", profile.Avatar)
	})

	t.Run("get_by_email", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewProfileRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, handle, email, avatar, password_hash, created_at
		FROM profiles
		WHERE email = $1
	`)).
			WithArgs("alice@example.com").
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("profile-1", "alice", "alice@example.com", nil, "hash", time.Now()))

		profile, err := repo.GetByEmail(context.Background(), "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "alice", profile.Handle)
	})

	t.Run("not_found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		repo := NewProfileRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT id, handle, email, avatar, password_hash, created_at
		FROM profiles
		WHERE id = $1
	`)).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(columns))

		profile, err := repo.GetByID(context.Background(), "missing")
		assert.ErrorIs(t, err, domain.ErrProfileNotFound)
		assert.Nil(t, profile)
	})
}
