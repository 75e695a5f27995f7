package auth

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostgresAuthRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresAuthRepo(mock, NewHasher(), slog.Default()), mock
}

func userRow(id int32, username, email, hash string, createdAt time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
		AddRow(id, username, email, hash, createdAt)
}

func TestGetUserByEmail(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(
			"SELECT id, username, email, password_hash, created_at FROM admin_panel.auth_users WHERE email = $1")).
			WithArgs("alice@x.com").
			WillReturnRows(userRow(7, "alice", "alice@x.com", "digest", createdAt))

		user, err := repo.GetUserByEmail(ctx, "alice@x.com")
		require.NoError(t, err)
		assert.Equal(t, int32(7), user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "digest", user.PasswordHash)
		assert.Equal(t, createdAt, user.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Absent", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("SELECT id, username, email, password_hash, created_at FROM admin_panel.auth_users").
			WithArgs("ghost@x.com").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetUserByEmail(ctx, "ghost@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetUserByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, username, email, password_hash, created_at FROM admin_panel.auth_users WHERE id = $1")).
		WithArgs(int32(7)).
		WillReturnRows(userRow(7, "alice", "alice@x.com", "digest", time.Now()))

	user, err := repo.GetUserByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByUsername(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, username, email, password_hash, created_at FROM admin_panel.auth_users WHERE username = $1")).
		WithArgs("alice").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetUserByUsername(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		createdAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		mock.ExpectQuery("INSERT INTO admin_panel.auth_users").
			WithArgs("alice", "alice@x.com", pgxmock.AnyArg()).
			WillReturnRows(userRow(1, "alice", "alice@x.com", "digest", createdAt))

		user, err := repo.CreateUser(ctx, "alice", "alice@x.com", "Secret123")
		require.NoError(t, err)
		assert.Equal(t, int32(1), user.ID)
		assert.Equal(t, createdAt, user.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmailConstraintRace", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("INSERT INTO admin_panel.auth_users").
			WithArgs("alice", "alice@x.com", pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "auth_users_email_key"})

		_, err := repo.CreateUser(ctx, "alice", "alice@x.com", "Secret123")
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("UsernameConstraintRace", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("INSERT INTO admin_panel.auth_users").
			WithArgs("alice", "alice2@x.com", pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "auth_users_username_key"})

		_, err := repo.CreateUser(ctx, "alice", "alice2@x.com", "Secret123")
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("UnexpectedStorageError", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("INSERT INTO admin_panel.auth_users").
			WithArgs("alice", "alice@x.com", pgxmock.AnyArg()).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.CreateUser(ctx, "alice", "alice@x.com", "Secret123")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrEmailTaken)
		assert.NotErrorIs(t, err, ErrUsernameTaken)
	})
}
