package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Constraint names from the auth_users migration. CreateUser relies on them
// to tell which uniqueness check a concurrent insert lost.
const (
	emailConstraint    = "auth_users_email_key"
	usernameConstraint = "auth_users_username_key"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ AuthRepo = (*PostgresAuthRepo)(nil)

type AuthRepo interface {
	GetUserByID(ctx context.Context, id int32) (*AuthUser, error)
	GetUserByEmail(ctx context.Context, email string) (*AuthUser, error)
	GetUserByUsername(ctx context.Context, username string) (*AuthUser, error)
	CreateUser(ctx context.Context, username, email, password string) (*AuthUser, error)
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	db     DB
	hasher *Hasher
}

func NewPostgresAuthRepo(db DB, hasher *Hasher, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		db:     db,
		hasher: hasher,
	}
}

const userColumns = "id, username, email, password_hash, created_at"

func (r *PostgresAuthRepo) scanUser(row pgx.Row) (*AuthUser, error) {
	var user AuthUser
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user query failed: %w", err)
	}
	return &user, nil
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, id int32) (*AuthUser, error) {
	return r.scanUser(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM admin_panel.auth_users WHERE id = $1", id))
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*AuthUser, error) {
	return r.scanUser(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM admin_panel.auth_users WHERE email = $1", email))
}

func (r *PostgresAuthRepo) GetUserByUsername(ctx context.Context, username string) (*AuthUser, error) {
	return r.scanUser(r.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM admin_panel.auth_users WHERE username = $1", username))
}

// CreateUser hashes the password and inserts a new user, returning the full
// stored record. The service pre-checks for duplicates, but the unique
// constraints are the real safety net: a lost insert race surfaces here as
// ErrEmailTaken or ErrUsernameTaken depending on which constraint fired.
func (r *PostgresAuthRepo) CreateUser(ctx context.Context, username, email, password string) (*AuthUser, error) {
	passwordHash, err := r.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := r.scanUser(r.db.QueryRow(ctx,
		`INSERT INTO admin_panel.auth_users (username, email, password_hash)
	     VALUES ($1, $2, $3)
	     RETURNING `+userColumns,
		username, email, passwordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case emailConstraint:
				return nil, ErrEmailTaken
			case usernameConstraint:
				return nil, ErrUsernameTaken
			default:
				r.logger.WarnContext(ctx, "Unexpected unique violation on auth_users",
					slog.String("constraint", pgErr.ConstraintName))
				return nil, ErrConflict
			}
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return user, nil
}
