package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/quantboard/signal-admin/app/observability/metrics"
)

// sessionState is the internal tri-state result of resolving a session
// cookie. All non-valid states collapse to ErrUnauthenticated at the HTTP
// boundary; the distinction exists for logs and metrics only.
type sessionState int

const (
	sessionValid sessionState = iota
	// sessionExpired covers both unknown and timed-out session ids: the
	// store does not distinguish them.
	sessionExpired
	// sessionOrphaned means the session is live but the user row is gone.
	sessionOrphaned
)

func (s sessionState) String() string {
	switch s {
	case sessionValid:
		return "valid"
	case sessionExpired:
		return "expired"
	case sessionOrphaned:
		return "orphaned"
	}
	return "unknown"
}

// timingDigest is a throwaway bcrypt digest compared against when login hits
// an unknown email, so that path costs a hash comparison too and stays
// indistinguishable from a wrong password.
const timingDigest = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*AuthUser, error)
	Login(ctx context.Context, email, password string) (*AuthUser, string, error)
	CurrentUser(ctx context.Context, sessionID string) (*AuthUser, error)
	Logout(ctx context.Context, sessionID string) error
}

type AuthServiceImpl struct {
	repo     AuthRepo
	sessions SessionStore
	hasher   *Hasher
	logger   *slog.Logger
}

func NewAuthService(repo AuthRepo, sessions SessionStore, hasher *Hasher, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		repo:     repo,
		sessions: sessions,
		hasher:   hasher,
		logger:   logger,
	}
}

var tracer = otel.Tracer("signal-admin/auth")

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Register creates a new user after checking both uniqueness constraints.
// The pre-checks give friendly errors; the insert itself still maps a lost
// duplicate race to the same ErrEmailTaken / ErrUsernameTaken.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) (*AuthUser, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer span.End()
	start := time.Now()
	outcome := "error"
	defer func() {
		m := metrics.Get()
		m.RegisterRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		m.RegisterDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	switch {
	case username == "":
		return nil, validationError("username is required")
	case email == "" || !validEmail(email):
		return nil, validationError("a valid email is required")
	case password == "":
		return nil, validationError("password is required")
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		outcome = "duplicate_email"
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("email lookup failed: %w", err)
	}

	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		outcome = "duplicate_username"
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("username lookup failed: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, username, email, password)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			outcome = "duplicate_email"
		case errors.Is(err, ErrUsernameTaken):
			outcome = "duplicate_username"
		}
		return nil, err
	}

	outcome = "success"
	s.logger.InfoContext(ctx, "User registered",
		slog.Int("user_id", int(user.ID)),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Login verifies the credentials and issues a fresh session. Logging in again
// does not invalidate earlier sessions. Unknown email and wrong password
// produce the same ErrInvalidCredentials.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*AuthUser, string, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()
	start := time.Now()
	outcome := "error"
	defer func() {
		m := metrics.Get()
		m.LoginRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		m.LoginDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	if email == "" || !validEmail(email) {
		return nil, "", validationError("a valid email is required")
	}
	if password == "" {
		return nil, "", validationError("password is required")
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.hasher.Verify(password, timingDigest)
			outcome = "invalid_credentials"
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("email lookup failed: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		outcome = "invalid_credentials"
		return nil, "", ErrInvalidCredentials
	}

	sessionID, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	outcome = "success"
	metrics.Get().ActiveSessions.Add(ctx, 1)
	s.logger.InfoContext(ctx, "User logged in", slog.Int("user_id", int(user.ID)))
	return user, sessionID, nil
}

// CurrentUser resolves a session cookie to the authenticated user.
func (s *AuthServiceImpl) CurrentUser(ctx context.Context, sessionID string) (*AuthUser, error) {
	ctx, span := tracer.Start(ctx, "AuthService.CurrentUser")
	defer span.End()

	user, state, err := s.resolveSession(ctx, sessionID)
	outcome := state.String()
	if err != nil {
		outcome = "error"
	}
	metrics.Get().SessionResolutionsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
	if err != nil {
		return nil, err
	}
	if state != sessionValid {
		return nil, ErrUnauthenticated
	}
	return user, nil
}

func (s *AuthServiceImpl) resolveSession(ctx context.Context, sessionID string) (*AuthUser, sessionState, error) {
	userID, found, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, sessionExpired, fmt.Errorf("session lookup failed: %w", err)
	}
	if !found {
		return nil, sessionExpired, nil
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Live session pointing at a deleted user.
			s.logger.WarnContext(ctx, "Session references a deleted user",
				slog.Int("user_id", int(userID)))
			return nil, sessionOrphaned, nil
		}
		return nil, sessionExpired, fmt.Errorf("user lookup failed: %w", err)
	}

	return user, sessionValid, nil
}

// Logout destroys the session. Destroying an absent or already-destroyed
// session succeeds.
func (s *AuthServiceImpl) Logout(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	if _, found, _ := s.sessions.Get(ctx, sessionID); found {
		metrics.Get().ActiveSessions.Add(ctx, -1)
	}

	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}
