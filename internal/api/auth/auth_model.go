package auth

import (
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("requested item not found")
var ErrEmailTaken = errors.New("email already registered")
var ErrUsernameTaken = errors.New("username already taken")
var ErrConflict = errors.New("item already exists or conflict")
var ErrInvalidCredentials = errors.New("invalid email or password")
var ErrUnauthenticated = errors.New("authentication required")
var ErrValidation = errors.New("invalid input")

// validationError wraps ErrValidation with a client-facing message.
func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// AuthUser is the persisted admin account. PasswordHash never leaves the
// server: it is excluded from every JSON response.
type AuthUser struct {
	ID           int32     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RegisterRequest represents the register request body
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the success body of register and login.
type AuthResponse struct {
	Message string    `json:"message"`
	User    *AuthUser `json:"user"`
}

// UserResponse is the success body of /api/me.
type UserResponse struct {
	User *AuthUser `json:"user"`
}

// MessageResponse is the body of responses carrying only a message.
type MessageResponse struct {
	Message string `json:"message"`
}
