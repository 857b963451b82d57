package domain

import (
	"context"
	"time"
)

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	// Authenticate resolves a raw session token to its user.
	Authenticate(ctx context.Context, rawToken string) (*User, error)

	// EnsureUser creates the user unless the username is taken.
	EnsureUser(ctx context.Context, req CreateUserRequest) (*User, error)
	ListOperators(ctx context.Context) ([]User, error)
	AddOperator(ctx context.Context, req CreateUserRequest) (*User, error)
	RemoveOperator(ctx context.Context, username string) error
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Hamlet   string `json:"hamlet"`
}

type LoginRequest struct {
	Username  string
	Password  string
	UserAgent string
	IPAddress string
}

// LoginResult is returned to the client as {success, role, username,
// hamlet}; the raw token only travels in the cookie.
type LoginResult struct {
	Username  string
	Role      string
	Hamlet    *string
	RawToken  string
	ExpiresAt time.Time
}
