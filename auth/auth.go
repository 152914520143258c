package auth

import (
	"context"
	"errors"
	"time"

	"go-beachwise/types"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already in use")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrUnauthenticated    = errors.New("not signed in")
)

// Error is what a Provider returns. The cause comes straight from the identity service.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "auth " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Credentials is the result of a successful sign-in.
type Credentials struct {
	Identity     types.Identity
	SessionToken string
	ExpiresIn    time.Duration
}

// Provider is the hosted identity service.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (Credentials, error)
	SignIn(ctx context.Context, email, password string) (Credentials, error)
	// SignOut invalidates every session token issued to uid so far.
	SignOut(ctx context.Context, uid string) error
	VerifySession(ctx context.Context, token string) (types.Identity, error)
}
