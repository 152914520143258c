package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	fbauth "firebase.google.com/go/auth"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"

	"go-beachwise/logger"
	"go-beachwise/types"

	"go.uber.org/zap"
)

// FirebaseProvider uses the Admin SDK for accounts and session cookies, and the
// Identity Toolkit REST API for password sign-in, which the Admin SDK does not offer.
type FirebaseProvider struct {
	client  *fbauth.Client
	toolkit *identitytoolkit.Service
	ttl     time.Duration
}

func NewFirebaseProvider(client *fbauth.Client, toolkit *identitytoolkit.Service, ttl time.Duration) *FirebaseProvider {
	return &FirebaseProvider{client: client, toolkit: toolkit, ttl: ttl}
}

func (p *FirebaseProvider) SignUp(ctx context.Context, email, password string) (Credentials, error) {
	params := (&fbauth.UserToCreate{}).Email(email).Password(password)
	user, err := p.client.CreateUser(ctx, params)
	if err != nil {
		switch {
		case fbauth.IsEmailAlreadyExists(err):
			return Credentials{}, &Error{Op: "signup", Err: fmt.Errorf("%w: %v", ErrEmailExists, err)}
		case fbauth.IsInvalidEmail(err):
			return Credentials{}, &Error{Op: "signup", Err: fmt.Errorf("%w: %v", ErrInvalidCredentials, err)}
		case strings.Contains(err.Error(), "password must be a string at least 6 characters long"):
			return Credentials{}, &Error{Op: "signup", Err: fmt.Errorf("%w: %v", ErrWeakPassword, err)}
		}
		return Credentials{}, &Error{Op: "signup", Err: err}
	}
	logger.Log.Info("Created user", zap.String("uid", user.UID))

	return p.SignIn(ctx, email, password)
}

func (p *FirebaseProvider) SignIn(ctx context.Context, email, password string) (Credentials, error) {
	// 1. Exchange the password for an ID token
	resp, err := p.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		if isCredentialError(err) {
			return Credentials{}, &Error{Op: "signin", Err: fmt.Errorf("%w: %v", ErrInvalidCredentials, err)}
		}
		return Credentials{}, &Error{Op: "signin", Err: err}
	}

	// 2. Trade the short lived ID token for a session cookie
	cookie, err := p.client.SessionCookie(ctx, resp.IdToken, p.ttl)
	if err != nil {
		return Credentials{}, &Error{Op: "signin", Err: fmt.Errorf("creating session cookie: %w", err)}
	}

	return Credentials{
		Identity:     types.Identity{UID: resp.LocalId, Email: resp.Email},
		SessionToken: cookie,
		ExpiresIn:    p.ttl,
	}, nil
}

func (p *FirebaseProvider) SignOut(ctx context.Context, uid string) error {
	if err := p.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return &Error{Op: "signout", Err: err}
	}
	return nil
}

func (p *FirebaseProvider) VerifySession(ctx context.Context, token string) (types.Identity, error) {
	tok, err := p.client.VerifySessionCookieAndCheckRevoked(ctx, token)
	if err != nil {
		return types.Identity{}, &Error{Op: "verify", Err: fmt.Errorf("%w: %v", ErrUnauthenticated, err)}
	}
	email, _ := tok.Claims["email"].(string)
	return types.Identity{UID: tok.UID, Email: email}, nil
}

// The REST API reports bad credentials as a 400 with a symbolic message.
func isCredentialError(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != 400 {
		return false
	}
	for _, code := range []string{"EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "USER_DISABLED", "MISSING_PASSWORD"} {
		if strings.Contains(gerr.Message, code) {
			return true
		}
	}
	return false
}
