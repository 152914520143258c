// Package authtest provides an in-memory auth.Provider for tests.
package authtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-beachwise/auth"
	"go-beachwise/types"
)

type account struct {
	uid      string
	password string
}

type issued struct {
	uid     string
	revoked bool
}

// Provider keeps accounts and session tokens in memory. Sign-out revokes every token
// issued to the user, like refresh token revocation does in Firebase.
type Provider struct {
	mu       sync.Mutex
	accounts map[string]account
	tokens   map[string]*issued
	emails   map[string]string
	TTL      time.Duration
}

func New() *Provider {
	return &Provider{
		accounts: make(map[string]account),
		tokens:   make(map[string]*issued),
		emails:   make(map[string]string),
		TTL:      time.Hour,
	}
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (auth.Credentials, error) {
	p.mu.Lock()
	email = strings.ToLower(email)
	if _, exists := p.accounts[email]; exists {
		p.mu.Unlock()
		return auth.Credentials{}, &auth.Error{Op: "signup", Err: auth.ErrEmailExists}
	}
	if len(password) < 6 {
		p.mu.Unlock()
		return auth.Credentials{}, &auth.Error{Op: "signup", Err: auth.ErrWeakPassword}
	}
	uid := uuid.NewString()
	p.accounts[email] = account{uid: uid, password: password}
	p.emails[uid] = email
	p.mu.Unlock()

	return p.SignIn(ctx, email, password)
}

func (p *Provider) SignIn(_ context.Context, email, password string) (auth.Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	email = strings.ToLower(email)
	acc, ok := p.accounts[email]
	if !ok || acc.password != password {
		return auth.Credentials{}, &auth.Error{Op: "signin", Err: auth.ErrInvalidCredentials}
	}

	token := uuid.NewString()
	p.tokens[token] = &issued{uid: acc.uid}
	return auth.Credentials{
		Identity:     types.Identity{UID: acc.uid, Email: email},
		SessionToken: token,
		ExpiresIn:    p.TTL,
	}, nil
}

func (p *Provider) SignOut(_ context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, t := range p.tokens {
		if t.uid == uid {
			t.revoked = true
		}
	}
	return nil
}

func (p *Provider) VerifySession(_ context.Context, token string) (types.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.tokens[token]
	if !ok || t.revoked {
		return types.Identity{}, &auth.Error{Op: "verify", Err: auth.ErrUnauthenticated}
	}
	return types.Identity{UID: t.uid, Email: p.emails[t.uid]}, nil
}
