package session

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"go-beachwise/types"
)

// Context is everything the server keeps for one signed-in browser session.
// It is created on sign-in (or on the first request carrying a valid session cookie)
// and dropped on sign-out or when the session expires.
type Context struct {
	ID       string
	Identity types.Identity
	Log      *Log
	OpenedAt time.Time

	mu sync.Mutex
	// Number of the oldest log items already submitted as a cleanup.
	submitted int
}

// Pending returns the items logged since the last cleanup submission, newest first.
func (c *Context) Pending() []types.TrashItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Log.Newest(c.Log.Len() - c.submitted)
}

// MarkSubmitted records that the n oldest pending items became part of a cleanup.
func (c *Context) MarkSubmitted(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitted += n
}

// Registry holds the live session contexts keyed by a hash of the session token.
type Registry struct {
	sessions *cache.Cache
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{sessions: cache.New(ttl, 10*time.Minute)}
}

// ID is the registry key of a session token. Raw tokens are never stored.
func ID(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// Open returns the context for token, creating it when absent.
func (r *Registry) Open(token string, identity types.Identity) *Context {
	id := ID(token)
	if v, found := r.sessions.Get(id); found {
		if c := v.(*Context); c.Identity.UID == identity.UID {
			return c
		}
	}

	c := &Context{
		ID:       id,
		Identity: identity,
		Log:      NewLog(),
		OpenedAt: time.Now(),
	}
	// Add fails when a concurrent request opened the same session first.
	if err := r.sessions.Add(id, c, cache.DefaultExpiration); err != nil {
		if v, found := r.sessions.Get(id); found {
			if existing := v.(*Context); existing.Identity.UID == identity.UID {
				return existing
			}
		}
		r.sessions.Set(id, c, cache.DefaultExpiration)
	}
	return c
}

func (r *Registry) Lookup(token string) (*Context, bool) {
	v, found := r.sessions.Get(ID(token))
	if !found {
		return nil, false
	}
	return v.(*Context), true
}

// Close drops the context of one session.
func (r *Registry) Close(token string) {
	r.sessions.Delete(ID(token))
}

// CloseUser drops every context that belongs to uid and returns how many there were.
func (r *Registry) CloseUser(uid string) int {
	n := 0
	for id, item := range r.sessions.Items() {
		if c, ok := item.Object.(*Context); ok && c.Identity.UID == uid {
			r.sessions.Delete(id)
			n++
		}
	}
	return n
}

func (r *Registry) Count() int {
	return r.sessions.ItemCount()
}
