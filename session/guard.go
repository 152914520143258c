package session

import (
	"errors"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// ErrBusy is returned when the same operation is already running for a session.
var ErrBusy = errors.New("operation already in progress")

// Guard allows at most one in-flight call per key.
type Guard struct {
	inflight cmap.ConcurrentMap[string, time.Time]
}

func NewGuard() *Guard {
	return &Guard{inflight: cmap.New[time.Time]()}
}

// Acquire claims key and returns the function that releases it.
func (g *Guard) Acquire(key string) (release func(), err error) {
	if !g.inflight.SetIfAbsent(key, time.Now()) {
		return nil, ErrBusy
	}
	return func() { g.inflight.Remove(key) }, nil
}

// InFlight reports how many operations currently hold a key.
func (g *Guard) InFlight() int {
	return g.inflight.Count()
}

// Key builds the guard key for one operation of one session.
func Key(sessionID, op string) string {
	return sessionID + ":" + op
}
