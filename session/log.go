package session

import (
	"sync"

	"go-beachwise/types"
)

// Log is the most-recent-first list of trash items classified during one session.
// It has no size bound and no deletion path.
type Log struct {
	mu    sync.RWMutex
	items []types.TrashItem
}

func NewLog() *Log {
	return &Log{}
}

// Append inserts item at the head.
func (l *Log) Append(item types.TrashItem) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, types.TrashItem{})
	copy(l.items[1:], l.items)
	l.items[0] = item
}

// List returns a snapshot, newest first.
func (l *Log) List() []types.TrashItem {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.TrashItem, len(l.items))
	copy(out, l.items)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Newest returns up to n items from the head, newest first.
func (l *Log) Newest(n int) []types.TrashItem {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.items) {
		n = len(l.items)
	}
	if n <= 0 {
		return nil
	}
	out := make([]types.TrashItem, n)
	copy(out, l.items[:n])
	return out
}
