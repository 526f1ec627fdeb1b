package service

import (
	"sync"
)

// Registry maps live connections to the player that authenticated them
type Registry struct {
	players map[string]string

	// Identity lookups in flight per connection, and the connections that
	// were removed while one was running. A lookup that finishes after its
	// connection is gone must not bind it again.
	lookups map[string]int
	gone    map[string]bool

	mu sync.RWMutex
}

// NewRegistry creates an empty connection registry
func NewRegistry() *Registry {
	return &Registry{
		players: make(map[string]string),
		lookups: make(map[string]int),
		gone:    make(map[string]bool),
	}
}

// Bind records playerID as the owner of connectionID, replacing any
// previous binding
func (r *Registry) Bind(connectionID, playerID string) error {
	if connectionID == "" || playerID == "" {
		return ErrUnauthorized
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[connectionID] = playerID
	return nil
}

// beginLookup marks an identity lookup for connectionID as running
func (r *Registry) beginLookup(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups[connectionID]++
}

// finishLookup ends a lookup started with beginLookup. It binds playerID
// unless the lookup failed (empty playerID) or the connection was removed
// while the lookup ran.
func (r *Registry) finishLookup(connectionID, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.gone[connectionID]
	if r.lookups[connectionID]--; r.lookups[connectionID] <= 0 {
		delete(r.lookups, connectionID)
		delete(r.gone, connectionID)
	}

	if removed || connectionID == "" || playerID == "" {
		return ErrUnauthorized
	}
	r.players[connectionID] = playerID
	return nil
}

// Resolve returns the player bound to connectionID
func (r *Registry) Resolve(connectionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	playerID, ok := r.players[connectionID]
	return playerID, ok
}

// Remove drops the binding and returns the player it held
func (r *Registry) Remove(connectionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lookups[connectionID] > 0 {
		r.gone[connectionID] = true
	}

	playerID, ok := r.players[connectionID]
	delete(r.players, connectionID)
	return playerID, ok
}

// Count returns the number of bound connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
