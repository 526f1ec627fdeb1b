package matchmaking

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrAlreadyQueued = errors.New("player already in matchmaking queue")
	ErrInvalidEntry  = errors.New("player and connection IDs are required")
)

// Entry is a player waiting for an opponent
type Entry struct {
	PlayerID     string    `json:"player_id"`
	ConnectionID string    `json:"connection_id"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// Pairing is two entries popped together. First has waited longer and takes
// slot 1.
type Pairing struct {
	First  Entry `json:"first"`
	Second Entry `json:"second"`
}

// Queue is a FIFO of waiting players. All methods are safe for concurrent use.
type Queue struct {
	entries  []Entry
	byPlayer map[string]struct{}
	mu       sync.Mutex
}

// NewQueue creates an empty matchmaking queue
func NewQueue() *Queue {
	return &Queue{
		byPlayer: make(map[string]struct{}),
	}
}

// Enqueue appends a waiting entry and returns the player's 1-based depth
func (q *Queue) Enqueue(playerID, connectionID string) (int, error) {
	if playerID == "" || connectionID == "" {
		return 0, ErrInvalidEntry
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, queued := q.byPlayer[playerID]; queued {
		return 0, ErrAlreadyQueued
	}

	q.entries = append(q.entries, Entry{
		PlayerID:     playerID,
		ConnectionID: connectionID,
		EnqueuedAt:   time.Now(),
	})
	q.byPlayer[playerID] = struct{}{}

	return len(q.entries), nil
}

// Dequeue removes the player's entry. It is a no-op when the player is not
// waiting.
func (q *Queue) Dequeue(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.PlayerID == playerID {
			q.removeAt(i)
			return true
		}
	}
	return false
}

// RemoveConnection removes the entry queued from connectionID, if any
func (q *Queue) RemoveConnection(connectionID string) (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.ConnectionID == connectionID {
			q.removeAt(i)
			return e, true
		}
	}
	return Entry{}, false
}

// TryMatch pops the two oldest entries while at least two are waiting
func (q *Queue) TryMatch() []Pairing {
	q.mu.Lock()
	defer q.mu.Unlock()

	var pairings []Pairing
	for len(q.entries) >= 2 {
		first, second := q.entries[0], q.entries[1]
		q.entries = q.entries[2:]
		delete(q.byPlayer, first.PlayerID)
		delete(q.byPlayer, second.PlayerID)

		pairings = append(pairings, Pairing{First: first, Second: second})
	}

	// Release the backing array once drained
	if len(q.entries) == 0 {
		q.entries = nil
	}
	return pairings
}

// Waiting returns the queued entries in arrival order
func (q *Queue) Waiting() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Position returns the player's 1-based depth, or 0 if not queued
func (q *Queue) Position(playerID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.PlayerID == playerID {
			return i + 1
		}
	}
	return 0
}

// Contains reports whether the player is waiting
func (q *Queue) Contains(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, ok := q.byPlayer[playerID]
	return ok
}

// Len returns the number of waiting players
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

func (q *Queue) removeAt(i int) {
	delete(q.byPlayer, q.entries[i].PlayerID)
	q.entries = append(q.entries[:i], q.entries[i+1:]...)
}
