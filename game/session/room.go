package session

import (
	"errors"
	"sync"
	"time"
)

var ErrRoomClosed = errors.New("room closed")

// Room binds one session to the two live connections playing it
type Room struct {
	SessionID   string
	Player1ID   string
	Player2ID   string
	Connection1 string
	Connection2 string
	CreatedAt   time.Time
	Session     *Session

	mu     sync.Mutex
	closed bool
}

func newRoom(sess *Session, conn1, conn2 string) *Room {
	return &Room{
		SessionID:   sess.ID,
		Player1ID:   sess.Player1ID,
		Player2ID:   sess.Player2ID,
		Connection1: conn1,
		Connection2: conn2,
		CreatedAt:   time.Now(),
		Session:     sess,
	}
}

// SlotOf resolves a player identifier to its slot in this room
func (r *Room) SlotOf(playerID string) Slot {
	return r.Session.SlotOf(playerID)
}

// SlotOfConnection resolves a connection to its slot in this room
func (r *Room) SlotOfConnection(connectionID string) Slot {
	switch connectionID {
	case r.Connection1:
		return Slot1
	case r.Connection2:
		return Slot2
	}
	return NoSlot
}

// PlayerID returns the player seated in slot
func (r *Room) PlayerID(slot Slot) string {
	return r.Session.PlayerID(slot)
}

// ConnectionOf returns the connection seated in slot
func (r *Room) ConnectionOf(slot Slot) string {
	switch slot {
	case Slot1:
		return r.Connection1
	case Slot2:
		return r.Connection2
	}
	return ""
}

// Do runs fn while holding the room lock. Once the session is finished the
// room retires itself and retired is reported true exactly once.
func (r *Room) Do(fn func() error) (retired bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false, ErrRoomClosed
	}
	if err := fn(); err != nil {
		return false, err
	}
	if r.Session.Finished() {
		r.closed = true
		return true, nil
	}
	return false, nil
}

// Close shuts the room, running fn under the room lock first. It returns
// false if the room was already closed, in which case fn is not run.
func (r *Room) Close(fn func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return false
	}
	r.closed = true
	if fn != nil {
		fn()
	}
	return true
}

// Closed reports whether the room no longer accepts moves
func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Opponent returns the player seated opposite slot
func (r *Room) Opponent(slot Slot) string {
	return r.PlayerID(slot.Other())
}
