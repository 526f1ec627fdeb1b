package session

import (
	"errors"
	"sync"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrInvalidSessionID  = errors.New("invalid session ID")
)

// Directory indexes active rooms by session, connection and player
type Directory struct {
	rooms        map[string]*Room
	byConnection map[string]*Room
	byPlayer     map[string]*Room
	mu           sync.RWMutex
}

// NewDirectory creates an empty room directory
func NewDirectory() *Directory {
	return &Directory{
		rooms:        make(map[string]*Room),
		byConnection: make(map[string]*Room),
		byPlayer:     make(map[string]*Room),
	}
}

// Create registers a room for sess played over conn1 (slot 1) and conn2
// (slot 2). onCreate runs under the new room's lock after the room becomes
// visible, so nothing can act on the room before it returns.
func (d *Directory) Create(sess *Session, conn1, conn2 string, onCreate func(*Room)) (*Room, error) {
	if sess == nil || sess.ID == "" {
		return nil, ErrInvalidSessionID
	}

	room := newRoom(sess, conn1, conn2)
	room.mu.Lock()
	defer room.mu.Unlock()

	d.mu.Lock()
	if _, exists := d.rooms[sess.ID]; exists {
		d.mu.Unlock()
		return nil, ErrRoomAlreadyExists
	}
	d.rooms[sess.ID] = room
	d.byConnection[conn1] = room
	d.byConnection[conn2] = room
	d.byPlayer[sess.Player1ID] = room
	d.byPlayer[sess.Player2ID] = room
	d.mu.Unlock()

	if onCreate != nil {
		onCreate(room)
	}
	return room, nil
}

// Get retrieves a room by session ID
func (d *Directory) Get(sessionID string) (*Room, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, exists := d.rooms[sessionID]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// FindByConnection returns the room a connection is playing in
func (d *Directory) FindByConnection(connectionID string) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.byConnection[connectionID]
	return room, ok
}

// FindByPlayer returns the room a player is seated in
func (d *Directory) FindByPlayer(playerID string) (*Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.byPlayer[playerID]
	return room, ok
}

// Remove detaches a room and its session. It is irreversible.
func (d *Directory) Remove(sessionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, exists := d.rooms[sessionID]
	if !exists {
		return ErrRoomNotFound
	}
	delete(d.rooms, sessionID)

	// Only drop index entries that still point at this room
	for _, conn := range []string{room.Connection1, room.Connection2} {
		if d.byConnection[conn] == room {
			delete(d.byConnection, conn)
		}
	}
	for _, player := range []string{room.Player1ID, room.Player2ID} {
		if d.byPlayer[player] == room {
			delete(d.byPlayer, player)
		}
	}

	return nil
}

// List returns all active rooms
func (d *Directory) List() []*Room {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*Room, 0, len(d.rooms))
	for _, room := range d.rooms {
		result = append(result, room)
	}
	return result
}

// Count returns the number of active rooms
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}
