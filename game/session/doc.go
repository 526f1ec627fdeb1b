// Package session provides game sessions and the room directory for Zero Blast.
//
// The session package implements:
//   - The per-game turn state machine (Playing -> Finished)
//   - Rooms binding a session to its two live connections
//   - A thread-safe directory indexing rooms by session, connection and player
//
// Core Types:
//
// Session owns one board, the two player identifiers and the turn/outcome
// state. ApplyMove validates in a fixed order: finished game, wrong turn,
// then the board's own checks. Revealing a nonzero cell passes the turn;
// revealing a loss marker finishes the game in favour of the other slot.
//
// Room is the authority for translating a connection or player back to a
// slot. Directory is the lookup surface used by move and disconnect handling.
//
// Concurrency:
//
// Session serializes ApplyMove with its own mutex. Room.Do and Room.Close
// serialize the move-and-broadcast pipeline and teardown of one room, so a
// race loser gets ErrNotYourTurn, engine.ErrAlreadyRevealed or ErrRoomClosed
// instead of corrupting state. Directory guards its indexes with a RWMutex.
//
// Usage:
//
//	dir := session.NewDirectory()
//	sess := session.New(id, alice, bob, board)
//	room, err := dir.Create(sess, aliceConn, bobConn, func(r *session.Room) {
//		// send initial state while the room is locked
//	})
//
//	retired, err := room.Do(func() error {
//		_, err := room.Session.ApplyMove(alice, 12)
//		return err
//	})
//	if retired {
//		dir.Remove(room.SessionID)
//	}
//
// Lifecycle:
//
// A room retires itself as soon as its game finishes and is closed at once
// when either participant disconnects. Removal from the directory is
// irreversible.
package session
