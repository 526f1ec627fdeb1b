// Package matchmaking holds the FIFO queue of players waiting for an opponent.
//
// TryMatch always pairs the two longest-waiting entries; the first of the
// pair takes slot 1 and moves first. Turning a pairing into a session and a
// room is the coordinator's job.
package matchmaking
