package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/zero-blast/game/engine"
)

var (
	ErrGameAlreadyFinished = errors.New("game is already finished")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrNotParticipant      = errors.New("player is not part of this game")
)

// Slot is a session-local seat. Slot 1 always moves first.
type Slot int

const (
	NoSlot Slot = 0
	Slot1  Slot = 1
	Slot2  Slot = 2
)

// Other returns the opposing slot
func (s Slot) Other() Slot {
	switch s {
	case Slot1:
		return Slot2
	case Slot2:
		return Slot1
	}
	return NoSlot
}

// Status is the lifecycle state of a game
type Status string

const (
	Playing  Status = "playing"
	Finished Status = "finished"
)

// MoveOutcome describes the effect of a successful move
type MoveOutcome struct {
	Index       int                  `json:"index"`
	Value       int                  `json:"value"`
	Reveal      engine.RevealOutcome `json:"reveal"`
	MovedSlot   Slot                 `json:"moved_slot"`
	CurrentSlot Slot                 `json:"current_slot"`
	WinnerSlot  Slot                 `json:"winner_slot,omitempty"`
	Status      Status               `json:"status"`
}

// Finished reports whether the move ended the game
func (o MoveOutcome) Finished() bool {
	return o.Status == Finished
}

// Snapshot is an immutable copy of a session's state
type Snapshot struct {
	ID          string        `json:"id"`
	Player1ID   string        `json:"player1_id"`
	Player2ID   string        `json:"player2_id"`
	Cells       []engine.Cell `json:"cells"`
	CurrentSlot Slot          `json:"current_slot"`
	WinnerSlot  Slot          `json:"winner_slot,omitempty"`
	Status      Status        `json:"status"`
	Revealed    int           `json:"revealed"`
	CreatedAt   time.Time     `json:"created_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
}

// Finished reports whether the game is over
func (s Snapshot) Finished() bool {
	return s.Status == Finished
}

// PlayerID returns the player occupying slot
func (s Snapshot) PlayerID(slot Slot) string {
	switch slot {
	case Slot1:
		return s.Player1ID
	case Slot2:
		return s.Player2ID
	}
	return ""
}

// Session is one two-player game over a single board.
// All methods are safe for concurrent use.
type Session struct {
	ID        string
	Player1ID string
	Player2ID string
	CreatedAt time.Time

	mu         sync.Mutex
	board      *engine.Board
	current    Slot
	winner     Slot
	status     Status
	finishedAt time.Time
}

// New creates a session in the Playing state with slot 1 to move
func New(id, player1ID, player2ID string, board *engine.Board) *Session {
	return &Session{
		ID:        id,
		Player1ID: player1ID,
		Player2ID: player2ID,
		CreatedAt: time.Now(),
		board:     board,
		current:   Slot1,
		status:    Playing,
	}
}

// SlotOf resolves a player identifier to its slot
func (s *Session) SlotOf(playerID string) Slot {
	switch playerID {
	case s.Player1ID:
		return Slot1
	case s.Player2ID:
		return Slot2
	}
	return NoSlot
}

// PlayerID returns the player occupying slot
func (s *Session) PlayerID(slot Slot) string {
	switch slot {
	case Slot1:
		return s.Player1ID
	case Slot2:
		return s.Player2ID
	}
	return ""
}

// ApplyMove reveals index on behalf of playerID. A failed move leaves the
// session untouched.
func (s *Session) ApplyMove(playerID string, index int) (MoveOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == Finished {
		return MoveOutcome{}, ErrGameAlreadyFinished
	}

	slot := s.SlotOf(playerID)
	if slot == NoSlot {
		return MoveOutcome{}, fmt.Errorf("%w: %s", ErrNotParticipant, playerID)
	}
	if slot != s.current {
		return MoveOutcome{}, ErrNotYourTurn
	}

	reveal, err := s.board.Reveal(index)
	if err != nil {
		return MoveOutcome{}, err
	}
	cell, _ := s.board.Cell(index)

	if reveal == engine.Loss {
		s.winner = s.current.Other()
		s.status = Finished
		s.finishedAt = time.Now()
	} else {
		s.current = s.current.Other()
	}

	return MoveOutcome{
		Index:       index,
		Value:       cell.Value,
		Reveal:      reveal,
		MovedSlot:   slot,
		CurrentSlot: s.current,
		WinnerSlot:  s.winner,
		Status:      s.status,
	}, nil
}

// Finished reports whether the game is over
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == Finished
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:          s.ID,
		Player1ID:   s.Player1ID,
		Player2ID:   s.Player2ID,
		Cells:       s.board.Cells(),
		CurrentSlot: s.current,
		WinnerSlot:  s.winner,
		Status:      s.status,
		Revealed:    s.board.RevealedCount(),
		CreatedAt:   s.CreatedAt,
	}
	if s.status == Finished {
		finishedAt := s.finishedAt
		snap.FinishedAt = &finishedAt
	}
	return snap
}
