package service

import (
	"context"
	"time"

	"github.com/wricardo/zero-blast/game/session"
)

// Outbound event names
const (
	EventMatchmakingStatus    = "MatchmakingStatus"
	EventMatchFound           = "MatchFound"
	EventState                = "State"
	EventGameOver             = "GameOver"
	EventOpponentDisconnected = "OpponentDisconnected"
	EventError                = "Error"
)

// Event is one message addressed to a single connection
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data"`
}

// Notifier delivers events to connections. Notify must not block; it is
// called while room and lobby locks are held.
type Notifier interface {
	Notify(connectionID string, ev Event)
}

// IdentityResolver resolves a connection to its verified player ID
type IdentityResolver interface {
	ResolvePlayer(ctx context.Context, connectionID string) (string, error)
}

// MatchmakingStatus reports the caller's place in the queue. QueueDepth is
// zero once the caller is no longer waiting.
type MatchmakingStatus struct {
	Message    string `json:"message"`
	QueueDepth int    `json:"queueDepth"`
}

// MatchFound tells a player which seat they were given
type MatchFound struct {
	SessionID  string       `json:"sessionId"`
	MySlot     session.Slot `json:"mySlot"`
	OpponentID string       `json:"opponentId"`
	IsMyTurn   bool         `json:"isMyTurn"`
}

// GameOver announces the winner to both participants
type GameOver struct {
	WinnerPlayerID string       `json:"winnerPlayerId"`
	WinnerSlot     session.Slot `json:"winnerSlot"`
	SessionID      string       `json:"sessionId"`
	EndTime        time.Time    `json:"endTime"`
}

// OpponentDisconnected tells the remaining player their room is gone
type OpponentDisconnected struct {
	SessionID string `json:"sessionId"`
}

// ErrorMessage is the payload of an Error event
type ErrorMessage struct {
	Message string `json:"message"`
}

// Stats summarizes the lobby
type Stats struct {
	QueueDepth       int   `json:"queueDepth"`
	ActiveRooms      int   `json:"activeRooms"`
	Connections      int   `json:"connections"`
	MatchesStarted   int64 `json:"matchesStarted"`
	MatchesFinished  int64 `json:"matchesFinished"`
	MatchesAbandoned int64 `json:"matchesAbandoned"`
}

// WaitingPlayer is a queued player as operators see it
type WaitingPlayer struct {
	PlayerID   string    `json:"playerId"`
	Position   int       `json:"position"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// Lobby is the operator view of matchmaking
type Lobby struct {
	Stats   Stats           `json:"stats"`
	Waiting []WaitingPlayer `json:"waiting"`
}

// RoomSummary describes a live room without exposing the board
type RoomSummary struct {
	SessionID   string         `json:"sessionId"`
	Player1ID   string         `json:"player1Id"`
	Player2ID   string         `json:"player2Id"`
	CurrentSlot session.Slot   `json:"currentSlot"`
	Status      session.Status `json:"status"`
	Revealed    int            `json:"revealed"`
	BoardSize   int            `json:"boardSize"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// NewErrorEvent builds the Error event for err
func NewErrorEvent(err error) Event {
	return Event{Name: EventError, Data: ErrorMessage{Message: PublicMessage(err)}}
}

func statusEvent(message string, depth int) Event {
	return Event{Name: EventMatchmakingStatus, Data: MatchmakingStatus{Message: message, QueueDepth: depth}}
}
