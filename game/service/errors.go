package service

import (
	"errors"

	"github.com/wricardo/zero-blast/game/engine"
	"github.com/wricardo/zero-blast/game/matchmaking"
	"github.com/wricardo/zero-blast/game/session"
)

var (
	ErrUnauthorized     = errors.New("invalid or missing authentication token")
	ErrAlreadyInSession = errors.New("player already in a game")
	ErrNotInGame        = errors.New("not in a game")
	ErrInvalidMessage   = errors.New("invalid message")
)

// Kind groups failures by how the caller should treat them
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

// internalMessage replaces the text of unexpected failures sent to clients
const internalMessage = "internal server error"

// Classify maps an error returned by the coordinator to its Kind
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidMessage),
		errors.Is(err, engine.ErrOutOfRange),
		errors.Is(err, matchmaking.ErrInvalidEntry):
		return KindValidation

	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, session.ErrNotParticipant):
		return KindAuthorization

	case errors.Is(err, session.ErrNotYourTurn),
		errors.Is(err, session.ErrGameAlreadyFinished),
		errors.Is(err, engine.ErrAlreadyRevealed),
		errors.Is(err, ErrNotInGame),
		errors.Is(err, ErrAlreadyInSession),
		errors.Is(err, matchmaking.ErrAlreadyQueued),
		errors.Is(err, session.ErrRoomClosed):
		return KindConflict
	}
	return KindInternal
}

// PublicMessage returns the text safe to send to the caller
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if Classify(err) == KindInternal {
		return internalMessage
	}
	return err.Error()
}
