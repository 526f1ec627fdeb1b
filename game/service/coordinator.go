package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wricardo/zero-blast/game/engine"
	"github.com/wricardo/zero-blast/game/matchmaking"
	"github.com/wricardo/zero-blast/game/session"
)

// Matchmaking status messages
const (
	msgWaiting   = "Waiting for an opponent"
	msgLeft      = "Left matchmaking"
	msgNotQueued = "Not in matchmaking"
)

// Options wires a Coordinator. Notifier is required; every other field has
// a working default.
type Options struct {
	Queue     *matchmaking.Queue
	Directory *session.Directory
	Registry  *Registry
	Notifier  Notifier
	Identity  IdentityResolver
	Board     *engine.BoardConfig
	Rand      *rand.Rand
	NewID     func() string
	Logger    zerolog.Logger
}

// Coordinator routes connection events to the queue, the room directory and
// the game sessions, and tells every affected connection what happened.
type Coordinator struct {
	queue     *matchmaking.Queue
	directory *session.Directory
	registry  *Registry
	notifier  Notifier
	identity  IdentityResolver
	board     *engine.BoardConfig
	rng       *rand.Rand
	newID     func() string
	log       zerolog.Logger

	// lobby serializes queue transitions with room creation and teardown.
	// Lock order: lobby, then a room, then the directory.
	lobby sync.Mutex

	started   atomic.Int64
	finished  atomic.Int64
	abandoned atomic.Int64
}

// NewCoordinator creates a coordinator from opts
func NewCoordinator(opts Options) (*Coordinator, error) {
	if opts.Notifier == nil {
		return nil, errors.New("notifier is required")
	}

	board := opts.Board
	if board == nil {
		board = engine.DefaultBoardConfig()
	}
	if err := engine.ValidateBoardConfig(board); err != nil {
		return nil, err
	}

	c := &Coordinator{
		queue:     opts.Queue,
		directory: opts.Directory,
		registry:  opts.Registry,
		notifier:  opts.Notifier,
		identity:  opts.Identity,
		board:     board,
		rng:       opts.Rand,
		newID:     opts.NewID,
		log:       opts.Logger,
	}
	if c.queue == nil {
		c.queue = matchmaking.NewQueue()
	}
	if c.directory == nil {
		c.directory = session.NewDirectory()
	}
	if c.registry == nil {
		c.registry = NewRegistry()
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}

	return c, nil
}

// Connect binds an authenticated player to a new connection
func (c *Coordinator) Connect(ctx context.Context, connectionID, playerID string) error {
	if err := c.registry.Bind(connectionID, playerID); err != nil {
		return err
	}
	c.log.Debug().Str("conn", connectionID).Str("player", playerID).Msg("connected")
	return nil
}

// JoinQueue puts the caller in the matchmaking queue and starts every match
// the queue can now form.
func (c *Coordinator) JoinQueue(ctx context.Context, connectionID string) error {
	playerID, err := c.resolve(ctx, connectionID)
	if err != nil {
		return err
	}

	c.lobby.Lock()
	defer c.lobby.Unlock()

	// Disconnect removes the binding under the lobby lock
	if _, ok := c.registry.Resolve(connectionID); !ok {
		return ErrUnauthorized
	}
	if c.inLiveRoom(playerID, connectionID) {
		return ErrAlreadyInSession
	}

	depth, err := c.queue.Enqueue(playerID, connectionID)
	if err != nil {
		return err
	}
	c.log.Debug().Str("player", playerID).Int("depth", depth).Msg("queued")
	c.notifier.Notify(connectionID, statusEvent(msgWaiting, depth))

	if c.startMatches() > 0 {
		c.refreshWaiting()
	}
	return nil
}

// LeaveQueue removes the caller from the matchmaking queue. Leaving when not
// queued is not an error.
func (c *Coordinator) LeaveQueue(ctx context.Context, connectionID string) error {
	playerID, err := c.resolve(ctx, connectionID)
	if err != nil {
		return err
	}

	c.lobby.Lock()
	defer c.lobby.Unlock()

	if !c.queue.Dequeue(playerID) {
		c.notifier.Notify(connectionID, statusEvent(msgNotQueued, 0))
		return nil
	}

	c.log.Debug().Str("player", playerID).Msg("left queue")
	c.notifier.Notify(connectionID, statusEvent(msgLeft, 0))
	c.startMatches()
	c.refreshWaiting()
	return nil
}

// Move reveals index on behalf of the caller, broadcasts the new state to
// both participants and announces the winner when the move ends the game.
func (c *Coordinator) Move(ctx context.Context, connectionID string, index int) error {
	playerID, err := c.resolve(ctx, connectionID)
	if err != nil {
		return err
	}

	room, ok := c.directory.FindByConnection(connectionID)
	if !ok {
		return ErrNotInGame
	}

	retired, err := room.Do(func() error {
		outcome, err := room.Session.ApplyMove(playerID, index)
		if err != nil {
			return err
		}

		snap := room.Session.Snapshot()
		c.broadcast(room, func(slot session.Slot) Event { return stateEvent(snap, slot) })
		if outcome.Finished() {
			over := gameOverEvent(snap)
			c.broadcast(room, func(session.Slot) Event { return over })
		}
		return nil
	})
	if errors.Is(err, session.ErrRoomClosed) {
		return ErrNotInGame
	}
	if err != nil {
		return err
	}

	if retired {
		c.retire(room)
	}
	return nil
}

// Disconnect forgets a connection. A queued entry is dropped and a live room
// is torn down with one OpponentDisconnected to the remaining player.
func (c *Coordinator) Disconnect(ctx context.Context, connectionID string) error {
	c.lobby.Lock()
	defer c.lobby.Unlock()

	c.registry.Remove(connectionID)

	if entry, ok := c.queue.RemoveConnection(connectionID); ok {
		c.log.Debug().Str("player", entry.PlayerID).Msg("dropped from queue on disconnect")
		c.refreshWaiting()
	}

	room, ok := c.directory.FindByConnection(connectionID)
	if !ok {
		return nil
	}

	slot := room.SlotOfConnection(connectionID)
	closed := room.Close(func() {
		c.notifier.Notify(room.ConnectionOf(slot.Other()), Event{
			Name: EventOpponentDisconnected,
			Data: OpponentDisconnected{SessionID: room.SessionID},
		})
	})

	// A room retired by a finishing move may still be listed
	if err := c.directory.Remove(room.SessionID); err != nil && !errors.Is(err, session.ErrRoomNotFound) {
		return fmt.Errorf("failed to remove room %s: %w", room.SessionID, err)
	}

	if closed {
		c.abandoned.Add(1)
		c.log.Info().Str("session", room.SessionID).Str("player", room.PlayerID(slot)).Msg("match abandoned")
	}
	return nil
}

// Stats returns a snapshot of lobby counters
func (c *Coordinator) Stats() Stats {
	return Stats{
		QueueDepth:       c.queue.Len(),
		ActiveRooms:      c.directory.Count(),
		Connections:      c.registry.Count(),
		MatchesStarted:   c.started.Load(),
		MatchesFinished:  c.finished.Load(),
		MatchesAbandoned: c.abandoned.Load(),
	}
}

// Rooms lists live rooms, oldest first
func (c *Coordinator) Rooms() []RoomSummary {
	rooms := c.directory.List()

	summaries := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		summaries = append(summaries, summarize(room))
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries
}

// Room returns the summary of one live room
func (c *Coordinator) Room(sessionID string) (RoomSummary, error) {
	room, err := c.directory.Get(sessionID)
	if err != nil {
		return RoomSummary{}, err
	}
	return summarize(room), nil
}

func summarize(room *session.Room) RoomSummary {
	snap := room.Session.Snapshot()
	return RoomSummary{
		SessionID:   room.SessionID,
		Player1ID:   room.Player1ID,
		Player2ID:   room.Player2ID,
		CurrentSlot: snap.CurrentSlot,
		Status:      snap.Status,
		Revealed:    snap.Revealed,
		BoardSize:   len(snap.Cells),
		CreatedAt:   room.CreatedAt,
	}
}

// Waiting lists queued players in pairing order
func (c *Coordinator) Waiting() []matchmaking.Entry {
	return c.queue.Waiting()
}

// Lobby returns lobby counters together with the waiting players
func (c *Coordinator) Lobby() Lobby {
	entries := c.queue.Waiting()

	waiting := make([]WaitingPlayer, len(entries))
	for i, e := range entries {
		waiting[i] = WaitingPlayer{PlayerID: e.PlayerID, Position: i + 1, EnqueuedAt: e.EnqueuedAt}
	}
	return Lobby{Stats: c.Stats(), Waiting: waiting}
}

// resolve returns the player bound to connectionID, asking the identity
// resolver when the registry has no entry.
func (c *Coordinator) resolve(ctx context.Context, connectionID string) (string, error) {
	if playerID, ok := c.registry.Resolve(connectionID); ok {
		return playerID, nil
	}
	if c.identity == nil {
		return "", ErrUnauthorized
	}

	c.registry.beginLookup(connectionID)
	playerID, err := c.identity.ResolvePlayer(ctx, connectionID)
	if err != nil {
		playerID = ""
	}
	if err := c.registry.finishLookup(connectionID, playerID); err != nil {
		return "", err
	}
	return playerID, nil
}

func (c *Coordinator) inLiveRoom(playerID, connectionID string) bool {
	if room, ok := c.directory.FindByPlayer(playerID); ok && !room.Closed() {
		return true
	}
	if room, ok := c.directory.FindByConnection(connectionID); ok && !room.Closed() {
		return true
	}
	return false
}

// startMatches turns every pairing the queue can form into a room.
// Caller holds the lobby lock.
func (c *Coordinator) startMatches() int {
	pairings := c.queue.TryMatch()
	for _, p := range pairings {
		if err := c.startMatch(p); err != nil {
			c.log.Error().Err(err).
				Str("player1", p.First.PlayerID).
				Str("player2", p.Second.PlayerID).
				Msg("start match")
			failure := NewErrorEvent(err)
			c.notifier.Notify(p.First.ConnectionID, failure)
			c.notifier.Notify(p.Second.ConnectionID, failure)
		}
	}
	return len(pairings)
}

func (c *Coordinator) startMatch(p matchmaking.Pairing) error {
	// rng is only touched here, under the lobby lock
	board, err := engine.NewBoard(c.board, c.rng)
	if err != nil {
		return fmt.Errorf("failed to generate board: %w", err)
	}

	sess := session.New(c.newID(), p.First.PlayerID, p.Second.PlayerID, board)
	_, err = c.directory.Create(sess, p.First.ConnectionID, p.Second.ConnectionID, func(room *session.Room) {
		snap := sess.Snapshot()
		for _, slot := range []session.Slot{session.Slot1, session.Slot2} {
			conn := room.ConnectionOf(slot)
			c.notifier.Notify(conn, matchFoundEvent(room, slot))
			c.notifier.Notify(conn, stateEvent(snap, slot))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	c.started.Add(1)
	c.log.Info().
		Str("session", sess.ID).
		Str("player1", sess.Player1ID).
		Str("player2", sess.Player2ID).
		Msg("match started")
	return nil
}

// refreshWaiting tells every queued player their current depth.
// Caller holds the lobby lock.
func (c *Coordinator) refreshWaiting() {
	for i, entry := range c.queue.Waiting() {
		c.notifier.Notify(entry.ConnectionID, statusEvent(msgWaiting, i+1))
	}
}

// retire drops a finished room from the directory
func (c *Coordinator) retire(room *session.Room) {
	if err := c.directory.Remove(room.SessionID); err != nil && !errors.Is(err, session.ErrRoomNotFound) {
		c.log.Error().Err(err).Str("session", room.SessionID).Msg("retire room")
		return
	}

	c.finished.Add(1)
	snap := room.Session.Snapshot()
	c.log.Info().
		Str("session", room.SessionID).
		Str("winner", snap.PlayerID(snap.WinnerSlot)).
		Int("revealed", snap.Revealed).
		Msg("match finished")
}

func (c *Coordinator) broadcast(room *session.Room, build func(session.Slot) Event) {
	for _, slot := range []session.Slot{session.Slot1, session.Slot2} {
		c.notifier.Notify(room.ConnectionOf(slot), build(slot))
	}
}
