package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/zero-blast/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Outbound events buffered per client before it is considered too slow.
	sendBufferSize = 256
)

// Inbound client actions
const (
	ActionJoinMatchmaking  = "join_matchmaking"
	ActionLeaveMatchmaking = "leave_matchmaking"
	ActionMove             = "move"
)

// Request is a message sent by a client
type Request struct {
	Action string `json:"action"`
	Index  *int   `json:"index,omitempty"`
}

// Client is one player connection
type Client struct {
	id       string
	playerID string
	hub      *Hub
	conn     *websocket.Conn
	ctx      context.Context

	send   chan []byte
	mu     sync.Mutex
	closed bool
}

// enqueue hands data to the write pump. It reports false when the buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump pumps requests from the WebSocket connection to the dispatcher
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().Err(err).Str("conn", c.id).Msg("websocket read")
			}
			break
		}

		if err := c.handle(message); err != nil {
			c.reportError(err)
		}
	}
}

// handle decodes and dispatches one request. A panic in the dispatcher fails
// only this request.
func (c *Client) handle(message []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic handling request: %v", r)
		}
	}()

	var req Request
	if err := json.Unmarshal(message, &req); err != nil {
		return fmt.Errorf("%w: %v", service.ErrInvalidMessage, err)
	}

	d := c.hub.dispatcher
	switch req.Action {
	case ActionJoinMatchmaking:
		return d.JoinQueue(c.ctx, c.id)
	case ActionLeaveMatchmaking:
		return d.LeaveQueue(c.ctx, c.id)
	case ActionMove:
		if req.Index == nil {
			return fmt.Errorf("%w: index is required", service.ErrInvalidMessage)
		}
		return d.Move(c.ctx, c.id, *req.Index)
	case "":
		return fmt.Errorf("%w: action is required", service.ErrInvalidMessage)
	default:
		return fmt.Errorf("%w: unknown action %q", service.ErrInvalidMessage, req.Action)
	}
}

func (c *Client) reportError(err error) {
	kind := service.Classify(err)
	if kind == service.KindInternal {
		c.hub.log.Error().Err(err).Str("conn", c.id).Str("player", c.playerID).Msg("request failed")
	} else {
		c.hub.log.Debug().Err(err).Str("kind", string(kind)).Str("conn", c.id).Msg("request rejected")
	}
	c.hub.Notify(c.id, service.NewErrorEvent(err))
}

// writePump pumps events from the hub to the WebSocket connection, one frame
// per event
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
