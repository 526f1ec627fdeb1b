package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wricardo/zero-blast/game/service"
)

// Dispatcher receives the events decoded from client connections
type Dispatcher interface {
	Connect(ctx context.Context, connectionID, playerID string) error
	JoinQueue(ctx context.Context, connectionID string) error
	LeaveQueue(ctx context.Context, connectionID string) error
	Move(ctx context.Context, connectionID string, index int) error
	Disconnect(ctx context.Context, connectionID string) error
}

// Hub owns every live game connection and delivers coordinator events to
// them. It implements service.Notifier.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex

	// Register requests from ServeWS
	register chan *Client

	// Unregister requests from read pumps
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	dispatcher Dispatcher
	upgrader   websocket.Upgrader
	log        zerolog.Logger
}

// NewHub creates a new WebSocket hub. With no allowed origins every origin
// is accepted.
func NewHub(logger zerolog.Logger, allowedOrigins ...string) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// SetDispatcher wires the coordinator. It must be called before Run.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.dispatcher = d
}

// Run starts the hub's event loop and blocks until ctx is done, then closes
// every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.registerClient(ctx, client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// ServeWS upgrades an authenticated request and binds the connection to playerID
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, playerID string) {
	if h.dispatcher == nil {
		http.Error(w, "game server not ready", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		id:       uuid.NewString(),
		playerID: playerID,
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
	}
}

// Notify queues ev for connectionID without blocking. A client whose buffer
// is full is disconnected.
func (h *Hub) Notify(connectionID string, ev service.Event) {
	h.mu.RLock()
	client := h.clients[connectionID]
	h.mu.RUnlock()

	if client == nil {
		h.log.Debug().Str("conn", connectionID).Str("event", ev.Name).Msg("notify unknown connection")
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error().Err(err).Str("event", ev.Name).Msg("marshal event")
		return
	}

	if !client.enqueue(data) {
		h.log.Warn().Str("conn", connectionID).Str("player", client.playerID).Msg("send buffer full, dropping client")
		client.conn.Close()
	}
}

// ClientCount returns the number of registered connections
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// registerClient binds the client and starts its pumps
func (h *Hub) registerClient(ctx context.Context, client *Client) {
	client.ctx = ctx

	if err := h.dispatcher.Connect(ctx, client.id, client.playerID); err != nil {
		h.log.Warn().Err(err).Str("conn", client.id).Msg("connect rejected")
		client.conn.Close()
		return
	}

	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info().Str("conn", client.id).Str("player", client.playerID).Int("clients", total).Msg("client registered")

	go client.writePump()
	go client.readPump()
}

// unregisterClient removes a client and lets the coordinator clean up after it
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if h.clients[client.id] != client {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	remaining := len(h.clients)
	h.mu.Unlock()

	client.close()

	if err := h.dispatcher.Disconnect(client.ctx, client.id); err != nil {
		h.log.Error().Err(err).Str("conn", client.id).Msg("disconnect")
	}

	h.log.Info().Str("conn", client.id).Str("player", client.playerID).Int("clients", remaining).Msg("client unregistered")
}

func (h *Hub) shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.unregisterClient(c)
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}

	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}
