// Package service coordinates Zero Blast matches between connected players.
//
// The Coordinator is the single entry point for connection events:
//   - Connect binds an authenticated player to a connection
//   - JoinQueue and LeaveQueue move the player through matchmaking
//   - Move applies a reveal to the player's room
//   - Disconnect tears down whatever the connection owned
//
// Architecture:
//
// The coordinator sits between the transports (WebSocket, HTTP, MCP) and the
// game packages. It owns a matchmaking.Queue, a session.Directory and a
// Registry of connections, and reports every change as Events through an
// injected Notifier. Operations return explicit errors; Classify sorts them
// into validation, authorization, conflict and internal failures so the
// transport can answer the caller with one Error event.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	coord, err := service.NewCoordinator(service.Options{
//		Notifier: hub,
//		Board:    presets.GetDefault(),
//		Logger:   logger,
//	})
//
// Ordering:
//
// Events for a room are queued while the room lock is held, so both players
// see MatchFound and the first State before any move, and nothing follows
// OpponentDisconnected. Notifier implementations must not block.
package service
