// Package websocket provides the WebSocket transport for Zero Blast.
//
// The websocket package implements:
//   - One Client per authenticated connection, identified by a UUID
//   - Decoding of client requests and dispatch to the coordinator
//   - Delivery of coordinator events through the Hub's Notify method
//   - Ping/pong keepalive and slow-client eviction
//
// Message Protocol:
//
// Every frame carries one JSON message:
//   - Incoming: {"action": "join_matchmaking"}, {"action": "leave_matchmaking"},
//     {"action": "move", "index": 12}
//   - Outgoing: {"event": "State", "data": {...}}
//
// A request that fails is answered with a single Error event to the sender.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	coord, _ := service.NewCoordinator(service.Options{Notifier: hub, Logger: logger})
//	hub.SetDispatcher(coord)
//	go hub.Run(ctx)
//
//	// after authenticating the request
//	hub.ServeWS(w, r, playerID)
//
// Connection Lifecycle:
//
// 1. ServeWS upgrades the request and hands the client to the hub loop
// 2. The hub binds connection and player with Connect, then starts the pumps
// 3. Requests flow to the dispatcher, events flow back through Notify
// 4. A read error or a full send buffer unregisters the client, which calls
// Disconnect
package websocket
