// Package api provides the HTTP surface of the Zero Blast server.
//
// Endpoints:
//
// Player Connections:
//   - GET /ws - Upgrade to a game connection. The player is taken from a
//     signed access token (Authorization: Bearer, the access_token cookie or
//     the access_token query parameter). Missing or invalid tokens get 401.
//
// Operator Views:
//   - GET /api/health - Liveness probe
//   - GET /api/lobby - Queue depth, waiting players and match counters
//   - GET /api/rooms - Live rooms, oldest first
//   - GET /api/rooms/{id} - One live room; 404 once it is gone
//
// Configuration:
//   - GET /api/presets - Board presets the server can deal
//
// All HTTP responses are JSON. Errors use {"error": "<message>"}.
//
// Game traffic never goes through REST: players join the queue, leave it
// and reveal cells over the WebSocket connection.
package api
