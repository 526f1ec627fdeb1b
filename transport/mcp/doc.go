// Package mcp exposes Zero Blast operator tools over the Model Context Protocol.
//
// The Client is a thin proxy: every tool calls the server's REST API and
// formats the answer as text. Nothing here can change game state.
//
// MCP Tools:
//   - lobby_status: queue depth, live rooms, connections and match counters
//   - list_rooms: live rooms, oldest first
//   - get_room: one live room by session ID
//   - list_presets: board presets the server can deal
//   - game_rules: how a match is played
//
// Transport Modes:
//   - HTTP: HandleHTTP serves JSON-RPC posted to /mcp
//   - Stdio: server.ServeStdio(client.GetMCPServer()) for local MCP clients
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	router.HandleFunc("/mcp", client.HandleHTTP)
package mcp
