package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/zero-blast/game/config"
	"github.com/wricardo/zero-blast/game/service"
)

// Version is reported to MCP clients
const Version = "1.0.0"

// RoomsResponse is the body of GET /api/rooms
type RoomsResponse struct {
	Count int                   `json:"count"`
	Rooms []service.RoomSummary `json:"rooms"`
}

// Client is a thin MCP client that proxies operator tools to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API at baseURL
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Zero Blast Operator",
		Version,
		server.WithToolCapabilities(true),
		server.WithInstructions(`Zero Blast - Operator MCP Interface

Read-only view of a running Zero Blast game server. Players are matched in
pairs and take turns revealing cells; revealing a zero loses the game.

AVAILABLE TOOLS:
- lobby_status: Queue depth, live rooms, connections and match counters
- list_rooms: Every live room with its players and progress
- get_room: One room by session ID
- list_presets: Board presets the server can deal
- game_rules: How a match is played`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "lobby_status",
		Description: "Show matchmaking queue, live rooms, connections and match counters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleLobbyStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List live game rooms, oldest first",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_room",
		Description: "Get one live room by session ID",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID of the room",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_presets",
		Description: "List board presets available to the server",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPresets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Explain how a Zero Blast match is played",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// HandleHTTP serves MCP JSON-RPC messages posted to it
func (c *Client) HandleHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	response := c.mcpServer.HandleMessage(r.Context(), body)

	w.Header().Set("Content-Type", "application/json")
	responseData, err := json.Marshal(response)
	if err != nil {
		http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		return
	}
	w.Write(responseData)
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// Tool handlers

func (c *Client) handleLobbyStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var lobby service.Lobby
	if err := c.apiCall(ctx, http.MethodGet, "/api/lobby", nil, &lobby); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatLobby(&lobby)), nil
}

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response RoomsResponse
	if err := c.apiCall(ctx, http.MethodGet, "/api/rooms", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Live Rooms (%d):\n\n", response.Count)
	for i := range response.Rooms {
		result += formatRoom(&response.Rooms[i])
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)
	if sessionID == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	var room service.RoomSummary
	if err := c.apiCall(ctx, http.MethodGet, "/api/rooms/"+sessionID, nil, &room); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRoom(&room)), nil
}

func (c *Client) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var presets []config.PresetInfo
	if err := c.apiCall(ctx, http.MethodGet, "/api/presets", nil, &presets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Presets:\n\n"
	for _, p := range presets {
		result += fmt.Sprintf("• %s (%s)\n  %s\n  Cells: %d, Zeros: %d, Values: %d-%d\n\n",
			p.Name, p.PresetID, p.Description, p.Size, p.LossMarkers, p.MinValue, p.MaxValue)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rules := `Zero Blast - Rules

MATCHMAKING:
• Players join a first-come, first-served queue
• The two longest-waiting players are paired; the earlier one takes slot 1 and moves first

PLAY:
• The board holds hidden cells; most carry distinct values, some carry zero
• Players alternate revealing one hidden cell per turn
• Revealing a nonzero cell passes the turn
• Revealing a zero ends the game; the other player wins

DISCONNECTS:
• Leaving mid-game ends the room; the opponent is told and may queue again
• There are no turn clocks`

	return mcp.NewToolResultText(rules), nil
}

func formatLobby(lobby *service.Lobby) string {
	s := lobby.Stats
	result := "Lobby Status:\n"
	result += fmt.Sprintf("Queue: %d waiting\n", s.QueueDepth)
	result += fmt.Sprintf("Rooms: %d live\n", s.ActiveRooms)
	result += fmt.Sprintf("Connections: %d\n", s.Connections)
	result += fmt.Sprintf("Matches: %d started, %d finished, %d abandoned\n",
		s.MatchesStarted, s.MatchesFinished, s.MatchesAbandoned)

	if len(lobby.Waiting) > 0 {
		result += "\nWaiting:\n"
		for _, w := range lobby.Waiting {
			result += fmt.Sprintf("%d. %s (since %s)\n", w.Position, w.PlayerID, w.EnqueuedAt.Format("15:04:05"))
		}
	}
	return result
}

func formatRoom(room *service.RoomSummary) string {
	return fmt.Sprintf("- %s: %s vs %s, slot %d to move, %d/%d revealed, %s (since %s)\n",
		room.SessionID, room.Player1ID, room.Player2ID, room.CurrentSlot,
		room.Revealed, room.BoardSize, room.Status, room.CreatedAt.Format("15:04:05"))
}
