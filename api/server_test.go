package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wricardo/zero-blast/auth"
	"github.com/wricardo/zero-blast/game/config"
	"github.com/wricardo/zero-blast/game/engine"
	"github.com/wricardo/zero-blast/game/service"
	"github.com/wricardo/zero-blast/game/session"
	ws "github.com/wricardo/zero-blast/transport/websocket"
)

// MockLobby implements LobbyService for testing
type MockLobby struct {
	LobbyFunc func() service.Lobby
	RoomsFunc func() []service.RoomSummary
	RoomFunc  func(sessionID string) (service.RoomSummary, error)
}

func (m *MockLobby) Lobby() service.Lobby {
	if m.LobbyFunc != nil {
		return m.LobbyFunc()
	}
	return service.Lobby{Waiting: []service.WaitingPlayer{}}
}

func (m *MockLobby) Rooms() []service.RoomSummary {
	if m.RoomsFunc != nil {
		return m.RoomsFunc()
	}
	return []service.RoomSummary{}
}

func (m *MockLobby) Room(sessionID string) (service.RoomSummary, error) {
	if m.RoomFunc != nil {
		return m.RoomFunc(sessionID)
	}
	return service.RoomSummary{}, session.ErrRoomNotFound
}

// MockPresets implements PresetLister for testing
type MockPresets struct {
	ListPresetsFunc func() ([]*config.PresetInfo, error)
}

func (m *MockPresets) ListPresets() ([]*config.PresetInfo, error) {
	if m.ListPresetsFunc != nil {
		return m.ListPresetsFunc()
	}
	return []*config.PresetInfo{}, nil
}

// MockAuth implements Authenticator for testing
type MockAuth struct {
	PlayerFromRequestFunc func(r *http.Request) (string, error)
}

func (m *MockAuth) PlayerFromRequest(r *http.Request) (string, error) {
	if m.PlayerFromRequestFunc != nil {
		return m.PlayerFromRequestFunc(r)
	}
	return "", auth.ErrMissingToken
}

// MockWebSocket implements WebSocketServer for testing
type MockWebSocket struct {
	players []string
}

func (m *MockWebSocket) ServeWS(w http.ResponseWriter, r *http.Request, playerID string) {
	m.players = append(m.players, playerID)
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func newTestServer(lobby *MockLobby, presets *MockPresets, a *MockAuth, hub *MockWebSocket) *Server {
	if lobby == nil {
		lobby = &MockLobby{}
	}
	if presets == nil {
		presets = &MockPresets{}
	}
	if a == nil {
		a = &MockAuth{}
	}
	if hub == nil {
		hub = &MockWebSocket{}
	}
	return NewServer(lobby, presets, a, hub, zerolog.Nop())
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var body map[string]string
	decodeBody(t, rec, &body)
	if body["status"] != "healthy" {
		t.Errorf("Expected healthy status, got %v", body)
	}
}

func TestHandleLobby(t *testing.T) {
	enqueued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	lobby := &MockLobby{
		LobbyFunc: func() service.Lobby {
			return service.Lobby{
				Stats:   service.Stats{QueueDepth: 1, ActiveRooms: 3, MatchesStarted: 9},
				Waiting: []service.WaitingPlayer{{PlayerID: "carol", Position: 1, EnqueuedAt: enqueued}},
			}
		},
	}
	server := newTestServer(lobby, nil, nil, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lobby", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}

	var got service.Lobby
	decodeBody(t, rec, &got)
	if got.Stats.ActiveRooms != 3 || got.Stats.MatchesStarted != 9 {
		t.Errorf("Unexpected stats: %+v", got.Stats)
	}
	if len(got.Waiting) != 1 || got.Waiting[0].PlayerID != "carol" {
		t.Errorf("Unexpected waiting list: %+v", got.Waiting)
	}
}

func TestHandleListRooms(t *testing.T) {
	lobby := &MockLobby{
		RoomsFunc: func() []service.RoomSummary {
			return []service.RoomSummary{
				{SessionID: "s1", Player1ID: "alice", Player2ID: "bob", CurrentSlot: session.Slot1, Status: session.Playing},
				{SessionID: "s2", Player1ID: "carol", Player2ID: "dave", CurrentSlot: session.Slot2, Status: session.Playing},
			}
		},
	}
	server := newTestServer(lobby, nil, nil, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var body struct {
		Count int                   `json:"count"`
		Rooms []service.RoomSummary `json:"rooms"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 2 || len(body.Rooms) != 2 {
		t.Fatalf("Expected 2 rooms, got %+v", body)
	}
	if body.Rooms[1].CurrentSlot != session.Slot2 {
		t.Errorf("Expected slot 2 to move in s2, got %d", body.Rooms[1].CurrentSlot)
	}
}

func TestHandleGetRoom(t *testing.T) {
	lobby := &MockLobby{
		RoomFunc: func(sessionID string) (service.RoomSummary, error) {
			switch sessionID {
			case "s1":
				return service.RoomSummary{SessionID: "s1", Player1ID: "alice", Player2ID: "bob"}, nil
			case "broken":
				return service.RoomSummary{}, errors.New("disk on fire")
			}
			return service.RoomSummary{}, session.ErrRoomNotFound
		},
	}
	server := newTestServer(lobby, nil, nil, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantError  string
	}{
		{name: "found", path: "/api/rooms/s1", wantStatus: http.StatusOK},
		{name: "missing", path: "/api/rooms/gone", wantStatus: http.StatusNotFound, wantError: "room not found"},
		{name: "internal error masked", path: "/api/rooms/broken", wantStatus: http.StatusInternalServerError, wantError: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantError == "" {
				var room service.RoomSummary
				decodeBody(t, rec, &room)
				if room.Player2ID != "bob" {
					t.Errorf("Expected bob in slot 2, got %s", room.Player2ID)
				}
				return
			}
			var body map[string]string
			decodeBody(t, rec, &body)
			if body["error"] != tt.wantError {
				t.Errorf("Expected error %q, got %q", tt.wantError, body["error"])
			}
		})
	}
}

func TestHandleListPresets(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		presets := &MockPresets{
			ListPresetsFunc: func() ([]*config.PresetInfo, error) {
				return []*config.PresetInfo{
					{PresetID: "classic", Name: "classic", Size: 49, LossMarkers: 15, MinValue: 1, MaxValue: 999},
				}, nil
			},
		}
		server := newTestServer(nil, presets, nil, nil)

		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/presets", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rec.Code)
		}
		var got []config.PresetInfo
		decodeBody(t, rec, &got)
		if len(got) != 1 || got[0].LossMarkers != 15 {
			t.Errorf("Unexpected presets: %+v", got)
		}
	})

	t.Run("error", func(t *testing.T) {
		presets := &MockPresets{
			ListPresetsFunc: func() ([]*config.PresetInfo, error) {
				return nil, errors.New("read dir failed")
			},
		}
		server := newTestServer(nil, presets, nil, nil)

		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/presets", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("Expected status 500, got %d", rec.Code)
		}
	})
}

func TestHandleWebSocket_Auth(t *testing.T) {
	a := &MockAuth{
		PlayerFromRequestFunc: func(r *http.Request) (string, error) {
			if r.Header.Get("Authorization") == "Bearer good" {
				return "alice", nil
			}
			return "", auth.ErrInvalidToken
		},
	}

	t.Run("rejected", func(t *testing.T) {
		hub := &MockWebSocket{}
		server := newTestServer(nil, nil, a, hub)

		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("Expected status 401, got %d", rec.Code)
		}
		var body map[string]string
		decodeBody(t, rec, &body)
		if body["error"] != "invalid or missing authentication token" {
			t.Errorf("Unexpected error message: %q", body["error"])
		}
		if len(hub.players) != 0 {
			t.Error("Expected no upgrade for a rejected request")
		}
	})

	t.Run("accepted", func(t *testing.T) {
		hub := &MockWebSocket{}
		server := newTestServer(nil, nil, a, hub)

		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)

		if len(hub.players) != 1 || hub.players[0] != "alice" {
			t.Errorf("Expected upgrade for alice, got %v", hub.players)
		}
	})
}

func TestRouting(t *testing.T) {
	server := newTestServer(nil, nil, nil, nil)

	tests := []struct {
		method     string
		path       string
		wantStatus int
	}{
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
		{http.MethodPost, "/api/lobby", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/api/rooms/s1", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestRecoverPanics(t *testing.T) {
	lobby := &MockLobby{
		LobbyFunc: func() service.Lobby { panic("boom") },
	}
	server := newTestServer(lobby, nil, nil, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lobby", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
}

// End-to-end: real coordinator, hub and token verifier behind the router

const e2eSecret = "e2e-secret"

type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func signToken(t *testing.T, player string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": player,
		"exp":    time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(e2eSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

func startGameServer(t *testing.T) (*httptest.Server, *service.Coordinator) {
	t.Helper()

	hub := ws.NewHub(zerolog.Nop())
	coord, err := service.NewCoordinator(service.Options{
		Notifier: hub,
		Board:    engine.DefaultBoardConfig(),
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("Failed to create coordinator: %v", err)
	}
	hub.SetDispatcher(coord)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	verifier, err := auth.NewVerifier(auth.Config{Secret: e2eSecret})
	if err != nil {
		t.Fatalf("Failed to create verifier: %v", err)
	}
	manager, err := config.NewManager("")
	if err != nil {
		t.Fatalf("Failed to create preset manager: %v", err)
	}

	srv := httptest.NewServer(NewServer(coord, manager, verifier, hub, zerolog.Nop()))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, coord
}

func dialPlayer(t *testing.T, srv *httptest.Server, player string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+signToken(t, player))

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("Failed to dial as %s: %v", player, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, message string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(message)); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, name string) wireEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var ev wireEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("Failed waiting for %s: %v", name, err)
		}
		if ev.Event == name {
			return ev
		}
	}
}

func TestEndToEnd_MatchAndMove(t *testing.T) {
	srv, coord := startGameServer(t)

	alice := dialPlayer(t, srv, "alice")
	bob := dialPlayer(t, srv, "bob")

	send(t, alice, `{"action":"join_matchmaking"}`)
	readUntil(t, alice, service.EventMatchmakingStatus)
	send(t, bob, `{"action":"join_matchmaking"}`)

	var aliceMatch, bobMatch service.MatchFound
	json.Unmarshal(readUntil(t, alice, service.EventMatchFound).Data, &aliceMatch)
	json.Unmarshal(readUntil(t, bob, service.EventMatchFound).Data, &bobMatch)

	if aliceMatch.MySlot != session.Slot1 || !aliceMatch.IsMyTurn || aliceMatch.OpponentID != "bob" {
		t.Errorf("Unexpected match for alice: %+v", aliceMatch)
	}
	if bobMatch.MySlot != session.Slot2 || bobMatch.IsMyTurn || bobMatch.SessionID != aliceMatch.SessionID {
		t.Errorf("Unexpected match for bob: %+v", bobMatch)
	}
	readUntil(t, alice, service.EventState)
	readUntil(t, bob, service.EventState)

	// Out of turn
	send(t, bob, `{"action":"move","index":0}`)
	var msg service.ErrorMessage
	json.Unmarshal(readUntil(t, bob, service.EventError).Data, &msg)
	if msg.Message != "not your turn" {
		t.Errorf("Expected 'not your turn', got %q", msg.Message)
	}

	send(t, alice, `{"action":"move","index":0}`)
	var view service.StateView
	json.Unmarshal(readUntil(t, bob, service.EventState).Data, &view)
	if view.Revealed != 1 || !view.Board[0].Revealed {
		t.Errorf("Expected cell 0 revealed for bob, got %+v", view.Board[0])
	}

	// The room is visible over REST while it lives
	resp, err := http.Get(srv.URL + "/api/rooms/" + aliceMatch.SessionID)
	if err != nil {
		t.Fatalf("GET room failed: %v", err)
	}
	resp.Body.Close()
	if view.Status == session.Playing && resp.StatusCode != http.StatusOK {
		t.Errorf("Expected live room to be found, got %d", resp.StatusCode)
	}

	if stats := coord.Stats(); stats.MatchesStarted != 1 || stats.Connections != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestEndToEnd_OpponentDisconnect(t *testing.T) {
	srv, coord := startGameServer(t)

	alice := dialPlayer(t, srv, "alice")
	bob := dialPlayer(t, srv, "bob")

	send(t, alice, `{"action":"join_matchmaking"}`)
	readUntil(t, alice, service.EventMatchmakingStatus)
	send(t, bob, `{"action":"join_matchmaking"}`)
	readUntil(t, alice, service.EventState)
	readUntil(t, bob, service.EventState)

	alice.Close()

	readUntil(t, bob, service.EventOpponentDisconnected)

	deadline := time.Now().Add(2 * time.Second)
	for coord.Stats().ActiveRooms != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected room to be removed, stats %+v", coord.Stats())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if coord.Stats().MatchesAbandoned != 1 {
		t.Errorf("Expected one abandoned match, got %d", coord.Stats().MatchesAbandoned)
	}
}

func TestEndToEnd_RejectsMissingToken(t *testing.T) {
	srv, _ := startGameServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Expected dial without a token to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 response, got %v", resp)
	}
}
