package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/wricardo/zero-blast/game/config"
	"github.com/wricardo/zero-blast/game/service"
	"github.com/wricardo/zero-blast/game/session"
)

// LobbyService is the read side of the session coordinator
type LobbyService interface {
	Lobby() service.Lobby
	Rooms() []service.RoomSummary
	Room(sessionID string) (service.RoomSummary, error)
}

// PresetLister lists the board presets the server can deal
type PresetLister interface {
	ListPresets() ([]*config.PresetInfo, error)
}

// Authenticator resolves the player behind an HTTP request
type Authenticator interface {
	PlayerFromRequest(r *http.Request) (string, error)
}

// WebSocketServer upgrades an authenticated request to a player connection
type WebSocketServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, playerID string)
}

// Server represents the REST API server
type Server struct {
	lobby   LobbyService
	presets PresetLister
	auth    Authenticator
	hub     WebSocketServer
	router  *mux.Router
	log     zerolog.Logger
}

// NewServer creates a new API server
func NewServer(lobby LobbyService, presets PresetLister, auth Authenticator, hub WebSocketServer, logger zerolog.Logger) *Server {
	s := &Server{
		lobby:   lobby,
		presets: presets,
		auth:    auth,
		hub:     hub,
		router:  mux.NewRouter(),
		log:     logger,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.recoverPanics, s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Operator views
	api.HandleFunc("/lobby", s.handleLobby).Methods("GET")
	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{id}", s.handleGetRoom).Methods("GET")

	// Configuration
	api.HandleFunc("/presets", s.handleListPresets).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Middleware

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
				respondError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Operator Handlers

func (s *Server) handleLobby(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.lobby.Lobby())
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.lobby.Rooms()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	room, err := s.lobby.Room(id)
	if err != nil {
		if errors.Is(err, session.ErrRoomNotFound) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, service.PublicMessage(err))
		return
	}

	respondJSON(w, http.StatusOK, room)
}

// Configuration Handlers

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.presets.ListPresets()
	if err != nil {
		s.log.Error().Err(err).Msg("list presets")
		respondError(w, http.StatusInternalServerError, "failed to list presets")
		return
	}

	respondJSON(w, http.StatusOK, presets)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	playerID, err := s.auth.PlayerFromRequest(r)
	if err != nil {
		s.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("websocket rejected")
		respondError(w, http.StatusUnauthorized, service.ErrUnauthorized.Error())
		return
	}

	s.hub.ServeWS(w, r, playerID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
