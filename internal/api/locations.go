package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/smarthome-core/internal/location"
)

type roomRequest struct {
	Name string `json:"name"`
}

// handleListRooms returns the caller's rooms.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.rooms.ListRooms(r.Context(), callerID(r))
	if err != nil {
		s.writeServiceError(w, r, "list rooms", err)
		return
	}
	if rooms == nil {
		rooms = []location.Room{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms, "count": len(rooms)})
}

// handleCreateRoom adds a room for the caller.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	room, err := s.rooms.AddRoom(r.Context(), callerID(r), req.Name)
	if err != nil {
		s.writeServiceError(w, r, "create room", err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// handleGetRoom returns one of the caller's rooms.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.rooms.GetRoom(r.Context(), chi.URLParam(r, "id"), callerID(r))
	if err != nil {
		s.writeServiceError(w, r, "get room", err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// handleRenameRoom changes a room's name.
func (s *Server) handleRenameRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	room, err := s.rooms.RenameRoom(r.Context(), chi.URLParam(r, "id"), callerID(r), req.Name)
	if err != nil {
		s.writeServiceError(w, r, "rename room", err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// handleDeleteRoom removes a room. Devices filed under it keep the room ID.
func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.rooms.DeleteRoom(r.Context(), chi.URLParam(r, "id"), callerID(r)); err != nil {
		s.writeServiceError(w, r, "delete room", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
