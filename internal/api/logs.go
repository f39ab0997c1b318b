package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/smarthome-core/internal/maintenance"
)

type createLogRequest struct {
	DeviceID    string `json:"deviceId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateLogRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// handleListLogs returns a device's maintenance history, newest first.
//
// Query parameters:
//   - limit: page size (default 50, max 200)
//   - offset: entries to skip
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var page maintenance.Page
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		page.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		page.Offset = n
	}

	result, err := s.logs.ListForDevice(r.Context(), chi.URLParam(r, "id"), callerID(r), page)
	if err != nil {
		s.writeServiceError(w, r, "list logs", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCreateLog records a maintenance entry.
func (s *Server) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	var req createLogRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	log, err := s.logs.AddLog(r.Context(), callerID(r), req.DeviceID, req.Title, req.Description)
	if err != nil {
		s.writeServiceError(w, r, "create log", err)
		return
	}
	writeJSON(w, http.StatusCreated, log)
}

// handleUpdateLog replaces a log's title and description.
func (s *Server) handleUpdateLog(w http.ResponseWriter, r *http.Request) {
	var req updateLogRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.logs.UpdateLog(r.Context(), chi.URLParam(r, "id"), callerID(r), req.Title, req.Description); err != nil {
		s.writeServiceError(w, r, "update log", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteLog removes a log.
func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	if err := s.logs.DeleteLog(r.Context(), chi.URLParam(r, "id"), callerID(r)); err != nil {
		s.writeServiceError(w, r, "delete log", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
