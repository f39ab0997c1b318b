package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/smarthome-core/internal/auth"
)

// ─── Request/Response Types ────────────────────────────────────────

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Message  string `json:"message"`
}

type updateUserRequest struct {
	Username string `json:"username"`
	// Password is replaced only when non-empty.
	Password string `json:"password,omitempty"`
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleRegister creates an account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, "register", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": user.ID})
}

// handleLogin checks credentials and sets the session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeUnauthorized(w, "Invalid email or password")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, "login", err)
		return
	}

	if err := s.issueSession(w, user); err != nil {
		s.writeServiceError(w, r, "issue session", err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Message:  "Login successful!",
	})
}

// handleLogout clears the session cookie. It succeeds without a session.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	clearSession(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out."})
}

// handleCurrentUser returns the caller's account.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Get(r.Context(), callerID(r))
	if err != nil {
		s.writeServiceError(w, r, "get current user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleSearchUsers matches q against usernames and emails.
func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeServiceError(w, r, "search users", err)
		return
	}
	if users == nil {
		users = []auth.User{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// handleUpdateUser renames the caller and optionally changes the password.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id != callerID(r) {
		writeForbidden(w, "you can only update your own account")
		return
	}

	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.Update(r.Context(), id, req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, r, "update user", err)
		return
	}

	s.logger.Info("user updated", "user_id", id, "password_changed", req.Password != "")
	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes the caller's account and devices, then ends
// the session.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id != callerID(r) {
		writeForbidden(w, "you can only delete your own account")
		return
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, "delete user", err)
		return
	}

	clearSession(w)
	w.WriteHeader(http.StatusNoContent)
}
