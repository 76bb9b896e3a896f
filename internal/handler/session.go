package handler

import (
	"errors"
	"net/http"
	"strings"
)

// CreateSession handles POST /session. The identity token comes from an
// "Authorization: Bearer" header or, failing that, a {"token": ...} body.
// Signing in syncs the user's trips before the response is written.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		var body SessionRequest
		err := decodeJSON(r, &body)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, err, "")
			return
		}
		if err == nil {
			token = body.Token
		}
	}
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorDetail{Code: "unauthorized", Message: "identity token is required"}})
		return
	}

	userID, err := s.trips.SignIn(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, Session{UserID: userID})
}

// DeleteSession handles DELETE /session. Local trips are kept.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.trips.SignOut(r.Context()); err != nil {
		s.writeError(w, r, err, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func bearerToken(r *http.Request) string {
	const prefix = "bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
