package handler

import (
	"net/http"
	"time"

	"github.com/pkordes/naturalization-tracker/internal/domain"
)

// GetProfile handles GET /profile.
func (s *Server) GetProfile(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, profileToResponse(s.trips.Profile()))
}

// UpdateProfile handles PUT /profile. A null greenCardStartDate clears the date.
func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var body Profile
	if err := decodeJSON(r, &body); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}

	p := domain.EligibilityProfile{MarriedToCitizen: body.MarriedToCitizen}
	if body.GreenCardStartDate != nil {
		p.GreenCardStartDate = body.GreenCardStartDate.Time
	}
	if p.GreenCardStartDate.After(time.Now()) {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("greenCardStartDate must not be in the future"))
		return
	}

	if err := s.trips.UpdateProfile(r.Context(), p); err != nil {
		s.writeError(w, r, err, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, profileToResponse(s.trips.Profile()))
}

// GetSummary handles GET /summary. Values are recomputed against the
// current date on every call.
func (s *Server) GetSummary(w http.ResponseWriter, _ *http.Request) {
	snap := s.trips.Snapshot()
	writeJSON(w, http.StatusOK, summaryToResponse(snap.Summary, snap.Notice))
}

// DismissNotice handles DELETE /notice.
func (s *Server) DismissNotice(w http.ResponseWriter, _ *http.Request) {
	s.trips.DismissNotice()
	w.WriteHeader(http.StatusNoContent)
}
