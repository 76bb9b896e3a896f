package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/naturalization-tracker/internal/domain"
)

// ListTrips handles GET /trips.
// Trips are returned most recent first. Supports ?page= and ?limit= query
// parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	page, err := optionalInt(r, "page")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, requestBody(err.Error()))
		return
	}
	limit, err := optionalInt(r, "limit")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, requestBody(err.Error()))
		return
	}

	params := domain.NewPaginationParams(page, limit)
	trips := s.trips.Trips()
	writeJSON(w, http.StatusOK, TripList{
		Data: tripsToResponse(trips.Page(params)),
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: len(trips),
		},
	})
}

// CreateTrip handles POST /trips.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var body TripRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}
	id := uuid.New()
	if body.ID != nil && *body.ID != uuid.Nil {
		id = *body.ID
	}
	trip, err := requestToTrip(id, body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	if err := s.trips.AddTrip(r.Context(), trip); err != nil {
		s.writeError(w, r, err, "trip not found")
		return
	}
	writeJSON(w, http.StatusCreated, tripToResponse(trip))
}

// UpdateTrip handles PUT /trips/{id}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body TripRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeDecodeError(w, r, err)
		return
	}
	trip, err := requestToTrip(id, body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}

	if err := s.trips.UpdateTrip(r.Context(), trip); err != nil {
		s.writeError(w, r, err, "trip not found")
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// DeleteTrip handles DELETE /trips/{id}.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.trips.DeleteTrip(r.Context(), id); err != nil {
		s.writeError(w, r, err, "trip not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReloadTrips handles POST /trips/reload: the canonical set is replaced by
// the remote copy when signed in, otherwise by the local copy.
func (s *Server) ReloadTrips(w http.ResponseWriter, r *http.Request) {
	if err := s.trips.LoadTrips(r.Context()); err != nil {
		s.writeError(w, r, err, "trips not found")
		return
	}
	trips := s.trips.Trips()
	writeJSON(w, http.StatusOK, TripList{
		Data:       tripsToResponse(trips),
		Pagination: Pagination{Page: 1, Limit: len(trips), Total: len(trips)},
	})
}

// --- mapping helpers --------------------------------------------------------

// requestToTrip converts a TripRequest body into a domain.Trip with the given id.
// Dates are required; an empty emoji falls back to domain.DefaultEmoji and
// any other value must be one of domain.Emojis.
func requestToTrip(id uuid.UUID, body TripRequest) (domain.Trip, error) {
	if body.StartDate.IsZero() {
		return domain.Trip{}, errors.New("startDate is required")
	}
	if body.EndDate.IsZero() {
		return domain.Trip{}, errors.New("endDate is required")
	}
	emoji := body.Emoji
	if emoji == "" {
		emoji = domain.DefaultEmoji
	}
	if !domain.IsKnownEmoji(emoji) {
		return domain.Trip{}, errors.New("emoji must be one of the trip categories")
	}
	return domain.Trip{
		ID:        id,
		Title:     body.Title,
		StartDate: body.StartDate.Time,
		EndDate:   body.EndDate.Time,
		Emoji:     emoji,
	}, nil
}

// pathID parses the {id} URL parameter, answering 400 when it is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, requestBody("id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}

// optionalInt parses a query parameter, returning nil when it is absent.
func optionalInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, errors.New(name + " must be an integer")
	}
	return &v, nil
}
