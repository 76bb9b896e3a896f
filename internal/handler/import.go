package handler

import "net/http"

// ImportTrips handles POST /trips/import. The body is a CSV file with a
// header row; see service.ParseTripsCSV for the accepted columns.
// Requires a signed-in user with premium or an active free trial.
func (s *Server) ImportTrips(w http.ResponseWriter, r *http.Request) {
	n, err := s.imports.ImportCSV(r.Context(), r.Body)
	if err != nil {
		s.writeError(w, r, err, "import not found")
		return
	}
	writeJSON(w, http.StatusOK, ImportResult{Imported: n})
}
