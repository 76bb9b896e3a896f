package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// StreamEvents handles GET /events as a server-sent event stream.
// The current snapshot is sent immediately and again after every change.
// A comment line is written every keepAlive so idle proxies keep the
// connection open.
func (s *Server) StreamEvents(w http.ResponseWriter, r *http.Request) {
	snaps, unsubscribe := s.events.Subscribe()
	defer unsubscribe()

	rc := http.NewResponseController(w)
	// The server's WriteTimeout would otherwise end the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			data, err := json.Marshal(snapshotToEvent(snap))
			if err != nil {
				s.log.ErrorContext(r.Context(), "event encode failed", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

const keepAlive = 30 * time.Second
