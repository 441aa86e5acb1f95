package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// handleStream pushes the caller's role-scoped view as server-sent
// events: a full snapshot immediately, then the full current matching
// set after every underlying change.
func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {

	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "missing credentials")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	updates, cancel := s.hub.Subscribe(r.Context(), identity)
	defer cancel()

	activeStreams.Inc()
	defer activeStreams.Dec()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case view := <-updates:
			data, err := json.Marshal(view)
			if err != nil {
				s.logger.WithError(err).Error("failed to encode stream snapshot")
				continue
			}
			fmt.Fprintf(w, "event: reports\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
