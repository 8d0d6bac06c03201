package v1

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterEvents streams a session's coordinate resolutions as
// server-sent events. The client subscribes once after opening a session
// and drops pins on the map as they arrive.
func RegisterEvents(r chi.Router, d Deps) {
	r.Get("/session/{sessionID}/events", func(w http.ResponseWriter, req *http.Request) {
		s, ok := d.loadSession(w, req)
		if !ok {
			return
		}
		flusher, canFlush := w.(http.Flusher)
		if !canFlush {
			errJSON(w, req, http.StatusInternalServerError, "streaming_unsupported", "response writer cannot stream")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ch, cancel := d.Broker.Subscribe(s.ID)
		defer cancel()

		for {
			select {
			case <-req.Context().Done():
				return
			case evt, open := <-ch:
				if !open {
					return
				}
				payload, err := json.Marshal(evt)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: coords.resolved\ndata: %s\n\n", payload)
				flusher.Flush()
			}
		}
	})
}
