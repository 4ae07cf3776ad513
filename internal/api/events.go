package api

import (
	"encoding/json"
	"net/http"

	"github.com/tedtam/fieldops/internal/store"
)

// handleEvents streams the row-change feed as Server-Sent Events, one
// JSON-encoded store.Event per frame. SSE instead of WebSocket: the
// feed is one-directional and SSE survives plain HTTP proxies.
//
// The subscription lives exactly as long as the request: client
// disconnect tears it down, so an abandoned view cannot leak a live
// callback.
func handleEvents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		// Buffered so the store feed never blocks on a slow client;
		// overflow drops the frame, the client resynchronizes by
		// re-listing. Same at-least-once contract as the source feed.
		// Subscribed before the headers go out: once the client sees
		// the stream open, no change can slip past unobserved.
		ch := make(chan []byte, 64)
		sub := deps.Store.Subscribe(func(ev store.Event) {
			data, err := json.Marshal(ev)
			if err != nil {
				return
			}
			select {
			case ch <- data:
			default:
				deps.Logger.Warn("change feed client too slow, frame dropped")
			}
		})
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		feedClients.Inc()
		defer feedClients.Dec()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-ch:
				w.Write([]byte("data: "))
				w.Write(data)
				w.Write([]byte("\n\n"))
				flusher.Flush()
			}
		}
	}
}
