package sse

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/artcache/logger"
)

type connectedEvent struct {
	ClientID string   `json:"client_id"`
	Topics   []string `json:"topics,omitempty"`
}

// ServeHTTP streams events to one client until it disconnects or the hub
// stops. The optional "topics" query parameter is a comma-separated
// filter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	log := h.log.WithContext(r.Context())

	// Streams outlive the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("could not clear write deadline", logger.Fields("error", err.Error()))
	}

	var topics []string
	if raw := r.URL.Query().Get("topics"); raw != "" {
		topics = strings.Split(raw, ",")
	}
	client := NewClient(uuid.NewString(), h.buffer, topics...)
	if !h.Register(client) {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer h.Unregister(client)

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	hello, _ := jsonEvent(EventConnected, connectedEvent{ClientID: client.ID(), Topics: topics})
	if _, err := hello.WriteTo(w); err != nil {
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(h.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-client.Events():
			if !ok {
				return
			}
			if _, err := e.WriteTo(w); err != nil {
				log.Debug("stream write failed", logger.Fields("client_id", client.ID(), "error", err.Error()))
				return
			}
			flusher.Flush()
		case now := <-keepAlive.C:
			if _, err := fmt.Fprintf(w, ": keepalive %d\n\n", now.Unix()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
