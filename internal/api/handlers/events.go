package handlers

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/caption-stream/backend/internal/caption"
)

// EventHub fans resolution notifications out to SSE subscribers. It is wired
// as the state store's notifier, so every accepted success or failure
// transition reaches connected clients as a "resolved" event carrying the
// fragment key. Clients re-query state rather than trusting event payloads.
type EventHub struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan string]struct{})}
}

// NotifyResolved implements caption.Notifier. Slow subscribers drop events
// instead of blocking resolution.
func (h *EventHub) NotifyResolved(key caption.Key) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- string(key):
		default:
		}
	}
}

func (h *EventHub) subscribe() (chan string, func()) {
	ch := make(chan string, 64)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// SubscriberCount reports the number of connected event streams.
func (h *EventHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Events streams resolution notifications over Server-Sent Events until the
// client disconnects.
func (h *EventHub) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, unsubscribe := h.subscribe()
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case key := <-ch:
			fmt.Fprintf(w, "event: resolved\ndata: %s\n\n", key)
			flusher.Flush()
		}
	}
}
