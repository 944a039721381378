package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/event-board/internal/auth"
	"github.com/sakif/event-board/internal/hub"
)

// heartbeatInterval keeps idle SSE connections alive through proxies that
// drop quiet TCP streams.
const heartbeatInterval = 30 * time.Second

// StreamHandler serves live event notifications over Server-Sent Events.
//
// WHY SSE AND NOT WEBSOCKETS?
// The notification channel is strictly one-way: the server announces
// eventCreated/eventUpdated/eventDeleted and the client only listens. SSE
// covers that with plain HTTP — EventSource in the browser, automatic
// reconnection for free, no upgrade handshake to manage.
type StreamHandler struct {
	hub    *hub.Hub
	logger *slog.Logger
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(h *hub.Hub, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{hub: h, logger: logger}
}

// HandleStream subscribes the client to the broadcast hub for the lifetime
// of the connection.
//
// HTTP: GET /api/events/stream
//
// The route sits behind OptionalAuth: anyone may listen, but a presented
// token is still resolved so the log can attribute the listener.
func (s *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Subscribe BEFORE the headers go out. The moment the client sees the
	// 200 it may trigger writes that broadcast, and those must not race
	// past a subscription that hasn't happened yet.
	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if user, ok := auth.UserFromContext(r.Context()); ok {
		s.logger.Info("stream opened", slog.String("userID", user.ID))
	} else {
		s.logger.Info("stream opened", slog.String("userID", "anonymous"))
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			// Client went away (or the server is shutting down).
			return

		case n, ok := <-sub.C:
			if !ok {
				// Hub closed — server shutdown.
				return
			}
			if _, err := w.Write([]byte(hub.FormatSSE(n))); err != nil {
				return
			}
			flusher.Flush()

		case <-heartbeat.C:
			if _, err := w.Write([]byte(hub.Heartbeat)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
