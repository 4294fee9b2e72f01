package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/rxkit/logger"
)

// DefaultKeepAlive is used when ServeSSE is given no keep-alive interval.
const DefaultKeepAlive = 15 * time.Second

// ServeSSE streams the frames of an already registered client until the
// request ends or the hub closes the client. The client is unregistered
// on return.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, client *Client, keepAlive time.Duration) {
	defer hub.Unregister(client)

	flusher, ok := w.(http.Flusher)
	if !ok {
		log().Error("streaming not supported", logger.Fields(logger.FieldClientID, client.ID()))
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// SSE connections outlive the server's WriteTimeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log().Debug("could not disable write deadline", logger.Fields(
			logger.FieldClientID, client.ID(),
			logger.FieldError, err.Error(),
		))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	connected, _ := json.Marshal(ConnectedEvent{
		ClientID: client.ID(),
		Topic:    client.Topic(),
		Metadata: client.Metadata(),
	})
	writeFrame(w, Message{Event: EventTypeConnected, Data: connected})
	flusher.Flush()

	log().Debug("client connected", logger.Fields(
		logger.FieldClientID, client.ID(),
		"topic", client.Topic(),
		"remote_addr", r.RemoteAddr,
	))

	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log().Debug("client disconnected", logger.Fields(
				logger.FieldClientID, client.ID(),
				"reason", ctx.Err().Error(),
			))
			return

		case msg, ok := <-client.Events():
			if !ok {
				return
			}
			writeFrame(w, msg)
			flusher.Flush()

		case <-ticker.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, msg Message) {
	if msg.Event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}
