package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DefaultKeepAlive is the keep-alive interval; it stays below common proxy
// idle timeouts.
const DefaultKeepAlive = 30 * time.Second

// ConnectedEvent is sent when a client successfully connects.
type ConnectedEvent struct {
	ClientID string `json:"client_id"`
	Filter   string `json:"filter"`
}

// writeEvent writes e in the text/event-stream format. Multi-line payloads
// are split into several data fields.
func writeEvent(w io.Writer, e Event) error {
	var buf bytes.Buffer
	if e.Name != "" {
		fmt.Fprintf(&buf, "event: %s\n", e.Name)
	}
	if e.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", e.ID)
	}
	for _, line := range bytes.Split(e.Data, []byte("\n")) {
		fmt.Fprintf(&buf, "data: %s\n", line)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// ServeSSE streams events for client until the request context ends, the
// client is unregistered or the hub stops.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, client *Client, keepAlive time.Duration) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		hub.log.Error("Streaming not supported", map[string]interface{}{"client_id": client.id})
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Event streams are long-lived; the server write timeout must not cut them.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		hub.log.Debug("Could not disable write deadline", map[string]interface{}{
			"client_id": client.id,
			"error":     err.Error(),
		})
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if !hub.Register(client) {
		http.Error(w, "event stream closed", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	connected, _ := json.Marshal(ConnectedEvent{ClientID: client.id, Filter: client.filter})
	if err := writeEvent(w, Event{Name: EventTypeConnected, Data: connected}); err != nil {
		return
	}
	flusher.Flush()

	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			hub.log.Debug("Client disconnected", map[string]interface{}{
				"client_id": client.id,
				"reason":    ctx.Err().Error(),
			})
			return

		case e, ok := <-client.Events():
			if !ok {
				return
			}
			if err := writeEvent(w, e); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": %s %d\n\n", EventTypeKeepAlive, time.Now().Unix()); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// RunsHandler serves run events. The optional "run" query parameter limits
// the stream to one run; without it every run is streamed.
func RunsHandler(hub *Hub, keepAlive time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := RunTopic("*")
		if id := c.Query("run"); id != "" {
			filter = RunFilter(id)
		}
		client := NewClient(uuid.NewString(), filter)
		ServeSSE(hub, c.Writer, c.Request, client, keepAlive)
	}
}
