package sse

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/kbukum/gostream/events"
	"github.com/kbukum/gostream/pipeline"
)

// Stream-level event names. Run events use the pipeline event kinds
// ("run.started", "run.state", "run.completed") as their names.
const (
	// EventTypeConnected is sent when a client successfully connects.
	EventTypeConnected = "connected"

	// EventTypeKeepAlive names the keep-alive comment.
	EventTypeKeepAlive = "keepalive"
)

// RunTopic returns the topic run events of runID are published under.
func RunTopic(runID string) string { return "run:" + runID }

var patternEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`)

// RunFilter returns a client filter matching exactly the run runID, with
// pattern characters in the id taken literally.
func RunFilter(runID string) string { return RunTopic(patternEscaper.Replace(runID)) }

// ForwardRuns relays every run event published on bus to hub as JSON.
// Event IDs increase monotonically across all runs. The returned function
// stops forwarding.
func ForwardRuns(bus *pipeline.Bus, hub *Hub) (stop func()) {
	var seq atomic.Uint64
	return bus.Subscribe(events.Wildcard, func(kind events.Kind, e pipeline.RunEvent) {
		data, err := json.Marshal(e)
		if err != nil {
			hub.log.Warn("Dropping unencodable run event", map[string]interface{}{
				"run_id": e.RunID,
				"error":  err.Error(),
			})
			return
		}
		hub.Publish(RunTopic(e.RunID), Event{
			Name: string(kind),
			ID:   strconv.FormatUint(seq.Add(1), 10),
			Data: data,
		})
	})
}
