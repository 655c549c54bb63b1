// Package metrics provides observability for the match server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics.
type Collector struct {
	// Match lifecycle
	MatchesStarted int64
	MatchesEnded   int64
	NightsResolved int64
	DaysResolved   int64
	ResolveLatSum  int64 // nanoseconds
	ResolveLatMax  int64

	// Event metrics
	EventsWritten    int64
	EventWriteLatSum int64
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordMatchStart records a match leaving the lobby.
func (c *Collector) RecordMatchStart() {
	atomic.AddInt64(&c.MatchesStarted, 1)
}

// RecordMatchEnd records a match reaching END.
func (c *Collector) RecordMatchEnd() {
	atomic.AddInt64(&c.MatchesEnded, 1)
}

// RecordResolution records a completed night or day resolution.
func (c *Collector) RecordResolution(night bool, latency time.Duration) {
	if night {
		atomic.AddInt64(&c.NightsResolved, 1)
	} else {
		atomic.AddInt64(&c.DaysResolved, 1)
	}
	atomic.AddInt64(&c.ResolveLatSum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.ResolveLatMax) {
		atomic.StoreInt64(&c.ResolveLatMax, int64(latency))
	}
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	resolves := atomic.LoadInt64(&c.NightsResolved) + atomic.LoadInt64(&c.DaysResolved)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var resolveAvg, eventAvg float64
	if resolves > 0 {
		resolveAvg = float64(atomic.LoadInt64(&c.ResolveLatSum)) / float64(resolves) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"matches": map[string]interface{}{
			"started":          atomic.LoadInt64(&c.MatchesStarted),
			"ended":            atomic.LoadInt64(&c.MatchesEnded),
			"nights_resolved":  atomic.LoadInt64(&c.NightsResolved),
			"days_resolved":    atomic.LoadInt64(&c.DaysResolved),
			"avg_resolve_ms":   resolveAvg,
			"max_resolve_ms":   float64(atomic.LoadInt64(&c.ResolveLatMax)) / 1e6,
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		fmt.Fprintf(w, "# HELP contagio_matches_started Total matches started\n")
		fmt.Fprintf(w, "# TYPE contagio_matches_started counter\n")
		fmt.Fprintf(w, "contagio_matches_started %d\n\n", atomic.LoadInt64(&c.MatchesStarted))

		fmt.Fprintf(w, "# HELP contagio_matches_ended Total matches ended\n")
		fmt.Fprintf(w, "# TYPE contagio_matches_ended counter\n")
		fmt.Fprintf(w, "contagio_matches_ended %d\n\n", atomic.LoadInt64(&c.MatchesEnded))

		fmt.Fprintf(w, "# HELP contagio_resolutions_total Total phase resolutions\n")
		fmt.Fprintf(w, "# TYPE contagio_resolutions_total counter\n")
		fmt.Fprintf(w, "contagio_resolutions_total{phase=\"night\"} %d\n", atomic.LoadInt64(&c.NightsResolved))
		fmt.Fprintf(w, "contagio_resolutions_total{phase=\"day\"} %d\n\n", atomic.LoadInt64(&c.DaysResolved))

		fmt.Fprintf(w, "# HELP contagio_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE contagio_events_written counter\n")
		fmt.Fprintf(w, "contagio_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP contagio_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE contagio_event_write_errors counter\n")
		fmt.Fprintf(w, "contagio_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		fmt.Fprintf(w, "# HELP contagio_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE contagio_ws_connections gauge\n")
		fmt.Fprintf(w, "contagio_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP contagio_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE contagio_ws_messages_total counter\n")
		fmt.Fprintf(w, "contagio_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "contagio_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
