// Package metrics provides observability for the item server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance and gameplay metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Item lifecycle
	Throws   int64
	Pickups  int64
	Respawns int64
	Pops     int64

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
var collector = NewCollector()

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordTick records a tick cycle completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordThrow counts a thrown item.
func (c *Collector) RecordThrow() { atomic.AddInt64(&c.Throws, 1) }

// RecordPickup counts a picked up item.
func (c *Collector) RecordPickup() { atomic.AddInt64(&c.Pickups, 1) }

// RecordRespawn counts a static item respawn.
func (c *Collector) RecordRespawn() { atomic.AddInt64(&c.Respawns, 1) }

// RecordPop counts a dynamic item removed by its pop timer.
func (c *Collector) RecordPop() { atomic.AddInt64(&c.Pops, 1) }

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

	tickCount := atomic.LoadInt64(&c.TickCount)
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var tickAvg, eventAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"items": map[string]interface{}{
			"throws":   atomic.LoadInt64(&c.Throws),
			"pickups":  atomic.LoadInt64(&c.Pickups),
			"respawns": atomic.LoadInt64(&c.Respawns),
			"pops":     atomic.LoadInt64(&c.Pops),
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

		fmt.Fprintf(w, "# HELP items_tick_count Total tick cycles\n")
		fmt.Fprintf(w, "# TYPE items_tick_count counter\n")
		fmt.Fprintf(w, "items_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP items_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE items_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "items_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP items_lifecycle_total Item lifecycle transitions\n")
		fmt.Fprintf(w, "# TYPE items_lifecycle_total counter\n")
		fmt.Fprintf(w, "items_lifecycle_total{kind=\"throw\"} %d\n", atomic.LoadInt64(&c.Throws))
		fmt.Fprintf(w, "items_lifecycle_total{kind=\"pickup\"} %d\n", atomic.LoadInt64(&c.Pickups))
		fmt.Fprintf(w, "items_lifecycle_total{kind=\"respawn\"} %d\n", atomic.LoadInt64(&c.Respawns))
		fmt.Fprintf(w, "items_lifecycle_total{kind=\"pop\"} %d\n\n", atomic.LoadInt64(&c.Pops))

		fmt.Fprintf(w, "# HELP items_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE items_events_written counter\n")
		fmt.Fprintf(w, "items_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP items_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE items_event_write_errors counter\n")
		fmt.Fprintf(w, "items_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		fmt.Fprintf(w, "# HELP items_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE items_ws_connections gauge\n")
		fmt.Fprintf(w, "items_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP items_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE items_ws_messages_total counter\n")
		fmt.Fprintf(w, "items_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "items_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
