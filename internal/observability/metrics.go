package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DirectionIn  = "in"
	DirectionOut = "out"

	DropUnknownObject = "unknown_object"
	DropDeletedObject = "deleted_object"

	SyncOK           = "ok"
	SyncTimeout      = "timeout"
	SyncDisconnected = "disconnected"
)

var (
	registerOnce sync.Once

	wireMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waylink",
			Subsystem: "wire",
			Name:      "messages_total",
			Help:      "Protocol messages sent (requests) and received (events).",
		},
		[]string{"direction", "interface", "message"},
	)
	wireFDs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waylink",
			Subsystem: "wire",
			Name:      "fds_total",
			Help:      "File descriptors passed as ancillary data.",
		},
		[]string{"direction"},
	)
	readTruncations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "waylink",
			Subsystem: "transport",
			Name:      "read_truncations_total",
			Help:      "Socket reads that filled the receive buffer.",
		},
	)
	droppedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waylink",
			Subsystem: "dispatch",
			Name:      "dropped_events_total",
			Help:      "Events dropped by the dispatch loop.",
		},
		[]string{"reason"},
	)
	handlerPanics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "waylink",
			Subsystem: "dispatch",
			Name:      "handler_panics_total",
			Help:      "Event handlers that panicked during delivery.",
		},
	)
	syncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "waylink",
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Round-trip barrier duration in seconds.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		},
		[]string{"outcome"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(wireMessages, wireFDs, readTruncations, droppedEvents, handlerPanics, syncDuration)
	})
}

func RecordMessage(direction, iface, message string) {
	RegisterMetrics()
	wireMessages.WithLabelValues(direction, iface, message).Inc()
}

func RecordFDs(direction string, n int) {
	if n <= 0 {
		return
	}
	RegisterMetrics()
	wireFDs.WithLabelValues(direction).Add(float64(n))
}

func RecordReadTruncation() {
	RegisterMetrics()
	readTruncations.Inc()
}

func RecordDroppedEvent(reason string) {
	RegisterMetrics()
	droppedEvents.WithLabelValues(reason).Inc()
}

func RecordHandlerPanic() {
	RegisterMetrics()
	handlerPanics.Inc()
}

func RecordSync(outcome string, duration time.Duration) {
	RegisterMetrics()
	syncDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}
