// Package metrics exposes board lifecycle events as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smoothie-happy/events"
)

var (
	// Command metrics
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smoothie_commands_total",
			Help: "Total number of command lifecycle events",
		},
		[]string{"board", "command", "event"},
	)

	commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smoothie_command_duration_seconds",
			Help:    "Duration of the answered attempt of resolved commands",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"board", "command"},
	)

	// Queue metrics
	queueEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smoothie_queue_events_total",
			Help: "Total number of queue state changes",
		},
		[]string{"board", "event"},
	)

	queuePending = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smoothie_queue_pending",
			Help: "Number of commands waiting to start",
		},
		[]string{"board"},
	)

	// Board state metrics
	boardState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smoothie_board_state",
			Help: "Board flags, 1 when set",
		},
		[]string{"board", "flag"},
	)

	// File tree metrics
	fileTreeEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smoothie_filetree_entries",
			Help: "Number of cached entries below the last updated folder",
		},
		[]string{"board", "path"},
	)

	fileTreeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "smoothie_filetree_bytes",
			Help: "Cached size of the last updated folder",
		},
		[]string{"board", "path"},
	)
)

// Observer records every event it receives
type Observer struct{}

// NewObserver creates a new metrics observer
func NewObserver() *Observer {
	return &Observer{}
}

func (Observer) OnCommand(e events.CommandEvent) {
	commandsTotal.WithLabelValues(e.Address, e.Command.Name, e.Kind.String()).Inc()
	if e.Kind == events.CommandResolved && e.Elapsed > 0 {
		commandDuration.WithLabelValues(e.Address, e.Command.Name).Observe(e.Elapsed.Seconds())
	}
}

func (Observer) OnQueue(e events.QueueEvent) {
	queueEventsTotal.WithLabelValues(e.Address, e.Kind.String()).Inc()
	queuePending.WithLabelValues(e.Address).Set(float64(e.Pending))
}

func (Observer) OnState(e events.StateEvent) {
	boardState.WithLabelValues(e.Address, "online").Set(flag(e.Online))
	boardState.WithLabelValues(e.Address, "alarm").Set(flag(e.Alarm))
	boardState.WithLabelValues(e.Address, "debug").Set(flag(e.Debug))
}

func (Observer) OnFileTree(e events.FileTreeEvent) {
	fileTreeEntries.WithLabelValues(e.Address, e.Path).Set(float64(len(e.Entries)))
	fileTreeBytes.WithLabelValues(e.Address, e.Path).Set(float64(e.Size))
}

func flag(on bool) float64 {
	if on {
		return 1
	}
	return 0
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
