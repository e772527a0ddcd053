package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	SessionEvents  *prometheus.CounterVec
	Turns          *prometheus.CounterVec
	Commands       *prometheus.CounterVec
	WizardOutcomes *prometheus.CounterVec
	BackendErrors  *prometheus.CounterVec
	WSMessages     *prometheus.CounterVec
	TurnLatency    prometheus.Histogram

	turns *turnWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active assistant sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Dialogue turns by the mode they were handled in.",
		}, []string{"mode"}),
		Commands: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Interpreted commands by kind.",
		}, []string{"kind"}),
		WizardOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_outcomes_total",
			Help:      "Wizard flow terminations by flow and outcome.",
		}, []string{"flow", "outcome"}),
		BackendErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Backend call failures by operation.",
		}, []string{"operation"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_latency_ms",
			Help:      "Latency of one dialogue turn in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		turns: newTurnWindow(256),
	}
}

// ObserveTurn records one handled turn into both the histogram and the
// rolling latency window behind the perf endpoint.
func (m *Metrics) ObserveTurn(mode string, d time.Duration) {
	ms := float64(d.Microseconds()) / 1000
	m.Turns.WithLabelValues(mode).Inc()
	m.TurnLatency.Observe(ms)
	m.turns.Observe(mode, ms)
}

func (m *Metrics) SnapshotTurnLatency() TurnSnapshot {
	return m.turns.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
