package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "petctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "petctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	serviceEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "petctl",
			Subsystem: "service",
			Name:      "events_total",
			Help:      "Events dispatched by the service driver.",
		},
		[]string{"kind"},
	)
	rejectedMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "petctl",
			Subsystem: "service",
			Name:      "messages_rejected_total",
			Help:      "Participant messages the state machine refused.",
		},
	)
	roundResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "petctl",
			Subsystem: "service",
			Name:      "round_resets_total",
			Help:      "Rounds abandoned after a failed state update.",
		},
	)
	roundsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "petctl",
			Subsystem: "coordinator",
			Name:      "rounds_completed_total",
			Help:      "Rounds that reached the unmask phase.",
		},
	)
	currentPhase = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "petctl",
			Subsystem: "coordinator",
			Name:      "phase",
			Help:      "Current protocol phase (0=idle 1=sum 2=update 3=sum2 4=unmask).",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			serviceEvents,
			rejectedMessages,
			roundResets,
			roundsCompleted,
			currentPhase,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordServiceEvent(kind string) {
	RegisterMetrics()
	serviceEvents.WithLabelValues(kind).Inc()
}

func RecordRejectedMessage() {
	RegisterMetrics()
	rejectedMessages.Inc()
}

func RecordRoundReset() {
	RegisterMetrics()
	roundResets.Inc()
}

func RecordRoundCompleted() {
	RegisterMetrics()
	roundsCompleted.Inc()
}

func RecordPhase(phase int) {
	RegisterMetrics()
	currentPhase.Set(float64(phase))
}
