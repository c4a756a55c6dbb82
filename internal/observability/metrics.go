package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	protocolMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mergectl",
			Subsystem: "protocol",
			Name:      "messages_total",
			Help:      "Protocol messages by direction and type.",
		},
		[]string{"role", "direction", "type"},
	)
	valuesEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mergectl",
			Subsystem: "merge",
			Name:      "values_emitted_total",
			Help:      "Values handed to the output sink.",
		},
		[]string{"role"},
	)
	overlapSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mergectl",
			Subsystem: "merge",
			Name:      "overlap_steps_total",
			Help:      "Head-exchange steps that emitted at least one value.",
		},
		[]string{"role"},
	)
	fetchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mergectl",
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "HTTP fetch attempts by outcome.",
		},
		[]string{"outcome"},
	)
	fetchLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mergectl",
			Subsystem: "fetch",
			Name:      "request_duration_seconds",
			Help:      "HTTP fetch duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(protocolMessages, valuesEmitted, overlapSteps,
			fetchRequests, fetchLatency)
	})
}

func RecordProtocolMessage(role, direction, msgType string) {
	protocolMessages.WithLabelValues(role, direction, msgType).Inc()
}

func RecordValuesEmitted(role string, n int) {
	valuesEmitted.WithLabelValues(role).Add(float64(n))
}

func RecordOverlapStep(role string) {
	overlapSteps.WithLabelValues(role).Inc()
}

func RecordFetchRequest(outcome string, duration time.Duration) {
	fetchRequests.WithLabelValues(outcome).Inc()
	fetchLatency.Observe(duration.Seconds())
}
