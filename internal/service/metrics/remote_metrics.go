package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	RemoteLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "creditrisk",
			Subsystem: "remote_model",
			Name:      "latency_seconds",
			Help:      "Latency of remote model calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	RemoteErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "creditrisk",
			Subsystem: "remote_model",
			Name:      "errors_total",
			Help:      "Failed remote model calls by endpoint",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(RemoteLatency, RemoteErrors)
	})
}

// ObserveRemote records one call to endpoint that started at start.
func ObserveRemote(endpoint string, start time.Time, err error) {
	RemoteLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		RemoteErrors.WithLabelValues(endpoint).Inc()
	}
}
