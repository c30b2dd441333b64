package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	backendStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "llamagate",
			Subsystem: "backend",
			Name:      "starts_total",
			Help:      "Backend start attempts by result",
		},
		[]string{"result"},
	)
	backendUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "llamagate",
		Subsystem: "backend",
		Name:      "up",
		Help:      "1 while a ready llama-server is running",
	})
	backendHealthWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "llamagate",
		Subsystem: "backend",
		Name:      "health_wait_seconds",
		Help:      "Time from spawn to first health response",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 12),
	})
	backendStops = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "llamagate",
		Subsystem: "backend",
		Name:      "stops_total",
		Help:      "Backends terminated by the supervisor",
	})
)

func init() {
	prometheus.MustRegister(backendStarts, backendUp, backendHealthWait, backendStops)
}
