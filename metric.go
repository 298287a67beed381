package payrail

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const MetricNameSpace = "payrail"

var (
	requirementsIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "requirements_issued",
			Help:      "payment requirements issued with 402 responses",
		},
		[]string{"token"},
	)
	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "verifications",
			Help:      "authorization verifications by outcome",
		},
		[]string{"outcome"},
	)
	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "events_dropped",
			Help:      "payment events dropped by the dispatcher",
		},
	)
	eventsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricNameSpace,
			Name:      "events_failed",
			Help:      "payment event deliveries failed by sink",
		},
		[]string{"sink"},
	)
	replayEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricNameSpace,
			Name:      "replay_entries",
			Help:      "resident consumed nonces in the replay store",
		},
	)
)

func init() {
	prometheus.MustRegister(
		requirementsIssued,
		verifications,
		eventsDropped,
		eventsFailed,
		replayEntries,
	)
}

func metricRequirementIssued(token string) {
	requirementsIssued.WithLabelValues(token).Inc()
}

func metricVerify(outcome string) {
	verifications.WithLabelValues(outcome).Inc()
}

func metricEventDropped() {
	eventsDropped.Inc()
}

func metricEventFailed(sink string) {
	eventsFailed.WithLabelValues(sink).Inc()
}

func metricReplayEntries(n int) {
	replayEntries.Set(float64(n))
}

func NewMetricServer(port string) {
	log.Info("Starting metric server", "listen", port)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(port, nil); err != nil {
			panic(err)
		}
	}()
}
