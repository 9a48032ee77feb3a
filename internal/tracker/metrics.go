package tracker

import (
	"time"

	"github.com/bissquit/incident-relay/internal/domain"
	"github.com/bissquit/incident-relay/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Check outcomes.
const (
	checkSuccess     = "success"
	checkFetchFailed = "fetch_failed"
	checkSaveFailed  = "save_failed"
)

var (
	checksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "tracker",
			Name:      "checks_total",
			Help:      "Total feed checks by feed and outcome",
		},
		[]string{"feed", "result"},
	)

	checkDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "tracker",
			Name:      "check_duration_seconds",
			Help:      "Time to run one feed check cycle",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"feed"},
	)

	lastSuccessfulCheck = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "tracker",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful check by feed",
		},
		[]string{"feed"},
	)

	trackedIncidents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "tracker",
			Name:      "tracked_incidents",
			Help:      "Number of tracked incidents by resolution",
		},
		[]string{"resolved"},
	)

	storeSaveErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "tracker",
			Name:      "store_save_errors_total",
			Help:      "Total failed writes of the tracked incident store",
		},
	)
)

func recordCheck(kind domain.FeedKind, result string, duration time.Duration) {
	checksTotal.WithLabelValues(string(kind), result).Inc()
	checkDuration.WithLabelValues(string(kind)).Observe(duration.Seconds())
	if result == checkSuccess {
		lastSuccessfulCheck.WithLabelValues(string(kind)).SetToCurrentTime()
	}
}

func recordTracked(incidents []domain.TrackedIncident) {
	var resolved, open int
	for _, ti := range incidents {
		if ti.Resolved {
			resolved++
		} else {
			open++
		}
	}
	trackedIncidents.WithLabelValues("true").Set(float64(resolved))
	trackedIncidents.WithLabelValues("false").Set(float64(open))
}

func recordStoreSaveError() {
	storeSaveErrors.Inc()
}
