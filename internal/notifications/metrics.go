package notifications

import (
	"time"

	"github.com/bissquit/incident-relay/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Notification actions.
const (
	ActionSend = "send"
	ActionEdit = "edit"
)

var (
	notificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Total webhook messages sent or edited by outcome",
		},
		[]string{"action", "status"},
	)

	notificationSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "notifications",
			Name:      "send_duration_seconds",
			Help:      "Time to send or edit a webhook message",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"action"},
	)
)

// RecordNotification records the outcome of a send or edit.
func RecordNotification(action string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "failed"
		if IsRetryable(err) {
			status = "retryable"
		}
	}
	notificationsSent.WithLabelValues(action, status).Inc()
	notificationSendDuration.WithLabelValues(action).Observe(duration.Seconds())
}
