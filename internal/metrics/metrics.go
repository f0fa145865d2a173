package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal    *prometheus.CounterVec
	votesRejectedTotal   *prometheus.CounterVec
	votesRecordedTotal   prometheus.Counter
	eventPublishFailures prometheus.Counter
	registerOnce         sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pollpulse",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the pollpulse API.",
		}, []string{"method", "path", "status"})
		votesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "pollpulse",
			Name:      "votes_recorded_total",
			Help:      "Votes accepted across all rooms.",
		})
		votesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pollpulse",
			Name:      "votes_rejected_total",
			Help:      "Votes rejected, by reason.",
		}, []string{"reason"})
		eventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "pollpulse",
			Name:      "vote_event_publish_failures_total",
			Help:      "Vote events dropped after exhausting publish retries.",
		})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func IncVote() {
	if votesRecordedTotal == nil {
		return
	}
	votesRecordedTotal.Inc()
}

func IncVoteRejected(reason string) {
	if votesRejectedTotal == nil {
		return
	}
	votesRejectedTotal.WithLabelValues(reason).Inc()
}

func IncPublishFailure() {
	if eventPublishFailures == nil {
		return
	}
	eventPublishFailures.Inc()
}
