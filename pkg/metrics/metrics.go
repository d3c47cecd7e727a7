package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deskchat_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "status"})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deskchat_messages_sent_total",
		Help: "User messages accepted by the chat router.",
	})

	FAQHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deskchat_faq_hits_total",
		Help: "Replies answered from the FAQ table.",
	})

	CompletionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deskchat_completion_failures_total",
		Help: "Completion calls that failed and fell back to the apology reply.",
	})

	CompletionSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "deskchat_completion_duration_seconds",
		Help:    "Latency of completion backend calls.",
		Buckets: prometheus.DefBuckets,
	})

	StoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deskchat_store_ops_total",
		Help: "Store operations by kind and result.",
	}, []string{"op", "result"})

	RetentionPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deskchat_retention_conversations_purged_total",
		Help: "Conversations removed by the retention runner.",
	})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
