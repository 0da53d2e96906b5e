package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chain_suggest"

var (
	InteractionsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "interactions_enqueued_total",
		Help:      "Interactions added to the pending queue, by type.",
	}, []string{"type"})

	InteractionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "interactions_resolved_total",
		Help:      "Interactions removed from the pending queue, by type and outcome.",
	}, []string{"type", "outcome"})

	InteractionsWaiting = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "interactions_waiting",
		Help:      "Interactions currently waiting for a decision, by type.",
	}, []string{"type"})

	CommunityFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "community_chain_info_fetches_total",
		Help:      "Community chain info document fetches, by result.",
	}, []string{"result"})
)

// Outcome labels.
const (
	OutcomeApproved  = "approved"
	OutcomeRejected  = "rejected"
	OutcomeExpired   = "expired"
	OutcomeCancelled = "cancelled"

	FetchOK       = "ok"
	FetchNotFound = "not_found"
	FetchError    = "error"
	FetchSkipped  = "skipped"
)

func Handler() http.Handler {
	return promhttp.Handler()
}
