// Package observability wires tracing and metrics for the service. This
// file exposes the Prometheus collectors of the moderation pipeline itself;
// HTTP traffic metrics live in the middleware layer. Label sets are kept
// small and enumerable so cardinality stays bounded:
//
//   - outcome:   allowed | enforced | exempt
//   - action:    the enforcement action name (delete, mute, ban, ...)
//   - success:   "true" | "false"
//   - judgement: the classifier verdict name
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// MessagesProcessed counts pipeline runs by outcome.
	MessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_messages_total",
			Help: "Total number of messages run through the moderation pipeline.",
		},
		[]string{"outcome"},
	)

	// EnforcementActions counts executed enforcement actions by kind and
	// success.
	EnforcementActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_enforcement_actions_total",
			Help: "Total number of enforcement actions executed.",
		},
		[]string{"action", "success"},
	)

	// Verdicts counts classifier verdicts by judgement.
	Verdicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_verdicts_total",
			Help: "Total number of classifier verdicts by judgement.",
		},
		[]string{"judgement"},
	)

	// ClassifyDuration tracks end-to-end classification latency, including
	// job polling. Buckets cover the 1s poll cadence up to the job deadline.
	ClassifyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moderation_classify_duration_seconds",
			Help:    "End-to-end classification latency in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// FloodFlags counts messages the flood guard flagged.
	FloodFlags = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moderation_flood_flags_total",
			Help: "Total number of messages flagged by the flood guard.",
		},
	)

	// NoticesSwept counts deletion notices removed by the sweeper.
	NoticesSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "moderation_notices_swept_total",
			Help: "Total number of deletion notices removed after their grace period.",
		},
	)
)

func init() {
	prometheus.MustRegister(MessagesProcessed, EnforcementActions, Verdicts, ClassifyDuration, FloodFlags, NoticesSwept)
}
