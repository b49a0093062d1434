package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// dispatchOutcomesTotal counts dispatcher iterations by outcome.
	// Labels:
	// - outcome: idle | rejected | requeued | sent | dropped | store_error | panic
	dispatchOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courier",
			Subsystem: "dispatch",
			Name:      "outcomes_total",
			Help:      "Dispatcher iterations by outcome.",
		},
		[]string{"outcome"},
	)

	dispatchIterationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "courier",
		Subsystem: "dispatch",
		Name:      "iteration_seconds",
		Help:      "Duration of one dispatcher iteration that handled an event.",
		Buckets:   prometheus.DefBuckets,
	})

	emailSendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courier",
			Subsystem: "email",
			Name:      "send_total",
			Help:      "Emails accepted by the gateway, per tenant.",
		},
		[]string{"tenant_id"},
	)

	emailFailedSendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courier",
			Subsystem: "email",
			Name:      "failed_send_total",
			Help:      "Gateway send attempts that failed, per tenant.",
		},
		[]string{"tenant_id"},
	)

	// emailThrottledTotal counts events sent back to the queue because the tenant quota was exhausted.
	emailThrottledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "courier",
			Subsystem: "email",
			Name:      "throttled_total",
			Help:      "Quota-exhausted dispatch attempts, per tenant.",
		},
		[]string{"tenant_id"},
	)

	emailEnqueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "courier",
		Subsystem: "email",
		Name:      "enqueued_total",
		Help:      "Emails accepted into the queue by the API.",
	})
)

// IncDispatchOutcome increments the dispatcher outcome counter.
func IncDispatchOutcome(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	dispatchOutcomesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDispatchIteration records the duration of a non-idle iteration.
func ObserveDispatchIteration(seconds float64) { dispatchIterationSeconds.Observe(seconds) }

func IncEmailSent(tenantID string) { emailSendTotal.WithLabelValues(tenantLabel(tenantID)).Inc() }

func IncEmailFailedSend(tenantID string) {
	emailFailedSendTotal.WithLabelValues(tenantLabel(tenantID)).Inc()
}

func IncEmailThrottled(tenantID string) {
	emailThrottledTotal.WithLabelValues(tenantLabel(tenantID)).Inc()
}

func IncEmailEnqueued() { emailEnqueuedTotal.Inc() }

// DefaultMaxTenantLabels bounds the distinct tenant_id label values. Tenant IDs arrive from
// unauthenticated requests, so tenants seen after the cap share the "other" label.
const DefaultMaxTenantLabels = 1000

var tenantLabels = struct {
	sync.Mutex
	seen map[string]struct{}
	max  int
}{seen: map[string]struct{}{}, max: DefaultMaxTenantLabels}

// SetMaxTenantLabels changes the cap. Tenants already labelled keep their label.
func SetMaxTenantLabels(n int) {
	tenantLabels.Lock()
	defer tenantLabels.Unlock()
	tenantLabels.max = n
}

func tenantLabel(tenantID string) string {
	if tenantID == "" {
		return "unknown"
	}
	tenantLabels.Lock()
	defer tenantLabels.Unlock()
	if _, ok := tenantLabels.seen[tenantID]; ok {
		return tenantID
	}
	if len(tenantLabels.seen) >= tenantLabels.max {
		return "other"
	}
	tenantLabels.seen[tenantID] = struct{}{}
	return tenantID
}
