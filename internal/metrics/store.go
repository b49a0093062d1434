package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// queueStoreUp is 1 when the last ping to the queue store succeeded, else 0.
	queueStoreUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "courier",
		Subsystem: "queue_store",
		Name:      "up",
		Help:      "Queue store availability (1=up, 0=down).",
	})
	// queueStorePingSeconds observes queue store ping latency in seconds.
	queueStorePingSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "courier",
		Subsystem: "queue_store",
		Name:      "ping_seconds",
		Help:      "Queue store ping latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
	// queueDepth is the number of pending events seen at the last health probe.
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "courier",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Pending events in the queue at the last health probe.",
	})

	// directoryUp is 1 when the last ping to the tenant directory database succeeded, else 0.
	directoryUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "courier",
		Subsystem: "tenant_directory",
		Name:      "up",
		Help:      "Tenant directory database availability (1=up, 0=down).",
	})
)

// SetQueueStoreUp sets the queue_store_up gauge to 1/0.
func SetQueueStoreUp(up bool) { setBool(queueStoreUp, up) }

// ObserveQueueStorePing records a queue store ping latency in seconds.
func ObserveQueueStorePing(seconds float64) { queueStorePingSeconds.Observe(seconds) }

func SetQueueDepth(n int64) { queueDepth.Set(float64(n)) }

// SetDirectoryUp sets the tenant_directory_up gauge to 1/0.
func SetDirectoryUp(up bool) { setBool(directoryUp, up) }

func setBool(g prometheus.Gauge, up bool) {
	if up {
		g.Set(1)
		return
	}
	g.Set(0)
}
