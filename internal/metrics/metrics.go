// Package metrics exposes Prometheus collectors over the query and RPC
// path, grounded in the teacher's internal/metrics package (promauto
// counters/gauges registered as package-level vars). The teacher's
// host-level collectors (CPU/memory/network via
// shirou/gopsutil, topN domain tracking) are dropped: they instrument the
// OS the resolver runs on, not the DNS resolution engine spec.md scopes
// this repository to (see DESIGN.md). client_golang itself is the
// teacher's own indirect dependency, promoted to direct here.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swandns_queries_total",
		Help: "Total DNS queries received, by transport.",
	}, []string{"transport"})

	QueryTierHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swandns_query_tier_hits_total",
		Help: "Queries answered by each Split Authority tier.",
	}, []string{"tier"})

	ResponseCodes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swandns_response_codes_total",
		Help: "DNS responses sent, by rcode.",
	}, []string{"rcode"})

	ForwardCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swandns_forward_cache_hits_total",
		Help: "Forward Authority lookups served from the positive result cache.",
	})

	ForwardCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swandns_forward_cache_misses_total",
		Help: "Forward Authority lookups that required an upstream query.",
	})

	RPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swandns_rpc_requests_total",
		Help: "RPC requests handled, by method and outcome.",
	}, []string{"method", "outcome"})

	RecordStoreSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swandns_record_store_size",
		Help: "Current number of records in the Record Store.",
	})

	RecordStoreOldestUpdateSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swandns_record_store_oldest_update_seconds",
		Help: "Age in seconds of the least-recently-updated record, 0 if empty.",
	})
)

// Stats mirrors store.Stats so that this package does not import
// internal/store; the server's main loop converts one into the other.
type Stats struct {
	Count      int
	OldestAgeS float64
	HasData    bool
}

// ObserveStoreStats updates the record-store gauges from a snapshot,
// intended to be called on a short periodic tick from the server's main
// loop.
func ObserveStoreStats(s Stats) {
	RecordStoreSize.Set(float64(s.Count))
	if s.HasData {
		RecordStoreOldestUpdateSeconds.Set(s.OldestAgeS)
	} else {
		RecordStoreOldestUpdateSeconds.Set(0)
	}
}
