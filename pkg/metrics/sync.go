package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records reconciliation outcomes for the token sync driver.
type SyncMetrics struct {
	synced        *prometheus.CounterVec
	skipped       prometheus.Counter
	failures      *prometheus.CounterVec
	batchDuration prometheus.Histogram
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	synced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_tokens_total",
		Help: "Tokens reconciled into the index.",
	}, []string{"strategy"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_tokens_skipped_total",
		Help: "Tokens skipped because the ledger reports them unminted.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_token_failures_total",
		Help: "Per-token reconciliation failures.",
	}, []string{"stage"})
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sync_batch_duration_seconds",
		Help:    "Duration of one reconciliation batch.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(synced, skipped, failures, batchDuration)
	return &SyncMetrics{
		synced:        synced,
		skipped:       skipped,
		failures:      failures,
		batchDuration: batchDuration,
	}
}

// IncSynced counts a token successfully written to the index.
func (s *SyncMetrics) IncSynced(strategy string) {
	if s == nil || s.synced == nil {
		return
	}
	s.synced.WithLabelValues(normalizeLabel(strategy)).Inc()
}

// IncSkipped counts an unminted token.
func (s *SyncMetrics) IncSkipped() {
	if s == nil || s.skipped == nil {
		return
	}
	s.skipped.Inc()
}

// IncFailure counts a per-token failure at the named stage.
func (s *SyncMetrics) IncFailure(stage string) {
	if s == nil || s.failures == nil {
		return
	}
	s.failures.WithLabelValues(normalizeLabel(stage)).Inc()
}

// ObserveBatch records the duration of one batch.
func (s *SyncMetrics) ObserveBatch(duration time.Duration) {
	if s == nil || s.batchDuration == nil {
		return
	}
	s.batchDuration.Observe(duration.Seconds())
}
