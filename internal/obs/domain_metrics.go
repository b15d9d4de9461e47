package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SubmissionTotal counts invoice submission outcomes by document type.
	SubmissionTotal *prometheus.CounterVec
	// StockValidationTotal counts per-row stock validation outcomes.
	StockValidationTotal *prometheus.CounterVec
	// SnapshotRebuildTotal counts stock snapshot rebuilds by outcome.
	SnapshotRebuildTotal *prometheus.CounterVec
	// SnapshotBuildLatency records snapshot fetch+build latency in milliseconds.
	SnapshotBuildLatency *prometheus.HistogramVec
	// DraftActionsTotal counts reducer actions applied to drafts.
	DraftActionsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SubmissionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_total",
			Help:      "Count of invoice submission outcomes by document type.",
		}, []string{"doc_type", "result"})
		StockValidationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_validation_total",
			Help:      "Count of per-row stock validation outcomes.",
		}, []string{"result"})
		SnapshotRebuildTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_snapshot_rebuild_total",
			Help:      "Count of stock snapshot rebuilds by outcome.",
		}, []string{"result"})
		SnapshotBuildLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stock_snapshot_build_duration_ms",
			Help:      "Latency for stock snapshot fetch and aggregation in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})
		DraftActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draft_actions_total",
			Help:      "Count of reducer actions applied to invoice drafts.",
		}, []string{"action"})

		mustRegisterCollector(reg, SubmissionTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SubmissionTotal = v
			}
		})
		mustRegisterCollector(reg, StockValidationTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				StockValidationTotal = v
			}
		})
		mustRegisterCollector(reg, SnapshotRebuildTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SnapshotRebuildTotal = v
			}
		})
		mustRegisterCollector(reg, SnapshotBuildLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				SnapshotBuildLatency = v
			}
		})
		mustRegisterCollector(reg, DraftActionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DraftActionsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
