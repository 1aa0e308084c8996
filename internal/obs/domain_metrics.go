package obs

import "github.com/prometheus/client_golang/prometheus"

// PricingMetrics holds the pricing domain collectors. A nil *PricingMetrics
// is valid and records nothing.
type PricingMetrics struct {
	// Operations counts line and totals computations by outcome.
	Operations *prometheus.CounterVec
	// Mismatches counts submissions whose totals disagreed with their items.
	Mismatches *prometheus.CounterVec
	// CacheLookups counts catalog cache hits and misses.
	CacheLookups *prometheus.CounterVec
	// LineItems observes the row count of aggregated documents.
	LineItems prometheus.Histogram
}

// NewPricingMetrics builds and registers the pricing collectors. Collectors
// already registered on reg are reused.
func NewPricingMetrics(namespace string, reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &PricingMetrics{
		Operations: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_operations_total",
			Help:      "Count of pricing operations by outcome.",
		}, []string{"operation", "result"})),
		Mismatches: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_submission_mismatch_total",
			Help:      "Count of submitted documents whose totals did not reconcile.",
		}, []string{"kind"})),
		CacheLookups: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_lookups_total",
			Help:      "Catalog cache lookups by operation and result.",
		}, []string{"operation", "result"})),
		LineItems: register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_document_line_items",
			Help:      "Number of line items per aggregated document.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 250},
		})),
	}
}

// Operation records one pricing operation.
func (m *PricingMetrics) Operation(op, result string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, result).Inc()
}

// Mismatch records a submission that failed reconciliation.
func (m *PricingMetrics) Mismatch(kind string) {
	if m == nil {
		return
	}
	m.Mismatches.WithLabelValues(kind).Inc()
}

// CacheLookup records a catalog cache hit or miss.
func (m *PricingMetrics) CacheLookup(op string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(op, result).Inc()
}

// Items records the size of an aggregated document.
func (m *PricingMetrics) Items(n int) {
	if m == nil {
		return
	}
	m.LineItems.Observe(float64(n))
}
