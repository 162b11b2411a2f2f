package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics records storage engine events. It satisfies store.Observer.
type StoreMetrics struct {
	namespace string

	operationsTotal     *prometheus.CounterVec
	operationDuration   *prometheus.HistogramVec
	decodeFailuresTotal *prometheus.CounterVec
	expiredRemovedTotal *prometheus.CounterVec
	namespaceItems      *prometheus.GaugeVec
	namespaceSize       *prometheus.GaugeVec
	namespaceExpired    *prometheus.GaugeVec
}

// NewStoreMetrics initializes store metrics for one namespace
func NewStoreMetrics(collector *Collector, namespace string) *StoreMetrics {
	return &StoreMetrics{
		namespace: namespace,
		operationsTotal: collector.RegisterCounter(
			MetricOperationsTotal,
			"Total number of store operations",
			[]string{LabelNamespace, LabelOperation, LabelStatus},
		),
		operationDuration: collector.RegisterHistogram(
			MetricOperationDuration,
			"Duration of store operations in seconds",
			[]string{LabelNamespace, LabelOperation},
			nil,
		),
		decodeFailuresTotal: collector.RegisterCounter(
			MetricDecodeFailuresTotal,
			"Total number of stored entries that failed to decode",
			[]string{LabelNamespace, LabelOperation},
		),
		expiredRemovedTotal: collector.RegisterCounter(
			MetricExpiredRemovedTotal,
			"Total number of expired entries physically removed",
			[]string{LabelNamespace, LabelOperation},
		),
		namespaceItems: collector.RegisterGauge(
			MetricNamespaceItems,
			"Number of entries in the namespace at the last info call",
			[]string{LabelNamespace},
		),
		namespaceSize: collector.RegisterGauge(
			MetricNamespaceSizeBytes,
			"Total stored size of the namespace in bytes at the last info call",
			[]string{LabelNamespace},
		),
		namespaceExpired: collector.RegisterGauge(
			MetricNamespaceExpiredItems,
			"Number of expired but not yet removed entries at the last info call",
			[]string{LabelNamespace},
		),
	}
}

// OperationCompleted records an operation's outcome and latency
func (m *StoreMetrics) OperationCompleted(op string, duration time.Duration, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.operationsTotal.WithLabelValues(m.namespace, op, status).Inc()
	m.operationDuration.WithLabelValues(m.namespace, op).Observe(duration.Seconds())
}

// DecodeFailed counts a malformed entry
func (m *StoreMetrics) DecodeFailed(op, physicalKey string, err error) {
	m.decodeFailuresTotal.WithLabelValues(m.namespace, op).Inc()
}

// ExpiredRemoved counts physically removed expired entries
func (m *StoreMetrics) ExpiredRemoved(op string, count int) {
	m.expiredRemovedTotal.WithLabelValues(m.namespace, op).Add(float64(count))
}

// InfoComputed publishes the namespace usage gauges
func (m *StoreMetrics) InfoComputed(totalItems int, totalSize int64, expiredItems int) {
	m.namespaceItems.WithLabelValues(m.namespace).Set(float64(totalItems))
	m.namespaceSize.WithLabelValues(m.namespace).Set(float64(totalSize))
	m.namespaceExpired.WithLabelValues(m.namespace).Set(float64(expiredItems))
}
