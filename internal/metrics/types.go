package metrics

// Metric name constants following Prometheus naming conventions
// Format: localstore_{metric}_{unit}

// Store metrics
const (
	MetricOperationsTotal       = "localstore_operations_total"
	MetricOperationDuration     = "localstore_operation_duration_seconds"
	MetricDecodeFailuresTotal   = "localstore_decode_failures_total"
	MetricExpiredRemovedTotal   = "localstore_expired_removed_total"
	MetricNamespaceItems        = "localstore_namespace_items"
	MetricNamespaceSizeBytes    = "localstore_namespace_size_bytes"
	MetricNamespaceExpiredItems = "localstore_namespace_expired_items"
)

// Label name constants
const (
	LabelNamespace = "namespace"
	LabelOperation = "operation"
	LabelStatus    = "status"
)

// Status label values
const (
	StatusOK    = "ok"
	StatusError = "error"
)
