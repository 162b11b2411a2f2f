package tracing

// Span attribute keys following OpenTelemetry semantic conventions
const (
	// Store attributes
	AttrNamespace = "localstore.namespace"
	AttrKey       = "localstore.key"

	// Operation attributes
	AttrOperation = "localstore.operation"
	AttrStatus    = "localstore.status"

	// Result attributes
	AttrFound        = "localstore.found"
	AttrExpired      = "localstore.expired"
	AttrItemCount    = "localstore.item.count"
	AttrBytes        = "localstore.bytes"
	AttrRemovedCount = "localstore.removed.count"
)
