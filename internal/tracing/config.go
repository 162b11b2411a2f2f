package tracing

// Sampling strategies
const (
	SamplingAlways = "always"
	SamplingNever  = "never"
	SamplingRatio  = "ratio"
)

// TracingConfig holds configuration for OpenTelemetry tracing
type TracingConfig struct {
	// Enabled enables/disables tracing
	Enabled bool

	// ServiceName is the service name for traces
	ServiceName string

	// ServiceVersion is the service version
	ServiceVersion string

	// Endpoint is the OTLP endpoint (host:port)
	Endpoint string

	// Insecure disables TLS for the exporter connection
	Insecure bool

	// Headers contains additional headers for OTLP export
	Headers map[string]string

	// ExporterType specifies the exporter type: "grpc" or "http"
	ExporterType string

	// SamplingStrategy is one of "always", "never" or "ratio"
	SamplingStrategy string

	// SamplingRatio is the fraction of traces kept with the "ratio" strategy
	SamplingRatio float64
}

// DefaultTracingConfig returns a default tracing configuration
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Enabled:          false,
		ServiceName:      "localstore",
		ServiceVersion:   "dev",
		Endpoint:         "",
		Insecure:         false,
		Headers:          make(map[string]string),
		ExporterType:     "grpc",
		SamplingStrategy: SamplingAlways,
		SamplingRatio:    1.0,
	}
}
