package telemetry

// Config holds configuration for the tracer
type Config struct {
	// ServiceName is the name of the service
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Endpoint is the OTLP/gRPC collector endpoint, host:port.
	// Tracing is disabled when it is empty.
	Endpoint string

	// Insecure disables TLS towards the collector
	Insecure bool

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0)
	SampleRatio float64
}

// DefaultConfig returns a disabled configuration
func DefaultConfig() Config {
	return Config{
		ServiceName:    "schoolctl",
		ServiceVersion: "dev",
		SampleRatio:    1.0,
	}
}

// Enabled reports whether spans are exported
func (c Config) Enabled() bool {
	return c.Endpoint != ""
}
