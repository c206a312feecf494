package observability

// Config конфигурация OpenTelemetry (traces + metrics + propagator)
type Config struct {
	// Enabled включить экспорт в OTLP collector; иначе ставятся noop providers
	Enabled bool
	// OTLPEndpoint адрес OTLP gRPC, например "127.0.0.1:4317" или "otel-collector:4317"
	OTLPEndpoint string
	// SamplingRatio доля трасс для семплирования (0..1)
	SamplingRatio float64
	ServiceName           string
	DeploymentEnvironment string
	// ServiceVersion опционально, например из ldflags
	ServiceVersion string
}
