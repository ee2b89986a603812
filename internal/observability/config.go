package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/smallbiznis/ledgerly/internal/config"
)

// Config carries the logging and telemetry settings shared by the logger,
// tracer and metric providers. Values come from the process environment,
// with the application config as the fallback.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	out := Config{
		ServiceName:          strings.TrimSpace(cfg.AppName),
		Environment:          strings.TrimSpace(getenv("DEPLOYMENT_ENV", cfg.Environment)),
		Version:              strings.TrimSpace(getenv("SERVICE_VERSION", cfg.AppVersion)),
		LogLevel:             strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:            strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
		OtelEnabled:          getenvBool("OTEL_ENABLED", true),
		OtelExporterEndpoint: strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)),
		OtelExporterProtocol: exporterProtocol(),
		OtelSamplingRatio:    getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
	}
	if out.ServiceName == "" {
		out.ServiceName = "ledgerly"
	}
	return out
}

// exporterProtocol resolves the OTLP wire protocol. The signal-specific
// traces variable wins over the generic one, matching the collector's own
// precedence.
func exporterProtocol() string {
	protocol := getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	if traces := os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"); strings.TrimSpace(traces) != "" {
		protocol = traces
	}
	return strings.ToLower(strings.TrimSpace(protocol))
}

// Debug reports whether verbose diagnostics should be on: either the log
// level asks for it or the deployment is a non-production one.
func (c Config) Debug() bool {
	if strings.ToLower(strings.TrimSpace(c.LogLevel)) == "debug" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func getenv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return parsed
}
