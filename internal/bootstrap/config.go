// Package bootstrap assembles one process's composition root: reads its
// environment-variable configuration, wires the substrate client, leader
// elector, health services, and role-specific workers, and exposes a
// Service whose Run blocks until the process supervisor cancels its
// context (spec.md §5 "Shutdown").
package bootstrap

import (
	"time"

	"github.com/sonicx222/arbitrage-new-sub015/common"
	"github.com/sonicx222/arbitrage-new-sub015/pkg/mretry"
)

// CommonConfig holds the environment variables every process reads,
// following the teacher's one-struct-per-process env-tag convention.
type CommonConfig struct {
	EnvName                 string `env:"ENV_NAME"`
	LogLevel                string `env:"LOG_LEVEL"`
	RedisURL                string `env:"REDIS_URL"`
	Region                  string `env:"REGION"`
	OtelServiceName         string `env:"OTEL_RESOURCE_SERVICE_NAME"`
	OtelLibraryName         string `env:"OTEL_LIBRARY_NAME"`
	OtelServiceVersion      string `env:"OTEL_RESOURCE_SERVICE_VERSION"`
	OtelDeploymentEnv       string `env:"OTEL_RESOURCE_DEPLOYMENT_ENVIRONMENT"`
	OtelColExporterEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	EnableTelemetry         bool   `env:"ENABLE_TELEMETRY"`
	MetricsAddr             string `env:"METRICS_ADDR"`
}

// metricsAddrOrDefault returns c.MetricsAddr, or spec.md's default
// Prometheus bind address if unset.
func (c CommonConfig) metricsAddrOrDefault() string {
	if c.MetricsAddr != "" {
		return c.MetricsAddr
	}

	return ":9090"
}

// ConfigValidationError reports an invalid or missing environment value,
// mapped to process exit code 2 (spec.md §6).
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e ConfigValidationError) Error() string {
	return "invalid configuration: " + e.Field + ": " + e.Message
}

func (c CommonConfig) validate() error {
	if c.RedisURL == "" {
		return ConfigValidationError{Field: "REDIS_URL", Message: "must be set"}
	}

	if c.Region == "" {
		return ConfigValidationError{Field: "REGION", Message: "must be set"}
	}

	return nil
}

// substrateRetryConfig is the capped-exponential-backoff policy used for
// substrate connection retries at process startup (spec.md §4.1: 100ms
// initial, 30s cap, 20 attempts, ~5 minute budget).
func substrateRetryConfig() mretry.Config {
	return mretry.DefaultSubstrateConfig()
}

// processStartTime anchors the degradation classifier's startup-grace
// window to when this process began running.
var processStartTime = time.Now()

// ShutdownBudgets holds per-task grace periods (spec.md §5 "Cancellation &
// timeouts"). Nothing in this build consults them: common.Launcher waits
// for every App to return with no time limit, and no App is abandoned when
// a budget runs out.
type ShutdownBudgets struct {
	Reader    time.Duration
	Worker    time.Duration
	Heartbeat time.Duration
}

// DefaultShutdownBudgets returns spec.md §5's defaults.
func DefaultShutdownBudgets() ShutdownBudgets {
	return ShutdownBudgets{
		Reader:    2 * time.Second,
		Worker:    5 * time.Second,
		Heartbeat: 1 * time.Second,
	}
}

// Service is the common shape every cmd/ entrypoint runs: a fully wired
// Launcher plus the context it honors for shutdown.
type Service struct {
	Launcher *common.Launcher
}

// Run blocks until every registered App returns, which happens once the
// launcher's context is cancelled and each App observes it; there is no
// time limit on that wait.
func (s *Service) Run() {
	s.Launcher.Run()
}
