package observability

import (
	"strings"

	"github.com/uptrace/uptrace-go/uptrace"

	"github.com/mastermhp/Live-Baz-sub000/internal/config"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
)

// startTracing installs the global OpenTelemetry providers. Config already
// rejects an enabled backend without a DSN; an empty DSN here means a
// hand-built config and is treated as disabled.
func startTracing(cfg config.Config, logger *logging.Logger) (stopFunc, error) {
	if !cfg.UptraceEnabled || strings.TrimSpace(cfg.UptraceDSN) == "" {
		return nil, nil
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
		uptrace.WithLoggingEnabled(cfg.UptraceLogsEnabled),
	)
	logger.Info("tracing enabled", "backend", "uptrace", "logs", cfg.UptraceLogsEnabled)
	return uptrace.Shutdown, nil
}
