// Package observability starts the process-wide telemetry backends: Uptrace
// tracing, Pyroscope continuous profiling and a pprof listener.
package observability

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/mastermhp/Live-Baz-sub000/internal/config"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
)

type stopFunc func(context.Context) error

type backend struct {
	name  string
	start func(config.Config, *logging.Logger) (stopFunc, error)
}

var backends = []backend{
	{name: "uptrace", start: startTracing},
	{name: "pyroscope", start: startProfiling},
	{name: "pprof", start: startPprof},
}

// Telemetry holds whatever backends Setup managed to start.
type Telemetry struct {
	logger   *logging.Logger
	names    []string
	stoppers []stopFunc
}

// Setup starts every enabled backend in order. If one fails, the ones
// already running are stopped before the error is returned.
func Setup(cfg config.Config, logger *logging.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = logging.Default()
	}
	t := &Telemetry{logger: logger}

	for _, b := range backends {
		stop, err := b.start(cfg, logger)
		if err != nil {
			_ = t.Shutdown(context.Background())
			return nil, fmt.Errorf("start %s: %w", b.name, err)
		}
		if stop == nil {
			continue
		}
		t.names = append(t.names, b.name)
		t.stoppers = append(t.stoppers, stop)
	}
	return t, nil
}

// Running lists the started backends in start order.
func (t *Telemetry) Running() []string {
	return slices.Clone(t.names)
}

// Shutdown stops backends in reverse start order and joins their errors.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(t.stoppers) - 1; i >= 0; i-- {
		if err := t.stoppers[i](ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", t.names[i], err))
			continue
		}
		t.logger.Info("telemetry backend stopped", "backend", t.names[i])
	}
	t.names, t.stoppers = nil, nil
	return errors.Join(errs...)
}
