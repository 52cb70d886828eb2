package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/mastermhp/Live-Baz-sub000/internal/platform/logging"
	"github.com/mastermhp/Live-Baz-sub000/internal/platform/metrics"
)

type CounterPublisher interface {
	PublishCounters(ctx context.Context, windowStart, windowEnd time.Time, counters metrics.Totals) error
}

type CounterSource interface {
	Totals() metrics.Totals
}

// AnalyticsFlusher pushes the pipeline counters accumulated since the last
// successful push. A failed push is retried with the widened window on the
// next tick.
type AnalyticsFlusher struct {
	publisher CounterPublisher
	source    CounterSource
	interval  time.Duration
	logger    *logging.Logger
	now       func() time.Time

	mu          sync.Mutex
	windowStart time.Time
	baseline    metrics.Totals
}

func NewAnalyticsFlusher(publisher CounterPublisher, source CounterSource, interval time.Duration, logger *logging.Logger) *AnalyticsFlusher {
	if logger == nil {
		logger = logging.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	f := &AnalyticsFlusher{
		publisher: publisher,
		source:    source,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
	f.windowStart = f.now().UTC()
	return f
}

// Run flushes on every interval until ctx is done, then once more.
func (f *AnalyticsFlusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = f.Flush(flushCtx)
			cancel()
			return
		case <-ticker.C:
			_ = f.Flush(ctx)
		}
	}
}

func (f *AnalyticsFlusher) Flush(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	current := f.source.Totals()
	delta := current.Sub(f.baseline)
	if delta == (metrics.Totals{}) {
		return nil
	}

	windowEnd := f.now().UTC()
	if err := f.publisher.PublishCounters(ctx, f.windowStart, windowEnd, delta); err != nil {
		f.logger.WarnContext(ctx, "analytics counter push failed",
			"window_start", f.windowStart,
			"events_published", delta.EventsPublished,
			"error", err,
		)
		return err
	}

	f.baseline = current
	f.windowStart = windowEnd
	f.logger.DebugContext(ctx, "analytics counters pushed",
		"cycles", delta.Cycles,
		"events_published", delta.EventsPublished,
	)
	return nil
}
